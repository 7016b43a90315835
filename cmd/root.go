package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noahrubin989/Azure-Face-Detection/internal/config"
	"github.com/noahrubin989/Azure-Face-Detection/internal/logging"
	"github.com/noahrubin989/Azure-Face-Detection/internal/store"
)

// Options holds shared configuration for the detect and scan commands
type Options struct {
	InputPath  string
	OutputPath string
	InputDir   string
	Timeout    string
	Record     bool
}

var (
	// DB is the database connection shared by subcommands that need history.
	// It is opened lazily: plain detect runs never touch PostgreSQL.
	DB *store.Store
	// dbURL is the connection string
	dbURL string
	// logger is the structured logger shared by subcommands
	logger *zap.Logger
)

// Version is the application version.
const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "facetrace",
	Short:   "Cloud Face Detection & Image Annotation Toolkit",
	Version: Version, // This enables the --version flag
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load a local .env file first so AI_SERVICE_* and POSTGRES_* values
		// are visible to every subcommand.
		if err := config.LoadDotenv(); err != nil {
			return err
		}

		var err error
		logger, err = logging.NewLogger()
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if DB != nil {
			// Use Background here because the main context might be cancelled
			// already (due to Ctrl+C) and we still need to close the connection.
			DB.Close(context.Background())
		}
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// openStore connects to PostgreSQL on first use, resolving the connection
// string from the --db flag, DATABASE_URL, or the POSTGRES_* variables.
func openStore(ctx context.Context) *store.Store {
	if DB != nil {
		return DB
	}

	if dbURL == "" {
		if env := os.Getenv("DATABASE_URL"); env != "" {
			dbURL = env
		} else if host := os.Getenv("POSTGRES_HOST"); host != "" {
			user := os.Getenv("POSTGRES_USER")
			pass := os.Getenv("POSTGRES_PASSWORD")
			name := os.Getenv("POSTGRES_DB")
			port := os.Getenv("POSTGRES_PORT")
			if port == "" {
				port = "5432"
			}
			dbURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s", user, pass, host, port, name)
		} else {
			// Fallback to local default if no env vars are present
			dbURL = "postgres://localhost:5432/facetrace"
		}
	}

	db, err := store.New(ctx, dbURL, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to connect to database:", err)
		os.Exit(1)
	}
	DB = db
	return DB
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// This tells Cobra not to print the version in the help text, which is cleaner.
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "PostgreSQL connection string (default: postgres://localhost:5432/facetrace)")
}
