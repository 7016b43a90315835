package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/noahrubin989/Azure-Face-Detection/internal/config"
	"github.com/noahrubin989/Azure-Face-Detection/internal/faceapi"
	"github.com/noahrubin989/Azure-Face-Detection/internal/store"
	"github.com/noahrubin989/Azure-Face-Detection/internal/utils"
)

var scanOpts Options

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Detect faces in every image of a directory and record the results",
	Run: func(cmd *cobra.Command, args []string) {
		runScan(cmd.Context(), scanOpts)
	},
}

func init() {
	scanCmd.Flags().StringVarP(&scanOpts.InputDir, "dir", "d", "", "Directory of images to scan")
	scanCmd.Flags().StringVarP(&scanOpts.Timeout, "timeout", "t", "30s", "Timeout per detection request")

	scanCmd.MarkFlagRequired("dir")
	rootCmd.AddCommand(scanCmd)
}

// scanOutcome summarizes one processed image for the final report.
type scanOutcome struct {
	Path      string
	FaceCount int
	Err       error
}

// runScan walks the directory and feeds each image through the same
// single-image pipeline as detect, one synchronous call at a time.
// Annotated copies land next to the originals; every run is recorded.
func runScan(ctx context.Context, opts Options) {
	files, err := collectImages(opts.InputDir)
	if err != nil {
		utils.Die("Failed to read scan directory", err)
	}
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "No images found in %s\n", opts.InputDir)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		utils.Die("Configuration failed", err)
	}

	timeout, err := time.ParseDuration(opts.Timeout)
	if err != nil || timeout <= 0 {
		utils.Die("Invalid timeout format (use '30s', '500ms')", err)
	}

	client := faceapi.NewClient(cfg.Endpoint, cfg.Key,
		faceapi.WithTimeout(timeout),
		faceapi.WithLogger(logger),
	)
	db := openStore(ctx)

	fmt.Fprintf(os.Stderr, "📼 Scanning %d images in %s\n", len(files), opts.InputDir)

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("🔍 Facetrace Scanning"),
		progressbar.OptionSetWriter(os.Stderr), // Write bar to Stderr
		progressbar.OptionShowCount(),
	)

	outcomes := make([]scanOutcome, 0, len(files))
	totalFaces := 0
	for _, path := range files {
		outcome := scanOne(ctx, client, db, path)
		if outcome.Err == nil {
			totalFaces += outcome.FaceCount
		}
		outcomes = append(outcomes, outcome)
		bar.Add(1)
	}
	bar.Finish()

	printScanSummary(outcomes, totalFaces)
}

func scanOne(ctx context.Context, det faceapi.Detector, db *store.Store, path string) scanOutcome {
	// Per-face console blocks are suppressed during batch scans; the
	// progress bar owns the terminal until the summary.
	result, err := executePipeline(ctx, det, path, utils.AnnotatedName(path), io.Discard)
	if err != nil {
		return scanOutcome{Path: path, Err: err}
	}

	run := store.Run{
		ID:         uuid.NewString(),
		ImageID:    result.ImageID,
		ImagePath:  path,
		FaceCount:  result.FaceCount,
		OutputPath: utils.AnnotatedName(path),
	}
	if err := db.RecordRun(ctx, run, result.Faces); err != nil {
		return scanOutcome{Path: path, Err: err}
	}

	return scanOutcome{Path: path, FaceCount: result.FaceCount}
}

// collectImages returns the supported image files directly under dir, sorted.
func collectImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !utils.IsImageFile(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func printScanSummary(outcomes []scanOutcome, totalFaces int) {
	fmt.Fprintf(os.Stderr, "\n---------------------------------------------------------\n")
	fmt.Fprintf(os.Stderr, "📊 SCAN SUMMARY\n")
	fmt.Fprintf(os.Stderr, "---------------------------------------------------------\n")

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "⚠️  %s: %v\n", o.Path, o.Err)
			continue
		}
		fmt.Fprintf(os.Stderr, "👤 %s: %d faces\n", o.Path, o.FaceCount)
	}

	fmt.Fprintf(os.Stderr, "\n---------------------------------------------------------\n")
	fmt.Fprintf(os.Stderr, "👁️  Total Face Detections:   %d\n", totalFaces)
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "🚨 Failed Images:            %d\n", failed)
	}
	fmt.Fprintf(os.Stderr, "---------------------------------------------------------\n")

	if failed > 0 {
		os.Exit(1)
	}
}
