package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/noahrubin989/Azure-Face-Detection/internal/utils"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all recorded detection runs",
	Run: func(cmd *cobra.Command, args []string) {
		runList(cmd)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command) {
	ctx := cmd.Context()
	db := openStore(ctx)

	runs, err := db.ListRuns(ctx)
	if err != nil {
		utils.Die("Failed to list detection runs", err)
	}

	if len(runs) == 0 {
		fmt.Println("No detection runs found in database.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "RUN\tIMAGE\tFACES\tOUTPUT\tDETECTED")
	fmt.Fprintln(w, "---\t-----\t-----\t------\t--------")

	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			shortID(r.ID), r.ImagePath, r.FaceCount, r.OutputPath,
			r.DetectedAt.Local().Format("2006-01-02 15:04"))
	}
	w.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
