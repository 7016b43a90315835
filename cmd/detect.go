package cmd

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // register decoders for input files
	_ "image/png"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/noahrubin989/Azure-Face-Detection/internal/annotate"
	"github.com/noahrubin989/Azure-Face-Detection/internal/config"
	"github.com/noahrubin989/Azure-Face-Detection/internal/faceapi"
	"github.com/noahrubin989/Azure-Face-Detection/internal/store"
	"github.com/noahrubin989/Azure-Face-Detection/internal/utils"
)

var detectOpts Options

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Detect faces in one image and save an annotated copy",
	Run: func(cmd *cobra.Command, args []string) {
		runDetect(cmd.Context(), detectOpts)
	},
}

func init() {
	detectCmd.Flags().StringVarP(&detectOpts.InputPath, "input", "i", "people.jpg", "Path to the input image")
	detectCmd.Flags().StringVarP(&detectOpts.OutputPath, "output", "o", "faces_detected.jpg", "Path for the annotated image")
	detectCmd.Flags().StringVarP(&detectOpts.Timeout, "timeout", "t", "30s", "Timeout for the detection request")
	detectCmd.Flags().BoolVarP(&detectOpts.Record, "record", "r", false, "Persist the run to the history database")

	rootCmd.AddCommand(detectCmd)
}

// pipelineResult captures the outcome of one pipeline execution.
type pipelineResult struct {
	ImageID   string
	Faces     []faceapi.Face
	FaceCount int
}

func runDetect(ctx context.Context, opts Options) {
	if err := validateDetectFlags(&opts); err != nil {
		utils.Die("Invalid arguments", err)
	}

	// Credentials are verified before any network call is attempted.
	cfg, err := config.Load()
	if err != nil {
		utils.Die("Configuration failed", err)
	}

	timeout, _ := time.ParseDuration(opts.Timeout)
	client := faceapi.NewClient(cfg.Endpoint, cfg.Key,
		faceapi.WithTimeout(timeout),
		faceapi.WithLogger(logger),
	)

	result, err := executePipeline(ctx, client, opts.InputPath, opts.OutputPath, os.Stdout)
	if err != nil {
		utils.Die("Detection failed", err)
	}

	if opts.Record {
		db := openStore(ctx)
		run := store.Run{
			ID:         uuid.NewString(),
			ImageID:    result.ImageID,
			ImagePath:  opts.InputPath,
			FaceCount:  result.FaceCount,
			OutputPath: opts.OutputPath,
		}
		if err := db.RecordRun(ctx, run, result.Faces); err != nil {
			utils.Die("Failed to record run", err)
		}
	}

	fmt.Printf("\nResults saved in %s\n", opts.OutputPath)
}

// executePipeline runs the full single-image flow: read, detect, summarize,
// draw, write. Nothing is written to outputPath unless every prior step
// succeeded. The detector seam lets tests substitute a stub service.
func executePipeline(ctx context.Context, det faceapi.Detector, inputPath, outputPath string, stdout io.Writer) (*pipelineResult, error) {
	raw, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read input image: %w", err)
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode input image: %w", err)
	}

	imageID, err := utils.GenerateImageID(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint input image: %w", err)
	}

	faces, err := det.Detect(ctx, raw, faceapi.DefaultAttributes())
	if err != nil {
		return nil, err
	}

	annotate.Summarize(stdout, faces)

	annotated := annotate.Render(src, faces)
	if err := annotate.WriteJPEG(outputPath, annotated); err != nil {
		return nil, err
	}

	return &pipelineResult{
		ImageID:   imageID,
		Faces:     faces,
		FaceCount: len(faces),
	}, nil
}

// validateDetectFlags ensures all CLI arguments are valid before any network call.
func validateDetectFlags(opts *Options) error {
	info, err := os.Stat(opts.InputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("input file does not exist: %s", opts.InputPath)
		}
		return fmt.Errorf("unable to access input file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("input path is a directory, expected an image file: %s", opts.InputPath)
	}
	if !utils.IsImageFile(opts.InputPath) {
		return fmt.Errorf("unsupported image type: %s", opts.InputPath)
	}
	if opts.OutputPath == "" {
		return fmt.Errorf("output path must not be empty")
	}
	if d, err := time.ParseDuration(opts.Timeout); err != nil || d <= 0 {
		return fmt.Errorf("invalid timeout format (use '30s', '500ms'): %s", opts.Timeout)
	}
	return nil
}
