package annotate

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"io"
	"os"

	"github.com/noahrubin989/Azure-Face-Detection/internal/faceapi"
)

// Fixed styling for every bounding box.
var BoxColor = color.RGBA{R: 144, G: 238, B: 144, A: 255} // light green

const (
	StrokeWidth = 2
	jpegQuality = 95
)

// Summarize prints one human-readable attribute block per face to w, in the
// order the service returned them.
func Summarize(w io.Writer, faces []faceapi.Face) {
	if len(faces) > 0 {
		fmt.Fprintf(w, "%d faces detected.\n", len(faces))
	}

	for i, face := range faces {
		a := face.Attributes
		fmt.Fprintf(w, "\nFace number %d\n", i+1)
		fmt.Fprintf(w, " - Head Pose (Yaw): %v\n", a.HeadPose.Yaw)
		fmt.Fprintf(w, " - Head Pose (Pitch): %v\n", a.HeadPose.Pitch)
		fmt.Fprintf(w, " - Head Pose (Roll): %v\n", a.HeadPose.Roll)
		fmt.Fprintf(w, " - Blur: %v\n", a.Blur.Level)
		fmt.Fprintf(w, " - Mask: %v\n", a.Mask.Type)
		fmt.Fprintf(w, " - Nose and mouth covered: %v\n", a.Mask.NoseAndMouthCovered)
	}
}

// Render copies src and strokes one rectangle per face at its bounding box,
// in input order. With no faces the returned pixels are identical to src.
func Render(src image.Image, faces []faceapi.Face) *image.RGBA {
	bounds := src.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, src, bounds.Min, draw.Src)

	for _, face := range faces {
		strokeRect(out, face.Rectangle)
	}
	return out
}

// strokeRect fills the four edge bands of the box, clamped to the image.
func strokeRect(dst *image.RGBA, r faceapi.Rectangle) {
	box := image.Rect(r.Left, r.Top, r.Left+r.Width, r.Top+r.Height).
		Add(dst.Bounds().Min)

	edges := []image.Rectangle{
		image.Rect(box.Min.X, box.Min.Y, box.Max.X, box.Min.Y+StrokeWidth), // top
		image.Rect(box.Min.X, box.Max.Y-StrokeWidth, box.Max.X, box.Max.Y), // bottom
		image.Rect(box.Min.X, box.Min.Y, box.Min.X+StrokeWidth, box.Max.Y), // left
		image.Rect(box.Max.X-StrokeWidth, box.Min.Y, box.Max.X, box.Max.Y), // right
	}

	fill := image.NewUniform(BoxColor)
	for _, edge := range edges {
		draw.Draw(dst, edge.Intersect(dst.Bounds()), fill, image.Point{}, draw.Src)
	}
}

// WriteJPEG persists the annotated image, overwriting any existing file.
func WriteJPEG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode output image: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
