package faceapi

import "context"

// Attribute is a facial property the caller asks the service to compute.
type Attribute string

const (
	AttributeHeadPose Attribute = "headPose"
	AttributeBlur     Attribute = "blur"
	AttributeMask     Attribute = "mask"
)

// DefaultAttributes returns the attribute set requested by the detect pipeline.
func DefaultAttributes() []Attribute {
	return []Attribute{AttributeHeadPose, AttributeBlur, AttributeMask}
}

// Rectangle is the pixel bounding box of a detected face.
type Rectangle struct {
	Top    int `json:"top"`
	Left   int `json:"left"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// HeadPose holds the face orientation angles in degrees.
type HeadPose struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
}

// Blur describes how blurred the face region is.
type Blur struct {
	Level string  `json:"blurLevel"`
	Value float64 `json:"value"`
}

// Mask describes face-covering detection.
type Mask struct {
	Type                string `json:"type"`
	NoseAndMouthCovered bool   `json:"noseAndMouthCovered"`
}

// Attributes groups the optional per-face attributes returned by the service.
type Attributes struct {
	HeadPose HeadPose `json:"headPose"`
	Blur     Blur     `json:"blur"`
	Mask     Mask     `json:"mask"`
}

// Face is one detected face record as returned by the remote service.
type Face struct {
	Rectangle  Rectangle  `json:"faceRectangle"`
	Attributes Attributes `json:"faceAttributes"`
}

// Detector is the seam between the pipeline and the remote detection service.
// Implementations issue one synchronous call per Detect invocation.
type Detector interface {
	Detect(ctx context.Context, image []byte, attrs []Attribute) ([]Face, error)
}
