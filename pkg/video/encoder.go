package video

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Encoder compresses a frame into a still image, drawing the given regions.
type Encoder interface {
	Encode(frame Frame, regions []image.Rectangle) ([]byte, error)
}

// JPEGEncoder encodes frames with OpenCV.
type JPEGEncoder struct {
	Quality   int        // 1-100
	Color     color.RGBA // Region outline
	Thickness int        // Region outline width in pixels
}

// NewJPEGEncoder returns an encoder outlining regions in blue.
func NewJPEGEncoder(quality int) *JPEGEncoder {
	if quality <= 0 || quality > 100 {
		quality = 90
	}
	return &JPEGEncoder{
		Quality:   quality,
		Color:     color.RGBA{B: 255},
		Thickness: 2,
	}
}

// Encode draws regions onto the frame and returns JPEG bytes.
// The drawing happens on a copy; frame.Data is left untouched.
func (e *JPEGEncoder) Encode(frame Frame, regions []image.Rectangle) ([]byte, error) {
	if !frame.Valid() {
		return nil, ErrInvalidFrame
	}
	mat, err := frame.Clone().Mat()
	if err != nil {
		return nil, fmt.Errorf("frame to mat: %w", err)
	}
	defer mat.Close()

	for _, r := range regions {
		gocv.Rectangle(&mat, r, e.Color, e.Thickness)
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{gocv.IMWriteJpegQuality, e.Quality})
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	return append([]byte(nil), buf.GetBytes()...), nil
}
