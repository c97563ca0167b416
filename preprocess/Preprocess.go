// Package preprocess converts raw game frames into the small binary
// frames that the Q-networks consume, and stacks the most recent frames
// into agent states.
package preprocess

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"gonum.org/v1/gonum/mat"
)

// Threshold is the largest gray level (on the 0-255 scale) that is
// mapped to 0. Every brighter pixel is mapped to 1.
//
// The game background is a near-uniform bright colour while the bird
// and pipes are rendered black, so only near-black pixels are treated as
// foreground.
const Threshold uint8 = 1

// Default frame size after preprocessing
const (
	DefaultWidth  = 72
	DefaultHeight = 128
)

// Preprocessor downsamples colour frames to Width x Height binary
// grayscale frames.
type Preprocessor struct {
	Width  int
	Height int
}

// New returns a new Preprocessor producing frames of the given size
func New(width, height int) (Preprocessor, error) {
	if width < 1 || height < 1 {
		return Preprocessor{}, fmt.Errorf("new: frame dimensions must be "+
			"positive \n\thave(%v x %v)", width, height)
	}
	return Preprocessor{Width: width, Height: height}, nil
}

// Features returns the number of values in a single preprocessed frame
func (p Preprocessor) Features() int {
	return p.Width * p.Height
}

// Process resizes frame, converts it to grayscale, and binarizes it.
// The returned matrix has Height rows and Width columns.
func (p Preprocessor) Process(frame image.Image) *mat.Dense {
	gray := p.resize(frame)

	data := make([]float64, p.Width*p.Height)
	for y := 0; y < p.Height; y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+p.Width]
		for x, v := range row {
			if v > Threshold {
				data[y*p.Width+x] = 1.0
			}
		}
	}
	return mat.NewDense(p.Height, p.Width, data)
}

// resize returns frame as a Width x Height grayscale image
func (p Preprocessor) resize(frame image.Image) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, p.Width, p.Height))

	b := frame.Bounds()
	if b.Dx() == p.Width && b.Dy() == p.Height {
		for y := 0; y < p.Height; y++ {
			for x := 0; x < p.Width; x++ {
				c := color.GrayModel.Convert(frame.At(b.Min.X+x, b.Min.Y+y))
				dst.SetGray(x, y, c.(color.Gray))
			}
		}
		return dst
	}

	draw.NearestNeighbor.Scale(dst, dst.Bounds(), frame, b, draw.Src, nil)
	return dst
}

// ToImage renders a binary frame as a grayscale image, with 0 mapped to
// black and 1 mapped to white.
func ToImage(frame mat.Matrix) *image.Gray {
	rows, cols := frame.Dims()
	img := image.NewGray(image.Rect(0, 0, cols, rows))
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if frame.At(y, x) > 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}
