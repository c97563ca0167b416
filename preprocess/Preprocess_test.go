package preprocess

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func colourFrame(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/4 {
				img.Set(x, y, color.Black)
			} else {
				img.Set(x, y, color.RGBA{R: 78, G: 192, B: 202, A: 255})
			}
		}
	}
	return img
}

func TestProcessShapeAndRange(t *testing.T) {
	p, err := New(DefaultWidth, DefaultHeight)
	require.NoError(t, err)

	out := p.Process(colourFrame(288, 512))
	r, c := out.Dims()
	require.Equal(t, DefaultHeight, r)
	require.Equal(t, DefaultWidth, c)

	for _, v := range out.RawMatrix().Data {
		require.True(t, v == 0.0 || v == 1.0)
	}

	// Black bird/pipe region maps to 0, background maps to 1
	require.Equal(t, 0.0, out.At(10, 0))
	require.Equal(t, 1.0, out.At(10, DefaultWidth-1))
}

func TestProcessIdempotent(t *testing.T) {
	p, err := New(DefaultWidth, DefaultHeight)
	require.NoError(t, err)

	first := p.Process(colourFrame(288, 512))
	second := p.Process(ToImage(first))
	require.True(t, mat.Equal(first, second))
}

func TestNewRejectsBadSize(t *testing.T) {
	_, err := New(0, 10)
	require.Error(t, err)
}

func TestFrameStack(t *testing.T) {
	s, err := NewFrameStack(3, 2)
	require.NoError(t, err)
	require.Equal(t, 6, s.Features())

	a := mat.NewDense(1, 2, []float64{1, 0})
	b := mat.NewDense(1, 2, []float64{0, 1})

	s.Reset(a)
	require.Equal(t, []float64{1, 0, 1, 0, 1, 0}, s.State())

	s.Push(b)
	require.Equal(t, []float64{1, 0, 1, 0, 0, 1}, s.State())

	s.Push(b)
	s.Push(b)
	require.Equal(t, []float64{0, 1, 0, 1, 0, 1}, s.State())

	_, err = NewFrameStack(0, 2)
	require.Error(t, err)
}
