package preprocess

import (
	"fmt"

	"github.com/gammazero/deque"
	"gonum.org/v1/gonum/mat"
)

// FrameStack holds the last N preprocessed frames of an episode. A
// FrameStack always holds exactly N frames once it has been Reset.
type FrameStack struct {
	frames   *deque.Deque[*mat.Dense]
	size     int
	features int
}

// NewFrameStack returns an empty FrameStack of n frames, each of the
// given number of features.
func NewFrameStack(n, features int) (*FrameStack, error) {
	if n < 1 {
		return nil, fmt.Errorf("newframestack: stack size must be "+
			"positive \n\thave(%v)", n)
	}
	return &FrameStack{
		frames:   deque.New[*mat.Dense](n),
		size:     n,
		features: features,
	}, nil
}

// Size returns the number of frames in a state
func (f *FrameStack) Size() int {
	return f.size
}

// Features returns the length of the flattened state
func (f *FrameStack) Features() int {
	return f.size * f.features
}

// Reset fills every slot of the stack with frame
func (f *FrameStack) Reset(frame *mat.Dense) {
	f.frames.Clear()
	for i := 0; i < f.size; i++ {
		f.frames.PushBack(frame)
	}
}

// Push appends frame as the newest frame in the stack and evicts the
// oldest one.
func (f *FrameStack) Push(frame *mat.Dense) {
	if f.frames.Len() == 0 {
		f.Reset(frame)
		return
	}
	f.frames.PopFront()
	f.frames.PushBack(frame)
}

// State returns the flattened stack, oldest frame first. The returned
// slice is newly allocated.
func (f *FrameStack) State() []float64 {
	state := make([]float64, 0, f.Features())
	for i := 0; i < f.frames.Len(); i++ {
		state = append(state, f.frames.At(i).RawMatrix().Data...)
	}
	return state
}
