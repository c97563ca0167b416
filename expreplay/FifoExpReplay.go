package expreplay

import (
	"fmt"
	"sync"

	"github.com/samuelfneumann/deepflap/timestep"
	"github.com/samuelfneumann/deepflap/utils/intutils"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// fifoCache implements a concrete ExperienceReplayer where the oldest
// transition is evicted when a new transition is added to a full
// buffer.
//
// States are binary frame stacks, so they are stored as one byte per
// feature rather than as float64s. Storing a state with values other
// than 0 and 1 is not supported: any positive value is stored as 1.
type fifoCache struct {
	wait           sync.WaitGroup // Guards the following caches
	stateCache     []byte
	actionCache    []float64
	rewardCache    []float64
	terminalCache  []bool
	nextStateCache []byte

	currentInUsePos int
	isFull          bool

	source rand.Source

	batchSize   int
	maxCapacity int
	featureSize int
	actionSize  int
}

// New returns a new FiFo experience replay buffer which holds at most
// maxCapacity transitions of states with featureSize features and
// one-hot actions of actionSize elements.
func New(maxCapacity, batchSize, featureSize, actionSize int,
	seed uint64) (ExperienceReplayer, error) {
	if maxCapacity < 1 {
		return nil, fmt.Errorf("new: max capacity must be positive "+
			"\n\thave(%v)", maxCapacity)
	}
	if batchSize < 1 {
		return nil, fmt.Errorf("new: batch size must be positive "+
			"\n\thave(%v)", batchSize)
	}
	if featureSize < 1 || actionSize < 1 {
		return nil, fmt.Errorf("new: feature and action sizes must be "+
			"positive \n\thave(%v, %v)", featureSize, actionSize)
	}

	return &fifoCache{
		stateCache:     make([]byte, maxCapacity*featureSize),
		actionCache:    make([]float64, maxCapacity*actionSize),
		rewardCache:    make([]float64, maxCapacity),
		terminalCache:  make([]bool, maxCapacity),
		nextStateCache: make([]byte, maxCapacity*featureSize),

		source: rand.NewSource(seed),

		batchSize:   batchSize,
		maxCapacity: maxCapacity,
		featureSize: featureSize,
		actionSize:  actionSize,
	}, nil
}

// String returns the string representation of the fifoCache
func (c *fifoCache) String() string {
	return fmt.Sprintf("FifoCache | Len: %v  |  Capacity: %v  |  "+
		"Batch Size: %v", c.Len(), c.Capacity(), c.BatchSize())
}

// BatchSize returns the number of samples sampled using Sample() -
// a.k.a the batch size
func (c *fifoCache) BatchSize() int {
	return c.batchSize
}

// Len returns the current number of transitions in the buffer
func (c *fifoCache) Len() int {
	if c.isFull {
		return c.maxCapacity
	}
	return c.currentInUsePos
}

// Capacity returns the maximum number of transitions that are allowed
// in the buffer
func (c *fifoCache) Capacity() int {
	return c.maxCapacity
}

// insertOrder returns the buffer indices holding data, oldest first
func (c *fifoCache) insertOrder() []int {
	indices := make([]int, 0, c.Len())
	if c.isFull {
		for i := c.currentInUsePos; i < c.maxCapacity; i++ {
			indices = append(indices, i)
		}
	}
	for i := 0; i < c.currentInUsePos; i++ {
		indices = append(indices, i)
	}
	return indices
}

// Sample samples and returns a batch of BatchSize() transitions
func (c *fifoCache) Sample() (Batch, error) {
	return c.SampleN(c.BatchSize())
}

// SampleN samples n distinct transitions uniformly at random
func (c *fifoCache) SampleN(n int) (Batch, error) {
	if n < 1 {
		return Batch{}, &ExpReplayError{
			Op:  "sample",
			Err: fmt.Errorf("sample size must be positive, have(%v)", n),
		}
	}
	if n > c.Len() {
		return Batch{}, &ExpReplayError{
			Op:  "sample",
			Err: ErrInsufficientData,
		}
	}

	indices := make([]int, n)
	sampleuv.WithoutReplacement(indices, c.Len(), c.source)

	return c.gather(indices), nil
}

// gather collects the transitions at the argument buffer indices
// into a Batch
func (c *fifoCache) gather(indices []int) Batch {
	n := len(indices)
	batch := Batch{
		States:     make([]float64, n*c.featureSize),
		Actions:    make([]float64, n*c.actionSize),
		Rewards:    make([]float64, n),
		NextStates: make([]float64, n*c.featureSize),
		Terminals:  make([]bool, n),
	}

	c.wait.Add(2 * n)
	for i, index := range indices {
		batchStartInd := i * c.featureSize
		expStartInd := index * c.featureSize

		go func() {
			expand(batch.States[batchStartInd:batchStartInd+c.featureSize],
				c.stateCache[expStartInd:expStartInd+c.featureSize])
			c.wait.Done()
		}()
		go func() {
			expand(batch.NextStates[batchStartInd:batchStartInd+c.featureSize],
				c.nextStateCache[expStartInd:expStartInd+c.featureSize])
			c.wait.Done()
		}()
	}

	for i, index := range indices {
		copy(batch.Actions[i*c.actionSize:(i+1)*c.actionSize],
			c.actionCache[index*c.actionSize:(index+1)*c.actionSize])
		batch.Rewards[i] = c.rewardCache[index]
		batch.Terminals[i] = c.terminalCache[index]
	}

	c.wait.Wait()
	return batch
}

// Add adds a transition to the fifoCache
func (c *fifoCache) Add(t timestep.Transition) error {
	if len(t.State) != c.featureSize || len(t.NextState) != c.featureSize {
		return fmt.Errorf("add: invalid feature size \n\twant(%v)"+
			"\n\thave(%v, %v)", c.featureSize, len(t.State),
			len(t.NextState))
	}
	if t.Action == nil || t.Action.Len() != c.actionSize {
		have := 0
		if t.Action != nil {
			have = t.Action.Len()
		}
		return fmt.Errorf("add: invalid action size \n\twant(%v)\n\thave(%v)",
			c.actionSize, have)
	}

	index := c.currentInUsePos
	stateInd := index * c.featureSize
	compress(c.stateCache[stateInd:stateInd+c.featureSize], t.State)
	compress(c.nextStateCache[stateInd:stateInd+c.featureSize], t.NextState)

	actionInd := index * c.actionSize
	copy(c.actionCache[actionInd:actionInd+c.actionSize],
		t.Action.RawVector().Data)

	c.rewardCache[index] = t.Reward
	c.terminalCache[index] = t.Terminal

	if index+1 == c.maxCapacity {
		c.isFull = true
	}
	c.currentInUsePos = (c.currentInUsePos + 1) % c.maxCapacity
	return nil
}

// Transitions returns the stored transitions in the order they were
// added
func (c *fifoCache) Transitions() []timestep.Transition {
	order := c.insertOrder()
	transitions := make([]timestep.Transition, 0, len(order))

	batch := c.gather(order)
	for i := range order {
		action := make([]float64, c.actionSize)
		copy(action, batch.Actions[i*c.actionSize:(i+1)*c.actionSize])

		transitions = append(transitions, timestep.Transition{
			State:     batch.States[i*c.featureSize : (i+1)*c.featureSize],
			Action:    mat.NewVecDense(c.actionSize, action),
			Reward:    batch.Rewards[i],
			NextState: batch.NextStates[i*c.featureSize : (i+1)*c.featureSize],
			Terminal:  batch.Terminals[i],
		})
	}
	return transitions
}

// compress stores the binary values of src into dst
func compress(dst []byte, src []float64) {
	n := intutils.Min(len(dst), len(src))
	for i := 0; i < n; i++ {
		if src[i] > 0 {
			dst[i] = 1
		} else {
			dst[i] = 0
		}
	}
}

// expand stores the bytes of src as float64s in dst
func expand(dst []float64, src []byte) {
	for i, v := range src {
		dst[i] = float64(v)
	}
}
