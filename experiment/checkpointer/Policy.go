package checkpointer

import (
	"fmt"
	"path/filepath"
	"time"
)

// Decision is the outcome of a checkpoint decision at the end of an
// episode
type Decision struct {
	Save bool // Whether a checkpoint should be saved
	Best bool // Whether the saved checkpoint is the best so far
}

// Policy decides at the end of each episode whether the network should
// be evaluated and whether it should be checkpointed. An evaluated
// network is checkpointed as the best so far if its fitness strictly
// exceeds every previously promoted fitness.
type Policy struct {
	TestFreq int // Episodes between evaluations
	SaveFreq int // Episodes between regular checkpoints

	best float64
}

// NewPolicy returns a new Policy whose best fitness so far is best
func NewPolicy(testFreq, saveFreq int, best float64) (*Policy, error) {
	if testFreq < 1 || saveFreq < 1 {
		return nil, fmt.Errorf("newpolicy: frequencies must be positive "+
			"\n\thave(%v, %v)", testFreq, saveFreq)
	}
	return &Policy{TestFreq: testFreq, SaveFreq: saveFreq, best: best}, nil
}

// Best returns the best fitness promoted so far
func (p *Policy) Best() float64 {
	return p.best
}

func (p *Policy) testGate(episode int) bool {
	return episode%p.TestFreq == 0
}

func (p *Policy) saveGate(episode int) bool {
	return episode%p.SaveFreq == 0
}

// ShouldEvaluate returns whether the network should be evaluated at
// the end of episode. Evaluation is needed whenever either gate fires.
func (p *Policy) ShouldEvaluate(episode int) bool {
	return p.testGate(episode) || p.saveGate(episode)
}

// Decide decides what to do with the network at the end of episode,
// given its evaluated fitness. If the network is promoted to the best,
// the best fitness so far is updated.
func (p *Policy) Decide(episode int, fitness float64) Decision {
	if p.testGate(episode) && fitness > p.best {
		p.best = fitness
		return Decision{Save: true, Best: true}
	}
	return Decision{Save: p.saveGate(episode)}
}

// EpisodeFilename returns the name of the checkpoint file for episode
func EpisodeFilename(episode int) string {
	return fmt.Sprintf("checkpoint-episode-%d.bin", episode)
}

// RunFolder returns the folder under root in which the checkpoints of
// a run started at t are saved
func RunFolder(root string, t time.Time) string {
	return filepath.Join(root, "checkpoint_"+t.Format("2006_01_02_15_04_05"))
}
