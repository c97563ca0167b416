// Package deepq implements the learner of a DQN agent: a learned
// Q-network trained towards targets bootstrapped from a periodically
// synchronized target network.
package deepq

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/deepflap/expreplay"
	"github.com/samuelfneumann/deepflap/network"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// DeepQ implements the DQN learning step with the MSE loss, optionally
// with Double DQN update targets.
type DeepQ struct {
	// Network whose weights are adapted
	trainNet   network.NeuralNet
	trainNetVM G.VM
	solver     G.Solver

	// Copy of trainNet with a batch size of 1 for selecting actions
	actNet   network.NeuralNet
	actNetVM G.VM

	// Copy of trainNet evaluating next states for Double DQN targets
	onlineNet   network.NeuralNet
	onlineNetVM G.VM

	// Network that provides the update target. This network is only
	// changed by SyncTarget.
	targetNet   network.NeuralNet
	targetNetVM G.VM

	// stale is true when actNet and onlineNet have not seen the latest
	// weights of trainNet
	stale bool

	selectedActions *G.Node // One-hot actions taken at the states
	targets         *G.Node // Update targets of the batch
	lossVal         G.Value

	numActions int
	batchSize  int
	gamma      float64
	double     bool
}

// New creates and returns a new DeepQ learner for states of the given
// number of features and the given number of actions.
func New(features, numActions int, config Config) (*DeepQ, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "new")
	}
	if features < 1 || numActions < 1 {
		return nil, fmt.Errorf("new: features and actions must be positive "+
			"\n\thave(%v, %v)", features, numActions)
	}
	batchSize := config.BatchSize

	// Network which learns the weights
	gTrain := G.NewGraph()
	trainNet, err := config.Network.Create(features, batchSize, numActions,
		gTrain, config.InitWFn.InitWFn())
	if err != nil {
		return nil, errors.Wrap(err, "new: could not create learning network")
	}

	// Action taken in each state. This is needed to compute the loss
	// using the correct action value since the network outputs one
	// action value for each environmental action
	selectedActions := G.NewMatrix(
		gTrain,
		tensor.Float64,
		G.WithName("actionSelected"),
		G.WithShape(batchSize, numActions),
		G.WithInit(G.Zeroes()),
	)
	targets := G.NewVector(
		gTrain,
		tensor.Float64,
		G.WithName("targets"),
		G.WithShape(batchSize),
		G.WithInit(G.Zeroes()),
	)

	selectedActionsValue := G.Must(G.HadamardProd(trainNet.Prediction(),
		selectedActions))
	selectedActionsValue = G.Must(G.Sum(selectedActionsValue, 1))

	// Compute the Mean Squarred TD error
	losses := G.Must(G.Sub(targets, selectedActionsValue))
	losses = G.Must(G.Square(losses))
	cost := G.Must(G.Mean(losses))

	d := &DeepQ{
		trainNet:        trainNet,
		solver:          config.Solver.Solver,
		selectedActions: selectedActions,
		targets:         targets,
		numActions:      numActions,
		batchSize:       batchSize,
		gamma:           config.Gamma,
		double:          config.Double,
	}
	G.Read(cost, &d.lossVal)

	// Compute the gradient with respect to the Mean Squarred TD error
	if _, err = G.Grad(cost, trainNet.Learnables()...); err != nil {
		return nil, errors.Wrap(err, "new: could not compute gradient")
	}

	d.trainNetVM = G.NewTapeMachine(
		gTrain,
		G.BindDualValues(trainNet.Learnables()...),
	)

	if d.actNet, err = trainNet.CloneWithBatch(1); err != nil {
		return nil, errors.Wrap(err, "new: could not create acting network")
	}
	d.actNetVM = G.NewTapeMachine(d.actNet.Graph())

	if d.targetNet, err = trainNet.Clone(); err != nil {
		return nil, errors.Wrap(err, "new: could not create target network")
	}
	d.targetNetVM = G.NewTapeMachine(d.targetNet.Graph())

	if d.double {
		if d.onlineNet, err = trainNet.Clone(); err != nil {
			return nil, errors.Wrap(err, "new: could not create network "+
				"for double targets")
		}
		d.onlineNetVM = G.NewTapeMachine(d.onlineNet.Graph())
	}

	return d, nil
}

// NumActions returns the number of actions valued by the learner
func (d *DeepQ) NumActions() int {
	return d.numActions
}

// BatchSize returns the number of transitions used in each update
func (d *DeepQ) BatchSize() int {
	return d.batchSize
}

// Double returns whether Double DQN targets are used
func (d *DeepQ) Double() bool {
	return d.double
}

// Structure returns the architecture tag of the learned network
func (d *DeepQ) Structure() network.Structure {
	return d.trainNet.Structure()
}

// ActionValues returns the learned network's action values in state
func (d *DeepQ) ActionValues(state []float64) ([]float64, error) {
	if err := d.refresh(); err != nil {
		return nil, errors.Wrap(err, "actionvalues")
	}
	values, err := run(d.actNet, d.actNetVM, state)
	if err != nil {
		return nil, errors.Wrap(err, "actionvalues")
	}
	return values, nil
}

// Learn performs a single gradient step on a batch of transitions and
// returns the loss on the batch, computed before the step.
func (d *DeepQ) Learn(batch expreplay.Batch) (float64, error) {
	if batch.Size() != d.batchSize {
		return 0, fmt.Errorf("learn: invalid batch size \n\twant(%v)"+
			"\n\thave(%v)", d.batchSize, batch.Size())
	}

	nextTarget, err := run(d.targetNet, d.targetNetVM, batch.NextStates)
	if err != nil {
		return 0, errors.Wrap(err, "learn: could not evaluate next states")
	}

	var nextOnline []float64
	if d.double {
		if err := d.refresh(); err != nil {
			return 0, errors.Wrap(err, "learn")
		}
		nextOnline, err = run(d.onlineNet, d.onlineNetVM, batch.NextStates)
		if err != nil {
			return 0, errors.Wrap(err, "learn: could not rank next actions")
		}
	}

	targets := Targets(batch.Rewards, batch.Terminals, nextTarget,
		nextOnline, d.numActions, d.gamma)

	targetTensor := tensor.New(
		tensor.WithBacking(targets),
		tensor.WithShape(d.batchSize),
	)
	if err := G.Let(d.targets, targetTensor); err != nil {
		return 0, errors.Wrap(err, "learn: could not set targets")
	}

	actionTensor := tensor.New(
		tensor.WithShape(d.batchSize, d.numActions),
		tensor.WithBacking(append([]float64(nil), batch.Actions...)),
	)
	if err := G.Let(d.selectedActions, actionTensor); err != nil {
		return 0, errors.Wrap(err, "learn: could not set actions")
	}

	if err := d.trainNet.SetInput(batch.States); err != nil {
		return 0, errors.Wrap(err, "learn")
	}

	// Run the learning step
	if err := d.trainNetVM.RunAll(); err != nil {
		d.trainNetVM.Reset()
		return 0, errors.Wrap(err, "learn: could not run learning step")
	}
	loss, ok := d.lossVal.Data().(float64)
	if !ok {
		d.trainNetVM.Reset()
		return 0, fmt.Errorf("learn: loss is not a float64 scalar")
	}

	if err := d.solver.Step(d.trainNet.Model()); err != nil {
		d.trainNetVM.Reset()
		return 0, errors.Wrap(err, "learn: could not step solver")
	}
	d.trainNetVM.Reset()
	d.stale = true

	return loss, nil
}

// SyncTarget sets the weights of the target network to the weights of
// the learned network
func (d *DeepQ) SyncTarget() error {
	if err := d.targetNet.Set(d.trainNet); err != nil {
		return errors.Wrap(err, "synctarget")
	}
	return nil
}

// StateDict returns a copy of the learned network's weights
func (d *DeepQ) StateDict() (network.StateDict, error) {
	return network.StateDictOf(d.trainNet)
}

// TargetStateDict returns a copy of the target network's weights
func (d *DeepQ) TargetStateDict() (network.StateDict, error) {
	return network.StateDictOf(d.targetNet)
}

// LoadStateDict sets the weights of the learned network and of the
// target network to sd
func (d *DeepQ) LoadStateDict(sd network.StateDict) error {
	if err := network.LoadStateDict(d.trainNet, sd); err != nil {
		return errors.Wrap(err, "loadstatedict")
	}
	d.stale = true
	return d.SyncTarget()
}

// Close closes all VMs of the learner
func (d *DeepQ) Close() error {
	vms := []G.VM{d.trainNetVM, d.actNetVM, d.targetNetVM, d.onlineNetVM}
	for _, vm := range vms {
		if vm == nil {
			continue
		}
		if err := vm.Close(); err != nil {
			return errors.Wrap(err, "close")
		}
	}
	return nil
}

// refresh copies the learned weights into the networks that evaluate
// single states and next states if they are out of date
func (d *DeepQ) refresh() error {
	if !d.stale {
		return nil
	}
	if err := d.actNet.Set(d.trainNet); err != nil {
		return err
	}
	if d.double {
		if err := d.onlineNet.Set(d.trainNet); err != nil {
			return err
		}
	}
	d.stale = false
	return nil
}

// run runs the forward pass of net on input and returns a copy of the
// output
func run(net network.NeuralNet, vm G.VM, input []float64) ([]float64,
	error) {
	if err := net.SetInput(input); err != nil {
		return nil, err
	}
	defer vm.Reset()

	if err := vm.RunAll(); err != nil {
		return nil, err
	}
	out, ok := net.Output().Data().([]float64)
	if !ok {
		return nil, fmt.Errorf("run: network output is not []float64")
	}
	return append([]float64(nil), out...), nil
}
