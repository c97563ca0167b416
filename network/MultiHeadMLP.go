package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// mlp implements a multi-layered perceptron with one output per
// action. A Normal mlp predicts the action values with a final linear
// layer. A Dueling mlp splits the final layer into a state value head
// V(s) and an advantage head A(s, ·) and predicts
//
//	Q(s, a) = V(s) + A(s, a) - mean_a' A(s, a')
type mlp struct {
	g          *G.ExprGraph
	structure  Structure
	trunk      []*fcLayer
	out        *fcLayer // Normal only
	value      *fcLayer // Dueling only
	advantage  *fcLayer // Dueling only
	input      *G.Node
	numOutputs int
	numInputs  int
	batchSize  int

	// Constant nodes used to combine the dueling heads
	meanAdvantage *G.Node
	ones          *G.Node

	// Data needed for cloning
	hiddenSizes []int
	biases      []bool
	activations []*Activation

	learnables G.Nodes
	model      []G.ValueGrad

	prediction *G.Node
	predVal    G.Value
}

// NewMultiHeadMLP creates and returns a new multi-layered perceptron
// that has multiple output nodes, The number of outputs nodes is equal
// to outputs. The graph parameter g is populated with the MLP.
//
// The MLP has number of layers equal to len(hiddenSizes) + 1. A final
// layer is always added such that given any input, the output will
// be outputs. The final layer also contains a bias unit, and bias units
// for each additional hidden layer is specified by biases. The final
// layer will contain no activations, and the activations of additional
// hidden layers is specified by activations. The parameter init
// determines the weight initialization scheme.
//
// The function works such that for index i, hiddenSizes[i] is the
// number of nodes in hidden layer i; biases[i] is true if the
// hidden layer will contain a bias unit and false otherwise; and
// activations[i] is the activation function for hidden layer i.
func NewMultiHeadMLP(features, batch, outputs int, g *G.ExprGraph,
	hiddenSizes []int, biases []bool, init G.InitWFn,
	activations []*Activation) (NeuralNet, error) {
	net, err := newMLP(Normal, features, batch, outputs, g, hiddenSizes,
		biases, init, activations)
	if err != nil {
		return nil, err
	}
	return net, nil
}

// NewDuelingMLP creates and returns a new dueling network. The hidden
// layers are shared by a state value head and an advantage head, each
// of which is a linear layer with a bias unit. Arguments are as in
// NewMultiHeadMLP.
func NewDuelingMLP(features, batch, outputs int, g *G.ExprGraph,
	hiddenSizes []int, biases []bool, init G.InitWFn,
	activations []*Activation) (NeuralNet, error) {
	net, err := newMLP(Dueling, features, batch, outputs, g, hiddenSizes,
		biases, init, activations)
	if err != nil {
		return nil, err
	}
	return net, nil
}

// newMLP returns a new mlp of the given structure
func newMLP(structure Structure, features, batch, outputs int,
	g *G.ExprGraph, hiddenSizes []int, biases []bool, init G.InitWFn,
	activations []*Activation) (*mlp, error) {
	if err := structure.Validate(); err != nil {
		return nil, fmt.Errorf("newmlp: %v", err)
	}

	// Ensure we have one activation per layer
	if len(hiddenSizes) != len(activations) {
		msg := "newmlp: invalid number of activations" +
			"\n\twant(%d)\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(activations))
	}

	// Ensure one bias bool per layer
	if len(hiddenSizes) != len(biases) {
		msg := "newmlp: invalid number of biases\n\twant(%d)" +
			"\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(biases))
	}

	if features < 1 || batch < 1 || outputs < 1 {
		msg := "newmlp: features, batch, and outputs must be positive" +
			"\n\thave(%v, %v, %v)"
		return nil, fmt.Errorf(msg, features, batch, outputs)
	}

	// Set up the input node
	input := G.NewMatrix(g, tensor.Float64, G.WithShape(batch, features),
		G.WithName("input"), G.WithInit(G.Zeroes()))

	net := &mlp{
		g:           g,
		structure:   structure,
		input:       input,
		numOutputs:  outputs,
		numInputs:   features,
		batchSize:   batch,
		hiddenSizes: append([]int(nil), hiddenSizes...),
		biases:      append([]bool(nil), biases...),
		activations: append([]*Activation(nil), activations...),
	}

	in := features
	for i, size := range hiddenSizes {
		if size < 1 {
			return nil, fmt.Errorf("newmlp: hidden layer %v must have "+
				"positive size \n\thave(%v)", i, size)
		}
		layer := newFCLayer(g, in, size, biases[i], activations[i], init,
			fmt.Sprintf("hidden%d", i))
		net.trunk = append(net.trunk, layer)
		in = size
	}

	switch structure {
	case Normal:
		net.out = newFCLayer(g, in, outputs, true, Identity(), init, "out")

	case Dueling:
		net.value = newFCLayer(g, in, 1, true, Identity(), init, "value")
		net.advantage = newFCLayer(g, in, outputs, true, Identity(), init,
			"advantage")

		// Right-multiplying the advantages by meanAdvantage places the
		// mean advantage of each sample in every column
		meanBacking := make([]float64, outputs*outputs)
		for i := range meanBacking {
			meanBacking[i] = 1.0 / float64(outputs)
		}
		net.meanAdvantage = G.NewMatrix(
			g,
			tensor.Float64,
			G.WithShape(outputs, outputs),
			G.WithName("meanAdvantage"),
			G.WithValue(tensor.New(
				tensor.WithShape(outputs, outputs),
				tensor.WithBacking(meanBacking),
			)),
		)

		onesBacking := make([]float64, outputs)
		for i := range onesBacking {
			onesBacking[i] = 1.0
		}
		net.ones = G.NewMatrix(
			g,
			tensor.Float64,
			G.WithShape(1, outputs),
			G.WithName("ones"),
			G.WithValue(tensor.New(
				tensor.WithShape(1, outputs),
				tensor.WithBacking(onesBacking),
			)),
		)
	}

	if _, err := net.fwd(input); err != nil {
		msg := "newmlp: could not compute forward pass: %v"
		return nil, fmt.Errorf(msg, err)
	}
	return net, nil
}

// fwd performs the forward pass of the mlp on the input node
func (e *mlp) fwd(input *G.Node) (*G.Node, error) {
	pred := input
	var err error
	for i, l := range e.trunk {
		if pred, err = l.fwd(pred); err != nil {
			msg := "fwd: could not compute forward pass of layer %v: %v"
			return nil, fmt.Errorf(msg, i, err)
		}
	}

	switch e.structure {
	case Normal:
		if pred, err = e.out.fwd(pred); err != nil {
			return nil, fmt.Errorf("fwd: output layer: %v", err)
		}

	case Dueling:
		if pred, err = e.duel(pred); err != nil {
			return nil, fmt.Errorf("fwd: dueling heads: %v", err)
		}
	}

	e.prediction = pred
	G.Read(e.prediction, &e.predVal)

	return pred, nil
}

// duel adds the value and advantage heads to the graph and combines
// them into action values
func (e *mlp) duel(features *G.Node) (*G.Node, error) {
	v, err := e.value.fwd(features)
	if err != nil {
		return nil, err
	}
	a, err := e.advantage.fwd(features)
	if err != nil {
		return nil, err
	}

	meanA, err := G.Mul(a, e.meanAdvantage)
	if err != nil {
		return nil, err
	}
	broadcastV, err := G.Mul(v, e.ones)
	if err != nil {
		return nil, err
	}

	q, err := G.Sub(a, meanA)
	if err != nil {
		return nil, err
	}
	return G.Add(q, broadcastV)
}

// Graph returns the computational graph of the mlp.
func (e *mlp) Graph() *G.ExprGraph {
	return e.g
}

// Structure returns the architecture tag of the mlp
func (e *mlp) Structure() Structure {
	return e.structure
}

// Clone clones an mlp
func (e *mlp) Clone() (NeuralNet, error) {
	return e.CloneWithBatch(e.batchSize)
}

// CloneWithBatch clones an mlp into a new computational graph with a
// new input batch size. The clone holds its own copy of the weights.
func (e *mlp) CloneWithBatch(batchSize int) (NeuralNet, error) {
	clone, err := newMLP(e.structure, e.numInputs, batchSize, e.numOutputs,
		G.NewGraph(), e.hiddenSizes, e.biases, G.Zeroes(), e.activations)
	if err != nil {
		return nil, fmt.Errorf("clonewithbatch: could not clone: %v", err)
	}
	if err := clone.Set(e); err != nil {
		return nil, fmt.Errorf("clonewithbatch: could not copy weights: %v",
			err)
	}
	return clone, nil
}

// BatchSize returns the batch size of inputs to the network
func (e *mlp) BatchSize() int {
	return e.batchSize
}

// Features returns the number of features in a single observation
// vector that the network takes as input.
func (e *mlp) Features() int {
	return e.numInputs
}

// Outputs returns the number of outputs from the network
func (e *mlp) Outputs() int {
	return e.numOutputs
}

// SetInput sets the value of the input node before running the forward
// pass.
func (e *mlp) SetInput(input []float64) error {
	if len(input) != e.numInputs*e.batchSize {
		return fmt.Errorf("setinput: invalid number of inputs\n\twant(%v)"+
			"\n\thave(%v)", e.numInputs*e.batchSize, len(input))
	}
	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(e.input.Shape()...),
	)
	return G.Let(e.input, inputTensor)
}

// Set sets the weights of an mlp to be equal to the weights of
// another network of the same architecture. Weights are copied, so
// later changes to source are not seen by dest.
func (dest *mlp) Set(source NeuralNet) error {
	if source.Structure() != dest.Structure() {
		return fmt.Errorf("set: cannot copy %v weights into %v network",
			source.Structure(), dest.Structure())
	}

	sourceNodes := source.Learnables()
	nodes := dest.Learnables()
	if len(sourceNodes) != len(nodes) {
		return fmt.Errorf("set: incompatible networks\n\twant(%v learnables)"+
			"\n\thave(%v)", len(nodes), len(sourceNodes))
	}

	for i := range nodes {
		destData, err := backing(nodes[i])
		if err != nil {
			return fmt.Errorf("set: %v", err)
		}
		sourceData, err := backing(sourceNodes[i])
		if err != nil {
			return fmt.Errorf("set: %v", err)
		}
		if !nodes[i].Shape().Eq(sourceNodes[i].Shape()) {
			return fmt.Errorf("set: incompatible shapes for %v"+
				"\n\twant(%v)\n\thave(%v)", nodes[i].Name(), nodes[i].Shape(),
				sourceNodes[i].Shape())
		}
		copy(destData, sourceData)
	}
	return nil
}

// Learnables returns the learnable nodes in an mlp
func (e *mlp) Learnables() G.Nodes {
	// Lazy instantiation
	if e.learnables == nil {
		e.learnables = e.computeLearnables()
	}
	return e.learnables
}

// computeLearnables computes all the learnables for the network
func (e *mlp) computeLearnables() G.Nodes {
	learnables := make(G.Nodes, 0, 2*(len(e.trunk)+2))

	for _, layer := range e.trunk {
		learnables = append(learnables, layer.learnables()...)
	}

	switch e.structure {
	case Normal:
		learnables = append(learnables, e.out.learnables()...)
	case Dueling:
		learnables = append(learnables, e.value.learnables()...)
		learnables = append(learnables, e.advantage.learnables()...)
	}
	return learnables
}

// Model returns the learnables nodes with their gradients.
func (e *mlp) Model() []G.ValueGrad {
	// Lazy instantiation
	if e.model == nil {
		e.model = make([]G.ValueGrad, 0, len(e.Learnables()))
		for _, node := range e.Learnables() {
			e.model = append(e.model, node)
		}
	}
	return e.model
}

// Output returns the output of the mlp computed by the last run of
// a VM on its graph
func (e *mlp) Output() G.Value {
	return e.predVal
}

// Prediction returns the node of the computational graph the stores
// the output of the mlp
func (e *mlp) Prediction() *G.Node {
	return e.prediction
}

// backing returns the underlying data of the value of a node
func backing(node *G.Node) ([]float64, error) {
	value, ok := node.Value().(*tensor.Dense)
	if !ok {
		return nil, fmt.Errorf("node %v has no dense value", node.Name())
	}
	data, ok := value.Data().([]float64)
	if !ok {
		return nil, fmt.Errorf("node %v is not of type float64", node.Name())
	}
	return data, nil
}
