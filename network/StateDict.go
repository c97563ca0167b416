package network

import (
	"fmt"
	"sort"
)

// Param is the serializable value of a single learnable node
type Param struct {
	Shape []int
	Data  []float64
}

// StateDict maps the names of the learnable nodes of a network to
// their values
type StateDict map[string]Param

// StateDictOf returns a copy of the learnable parameters of net
func StateDictOf(net NeuralNet) (StateDict, error) {
	sd := make(StateDict, len(net.Learnables()))
	for _, node := range net.Learnables() {
		data, err := backing(node)
		if err != nil {
			return nil, fmt.Errorf("statedictof: %v", err)
		}
		sd[node.Name()] = Param{
			Shape: append([]int(nil), node.Shape()...),
			Data:  append([]float64(nil), data...),
		}
	}
	return sd, nil
}

// LoadStateDict copies the parameters of sd into net. Every learnable
// node of net must have an entry of matching shape in sd, and sd must
// not hold parameters that net does not have.
func LoadStateDict(net NeuralNet, sd StateDict) error {
	learnables := net.Learnables()
	if len(sd) != len(learnables) {
		return fmt.Errorf("loadstatedict: incompatible state dict\n\t"+
			"want(%v)\n\thave(%v)", len(learnables), sd.Keys())
	}

	for _, node := range learnables {
		param, ok := sd[node.Name()]
		if !ok {
			return fmt.Errorf("loadstatedict: missing parameter %v",
				node.Name())
		}
		if !node.Shape().Eq(param.Shape) {
			return fmt.Errorf("loadstatedict: incompatible shape for %v"+
				"\n\twant(%v)\n\thave(%v)", node.Name(), node.Shape(),
				param.Shape)
		}

		data, err := backing(node)
		if err != nil {
			return fmt.Errorf("loadstatedict: %v", err)
		}
		if len(data) != len(param.Data) {
			return fmt.Errorf("loadstatedict: parameter %v holds %v values,"+
				" want %v", node.Name(), len(param.Data), len(data))
		}
		copy(data, param.Data)
	}
	return nil
}

// Keys returns the sorted parameter names of sd
func (sd StateDict) Keys() []string {
	keys := make([]string, 0, len(sd))
	for k := range sd {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
