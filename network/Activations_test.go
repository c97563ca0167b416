package network

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestActivationJSON(t *testing.T) {
	acts := []*Activation{ReLU(), TanH(), Identity()}
	data, err := json.Marshal(acts)
	require.NoError(t, err)
	require.JSONEq(t, `["relu", "tanh", "identity"]`, string(data))

	var decoded []*Activation
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 3)
	require.Equal(t, "tanh", decoded[1].String())

	require.Error(t, json.Unmarshal([]byte(`["swish"]`), &decoded))
}
