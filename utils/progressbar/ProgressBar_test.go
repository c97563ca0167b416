package progressbar

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProgressBar(t *testing.T) {
	var out bytes.Buffer
	bar := New(&out, 10, 4)
	require.Equal(t, 0.0, bar.Progress())

	for i := 0; i < 6; i++ {
		bar.Increment()
	}
	require.Equal(t, 1.0, bar.Progress())

	bar.Display()
	require.True(t, strings.Contains(out.String(), "100.00%"))
	require.Equal(t, 10, strings.Count(bar.String(), "█"))
}
