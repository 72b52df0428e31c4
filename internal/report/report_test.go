package report

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactkeval/option-mc/internal/engine"
	"github.com/contactkeval/option-mc/internal/montecarlo"
	"github.com/contactkeval/option-mc/internal/option"
	"github.com/contactkeval/option-mc/internal/testutil"
)

func sampleResults() []engine.Result {
	return []engine.Result{
		{
			Trial:      0,
			OptionType: option.Put,
			Spot:       60,
			Result: montecarlo.Result{
				Price: 5.85, StdDev: 4.2, StdErr: 0.0187,
				Paths: 50000, Steps: 100, Workers: 4,
			},
			Lower:      5.8133,
			Upper:      5.8867,
			Benchmark:  5.846282,
			Difference: 0.003718,
			Seed:       42,
			Elapsed:    1500 * time.Microsecond,
		},
		{
			Trial:      1,
			OptionType: option.Call,
			Spot:       100,
			Result: montecarlo.Result{
				Price: 12.5, StdDev: 18.25, StdErr: 0.5,
				DegenerateCount: 7, DegeneratePaths: 3,
				Paths: 1000, Steps: 10, Workers: 1,
			},
			Lower:   11.52,
			Upper:   13.48,
			Seed:    43,
			Elapsed: 2 * time.Millisecond,
		},
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleResults()))
	testutil.CompareWithGolden(t, "results", buf.Bytes())

	var back []engine.Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, sampleResults(), back)
}

func TestWriteJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, sampleResults()))
	out := buf.String()

	for _, want := range []string{
		"PRICE", "STD ERR", "BENCHMARK",
		"5.850000", "0.018700", "[5.813300, 5.886700]", "5.846282", "0.003718", "0/0", "1.5ms",
		"12.500000", "3/7", "2ms",
	} {
		assert.Contains(t, out, want)
	}
	assert.Equal(t, 2+1+3, bytes.Count(buf.Bytes(), []byte("\n")), out)
}
