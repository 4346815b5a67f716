package filter

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMedian(t *testing.T) {
	testCases := []struct {
		name    string
		samples []float64
		expect  float64
	}{
		{"empty", nil, 0},
		{"single", []float64{7}, 7},
		{"ascending", []float64{1, 2, 3, 4, 5}, 3},
		{"evict oldest", []float64{1, 2, 3, 4, 5, 100}, 4},
		{"spike", []float64{10, 10, 300, 10, 10}, 10},
		{"negative", []float64{-3, -1, -2}, -3},
		{"duplicates", []float64{5, 5, 1, 1, 9, 9, 9}, 9},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var m RunningMedian
			for _, v := range tc.samples {
				m.Add(v)
			}
			require.Equal(t, tc.expect, m.Median())
			require.Equal(t, len(tc.samples) > 0, m.Primed())
		})
	}
}

func referenceMedian(history []float64) float64 {
	window := make([]float64, WindowSize)
	for i := range window {
		idx := len(history) - WindowSize + i
		if idx < 0 {
			idx = 0
		}
		window[i] = history[idx]
	}
	sort.Float64s(window)
	return window[WindowSize/2]
}

func TestMedianRandom(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for round := 0; round < 200; round++ {
		var m RunningMedian
		var history []float64
		for i := 0; i < 50; i++ {
			var v float64
			if rnd.Intn(4) == 0 {
				v = float64(rnd.Intn(5))
			} else {
				v = rnd.Float64()*200 - 100
			}
			m.Add(v)
			history = append(history, v)
			require.Equal(t, referenceMedian(history), m.Median(), "round %d sample %d", round, i)
		}
	}
}

func TestMedianReset(t *testing.T) {
	var m RunningMedian
	m.Add(3)
	m.Reset()
	require.False(t, m.Primed())
	m.Add(8)
	require.Equal(t, float64(8), m.Median())
}

func TestRunningMedianWindow(t *testing.T) {
	var m RunningMedian
	for _, v := range []float64{4, 9, 1, 7, 3, 8, 2} {
		m.Add(v)
	}
	require.Equal(t, []float64{1, 7, 3, 8, 2}, m.Window())
	require.Equal(t, []float64{1, 2, 3, 7, 8}, m.Sorted())
	require.Equal(t, float64(3), m.Median())
}
