package ibm1

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// TrainingConfig holds EM training parameters.
type TrainingConfig struct {
	Tolerance     float64 // stop once the max per-cell change is below this
	MaxIterations int
}

// DefaultTrainingConfig returns reasonable default training parameters.
func DefaultTrainingConfig() TrainingConfig {
	return TrainingConfig{
		Tolerance:     1e-4,
		MaxIterations: 100,
	}
}

// Validate checks that the parameters can drive a training run.
func (c TrainingConfig) Validate() error {
	if !(c.Tolerance > 0) {
		return fmt.Errorf("tolerance must be positive, got %g", c.Tolerance)
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("max iterations must be positive, got %d", c.MaxIterations)
	}
	return nil
}

// StepStats summarizes one EM step.
type StepStats struct {
	// MaxDelta is the largest absolute change of any table cell.
	MaxDelta float64
	// LogLikelihood is the corpus log-likelihood under the input table,
	// excluding target occurrences with zero alignment mass.
	LogLikelihood float64
	// Skipped counts target occurrences with zero alignment mass.
	Skipped int
}

// Step runs one batch EM iteration over pairs and returns the re-estimated
// table. table is not modified.
//
// E-step: each target occurrence distributes one unit of count over the
// source words of its sentence in proportion to table[s][t]. An occurrence
// whose mass is zero contributes nothing.
// M-step: new[s][t] = count[s][t] / total[s]. Rows with no mass keep
// their previous values.
func Step(table *mat.Dense, pairs []Pair) (*mat.Dense, StepStats) {
	rows, cols := table.Dims()
	tab := table.RawMatrix()

	// Accumulators are fresh every iteration.
	count := mat.NewDense(rows, cols, nil)
	acc := count.RawMatrix()
	total := make([]float64, rows)

	var stats StepStats
	for _, p := range pairs {
		for _, t := range p.Target {
			denom := 0.0
			for _, s := range p.Source {
				denom += tab.Data[s*tab.Stride+t]
			}
			if denom <= 0 {
				stats.Skipped++
				continue
			}
			stats.LogLikelihood += math.Log(denom / float64(len(p.Source)))
			for _, s := range p.Source {
				c := tab.Data[s*tab.Stride+t] / denom
				acc.Data[s*acc.Stride+t] += c
				total[s] += c
			}
		}
	}

	next := mat.NewDense(rows, cols, nil)
	for s := 0; s < rows; s++ {
		dst := next.RawRowView(s)
		if total[s] > 0 {
			src := count.RawRowView(s)
			for t := range dst {
				dst[t] = src[t] / total[s]
			}
		} else {
			copy(dst, table.RawRowView(s))
		}
		if d := floats.Distance(dst, table.RawRowView(s), math.Inf(1)); d > stats.MaxDelta {
			stats.MaxDelta = d
		}
	}
	return next, stats
}

// Train runs EM iterations start, start+1, ... until the model converges
// or MaxIterations is reached. after is called once per completed
// iteration (converged or not) and is where callers persist checkpoints;
// an error from after stops training.
// A model that is already converged is returned unchanged.
func (m *Model) Train(pairs []Pair, start int, after func(*Model) error) error {
	if start < 0 {
		return fmt.Errorf("negative start iteration %d", start)
	}
	// drop stats of iterations that are about to be redone
	keep := len(m.History)
	for keep > 0 && m.History[keep-1].Iteration > start {
		keep--
	}
	m.History = m.History[:keep]

	for iter := start; iter < m.MaxIterations && !m.Converged; iter++ {
		next, stats := Step(m.Table, pairs)
		m.Table = next
		m.Iteration = iter + 1
		m.MaxDelta = stats.MaxDelta
		m.History = append(m.History, IterationStats{
			Iteration:     m.Iteration,
			MaxDelta:      stats.MaxDelta,
			LogLikelihood: stats.LogLikelihood,
			Skipped:       stats.Skipped,
		})
		if stats.MaxDelta < m.Tolerance {
			m.Converged = true
		}
		if after != nil {
			if err := after(m); err != nil {
				return fmt.Errorf("iteration %d: %w", m.Iteration, err)
			}
		}
	}
	return nil
}
