package wordalign

import (
	"fmt"
	"io"

	"github.com/ieee0824/wordalign/align"
	"github.com/ieee0824/wordalign/checkpoint"
	"github.com/ieee0824/wordalign/corpus"
	"github.com/ieee0824/wordalign/ibm1"
)

// TrainConfig configures training of one translation direction.
type TrainConfig struct {
	Name      string // used in log lines, e.g. "forward"
	Training  ibm1.TrainingConfig
	Lowercase bool

	// LoadPath resumes from a checkpoint. Its stored tolerance and
	// iteration limit take precedence over Training.
	LoadPath string
	// ResumeIteration overrides the iteration count stored in the
	// checkpoint. 0 = use the stored count. Requires LoadPath.
	ResumeIteration int

	// Checkpoints receives a snapshot after every iteration. nil disables saving.
	Checkpoints *checkpoint.Writer
	// Log receives progress lines. nil disables logging.
	Log io.Writer
}

func (cfg TrainConfig) logf(format string, args ...any) {
	if cfg.Log == nil {
		return
	}
	if cfg.Name != "" {
		fmt.Fprintf(cfg.Log, "[%s] ", cfg.Name)
	}
	fmt.Fprintf(cfg.Log, format, args...)
}

// Train creates (or loads) a model for c and runs EM on it, saving a
// checkpoint after every iteration.
func Train(c *corpus.Corpus, cfg TrainConfig) (*ibm1.Model, error) {
	if cfg.ResumeIteration > 0 && cfg.LoadPath == "" {
		return nil, fmt.Errorf("resume iteration %d given without a load path", cfg.ResumeIteration)
	}

	var m *ibm1.Model
	start := 0
	if cfg.LoadPath != "" {
		var err error
		m, err = checkpoint.LoadFile(cfg.LoadPath)
		if err != nil {
			return nil, fmt.Errorf("load model: %w", err)
		}
		start = m.Iteration
		if cfg.ResumeIteration > 0 {
			start = cfg.ResumeIteration
		}
		cfg.logf("Loaded %s (run %s, iteration %d, converged=%v)\n",
			cfg.LoadPath, m.RunID, m.Iteration, m.Converged)
	} else {
		var err error
		m, err = ibm1.NewFromCorpus(c, cfg.Lowercase, cfg.Training)
		if err != nil {
			return nil, fmt.Errorf("create model: %w", err)
		}
		cfg.logf("New model (run %s)\n", m.RunID)
	}
	cfg.logf("Vocabulary: %d source, %d target words\n", m.Source.Size(), m.Target.Size())

	pairs, err := m.Encode(c)
	if err != nil {
		return nil, fmt.Errorf("encode corpus: %w", err)
	}

	err = m.Train(pairs, start, func(m *ibm1.Model) error {
		h := m.History[len(m.History)-1]
		cfg.logf("iteration %d/%d: max change %.6g, log-likelihood %.4f\n",
			h.Iteration, m.MaxIterations, h.MaxDelta, h.LogLikelihood)
		if h.Skipped > 0 {
			cfg.logf("  %d target words had no alignment mass\n", h.Skipped)
		}
		if cfg.Checkpoints == nil {
			return nil
		}
		path, err := cfg.Checkpoints.Save(m)
		if err != nil {
			return fmt.Errorf("save checkpoint: %w", err)
		}
		cfg.logf("  saved %s\n", path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if m.Converged {
		cfg.logf("Converged after %d iterations (tolerance %g)\n", m.Iteration, m.Tolerance)
	} else {
		cfg.logf("Stopped at iteration %d without converging (max change %.6g)\n", m.Iteration, m.MaxDelta)
	}
	return m, nil
}

// Aligner produces symmetric word alignments from a forward model
// P(target|source) and a reverse model P(source|target).
type Aligner struct {
	Forward *ibm1.Model
	Reverse *ibm1.Model
	Mode    align.Mode
}

// Option configures an Aligner.
type Option func(*Aligner)

// WithMode sets how forward and reverse alignments are combined.
func WithMode(mode align.Mode) Option {
	return func(a *Aligner) {
		a.Mode = mode
	}
}

// NewAligner creates an Aligner from two checkpoint files.
func NewAligner(forwardPath, reversePath string, opts ...Option) (*Aligner, error) {
	fwd, err := checkpoint.LoadFile(forwardPath)
	if err != nil {
		return nil, fmt.Errorf("load forward model: %w", err)
	}
	rev, err := checkpoint.LoadFile(reversePath)
	if err != nil {
		return nil, fmt.Errorf("load reverse model: %w", err)
	}
	return NewAlignerFromModels(fwd, rev, opts...), nil
}

// NewAlignerFromModels creates an Aligner from trained models.
func NewAlignerFromModels(forward, reverse *ibm1.Model, opts ...Option) *Aligner {
	a := &Aligner{
		Forward: forward,
		Reverse: reverse,
		Mode:    align.Intersection,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Aligner) aligner() *align.Aligner {
	return align.New(a.Forward, a.Reverse, a.Mode)
}

// AlignPair returns the links for one sentence pair.
func (a *Aligner) AlignPair(src, tgt []string) []align.Link {
	return a.aligner().Align(src, tgt)
}

// AlignCorpus aligns every pair of c.
func (a *Aligner) AlignCorpus(c *corpus.Corpus) [][]align.Link {
	return a.aligner().AlignCorpus(c)
}

// WriteCorpus writes one line of "i-j" links per pair of c to w.
func (a *Aligner) WriteCorpus(w io.Writer, c *corpus.Corpus) error {
	return a.aligner().WriteCorpus(w, c)
}
