package ibm1

import (
	"fmt"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/ieee0824/wordalign/corpus"
	"github.com/ieee0824/wordalign/vocab"
)

// Unknown is returned by Probability when either word is out of vocabulary.
// Valid probabilities are never negative.
const Unknown = -1.0

// Model is an IBM Model 1 translation table together with the
// vocabularies it was built from and its training state.
type Model struct {
	// Table[s][t] estimates P(target t | source s).
	Table  *mat.Dense
	Source *vocab.Vocabulary
	Target *vocab.Vocabulary

	Tolerance     float64
	MaxIterations int

	Converged bool
	MaxDelta  float64 // max per-cell change of the last completed iteration
	Iteration int     // number of completed iterations
	History   []IterationStats

	// RunID identifies the training run that created the model.
	RunID string
}

// IterationStats records the outcome of one EM iteration.
type IterationStats struct {
	Iteration     int
	MaxDelta      float64
	LogLikelihood float64
	Skipped       int
}

// Pair is a sentence pair encoded with the model's vocabularies.
type Pair struct {
	Source []int
	Target []int
}

// Translation is a target word and its probability given a source word.
type Translation struct {
	Word        string
	Probability float64
}

// New creates a model whose table is uniform over the target vocabulary.
func New(src, tgt *vocab.Vocabulary, cfg TrainingConfig) (*Model, error) {
	if src.Size() == 0 || tgt.Size() == 0 {
		return nil, fmt.Errorf("empty vocabulary (source %d, target %d)", src.Size(), tgt.Size())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	table := mat.NewDense(src.Size(), tgt.Size(), nil)
	uniform := 1.0 / float64(tgt.Size())
	for s := 0; s < src.Size(); s++ {
		row := table.RawRowView(s)
		for t := range row {
			row[t] = uniform
		}
	}
	return &Model{
		Table:         table,
		Source:        src,
		Target:        tgt,
		Tolerance:     cfg.Tolerance,
		MaxIterations: cfg.MaxIterations,
		RunID:         uuid.NewString(),
	}, nil
}

// NewFromCorpus builds both vocabularies from c and returns a fresh model.
func NewFromCorpus(c *corpus.Corpus, lowercase bool, cfg TrainingConfig) (*Model, error) {
	src := vocab.Build(c.Sources(), lowercase)
	tgt := vocab.Build(c.Targets(), lowercase)
	return New(src, tgt, cfg)
}

// Encode maps every sentence pair of c to vocabulary ids.
// It fails if c contains a token the model has never seen.
func (m *Model) Encode(c *corpus.Corpus) ([]Pair, error) {
	pairs := make([]Pair, len(c.Pairs))
	for i, p := range c.Pairs {
		src, err := m.Source.Encode(p.Source)
		if err != nil {
			return nil, fmt.Errorf("pair %d source: %w", i, err)
		}
		tgt, err := m.Target.Encode(p.Target)
		if err != nil {
			return nil, fmt.Errorf("pair %d target: %w", i, err)
		}
		pairs[i] = Pair{Source: src, Target: tgt}
	}
	return pairs, nil
}

// Probability returns P(target | source), or Unknown if either word is
// not in its vocabulary.
func (m *Model) Probability(target, source string) float64 {
	s, ok := m.Source.ID(source)
	if !ok {
		return Unknown
	}
	t, ok := m.Target.ID(target)
	if !ok {
		return Unknown
	}
	return m.Table.At(s, t)
}

// Translations returns the n most probable target words for source,
// highest first. It returns nil for an unknown source word.
func (m *Model) Translations(source string, n int) []Translation {
	s, ok := m.Source.ID(source)
	if !ok {
		return nil
	}
	row := m.Table.RawRowView(s)
	probs := make([]float64, len(row))
	copy(probs, row)
	inds := make([]int, len(probs))
	floats.Argsort(probs, inds) // ascending

	if n <= 0 || n > len(inds) {
		n = len(inds)
	}
	out := make([]Translation, 0, n)
	for k := len(inds) - 1; k >= len(inds)-n; k-- {
		out = append(out, Translation{
			Word:        m.Target.Token(inds[k]),
			Probability: probs[k],
		})
	}
	return out
}
