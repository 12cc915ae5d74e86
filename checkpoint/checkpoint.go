package checkpoint

import (
	"compress/zlib"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"github.com/ieee0824/wordalign/ibm1"
	"github.com/ieee0824/wordalign/vocab"
)

// ErrRunExists is returned by Create when the run directory already exists.
var ErrRunExists = errors.New("run directory already exists")

// serializable form of ibm1.Model for gob encoding
type serializedModel struct {
	Table         []byte // mat.Dense binary encoding
	SourceTokens  []string
	TargetTokens  []string
	Lowercase     bool
	Tolerance     float64
	MaxIterations int
	Converged     bool
	MaxDelta      float64
	Iteration     int
	History       []ibm1.IterationStats
	RunID         string
}

// Encode writes m to w as a zlib-compressed gob blob.
func Encode(w io.Writer, m *ibm1.Model) error {
	table, err := m.Table.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal table: %w", err)
	}
	sm := serializedModel{
		Table:         table,
		SourceTokens:  m.Source.Tokens(),
		TargetTokens:  m.Target.Tokens(),
		Lowercase:     m.Source.Lowercase(),
		Tolerance:     m.Tolerance,
		MaxIterations: m.MaxIterations,
		Converged:     m.Converged,
		MaxDelta:      m.MaxDelta,
		Iteration:     m.Iteration,
		History:       m.History,
		RunID:         m.RunID,
	}

	zw := zlib.NewWriter(w)
	if err := gob.NewEncoder(zw).Encode(sm); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// Decode reads a model written by Encode.
func Decode(r io.Reader) (*ibm1.Model, error) {
	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open zlib stream: %w", err)
	}
	defer zr.Close()

	var sm serializedModel
	if err := gob.NewDecoder(zr).Decode(&sm); err != nil {
		return nil, err
	}

	src, err := vocab.New(sm.SourceTokens, sm.Lowercase)
	if err != nil {
		return nil, fmt.Errorf("source vocabulary: %w", err)
	}
	tgt, err := vocab.New(sm.TargetTokens, sm.Lowercase)
	if err != nil {
		return nil, fmt.Errorf("target vocabulary: %w", err)
	}

	table := &mat.Dense{}
	if err := table.UnmarshalBinary(sm.Table); err != nil {
		return nil, fmt.Errorf("unmarshal table: %w", err)
	}
	if rows, cols := table.Dims(); rows != src.Size() || cols != tgt.Size() {
		return nil, fmt.Errorf("table is %dx%d but vocabularies are %d and %d", rows, cols, src.Size(), tgt.Size())
	}

	return &ibm1.Model{
		Table:         table,
		Source:        src,
		Target:        tgt,
		Tolerance:     sm.Tolerance,
		MaxIterations: sm.MaxIterations,
		Converged:     sm.Converged,
		MaxDelta:      sm.MaxDelta,
		Iteration:     sm.Iteration,
		History:       sm.History,
		RunID:         sm.RunID,
	}, nil
}

// LoadFile reads a checkpoint from path.
func LoadFile(path string) (*ibm1.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return m, nil
}

// Path returns the checkpoint path for iteration inside a run directory.
func Path(dir string, iteration int) string {
	return filepath.Join(dir, fmt.Sprintf("model-%04d.ckpt", iteration))
}

// encode is the encoder used by Writer.Save.
var encode = Encode

// Writer saves one checkpoint per iteration into a run directory.
type Writer struct {
	Dir string
}

// Create makes a new run directory. It refuses to reuse an existing one
// so that checkpoints of different runs never mix.
func Create(dir string) (*Writer, error) {
	dir = filepath.Clean(dir)
	if err := os.MkdirAll(filepath.Dir(dir), 0755); err != nil {
		return nil, err
	}
	if err := os.Mkdir(dir, 0755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%s: %w", dir, ErrRunExists)
		}
		return nil, err
	}
	return &Writer{Dir: dir}, nil
}

// Save writes m to the path for m.Iteration and returns that path.
func (w *Writer) Save(m *ibm1.Model) (string, error) {
	path := Path(w.Dir, m.Iteration)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := encode(f, m); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}
