package checkpoint

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/ieee0824/wordalign/corpus"
	"github.com/ieee0824/wordalign/ibm1"
)

func trainedModel(t *testing.T, iters int) *ibm1.Model {
	t.Helper()
	c := &corpus.Corpus{Pairs: []corpus.SentencePair{
		{Source: []string{"La", "maison"}, Target: []string{"the", "house"}},
		{Source: []string{"la", "fleur"}, Target: []string{"the", "flower"}},
	}}
	m, err := ibm1.NewFromCorpus(c, true, ibm1.TrainingConfig{Tolerance: 1e-9, MaxIterations: iters})
	if err != nil {
		t.Fatal(err)
	}
	pairs, err := m.Encode(c)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Train(pairs, 0, nil); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	m := trainedModel(t, 3)

	var buf bytes.Buffer
	if err := Encode(&buf, m); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if !mat.Equal(got.Table, m.Table) {
		t.Error("table differs after round trip")
	}
	if !reflect.DeepEqual(got.Source.Tokens(), m.Source.Tokens()) {
		t.Errorf("source tokens = %v, want %v", got.Source.Tokens(), m.Source.Tokens())
	}
	if !reflect.DeepEqual(got.Target.Tokens(), m.Target.Tokens()) {
		t.Errorf("target tokens = %v, want %v", got.Target.Tokens(), m.Target.Tokens())
	}
	if !got.Source.Lowercase() {
		t.Error("lowercase flag lost")
	}
	if got.Iteration != 3 || got.Tolerance != m.Tolerance || got.MaxIterations != m.MaxIterations {
		t.Errorf("state = (%d, %g, %d), want (3, %g, %d)",
			got.Iteration, got.Tolerance, got.MaxIterations, m.Tolerance, m.MaxIterations)
	}
	if got.Converged != m.Converged || got.MaxDelta != m.MaxDelta || got.RunID != m.RunID {
		t.Error("convergence state or run id lost")
	}
	if !reflect.DeepEqual(got.History, m.History) {
		t.Errorf("History = %+v, want %+v", got.History, m.History)
	}
	if p := got.Probability("house", "MAISON"); p != m.Probability("house", "maison") {
		t.Errorf("Probability after load = %v", p)
	}
}

func TestDecode_Garbage(t *testing.T) {
	if _, err := Decode(bytes.NewReader([]byte("not a checkpoint"))); err == nil {
		t.Error("expected error for garbage input")
	}
}

func TestCreate_RefusesExistingDir(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "runs", "fwd")

	w, err := Create(dir)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if w.Dir != dir {
		t.Errorf("Dir = %q, want %q", w.Dir, dir)
	}
	if _, err := Create(dir); !errors.Is(err, ErrRunExists) {
		t.Errorf("second Create err = %v, want ErrRunExists", err)
	}
	if _, err := Create(dir + string(filepath.Separator)); !errors.Is(err, ErrRunExists) {
		t.Errorf("Create with trailing separator err = %v, want ErrRunExists", err)
	}
}

func TestCreate_TrailingSeparator(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "runs", "exp1")

	w, err := Create(dir + string(filepath.Separator))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if w.Dir != dir {
		t.Errorf("Dir = %q, want %q", w.Dir, dir)
	}
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		t.Errorf("run directory not created: %v", err)
	}
}

func TestWriter_SaveAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	w, err := Create(dir)
	if err != nil {
		t.Fatal(err)
	}

	m := trainedModel(t, 2)
	path, err := w.Save(m)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if want := filepath.Join(dir, "model-0002.ckpt"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("checkpoint missing: %v", err)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if loaded.Iteration != 2 {
		t.Errorf("Iteration = %d, want 2", loaded.Iteration)
	}
	if !mat.Equal(loaded.Table, m.Table) {
		t.Error("loaded table differs")
	}
}

func TestPath(t *testing.T) {
	if got := Path("runs/a", 7); got != filepath.Join("runs/a", "model-0007.ckpt") {
		t.Errorf("Path = %q", got)
	}
	if Path("x", 1) == Path("x", 2) {
		t.Error("different iterations share a path")
	}
}

func TestWriter_SaveRemovesPartialFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	w, err := Create(dir)
	if err != nil {
		t.Fatal(err)
	}

	errFull := errors.New("disk full")
	encode = func(out io.Writer, m *ibm1.Model) error {
		out.Write([]byte("partial"))
		return errFull
	}
	defer func() { encode = Encode }()

	m := trainedModel(t, 1)
	if _, err := w.Save(m); !errors.Is(err, errFull) {
		t.Fatalf("Save err = %v, want %v", err, errFull)
	}
	if _, err := os.Stat(Path(dir, 1)); !os.IsNotExist(err) {
		t.Errorf("partial checkpoint left behind: stat err = %v", err)
	}
}
