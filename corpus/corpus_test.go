package corpus

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	src := "la maison\nla fleur\n\nune  maison bleue\n"
	tgt := "the house\nthe flower\n\na blue house\n"

	c, err := Load(strings.NewReader(src), strings.NewReader(tgt), Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", c.Len())
	}
	if want := []string{"une", "maison", "bleue"}; !reflect.DeepEqual(c.Pairs[3].Source, want) {
		t.Errorf("Pairs[3].Source = %v, want %v", c.Pairs[3].Source, want)
	}
	// Empty lines keep their slot.
	if len(c.Pairs[2].Source) != 0 || len(c.Pairs[2].Target) != 0 {
		t.Errorf("Pairs[2] = %+v, want empty pair", c.Pairs[2])
	}
}

func TestLoad_MaxPairs(t *testing.T) {
	src := "a\nb\nc\n"
	tgt := "x\ny\nz\n"
	c, err := Load(strings.NewReader(src), strings.NewReader(tgt), Options{MaxPairs: 2})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestLoad_LineMismatch(t *testing.T) {
	_, err := Load(strings.NewReader("a\nb\n"), strings.NewReader("x\n"), Options{})
	if !errors.Is(err, ErrLineMismatch) {
		t.Errorf("err = %v, want ErrLineMismatch", err)
	}
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "toy.fr")
	tgtPath := filepath.Join(dir, "toy.en")
	if err := os.WriteFile(srcPath, []byte("la maison\r\nla fleur\r\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(tgtPath, []byte("the house\nthe flower"), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadFiles(srcPath, tgtPath, Options{})
	if err != nil {
		t.Fatalf("LoadFiles: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	if got := c.Pairs[1].Target; !reflect.DeepEqual(got, []string{"the", "flower"}) {
		t.Errorf("Pairs[1].Target = %v", got)
	}

	if _, err := LoadFiles(filepath.Join(dir, "missing"), tgtPath, Options{}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSwap(t *testing.T) {
	c := &Corpus{Pairs: []SentencePair{
		{Source: []string{"la", "maison"}, Target: []string{"the", "house"}},
	}}
	s := c.Swap()
	if !reflect.DeepEqual(s.Pairs[0].Source, []string{"the", "house"}) {
		t.Errorf("swapped Source = %v", s.Pairs[0].Source)
	}
	if !reflect.DeepEqual(s.Sources(), c.Targets()) {
		t.Error("Swap().Sources() != Targets()")
	}
}
