package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ieee0824/wordalign/checkpoint"
	"github.com/ieee0824/wordalign/config"
)

func writeToyCorpus(t *testing.T, dir string) string {
	t.Helper()
	prefix := filepath.Join(dir, "toy")
	if err := os.WriteFile(prefix+".f", []byte("la maison\nla fleur\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(prefix+".e", []byte("the house\nthe flower\n"), 0644); err != nil {
		t.Fatal(err)
	}
	return prefix
}

func TestParseArgs_Overrides(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "run.yaml")
	yaml := "corpus:\n  prefix: data/hansards\n  source: fr\n  target: en\ntraining:\n  max_iterations: 20\n  tolerance: 0.01\nforward:\n  save: runs/a\n"
	if err := os.WriteFile(cfgPath, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, o *options)
	}{
		{
			name: "defaults",
			args: nil,
			check: func(t *testing.T, o *options) {
				if o.cfg != config.Default() {
					t.Errorf("cfg = %+v, want defaults", o.cfg)
				}
				if o.name != "forward" || o.direction() != &o.cfg.Forward {
					t.Errorf("direction = %s", o.name)
				}
			},
		},
		{
			name: "file values kept when flags absent",
			args: []string{"-config", cfgPath},
			check: func(t *testing.T, o *options) {
				if o.cfg.Corpus.Prefix != "data/hansards" || o.cfg.Training.MaxIterations != 20 || o.cfg.Training.Tolerance != 0.01 {
					t.Errorf("cfg = %+v", o.cfg)
				}
				if o.cfg.Forward.Save != "runs/a" {
					t.Errorf("Forward.Save = %q, want runs/a", o.cfg.Forward.Save)
				}
			},
		},
		{
			name: "explicit flags win over file",
			args: []string{"-config", cfgPath, "-iter", "7", "-src", "de", "-save", "runs/b"},
			check: func(t *testing.T, o *options) {
				if o.cfg.Training.MaxIterations != 7 {
					t.Errorf("MaxIterations = %d, want 7", o.cfg.Training.MaxIterations)
				}
				if o.cfg.Training.Tolerance != 0.01 {
					t.Errorf("Tolerance = %g, want file value 0.01", o.cfg.Training.Tolerance)
				}
				if o.cfg.Corpus.Source != "de" || o.cfg.Corpus.Target != "en" {
					t.Errorf("suffixes = %q, %q", o.cfg.Corpus.Source, o.cfg.Corpus.Target)
				}
				if o.cfg.Forward.Save != "runs/b" {
					t.Errorf("Forward.Save = %q, want runs/b", o.cfg.Forward.Save)
				}
			},
		},
		{
			name: "reverse direction flags",
			args: []string{"-reverse", "-save", "runs/r", "-load", "runs/r0/model-0003.ckpt", "-resume-iter", "2"},
			check: func(t *testing.T, o *options) {
				if o.name != "reverse" || o.direction() != &o.cfg.Reverse {
					t.Errorf("direction = %s", o.name)
				}
				want := config.Direction{Save: "runs/r", Load: "runs/r0/model-0003.ckpt", ResumeIteration: 2}
				if o.cfg.Reverse != want {
					t.Errorf("Reverse = %+v, want %+v", o.cfg.Reverse, want)
				}
				if o.cfg.Forward != config.Default().Forward {
					t.Errorf("Forward changed: %+v", o.cfg.Forward)
				}
			},
		},
	}

	for _, tt := range tests {
		o, err := parseArgs(tt.args, io.Discard)
		if err != nil {
			t.Fatalf("%s: parseArgs: %v", tt.name, err)
		}
		tt.check(t, o)
	}
}

func TestParseArgs_ResumeWithoutLoad(t *testing.T) {
	if _, err := parseArgs([]string{"-resume-iter", "3"}, io.Discard); !errors.Is(err, config.ErrResumeWithoutLoad) {
		t.Errorf("err = %v, want ErrResumeWithoutLoad", err)
	}
}

func TestRun_FailsBeforeReadingCorpus(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing")

	// invalid configuration: no run directory may be created
	save := filepath.Join(dir, "run1")
	err := run([]string{"-prefix", missing, "-save", save, "-resume-iter", "2"}, io.Discard, io.Discard)
	if !errors.Is(err, config.ErrResumeWithoutLoad) {
		t.Errorf("err = %v, want ErrResumeWithoutLoad", err)
	}
	if _, err := os.Stat(save); !os.IsNotExist(err) {
		t.Errorf("run directory created for invalid configuration")
	}

	// existing run directory is reported, not the missing corpus
	existing := filepath.Join(dir, "run2")
	if err := os.Mkdir(existing, 0755); err != nil {
		t.Fatal(err)
	}
	err = run([]string{"-prefix", missing, "-save", existing}, io.Discard, io.Discard)
	if !errors.Is(err, checkpoint.ErrRunExists) {
		t.Errorf("err = %v, want ErrRunExists", err)
	}
}

func TestRun_ToyCorpus(t *testing.T) {
	dir := t.TempDir()
	prefix := writeToyCorpus(t, dir)
	save := filepath.Join(dir, "run")

	var stdout, stderr bytes.Buffer
	err := run([]string{"-prefix", prefix, "-save", save, "-iter", "3", "-tol", "1e-12", "-show", "maison,unknown"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v\nstderr:\n%s", err, stderr.String())
	}

	for i := 1; i <= 3; i++ {
		if _, err := os.Stat(checkpoint.Path(save, i)); err != nil {
			t.Errorf("checkpoint %d missing: %v", i, err)
		}
	}
	out := stdout.String()
	if !strings.Contains(out, "maison: house=") {
		t.Errorf("stdout = %q, want top translation house for maison", out)
	}
	if !strings.Contains(out, "unknown: unknown word") {
		t.Errorf("stdout = %q, want unknown word line", out)
	}
}
