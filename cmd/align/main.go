package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ieee0824/wordalign"
	"github.com/ieee0824/wordalign/align"
	"github.com/ieee0824/wordalign/checkpoint"
	"github.com/ieee0824/wordalign/config"
	"github.com/ieee0824/wordalign/corpus"
	"github.com/ieee0824/wordalign/ibm1"
	"github.com/ieee0824/wordalign/internal/report"
)

// parseArgs parses command-line flags on top of the defaults or the
// -config file. Only flags given explicitly override the file.
func parseArgs(args []string, stderr io.Writer) (config.Config, align.Mode, error) {
	def := config.Default()
	fs := flag.NewFlagSet("align", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML config file (flags given on the command line override it)")
	prefix := fs.String("prefix", def.Corpus.Prefix, "corpus path prefix")
	src := fs.String("src", def.Corpus.Source, "source language suffix")
	tgt := fs.String("tgt", def.Corpus.Target, "target language suffix")
	maxSent := fs.Int("max-sentences", 0, "use only the first N sentence pairs (0=all)")
	lowercase := fs.Bool("lowercase", false, "lowercase all tokens")
	tol := fs.Float64("tol", def.Training.Tolerance, "convergence tolerance on the max per-cell change")
	maxIter := fs.Int("iter", def.Training.MaxIterations, "max EM iterations")
	save := fs.String("save", def.Forward.Save, "run directory for forward checkpoints (must not exist)")
	saveRev := fs.String("save-rev", def.Reverse.Save, "run directory for reverse checkpoints (must not exist)")
	load := fs.String("load", "", "forward checkpoint to resume from")
	loadRev := fs.String("load-rev", "", "reverse checkpoint to resume from")
	resumeIter := fs.Int("resume-iter", 0, "forward iteration to resume from (requires -load)")
	resumeIterRev := fs.Int("resume-iter-rev", 0, "reverse iteration to resume from (requires -load-rev)")
	mode := fs.String("mode", def.Alignment.Mode, "symmetrization: intersection, union, forward, reverse")
	gold := fs.String("gold", "", "gold alignments (one line per pair) to score against")
	plotPath := fs.String("plot", "", "write a convergence plot of both directions")

	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: align [flags] > alignments.txt")
		fmt.Fprintln(stderr, "  Trains IBM Model 1 in both directions and prints one line of")
		fmt.Fprintln(stderr, "  i-j links per sentence pair to stdout.")
		fmt.Fprintln(stderr)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return config.Config{}, 0, err
	}

	cfg := def
	if *configPath != "" {
		var err error
		cfg, err = config.LoadFile(*configPath)
		if err != nil {
			return config.Config{}, 0, fmt.Errorf("load config: %w", err)
		}
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "prefix":
			cfg.Corpus.Prefix = *prefix
		case "src":
			cfg.Corpus.Source = *src
		case "tgt":
			cfg.Corpus.Target = *tgt
		case "max-sentences":
			cfg.Corpus.MaxSentences = *maxSent
		case "lowercase":
			cfg.Corpus.Lowercase = *lowercase
		case "tol":
			cfg.Training.Tolerance = *tol
		case "iter":
			cfg.Training.MaxIterations = *maxIter
		case "save":
			cfg.Forward.Save = *save
		case "save-rev":
			cfg.Reverse.Save = *saveRev
		case "load":
			cfg.Forward.Load = *load
		case "load-rev":
			cfg.Reverse.Load = *loadRev
		case "resume-iter":
			cfg.Forward.ResumeIteration = *resumeIter
		case "resume-iter-rev":
			cfg.Reverse.ResumeIteration = *resumeIterRev
		case "mode":
			cfg.Alignment.Mode = *mode
		case "gold":
			cfg.Alignment.Gold = *gold
		case "plot":
			cfg.Plot = *plotPath
		}
	})

	if err := cfg.Validate(); err != nil {
		return config.Config{}, 0, fmt.Errorf("invalid configuration: %w", err)
	}
	alignMode, err := cfg.AlignMode()
	if err != nil {
		return config.Config{}, 0, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Forward.Save != "" && filepath.Clean(cfg.Forward.Save) == filepath.Clean(cfg.Reverse.Save) {
		return config.Config{}, 0, errSharedSave
	}
	return cfg, alignMode, nil
}

var errSharedSave = errors.New("invalid configuration: forward and reverse runs share a save directory")

// run trains both directions and writes alignments to stdout. The
// configuration is validated and both run directories are created before
// the corpus is read.
func run(args []string, stdout, stderr io.Writer) error {
	cfg, alignMode, err := parseArgs(args, stderr)
	if err != nil {
		return err
	}

	fwdCkpt, err := createRunDir(cfg.Forward.Save)
	if err != nil {
		return err
	}
	revCkpt, err := createRunDir(cfg.Reverse.Save)
	if err != nil {
		return err
	}

	c, err := corpus.LoadFiles(cfg.SourcePath(), cfg.TargetPath(), corpus.Options{MaxPairs: cfg.Corpus.MaxSentences})
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}
	fmt.Fprintf(stderr, "Corpus: %d sentence pairs (%s, %s)\n", c.Len(), cfg.SourcePath(), cfg.TargetPath())

	fwd, err := trainDirection("forward", c, cfg, cfg.Forward, fwdCkpt, stderr)
	if err != nil {
		return err
	}
	rev, err := trainDirection("reverse", c.Swap(), cfg, cfg.Reverse, revCkpt, stderr)
	if err != nil {
		return err
	}

	if cfg.Plot != "" {
		err := report.ConvergencePlot(cfg.Plot,
			report.Series{Name: "forward", History: fwd.History},
			report.Series{Name: "reverse", History: rev.History},
		)
		if err != nil {
			return fmt.Errorf("plot: %w", err)
		}
		fmt.Fprintf(stderr, "Plot saved to %s\n", cfg.Plot)
	}

	aligner := wordalign.NewAlignerFromModels(fwd, rev, wordalign.WithMode(alignMode))
	if err := aligner.WriteCorpus(stdout, c); err != nil {
		return fmt.Errorf("write alignments: %w", err)
	}

	if cfg.Alignment.Gold != "" {
		if err := score(stderr, aligner, c, cfg.Alignment.Gold); err != nil {
			return fmt.Errorf("score: %w", err)
		}
	}
	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// createRunDir creates a checkpoint run directory, or returns nil when
// saving is disabled.
func createRunDir(dir string) (*checkpoint.Writer, error) {
	if dir == "" {
		return nil, nil
	}
	w, err := checkpoint.Create(dir)
	if err != nil {
		return nil, fmt.Errorf("checkpoint directory: %w", err)
	}
	return w, nil
}

func trainDirection(name string, c *corpus.Corpus, cfg config.Config, dir config.Direction, ckpt *checkpoint.Writer, log io.Writer) (*ibm1.Model, error) {
	timer := report.StartTimer(log, "Training time ("+name+")")
	defer timer.Stop()

	m, err := wordalign.Train(c, wordalign.TrainConfig{
		Name:            name,
		Training:        cfg.TrainingConfig(),
		Lowercase:       cfg.Corpus.Lowercase,
		LoadPath:        dir.Load,
		ResumeIteration: dir.ResumeIteration,
		Checkpoints:     ckpt,
		Log:             log,
	})
	if err != nil {
		return nil, fmt.Errorf("train %s: %w", name, err)
	}
	return m, nil
}

// score prints precision, recall and AER against a gold alignment file.
func score(w io.Writer, a *wordalign.Aligner, c *corpus.Corpus, goldPath string) error {
	f, err := os.Open(goldPath)
	if err != nil {
		return err
	}
	defer f.Close()
	sure, possible, err := align.ReadGold(f)
	if err != nil {
		return fmt.Errorf("%s: %w", goldPath, err)
	}
	if len(sure) > c.Len() {
		sure, possible = sure[:c.Len()], possible[:c.Len()]
	}
	sc, err := align.Evaluate(a.AlignCorpus(c), sure, possible)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Precision: %.4f  Recall: %.4f  AER: %.4f\n", sc.Precision, sc.Recall, sc.AER)
	return nil
}
