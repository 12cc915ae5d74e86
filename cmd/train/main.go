package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ieee0824/wordalign"
	"github.com/ieee0824/wordalign/checkpoint"
	"github.com/ieee0824/wordalign/config"
	"github.com/ieee0824/wordalign/corpus"
	"github.com/ieee0824/wordalign/internal/report"
)

// options is the merged configuration of one training run.
type options struct {
	cfg     config.Config
	name    string
	reverse bool
	show    string
}

// direction returns the per-direction settings selected by -reverse.
func (o *options) direction() *config.Direction {
	if o.reverse {
		return &o.cfg.Reverse
	}
	return &o.cfg.Forward
}

// parseArgs parses command-line flags on top of the defaults or the
// -config file. Only flags given explicitly override the file.
func parseArgs(args []string, stderr io.Writer) (*options, error) {
	def := config.Default()
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML config file (flags given on the command line override it)")
	prefix := fs.String("prefix", def.Corpus.Prefix, "corpus path prefix")
	src := fs.String("src", def.Corpus.Source, "source language suffix")
	tgt := fs.String("tgt", def.Corpus.Target, "target language suffix")
	maxSent := fs.Int("max-sentences", 0, "use only the first N sentence pairs (0=all)")
	lowercase := fs.Bool("lowercase", false, "lowercase all tokens")
	tol := fs.Float64("tol", def.Training.Tolerance, "convergence tolerance on the max per-cell change")
	maxIter := fs.Int("iter", def.Training.MaxIterations, "max EM iterations")
	reverse := fs.Bool("reverse", false, "train the reverse direction (target -> source)")
	save := fs.String("save", "", "run directory for checkpoints (must not exist; default runs/forward or runs/reverse)")
	load := fs.String("load", "", "checkpoint to resume from")
	resumeIter := fs.Int("resume-iter", 0, "iteration to resume from (requires -load; 0=stored count)")
	plotPath := fs.String("plot", "", "write a convergence plot (PNG/SVG/PDF by extension)")
	show := fs.String("show", "", "comma-separated source words whose top translations are printed after training")

	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: train [flags]")
		fmt.Fprintln(stderr, "  Trains an IBM Model 1 translation table on PREFIX.SRC / PREFIX.TGT,")
		fmt.Fprintln(stderr, "  saving a checkpoint after every EM iteration.")
		fmt.Fprintln(stderr)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	o := &options{cfg: def, name: "forward", reverse: *reverse, show: *show}
	if *configPath != "" {
		cfg, err := config.LoadFile(*configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		o.cfg = cfg
	}
	if o.reverse {
		o.name = "reverse"
	}

	dir := o.direction()
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "prefix":
			o.cfg.Corpus.Prefix = *prefix
		case "src":
			o.cfg.Corpus.Source = *src
		case "tgt":
			o.cfg.Corpus.Target = *tgt
		case "max-sentences":
			o.cfg.Corpus.MaxSentences = *maxSent
		case "lowercase":
			o.cfg.Corpus.Lowercase = *lowercase
		case "tol":
			o.cfg.Training.Tolerance = *tol
		case "iter":
			o.cfg.Training.MaxIterations = *maxIter
		case "save":
			dir.Save = *save
		case "load":
			dir.Load = *load
		case "resume-iter":
			dir.ResumeIteration = *resumeIter
		case "plot":
			o.cfg.Plot = *plotPath
		}
	})

	if err := o.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return o, nil
}

// run trains one direction. The configuration is validated and the run
// directory created before the corpus is read.
func run(args []string, stdout, stderr io.Writer) error {
	o, err := parseArgs(args, stderr)
	if err != nil {
		return err
	}
	dir := o.direction()

	var ckpt *checkpoint.Writer
	if dir.Save != "" {
		ckpt, err = checkpoint.Create(dir.Save)
		if err != nil {
			return fmt.Errorf("checkpoint directory: %w", err)
		}
	}

	cfg := o.cfg
	c, err := corpus.LoadFiles(cfg.SourcePath(), cfg.TargetPath(), corpus.Options{MaxPairs: cfg.Corpus.MaxSentences})
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}
	fmt.Fprintf(stderr, "Corpus: %d sentence pairs (%s, %s)\n", c.Len(), cfg.SourcePath(), cfg.TargetPath())
	if o.reverse {
		c = c.Swap()
	}

	timer := report.StartTimer(stderr, "Training time")
	m, err := wordalign.Train(c, wordalign.TrainConfig{
		Name:            o.name,
		Training:        cfg.TrainingConfig(),
		Lowercase:       cfg.Corpus.Lowercase,
		LoadPath:        dir.Load,
		ResumeIteration: dir.ResumeIteration,
		Checkpoints:     ckpt,
		Log:             stderr,
	})
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}
	timer.Stop()

	if ckpt != nil {
		fmt.Fprintf(stderr, "Final model: %s\n", checkpoint.Path(ckpt.Dir, m.Iteration))
	}

	if cfg.Plot != "" {
		if err := report.ConvergencePlot(cfg.Plot, report.Series{Name: o.name, History: m.History}); err != nil {
			return fmt.Errorf("plot: %w", err)
		}
		fmt.Fprintf(stderr, "Plot saved to %s\n", cfg.Plot)
	}

	if o.show != "" {
		for _, w := range strings.Split(o.show, ",") {
			w = strings.TrimSpace(w)
			if w == "" {
				continue
			}
			trans := m.Translations(w, 5)
			if trans == nil {
				fmt.Fprintf(stdout, "%s: unknown word\n", w)
				continue
			}
			parts := make([]string, len(trans))
			for i, tr := range trans {
				parts[i] = fmt.Sprintf("%s=%.4f", tr.Word, tr.Probability)
			}
			fmt.Fprintf(stdout, "%s: %s\n", w, strings.Join(parts, " "))
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
