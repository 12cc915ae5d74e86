package corpus

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrLineMismatch is returned when the two sides of a parallel corpus
// have different line counts.
var ErrLineMismatch = errors.New("parallel files have different line counts")

// SentencePair is one line-aligned pair of tokenized sentences.
type SentencePair struct {
	Source []string
	Target []string
}

// Corpus is an ordered sequence of sentence pairs.
type Corpus struct {
	Pairs []SentencePair
}

// Options controls corpus loading.
type Options struct {
	MaxPairs int // 0 = no limit
}

// Load reads a parallel corpus from two line-aligned readers.
// Each line is split on whitespace. Empty lines are kept as empty
// sentences so that pair i always corresponds to line i.
func Load(src, tgt io.Reader, opts Options) (*Corpus, error) {
	srcScan := newScanner(src)
	tgtScan := newScanner(tgt)

	c := &Corpus{}
	lineNum := 0
	for {
		if opts.MaxPairs > 0 && len(c.Pairs) >= opts.MaxPairs {
			break
		}
		srcOK := srcScan.Scan()
		tgtOK := tgtScan.Scan()
		if !srcOK || !tgtOK {
			if err := srcScan.Err(); err != nil {
				return nil, fmt.Errorf("read source: %w", err)
			}
			if err := tgtScan.Err(); err != nil {
				return nil, fmt.Errorf("read target: %w", err)
			}
			if srcOK != tgtOK {
				return nil, fmt.Errorf("line %d: %w", lineNum+1, ErrLineMismatch)
			}
			break
		}
		lineNum++
		c.Pairs = append(c.Pairs, SentencePair{
			Source: strings.Fields(srcScan.Text()),
			Target: strings.Fields(tgtScan.Text()),
		})
	}
	return c, nil
}

func newScanner(r io.Reader) *bufio.Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 1024*1024), 1024*1024)
	return s
}

// LoadFiles is a convenience wrapper that opens both corpus files.
func LoadFiles(srcPath, tgtPath string, opts Options) (*Corpus, error) {
	sf, err := os.Open(srcPath)
	if err != nil {
		return nil, err
	}
	defer sf.Close()
	tf, err := os.Open(tgtPath)
	if err != nil {
		return nil, err
	}
	defer tf.Close()
	return Load(sf, tf, opts)
}

// Swap returns a corpus with source and target roles exchanged.
// Token slices are shared with c.
func (c *Corpus) Swap() *Corpus {
	out := &Corpus{Pairs: make([]SentencePair, len(c.Pairs))}
	for i, p := range c.Pairs {
		out.Pairs[i] = SentencePair{Source: p.Target, Target: p.Source}
	}
	return out
}

// Sources returns the source side of every pair.
func (c *Corpus) Sources() [][]string {
	out := make([][]string, len(c.Pairs))
	for i, p := range c.Pairs {
		out[i] = p.Source
	}
	return out
}

// Targets returns the target side of every pair.
func (c *Corpus) Targets() [][]string {
	out := make([][]string, len(c.Pairs))
	for i, p := range c.Pairs {
		out[i] = p.Target
	}
	return out
}

// Len returns the number of pairs.
func (c *Corpus) Len() int { return len(c.Pairs) }
