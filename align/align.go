package align

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/ieee0824/wordalign/corpus"
)

// Scorer returns P(target | source), or a negative value for unknown words.
type Scorer interface {
	Probability(target, source string) float64
}

// Link connects a source position to a target position within one
// sentence pair.
type Link struct {
	Source int
	Target int
}

// String formats the link as "i-j".
func (l Link) String() string {
	return fmt.Sprintf("%d-%d", l.Source, l.Target)
}

// Mode selects how forward and reverse alignments are combined.
type Mode int

const (
	Intersection Mode = iota
	Union
	ForwardOnly
	ReverseOnly
)

var modeNames = map[Mode]string{
	Intersection: "intersection",
	Union:        "union",
	ForwardOnly:  "forward",
	ReverseOnly:  "reverse",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode converts a mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown alignment mode %q", s)
}

// Forward links every source position to its most probable target
// position under m. Ties go to the earliest target position; positions
// whose best score is not positive stay unaligned.
func Forward(m Scorer, src, tgt []string) []Link {
	var links []Link
	for i, s := range src {
		best := -1
		bestScore := 0.0
		for j, t := range tgt {
			score := m.Probability(t, s)
			if best < 0 || score > bestScore {
				best = j
				bestScore = score
			}
		}
		if best >= 0 && bestScore > 0 {
			links = append(links, Link{Source: i, Target: best})
		}
	}
	return links
}

// Reverse links every target position to its most probable source
// position under m, a model trained with source and target roles
// swapped. Links are reported in (source, target) orientation.
func Reverse(m Scorer, src, tgt []string) []Link {
	var links []Link
	for j, t := range tgt {
		best := -1
		bestScore := 0.0
		for i, s := range src {
			score := m.Probability(s, t)
			if best < 0 || score > bestScore {
				best = i
				bestScore = score
			}
		}
		if best >= 0 && bestScore > 0 {
			links = append(links, Link{Source: best, Target: j})
		}
	}
	return links
}

// grid marks links in an n x m boolean matrix.
func grid(n, m int, sets ...[]Link) [][]bool {
	g := make([][]bool, n)
	for i := range g {
		g[i] = make([]bool, m)
	}
	for _, set := range sets {
		for _, l := range set {
			g[l.Source][l.Target] = true
		}
	}
	return g
}

// IntersectLinks returns the links present in both a and b, ordered by source
// position then target position. n and m are the sentence lengths.
func IntersectLinks(n, m int, a, b []Link) []Link {
	ga := grid(n, m, a)
	gb := grid(n, m, b)
	var out []Link
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			if ga[i][j] && gb[i][j] {
				out = append(out, Link{Source: i, Target: j})
			}
		}
	}
	return out
}

// UnionLinks returns the links present in a or b, in the same order as
// IntersectLinks.
func UnionLinks(n, m int, a, b []Link) []Link {
	g := grid(n, m, a, b)
	var out []Link
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			if g[i][j] {
				out = append(out, Link{Source: i, Target: j})
			}
		}
	}
	return out
}

// Aligner combines a forward model P(target|source) and a reverse model
// P(source|target) into one alignment per sentence pair.
type Aligner struct {
	Forward Scorer
	Reverse Scorer
	Mode    Mode
}

// New creates an Aligner.
func New(forward, reverse Scorer, mode Mode) *Aligner {
	return &Aligner{Forward: forward, Reverse: reverse, Mode: mode}
}

// Align returns the links for one sentence pair.
func (a *Aligner) Align(src, tgt []string) []Link {
	n, m := len(src), len(tgt)
	switch a.Mode {
	case ForwardOnly:
		return UnionLinks(n, m, Forward(a.Forward, src, tgt), nil)
	case ReverseOnly:
		return UnionLinks(n, m, Reverse(a.Reverse, src, tgt), nil)
	case Union:
		return UnionLinks(n, m, Forward(a.Forward, src, tgt), Reverse(a.Reverse, src, tgt))
	default:
		return IntersectLinks(n, m, Forward(a.Forward, src, tgt), Reverse(a.Reverse, src, tgt))
	}
}

// AlignCorpus aligns every pair of c in order.
func (a *Aligner) AlignCorpus(c *corpus.Corpus) [][]Link {
	out := make([][]Link, len(c.Pairs))
	for i, p := range c.Pairs {
		out[i] = a.Align(p.Source, p.Target)
	}
	return out
}

// WriteCorpus writes one line of links per sentence pair of c.
func (a *Aligner) WriteCorpus(w io.Writer, c *corpus.Corpus) error {
	bw := bufio.NewWriter(w)
	for _, p := range c.Pairs {
		if _, err := bw.WriteString(Format(a.Align(p.Source, p.Target))); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Format renders links as space-separated "i-j" tokens.
func Format(links []Link) string {
	parts := make([]string, len(links))
	for k, l := range links {
		parts[k] = l.String()
	}
	return strings.Join(parts, " ")
}
