package align

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseLinks parses one line of gold alignments. "i-j" is a sure link,
// "i?j" or "i-j-p" a possible one. Sure links are also possible.
func ParseLinks(line string) (sure, possible []Link, err error) {
	for _, tok := range strings.Fields(line) {
		isPossible := false
		sep := "-"
		switch {
		case strings.Contains(tok, "?"):
			isPossible = true
			sep = "?"
		case strings.HasSuffix(tok, "-p") || strings.HasSuffix(tok, "-P"):
			isPossible = true
			tok = tok[:len(tok)-2]
		}
		parts := strings.Split(tok, sep)
		if len(parts) != 2 {
			return nil, nil, fmt.Errorf("bad link %q", tok)
		}
		i, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, nil, fmt.Errorf("bad link %q: %w", tok, err)
		}
		j, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, nil, fmt.Errorf("bad link %q: %w", tok, err)
		}
		if i < 0 || j < 0 {
			return nil, nil, fmt.Errorf("bad link %q: negative index", tok)
		}
		l := Link{Source: i, Target: j}
		if !isPossible {
			sure = append(sure, l)
		}
		possible = append(possible, l)
	}
	return sure, possible, nil
}

// ReadGold reads one line of gold links per sentence pair.
func ReadGold(r io.Reader) (sure, possible [][]Link, err error) {
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		s, p, err := ParseLinks(scanner.Text())
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		sure = append(sure, s)
		possible = append(possible, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	return sure, possible, nil
}

// Score holds alignment quality measures against a gold standard.
type Score struct {
	Precision float64
	Recall    float64
	AER       float64
}

// Evaluate compares predicted alignments with gold sure and possible
// links, sentence by sentence. Possible links should include the sure ones.
//
//	precision = |A∩P| / |A|
//	recall    = |A∩S| / |S|
//	AER       = 1 - (|A∩S| + |A∩P|) / (|A| + |S|)
func Evaluate(pred, sure, possible [][]Link) (Score, error) {
	if len(pred) != len(sure) || len(pred) != len(possible) {
		return Score{}, fmt.Errorf("sentence counts differ: predicted %d, sure %d, possible %d",
			len(pred), len(sure), len(possible))
	}
	var nA, nS, aS, aP int
	for k := range pred {
		s := make(map[Link]bool, len(sure[k]))
		for _, l := range sure[k] {
			s[l] = true
		}
		p := make(map[Link]bool, len(possible[k]))
		for _, l := range possible[k] {
			p[l] = true
		}
		for _, l := range pred[k] {
			if s[l] {
				aS++
			}
			if p[l] {
				aP++
			}
		}
		nA += len(pred[k])
		nS += len(s)
	}

	var sc Score
	if nA > 0 {
		sc.Precision = float64(aP) / float64(nA)
	}
	if nS > 0 {
		sc.Recall = float64(aS) / float64(nS)
	}
	if nA+nS > 0 {
		sc.AER = 1 - float64(aS+aP)/float64(nA+nS)
	}
	return sc, nil
}
