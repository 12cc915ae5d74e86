package vocab

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownToken is returned by Encode when a token is not in the vocabulary.
var ErrUnknownToken = errors.New("unknown token")

// Vocabulary maps tokens to dense zero-based ids and back.
// It is immutable once built.
type Vocabulary struct {
	tokens    []string
	ids       map[string]int
	lowercase bool
}

// Build creates a vocabulary from tokenized sentences.
// Ids are assigned in first-occurrence order. If lowercase is set, tokens
// are lowercased before indexing and on every later lookup.
func Build(sentences [][]string, lowercase bool) *Vocabulary {
	v := &Vocabulary{
		ids:       make(map[string]int),
		lowercase: lowercase,
	}
	for _, sent := range sentences {
		for _, tok := range sent {
			tok = v.normalize(tok)
			if _, ok := v.ids[tok]; ok {
				continue
			}
			v.ids[tok] = len(v.tokens)
			v.tokens = append(v.tokens, tok)
		}
	}
	return v
}

// New rebuilds a vocabulary from an ordered token list, as stored in a
// checkpoint. The i-th token gets id i.
func New(tokens []string, lowercase bool) (*Vocabulary, error) {
	v := &Vocabulary{
		tokens:    make([]string, len(tokens)),
		ids:       make(map[string]int, len(tokens)),
		lowercase: lowercase,
	}
	copy(v.tokens, tokens)
	for i, tok := range v.tokens {
		if _, ok := v.ids[tok]; ok {
			return nil, fmt.Errorf("duplicate token %q at id %d", tok, i)
		}
		v.ids[tok] = i
	}
	return v, nil
}

func (v *Vocabulary) normalize(tok string) string {
	if v.lowercase {
		return strings.ToLower(tok)
	}
	return tok
}

// Size returns the number of distinct tokens.
func (v *Vocabulary) Size() int { return len(v.tokens) }

// Lowercase reports whether tokens are lowercased before lookup.
func (v *Vocabulary) Lowercase() bool { return v.lowercase }

// ID returns the id of tok.
func (v *Vocabulary) ID(tok string) (int, bool) {
	id, ok := v.ids[v.normalize(tok)]
	return id, ok
}

// Token returns the token with the given id. id must be valid.
func (v *Vocabulary) Token(id int) string { return v.tokens[id] }

// Tokens returns a copy of all tokens in id order.
func (v *Vocabulary) Tokens() []string {
	out := make([]string, len(v.tokens))
	copy(out, v.tokens)
	return out
}

// Encode maps every token of sentence to its id.
func (v *Vocabulary) Encode(sentence []string) ([]int, error) {
	ids := make([]int, len(sentence))
	for i, tok := range sentence {
		id, ok := v.ID(tok)
		if !ok {
			return nil, fmt.Errorf("position %d: %q: %w", i, tok, ErrUnknownToken)
		}
		ids[i] = id
	}
	return ids, nil
}

// Decode maps ids back to tokens.
func (v *Vocabulary) Decode(ids []int) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = v.tokens[id]
	}
	return out
}
