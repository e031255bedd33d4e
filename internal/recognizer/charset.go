package recognizer

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// defaultPlateTokens is the built-in license plate character set:
// digits then uppercase Latin letters.
const defaultPlateTokens = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Charset is an ordered recognition character set. Class index i of the
// recognition model maps to Tokens[i]; the blank symbol occupies the
// last class index, Size() (so the model has Size()+1 classes).
type Charset struct {
	tokens  []string
	toIndex map[string]int
}

// NewCharset builds a charset from ordered tokens, deduplicating on the
// first occurrence.
func NewCharset(tokens []string) (*Charset, error) {
	if len(tokens) == 0 {
		return nil, errors.New("charset cannot be empty")
	}
	kept := make([]string, 0, len(tokens))
	toIndex := make(map[string]int, len(tokens))
	for _, t := range tokens {
		if _, ok := toIndex[t]; ok {
			continue
		}
		toIndex[t] = len(kept)
		kept = append(kept, t)
	}
	return &Charset{tokens: kept, toIndex: toIndex}, nil
}

// DefaultCharset returns the built-in plate charset (0-9, A-Z).
func DefaultCharset() *Charset {
	tokens := make([]string, 0, len(defaultPlateTokens))
	for _, r := range defaultPlateTokens {
		tokens = append(tokens, string(r))
	}
	cs, err := NewCharset(tokens)
	if err != nil {
		panic(err) // unreachable: the built-in token list is non-empty
	}
	return cs
}

// LoadCharset loads a dictionary file where each non-empty line is one
// token. Leading/trailing whitespace is trimmed; a UTF-8 BOM on the
// first line is removed.
func LoadCharset(path string) (*Charset, error) {
	if path == "" {
		return nil, errors.New("dictionary path cannot be empty")
	}
	f, err := os.Open(path) //nolint:gosec // G304: opening a user-provided dictionary is expected
	if err != nil {
		return nil, fmt.Errorf("failed to open dictionary: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error closing dictionary file: %v\n", err)
		}
	}()

	scanner := bufio.NewScanner(f)
	tokens := make([]string, 0, 64)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if line == "" {
			continue
		}
		tokens = append(tokens, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed reading dictionary: %w", err)
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("dictionary is empty: %s", path)
	}
	return NewCharset(tokens)
}

// Size returns the number of tokens (excluding the blank symbol).
func (c *Charset) Size() int { return len(c.tokens) }

// BlankIndex returns the class index of the CTC blank symbol, which by
// convention is the last class.
func (c *Charset) BlankIndex() int { return len(c.tokens) }

// Token returns the token at class index idx, or "" when idx is the
// blank index or out of range.
func (c *Charset) Token(idx int) string {
	if idx < 0 || idx >= len(c.tokens) {
		return ""
	}
	return c.tokens[idx]
}

// Contains reports whether the charset includes the given token.
func (c *Charset) Contains(token string) bool {
	_, ok := c.toIndex[token]
	return ok
}
