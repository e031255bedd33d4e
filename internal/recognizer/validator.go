package recognizer

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Default plate length bounds (inclusive).
const (
	DefaultMinLength = 4
	DefaultMaxLength = 8
)

// Validator filters decoded text by charset conformance and length.
// Rejection is a domain-policy outcome, not a decoding failure.
type Validator struct {
	charset   *Charset
	minLength int
	maxLength int
	maxToken  int // longest charset token, in bytes
}

// NewValidator creates a validator for the given charset and inclusive
// length range.
func NewValidator(charset *Charset, minLength, maxLength int) (*Validator, error) {
	if charset == nil {
		return nil, fmt.Errorf("validator: charset is required")
	}
	if minLength < 1 || maxLength < minLength {
		return nil, fmt.Errorf("validator: invalid length range [%d,%d]", minLength, maxLength)
	}
	maxToken := 0
	for _, tok := range charset.tokens {
		if len(tok) > maxToken {
			maxToken = len(tok)
		}
	}
	return &Validator{
		charset:   charset,
		minLength: minLength,
		maxLength: maxLength,
		maxToken:  maxToken,
	}, nil
}

// Validate cleans a decoded sequence and accepts or rejects it.
//
// Tokens are matched against the charset as-is, longest first, so
// multi-rune charset tokens survive intact and a string made entirely
// of charset tokens passes through unchanged. A rune that fails the raw
// test is retried NFKC-normalized, mapping compatibility forms such as
// fullwidth digits onto their charset spelling. Anything still outside
// the charset is stripped, keeping the per-character confidences
// aligned with the kept characters. The cleaned string is accepted only
// if its character count lies within the configured range; otherwise
// the result is empty (ok=false).
func (v *Validator) Validate(seq DecodedSequence) (DecodedSequence, bool) {
	var cleaned []byte
	var confs []float64

	text := seq.Text
	idx := 0 // emitted-character index, aligned with seq.CharConfidences
	kept := 0
	for len(text) > 0 {
		token, size := v.nextToken(text)
		if size == 0 {
			_, size = utf8.DecodeRuneInString(text)
			text = text[size:]
			idx++
			continue
		}
		cleaned = append(cleaned, token...)
		if idx < len(seq.CharConfidences) {
			confs = append(confs, seq.CharConfidences[idx])
		}
		idx++
		kept++
		text = text[size:]
	}

	if kept < v.minLength || kept > v.maxLength {
		return DecodedSequence{}, false
	}

	return DecodedSequence{
		Text:            string(cleaned),
		Confidence:      meanConfidence(confs),
		CharConfidences: confs,
	}, true
}

// nextToken matches the longest charset token at the head of text and
// returns the token with the number of input bytes it consumed. When no
// prefix is a charset token, the leading rune is retried in NFKC form.
// A zero size means nothing matched.
func (v *Validator) nextToken(text string) (string, int) {
	best, bestSize := "", 0
	for i := 1; i <= v.maxToken && i <= len(text); i++ {
		if v.charset.Contains(text[:i]) {
			best, bestSize = text[:i], i
		}
	}
	if bestSize > 0 {
		return best, bestSize
	}

	r, size := utf8.DecodeRuneInString(text)
	if tok := norm.NFKC.String(string(r)); v.charset.Contains(tok) {
		return tok, size
	}
	return "", 0
}
