// Package tokenizer implements BERT WordPiece tokenization with byte offsets
// back into the original text.
package tokenizer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	unkToken = "[UNK]"
	clsToken = "[CLS]"
	sepToken = "[SEP]"
	padToken = "[PAD]"

	maxWordChars = 100
)

// Token is one model token. Start and End are byte offsets into the encoded
// text; special tokens have Special set and no span.
type Token struct {
	ID      int32
	Text    string
	Start   int
	End     int
	Special bool
	// Continuation marks a ## sub-token that continues the previous word.
	Continuation bool
}

// Encoding is the model input for one text
type Encoding struct {
	InputIDs      []int32
	AttentionMask []int32
	TokenTypeIDs  []int32
	Tokens        []Token
	Truncated     bool
}

// WordPiece is a BERT-style tokenizer
type WordPiece struct {
	vocab     map[string]int32
	lowerCase bool
	maxLength int
	unk       int32
	cls       int32
	sep       int32
	pad       int32
}

// Load reads a vocab.txt file, one token per line.
func Load(path string, lowerCase bool, maxLength int) (*WordPiece, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening vocabulary: %w", err)
	}
	defer f.Close()
	return New(f, lowerCase, maxLength)
}

// New builds a tokenizer from a vocabulary listing.
func New(r io.Reader, lowerCase bool, maxLength int) (*WordPiece, error) {
	if maxLength < 3 {
		return nil, fmt.Errorf("max length %d too small", maxLength)
	}

	vocab := make(map[string]int32)
	scanner := bufio.NewScanner(r)
	var id int32
	for scanner.Scan() {
		vocab[strings.TrimRight(scanner.Text(), "\r")] = id
		id++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading vocabulary: %w", err)
	}

	w := &WordPiece{vocab: vocab, lowerCase: lowerCase, maxLength: maxLength}
	for _, special := range []struct {
		name string
		dst  *int32
	}{{unkToken, &w.unk}, {clsToken, &w.cls}, {sepToken, &w.sep}, {padToken, &w.pad}} {
		v, ok := vocab[special.name]
		if !ok {
			return nil, fmt.Errorf("vocabulary is missing %s", special.name)
		}
		*special.dst = v
	}
	return w, nil
}

// VocabSize returns the number of vocabulary entries.
func (w *WordPiece) VocabSize() int {
	return len(w.vocab)
}

type word struct {
	text       string
	start, end int
}

func isPunct(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) || (r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r)
}

// splitWords splits on whitespace and isolates punctuation and CJK characters.
func splitWords(text string) []word {
	var words []word
	start := -1
	for i, r := range text {
		switch {
		case unicode.IsSpace(r) || unicode.IsControl(r):
			if start >= 0 {
				words = append(words, word{text[start:i], start, i})
				start = -1
			}
		case isPunct(r) || isCJK(r):
			if start >= 0 {
				words = append(words, word{text[start:i], start, i})
				start = -1
			}
			end := i + utf8.RuneLen(r)
			words = append(words, word{text[i:end], i, end})
		default:
			if start < 0 {
				start = i
			}
		}
	}
	if start >= 0 {
		words = append(words, word{text[start:], start, len(text)})
	}
	return words
}

func (w *WordPiece) normalize(s string) string {
	if !w.lowerCase {
		return s
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

// pieces runs greedy longest-match-first over one word.
func (w *WordPiece) pieces(wd word) []Token {
	normalized := w.normalize(wd.text)
	chars := []rune(normalized)
	if len(chars) > maxWordChars {
		return []Token{{ID: w.unk, Text: unkToken, Start: wd.start, End: wd.end}}
	}

	// Offsets follow runes only when normalization kept the rune count.
	origOffsets := make([]int, 0, len(chars)+1)
	for i := range wd.text {
		origOffsets = append(origOffsets, wd.start+i)
	}
	origOffsets = append(origOffsets, wd.end)
	aligned := len(origOffsets) == len(chars)+1

	var out []Token
	for start := 0; start < len(chars); {
		end := len(chars)
		var match string
		var id int32
		found := false
		for end > start {
			sub := string(chars[start:end])
			if start > 0 {
				sub = "##" + sub
			}
			if v, ok := w.vocab[sub]; ok {
				match, id, found = sub, v, true
				break
			}
			end--
		}
		if !found {
			return []Token{{ID: w.unk, Text: unkToken, Start: wd.start, End: wd.end}}
		}

		tok := Token{ID: id, Text: match, Start: wd.start, End: wd.end, Continuation: start > 0}
		if aligned {
			tok.Start, tok.End = origOffsets[start], origOffsets[end]
		}
		out = append(out, tok)
		start = end
	}
	return out
}

// Tokenize returns the word pieces of text without special tokens or truncation.
func (w *WordPiece) Tokenize(text string) []Token {
	var tokens []Token
	for _, wd := range splitWords(text) {
		tokens = append(tokens, w.pieces(wd)...)
	}
	return tokens
}

// Encode tokenizes text into [CLS] pieces [SEP], truncated to the max length.
func (w *WordPiece) Encode(text string) *Encoding {
	pieces := w.Tokenize(text)
	enc := &Encoding{}
	if limit := w.maxLength - 2; len(pieces) > limit {
		pieces = pieces[:limit]
		enc.Truncated = true
	}

	enc.Tokens = make([]Token, 0, len(pieces)+2)
	enc.Tokens = append(enc.Tokens, Token{ID: w.cls, Text: clsToken, Special: true})
	enc.Tokens = append(enc.Tokens, pieces...)
	enc.Tokens = append(enc.Tokens, Token{ID: w.sep, Text: sepToken, Special: true})

	n := len(enc.Tokens)
	enc.InputIDs = make([]int32, n)
	enc.AttentionMask = make([]int32, n)
	enc.TokenTypeIDs = make([]int32, n)
	for i, tok := range enc.Tokens {
		enc.InputIDs[i] = tok.ID
		enc.AttentionMask[i] = 1
	}
	return enc
}

// EncodeBatch encodes texts and pads every encoding to the longest one.
func (w *WordPiece) EncodeBatch(texts []string) []*Encoding {
	encs := make([]*Encoding, len(texts))
	longest := 0
	for i, text := range texts {
		encs[i] = w.Encode(text)
		longest = max(longest, len(encs[i].InputIDs))
	}
	for _, enc := range encs {
		for len(enc.InputIDs) < longest {
			enc.InputIDs = append(enc.InputIDs, w.pad)
			enc.AttentionMask = append(enc.AttentionMask, 0)
			enc.TokenTypeIDs = append(enc.TokenTypeIDs, 0)
			enc.Tokens = append(enc.Tokens, Token{ID: w.pad, Text: padToken, Special: true})
		}
	}
	return encs
}
