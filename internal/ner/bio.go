package ner

import (
	"math"
	"strings"
)

// TokenTag is the classifier output for one sub-token
type TokenTag struct {
	Label        string // B-PER, I-LOC, O, ...
	Score        float64
	Start        int
	End          int
	Continuation bool
}

// splitTag returns the position prefix and entity type of a tag. Plain
// labels count as inside tags; S- and E- are folded into B- and I-.
func splitTag(tag string) (string, string) {
	if tag == "" || tag == "O" {
		return "", ""
	}
	prefix, typ, ok := strings.Cut(tag, "-")
	if !ok {
		return "I", tag
	}
	switch prefix {
	case "S":
		prefix = "B"
	case "E":
		prefix = "I"
	}
	return prefix, typ
}

// GroupEntities merges tagged sub-tokens into entity spans of text. The first
// sub-token of a word decides its tag; continuation pieces only extend the
// open entity.
func GroupEntities(text string, tags []TokenTag) []Entity {
	var (
		out    []Entity
		cur    *Entity
		scores float64
		count  int
	)
	flush := func() {
		if cur == nil {
			return
		}
		cur.Text = text[cur.Start:cur.End]
		cur.Score = scores / float64(count)
		out = append(out, *cur)
		cur = nil
	}

	for _, tag := range tags {
		if tag.Continuation {
			if cur != nil && tag.End > cur.End {
				cur.End = tag.End
			}
			continue
		}

		prefix, typ := splitTag(tag.Label)
		switch {
		case typ == "":
			flush()
		case prefix == "I" && cur != nil && cur.Label == typ:
			cur.End = tag.End
			scores += tag.Score
			count++
		default:
			flush()
			cur = &Entity{Label: typ, Start: tag.Start, End: tag.End}
			scores, count = tag.Score, 1
		}
	}
	flush()

	return out
}

// argmaxSoftmax returns the index of the largest logit and its probability.
func argmaxSoftmax(logits []float32) (int, float64) {
	if len(logits) == 0 {
		return -1, 0
	}
	best := 0
	for i, v := range logits {
		if v > logits[best] {
			best = i
		}
	}
	var sum float64
	peak := float64(logits[best])
	for _, v := range logits {
		sum += math.Exp(float64(v) - peak)
	}
	return best, 1 / sum
}

type chunk struct {
	offset int
	text   string
}

// chunkLines groups whole lines so each chunk stays within limit tokens. A
// line longer than limit is a chunk of its own and gets truncated by the encoder.
func chunkLines(text string, count func(string) int, limit int) []chunk {
	var (
		chunks []chunk
		start  int
		end    int
		tokens int
	)
	emit := func() {
		if strings.TrimSpace(text[start:end]) != "" {
			chunks = append(chunks, chunk{offset: start, text: text[start:end]})
		}
	}

	for pos := 0; pos < len(text); {
		lineEnd := strings.IndexByte(text[pos:], '\n')
		if lineEnd < 0 {
			lineEnd = len(text)
		} else {
			lineEnd += pos
		}

		n := count(text[pos:lineEnd])
		if tokens > 0 && tokens+n > limit {
			emit()
			start, tokens = pos, 0
		}
		tokens += n
		end = lineEnd
		pos = lineEnd + 1
	}
	if end > start {
		emit()
	}
	return chunks
}
