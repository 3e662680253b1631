// Package ner finds person and location spans in page text. Every
// recognizer reports byte offsets into the text it was given.
package ner

import (
	"context"
	"errors"
	"sort"
)

// Entity labels shared by all backends
const (
	LabelPerson       = "PER"
	LabelLocation     = "LOC"
	LabelOrganization = "ORG"
	LabelMisc         = "MISC"
)

// ErrBackendUnavailable is returned when a backend is not compiled into this build
var ErrBackendUnavailable = errors.New("ner backend not available in this build")

// Entity is one recognized span
type Entity struct {
	Label string  `json:"label"`
	Text  string  `json:"text"`
	Start int     `json:"start"`
	End   int     `json:"end"`
	Score float64 `json:"score"`
}

// Recognizer is a named-entity recognizer. Implementations are safe for
// concurrent use.
type Recognizer interface {
	Recognize(ctx context.Context, text string) ([]Entity, error)
	Name() string
	Close() error
}

// SortEntities orders entities by start, longest first on ties.
func SortEntities(entities []Entity) {
	sort.SliceStable(entities, func(i, j int) bool {
		if entities[i].Start != entities[j].Start {
			return entities[i].Start < entities[j].Start
		}
		return entities[i].End > entities[j].End
	})
}
