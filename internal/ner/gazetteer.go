package ner

import (
	"bufio"
	"context"
	_ "embed"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
)

//go:embed data/given_names.txt
var givenNamesData string

//go:embed data/locations.txt
var locationsData string

const (
	gazetteerPersonScore   = 0.9
	gazetteerLocationScore = 0.85
	maxSurnameWords        = 3
)

var (
	wordPattern = regexp.MustCompile(`\p{L}[\p{L}'’-]*`)

	streetPattern = regexp.MustCompile(`\b\d{1,5}\s+(?:[A-Z][a-z]+\.?\s+){1,3}(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Lane|Ln|Drive|Dr|Court|Ct|Way|Place|Pl|Terrace|Parkway|Pkwy)\b\.?`)

	// ", TX" or ", TX 78701" after a place name
	regionSuffix = regexp.MustCompile(`^,\s?[A-Z]{2}\b(?:\s+\d{5}(?:-\d{4})?)?`)
)

// Capitalized words that never continue a personal name.
var nameStopwords = map[string]bool{
	"resume": true, "curriculum": true, "vitae": true, "cv": true, "summary": true,
	"profile": true, "objective": true, "experience": true, "education": true,
	"skills": true, "contact": true, "email": true, "phone": true, "mobile": true,
	"address": true, "references": true, "projects": true, "certifications": true,
	"languages": true, "software": true, "engineer": true, "developer": true,
	"designer": true, "manager": true, "senior": true, "junior": true, "lead": true,
	"intern": true, "writer": true, "analyst": true, "consultant": true,
	"university": true, "college": true, "school": true, "institute": true,
	"inc": true, "ltd": true, "llc": true, "corp": true, "company": true,
	"street": true, "avenue": true, "road": true, "the": true, "and": true,
	"of": true, "at": true, "in": true, "for": true, "to": true, "from": true,
	"with": true, "january": true, "february": true, "march": true, "august": true,
	"september": true, "october": true, "november": true, "december": true,
	"present": true, "linkedin": true, "github": true,
}

// Gazetteer recognizes people and places from embedded word lists and
// capitalization. A word that is both a given name and a place is a person
// only when a surname follows it.
type Gazetteer struct {
	names       map[string]bool
	locations   map[string]bool
	maxLocWords int
	logger      *zap.Logger
}

// NewGazetteer builds the recognizer, adding extra names and places to the
// embedded lists.
func NewGazetteer(extraNames, extraLocations []string, logger *zap.Logger) *Gazetteer {
	g := &Gazetteer{
		names:       make(map[string]bool),
		locations:   make(map[string]bool),
		maxLocWords: 1,
		logger:      logger,
	}

	loadList(givenNamesData, g.names)
	loadList(locationsData, g.locations)
	for _, name := range extraNames {
		if key := normalizeKey(name); key != "" {
			g.names[key] = true
		}
	}
	for _, loc := range extraLocations {
		if key := normalizeKey(loc); key != "" {
			g.locations[key] = true
		}
	}
	for loc := range g.locations {
		g.maxLocWords = max(g.maxLocWords, len(strings.Fields(loc)))
	}

	logger.Debug("Gazetteer loaded",
		zap.Int("given_names", len(g.names)),
		zap.Int("locations", len(g.locations)))

	return g
}

func loadList(data string, into map[string]bool) {
	scanner := bufio.NewScanner(strings.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		into[normalizeKey(line)] = true
	}
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Name returns the backend name
func (g *Gazetteer) Name() string { return "gazetteer" }

// Close is a no-op
func (g *Gazetteer) Close() error { return nil }

type span struct{ start, end int }

// Recognize returns PER and LOC spans found in text.
func (g *Gazetteer) Recognize(ctx context.Context, text string) ([]Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var words []span
	for _, m := range wordPattern.FindAllStringIndex(text, -1) {
		words = append(words, span{m[0], m[1]})
	}

	var entities []Entity
	for i := 0; i < len(words); {
		w := words[i]
		if !capitalized(text[w.start:w.end]) || !isolated(text, w) {
			i++
			continue
		}

		locWords := g.matchLocation(text, words, i)
		if g.names[lookupKey(text[w.start:w.end])] {
			surname := g.surnameRun(text, words, i)
			if surname > 0 || locWords == 0 {
				end := words[i+surname].end
				entities = append(entities, Entity{
					Label: LabelPerson,
					Text:  text[w.start:end],
					Start: w.start,
					End:   end,
					Score: gazetteerPersonScore,
				})
				i += surname + 1
				continue
			}
		}

		if locWords > 0 {
			end := words[i+locWords-1].end
			if m := regionSuffix.FindStringIndex(text[end:]); m != nil {
				end += m[1]
			}
			entities = append(entities, Entity{
				Label: LabelLocation,
				Text:  text[w.start:end],
				Start: w.start,
				End:   end,
				Score: gazetteerLocationScore,
			})
			for i < len(words) && words[i].start < end {
				i++
			}
			continue
		}

		i++
	}

	for _, m := range streetPattern.FindAllStringIndex(text, -1) {
		entities = append(entities, Entity{
			Label: LabelLocation,
			Text:  text[m[0]:m[1]],
			Start: m[0],
			End:   m[1],
			Score: gazetteerLocationScore,
		})
	}

	SortEntities(entities)
	return entities, nil
}

// matchLocation returns how many words starting at i form the longest known
// place name, or zero.
func (g *Gazetteer) matchLocation(text string, words []span, i int) int {
	for n := min(g.maxLocWords, len(words)-i); n >= 1; n-- {
		ok := true
		for k := i; k < i+n; k++ {
			if k > i && text[words[k-1].end:words[k].start] != " " {
				ok = false
				break
			}
			if !capitalized(text[words[k].start:words[k].end]) && !connector(text[words[k].start:words[k].end]) {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		if g.locations[lookupKey(text[words[i].start:words[i+n-1].end])] {
			return n
		}
	}
	return 0
}

// surnameRun counts capitalized words that directly follow the given name at i.
func (g *Gazetteer) surnameRun(text string, words []span, i int) int {
	n := 0
	for j := i + 1; j < len(words) && n < maxSurnameWords; j++ {
		prev, cur := words[j-1], words[j]
		gap := text[prev.end:cur.start]
		initial := utf8.RuneCountInString(text[prev.start:prev.end]) == 1
		if gap != " " && !(initial && gap == ". ") {
			break
		}

		word := text[cur.start:cur.end]
		key := lookupKey(word)
		if !capitalized(word) || nameStopwords[key] || !isolated(text, cur) {
			break
		}
		if g.locations[key] && !g.names[key] {
			break
		}
		n++
	}
	return n
}

func lookupKey(word string) string {
	key := strings.ToLower(word)
	key = strings.TrimSuffix(key, "'s")
	return strings.TrimSuffix(key, "’s")
}

func capitalized(word string) bool {
	r, _ := utf8.DecodeRuneInString(word)
	return unicode.IsUpper(r)
}

func connector(word string) bool {
	switch word {
	case "de", "of", "da", "del":
		return true
	}
	return false
}

// isolated rejects words glued to e-mail addresses, handles and paths.
func isolated(text string, w span) bool {
	if w.start > 0 {
		prev, _ := utf8.DecodeLastRuneInString(text[:w.start])
		if strings.ContainsRune("@._/\\#", prev) || unicode.IsDigit(prev) {
			return false
		}
	}
	if w.end < len(text) {
		next, size := utf8.DecodeRuneInString(text[w.end:])
		switch {
		case next == '@' || next == '_' || unicode.IsDigit(next):
			return false
		case next == '.' && w.end+size < len(text):
			after, _ := utf8.DecodeRuneInString(text[w.end+size:])
			if unicode.IsLetter(after) || unicode.IsDigit(after) {
				return false
			}
		}
	}
	return true
}
