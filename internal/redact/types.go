package redact

import "regexp"

// Rule is one pattern redaction rule
type Rule struct {
	Name        string
	Pattern     *regexp.Regexp
	Replacement string
}

// Finding reports what one rule or label replaced. Positions are byte
// offsets of each replaced span in the text the rule was applied to.
type Finding struct {
	EntityType string `json:"entityType"`
	Masked     string `json:"masked"`
	Count      int    `json:"count"`
	Positions  []int  `json:"positions,omitempty"`
}

// ProcessResult contains the result of redacting one text
type ProcessResult struct {
	MaskedText string    `json:"maskedText"`
	Findings   []Finding `json:"findings"`
	Original   string    `json:"-"` // never serialized
}

// DefaultRules returns the e-mail, phone and age rules in application order.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:        "email",
			Pattern:     regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,7}\b`),
			Replacement: "[EMAIL]",
		},
		{
			Name:        "phone",
			Pattern:     regexp.MustCompile(`\b\d{10}\b|\(\d{3}\)\s*\d{3}-\d{4}|\d{3}-\d{3}-\d{4}`),
			Replacement: "[PHONE]",
		},
		{
			Name:        "age",
			Pattern:     regexp.MustCompile(`\b\d{1,3}\s*(?:years|year|yrs|yr)\b`),
			Replacement: "[AGE]",
		},
	}
}
