// Package redact replaces personal data in page text with placeholder
// tokens, either by pattern or by recognized entity span.
package redact

import (
	"fmt"

	"go.uber.org/zap"
)

// PatternRedactor applies the enabled rules in order, each on the output of
// the previous one.
type PatternRedactor struct {
	rules   []Rule
	enabled map[string]bool
	logger  *zap.Logger
}

// NewPatternRedactor creates a redactor with the named detectors enabled.
// "all" enables every rule.
func NewPatternRedactor(detectors []string, logger *zap.Logger) (*PatternRedactor, error) {
	r := &PatternRedactor{
		rules:   DefaultRules(),
		enabled: make(map[string]bool),
		logger:  logger,
	}

	if err := r.configureDetectors(detectors); err != nil {
		return nil, fmt.Errorf("failed to configure detectors: %w", err)
	}

	logger.Info("Pattern redactor initialized",
		zap.Int("total_rules", len(r.rules)),
		zap.Strings("enabled_rules", r.EnabledRules()))

	return r, nil
}

func (r *PatternRedactor) configureDetectors(detectors []string) error {
	for _, rule := range r.rules {
		r.enabled[rule.Name] = false
	}

	for _, detector := range detectors {
		if detector == "all" {
			for _, rule := range r.rules {
				r.enabled[rule.Name] = true
			}
			continue
		}

		if _, ok := r.enabled[detector]; !ok {
			return fmt.Errorf("unknown detector: %s", detector)
		}
		r.enabled[detector] = true
	}

	return nil
}

// Redact masks every enabled pattern in text.
func (r *PatternRedactor) Redact(text string) ProcessResult {
	masked := text
	findings := make([]Finding, 0)

	for _, rule := range r.rules {
		if !r.enabled[rule.Name] {
			continue
		}

		matches := rule.Pattern.FindAllStringIndex(masked, -1)
		if len(matches) == 0 {
			continue
		}

		positions := make([]int, len(matches))
		for i, m := range matches {
			positions[i] = m[0]
		}
		findings = append(findings, Finding{
			EntityType: rule.Name,
			Masked:     rule.Replacement,
			Count:      len(matches),
			Positions:  positions,
		})

		masked = rule.Pattern.ReplaceAllLiteralString(masked, rule.Replacement)

		r.logger.Debug("Pattern matches masked",
			zap.String("entity_type", rule.Name),
			zap.Int("count", len(matches)))
	}

	return ProcessResult{
		MaskedText: masked,
		Findings:   findings,
		Original:   text,
	}
}

// EnabledRules returns the enabled rule names in application order.
func (r *PatternRedactor) EnabledRules() []string {
	var names []string
	for _, rule := range r.rules {
		if r.enabled[rule.Name] {
			names = append(names, rule.Name)
		}
	}
	return names
}
