package domain

import (
	"fmt"
	"strings"
)

// CatalogRow maps a human-readable selection to the codes the SDMX service expects.
type CatalogRow struct {
	Country      string
	National     bool
	Category     string
	Indicator    string
	IndicatorID  string
	DataflowName string
	Agency       string
	DataflowID   string
	Geography    string
	GeographyID  string
}

// Level is the data granularity of a selection.
type Level string

// Supported levels.
const (
	LevelNational    Level = "National"
	LevelSubnational Level = "Subnational"
)

// ParseLevel parses a level name case-insensitively. An empty string means National.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "national":
		return LevelNational, nil
	case "subnational":
		return LevelSubnational, nil
	default:
		return "", ErrValidation("unknown data level %q: use National or Subnational", s)
	}
}

// IsNational reports whether the level selects country-level aggregates.
func (l Level) IsNational() bool { return l != LevelSubnational }

// Selection captures the user's picks before validation.
type Selection struct {
	Countries  []string
	Level      Level
	Categories []string
	Indicators []string
	// Dataflows picks among several candidate dataflows. It is ignored when a
	// single candidate is auto-selected.
	Dataflows []string
	// AllDataflows picks every candidate without naming them.
	AllDataflows bool
}

// Normalize trims and de-duplicates every set in place, preserving first-seen order.
func (s *Selection) Normalize() {
	s.Countries = UniqueStrings(s.Countries)
	s.Categories = UniqueStrings(s.Categories)
	s.Indicators = UniqueStrings(s.Indicators)
	s.Dataflows = UniqueStrings(s.Dataflows)
	if s.Level == "" {
		s.Level = LevelNational
	}
}

// String renders the selection for log lines.
func (s Selection) String() string {
	return fmt.Sprintf("countries=%v level=%s categories=%v indicators=%v",
		s.Countries, s.Level, s.Categories, s.Indicators)
}

// SelectionResult is the validated, filtered catalog subset for a selection.
type SelectionResult struct {
	Rows           []CatalogRow
	CandidateFlows []string
	AutoSelected   bool
}

// UniqueStrings returns the non-empty trimmed values of in, de-duplicated in first-seen order.
func UniqueStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
