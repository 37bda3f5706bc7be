package schema

import (
	"strings"
)

// normalizeIdentifier lowercases and strips quoting so that aliases and
// quoted identifiers compare equal to their schema counterparts.
func normalizeIdentifier(identifier string) string {
	s := strings.TrimSpace(strings.ToLower(identifier))
	s = strings.Trim(s, `"`)
	s = strings.Trim(s, "`")

	return s
}

// UnknownColumns returns the members of claimed that are neither in known
// nor resolvable to the descriptor. It is the single grounding primitive:
// both SQL validation and synthesis post-validation reduce to this check.
func (d *Descriptor) UnknownColumns(claimed, known []string) []string {
	allowed := make(map[string]bool, len(known))
	for _, name := range known {
		allowed[normalizeIdentifier(name)] = true
	}

	var unknown []string

	for _, name := range claimed {
		norm := normalizeIdentifier(name)
		if norm == "" {
			continue
		}

		if allowed[norm] || d.known[norm] {
			continue
		}

		unknown = append(unknown, name)
	}

	return unknown
}

// ResolvesColumn reports whether name is a descriptor column or a member of
// the result column list (i.e. an explicit SQL alias).
func (d *Descriptor) ResolvesColumn(name string, resultColumns []string) bool {
	return len(d.UnknownColumns([]string{name}, resultColumns)) == 0
}
