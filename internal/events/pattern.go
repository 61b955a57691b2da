package events

import "strings"

const (
	// Wildcard matches every event type.
	Wildcard = "*"

	separator    = "."
	prefixSuffix = separator + Wildcard
)

type patternKind uint8

const (
	patternExact patternKind = iota
	patternPrefix
	patternAll
)

// Pattern is a classified subscription pattern.
type Pattern struct {
	raw    string
	kind   patternKind
	prefix string // "domain." for prefix patterns
}

// ParsePattern classifies s once so publication never re-parses it.
func ParsePattern(s string) Pattern {
	switch {
	case s == Wildcard:
		return Pattern{raw: s, kind: patternAll}
	case strings.HasSuffix(s, prefixSuffix) && len(s) > len(prefixSuffix):
		return Pattern{raw: s, kind: patternPrefix, prefix: strings.TrimSuffix(s, Wildcard)}
	default:
		return Pattern{raw: s, kind: patternExact}
	}
}

func (p Pattern) String() string { return p.raw }

// Matches reports whether an event of type t triggers p.
func (p Pattern) Matches(t Type) bool {
	switch p.kind {
	case patternAll:
		return true
	case patternPrefix:
		return strings.HasPrefix(t.raw, p.prefix)
	default:
		return p.raw == t.raw
	}
}

// Type is an event type split into its domain and kind, e.g. "weather" and "current".
type Type struct {
	raw    string
	domain string
	kind   string
}

// ParseType splits t at its first separator.
func ParseType(t string) Type {
	domain, kind, _ := strings.Cut(t, separator)
	return Type{raw: t, domain: domain, kind: kind}
}

func (t Type) String() string { return t.raw }
func (t Type) Domain() string { return t.domain }
func (t Type) Kind() string   { return t.kind }
