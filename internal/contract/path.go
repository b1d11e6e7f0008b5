package contract

import (
	"strings"
)

// SegmentKind distinguishes the three things a path segment can be.
type SegmentKind int

const (
	// SegmentLiteral is a verbatim path segment such as "orgs".
	SegmentLiteral SegmentKind = iota
	// SegmentParam is a named placeholder such as "{orgId}".
	SegmentParam
	// SegmentWildcard is the trailing "**" that models substring-style
	// dispatch checks. It matches any remaining run of segments.
	SegmentWildcard
)

// Segment is one element of a path template.
type Segment struct {
	Kind SegmentKind `json:"kind"`
	// Literal holds the verbatim text for SegmentLiteral segments.
	Literal string `json:"literal,omitempty"`
	// Param holds the original placeholder name for SegmentParam segments.
	// Canonicalization replaces the name with "*" but never discards it.
	Param string `json:"param,omitempty"`
}

// Wildcard is the canonical token for an anonymous single-segment
// placeholder; WildcardSuffix ends imprecise (substring-style) templates.
const (
	Wildcard       = "*"
	WildcardSuffix = "**"
)

// PathTemplate is an ordered sequence of literal segments and placeholders.
type PathTemplate struct {
	Segments []Segment `json:"segments"`
}

// ParsePath builds a PathTemplate from a template string such as
// "/orgs/{orgId}/kb/bases" or "/kb/bases/**". "*" parses to an unnamed
// placeholder and "**" to the trailing wildcard, so parsing a canonical
// string is lossless and canonicalization is idempotent.
func ParsePath(raw string) PathTemplate {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return PathTemplate{}
	}
	parts := strings.Split(trimmed, "/")
	segs := make([]Segment, 0, len(parts))
	for _, part := range parts {
		switch {
		case part == WildcardSuffix:
			segs = append(segs, Segment{Kind: SegmentWildcard})
		case part == Wildcard:
			segs = append(segs, Segment{Kind: SegmentParam})
		case strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}"):
			segs = append(segs, Segment{Kind: SegmentParam, Param: strings.Trim(part, "{}")})
		default:
			segs = append(segs, Segment{Kind: SegmentLiteral, Literal: part})
		}
	}
	return PathTemplate{Segments: segs}
}

// String renders the template with its original placeholder names.
func (p PathTemplate) String() string {
	if len(p.Segments) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, s := range p.Segments {
		b.WriteByte('/')
		switch s.Kind {
		case SegmentParam:
			if s.Param == "" {
				b.WriteString(Wildcard)
			} else {
				b.WriteString("{" + s.Param + "}")
			}
		case SegmentWildcard:
			b.WriteString(WildcardSuffix)
		default:
			b.WriteString(s.Literal)
		}
	}
	return b.String()
}

// Canonical renders the template with every placeholder collapsed to the
// single wildcard token, the form used for cross-layer comparison.
func (p PathTemplate) Canonical() string {
	if len(p.Segments) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, s := range p.Segments {
		b.WriteByte('/')
		switch s.Kind {
		case SegmentParam:
			b.WriteString(Wildcard)
		case SegmentWildcard:
			b.WriteString(WildcardSuffix)
		default:
			b.WriteString(s.Literal)
		}
	}
	return b.String()
}

// PathParams returns the placeholder names in order. Unnamed placeholders
// contribute an empty string so positions stay aligned.
func (p PathTemplate) PathParams() []string {
	var names []string
	for _, s := range p.Segments {
		if s.Kind == SegmentParam {
			names = append(names, s.Param)
		}
	}
	return names
}

// WildcardCount counts placeholder and wildcard segments; the matcher's
// tie-break prefers candidates with fewer of them.
func (p PathTemplate) WildcardCount() int {
	n := 0
	for _, s := range p.Segments {
		if s.Kind != SegmentLiteral {
			n++
		}
	}
	return n
}

// HasWildcardSuffix reports whether the template ends with "**".
func (p PathTemplate) HasWildcardSuffix() bool {
	n := len(p.Segments)
	return n > 0 && p.Segments[n-1].Kind == SegmentWildcard
}

// Compatible reports whether two templates are path-compatible: their
// canonical forms are equal with matching segment counts, or one is a
// wildcard-suffix generalization of the other. A template ending in "**"
// generalizes a path when its literal/placeholder run occurs contiguously
// anywhere in that path; this mirrors the substring dispatch checks the
// handler extractor models rather than upgrading them to exact matches.
func Compatible(a, b PathTemplate) bool {
	if !a.HasWildcardSuffix() && !b.HasWildcardSuffix() {
		return len(a.Segments) == len(b.Segments) && a.Canonical() == b.Canonical()
	}
	if a.HasWildcardSuffix() && !b.HasWildcardSuffix() {
		return generalizes(a, b)
	}
	if b.HasWildcardSuffix() && !a.HasWildcardSuffix() {
		return generalizes(b, a)
	}
	// Both imprecise: compatible when either fixed run contains the other.
	return generalizes(a, stripSuffix(b)) || generalizes(b, stripSuffix(a))
}

func stripSuffix(p PathTemplate) PathTemplate {
	if !p.HasWildcardSuffix() {
		return p
	}
	return PathTemplate{Segments: p.Segments[:len(p.Segments)-1]}
}

// generalizes reports whether wild (ending in "**") matches exact: the
// run of segments before the wildcard must appear contiguously in exact,
// with placeholders matching any single segment.
func generalizes(wild, exact PathTemplate) bool {
	run := stripSuffix(wild).Segments
	if len(run) == 0 {
		return true
	}
	if len(run) > len(exact.Segments) {
		return false
	}
	for start := 0; start+len(run) <= len(exact.Segments); start++ {
		ok := true
		for i, ws := range run {
			es := exact.Segments[start+i]
			if ws.Kind == SegmentLiteral && es.Kind == SegmentLiteral && ws.Literal != es.Literal {
				ok = false
				break
			}
			if ws.Kind == SegmentLiteral && es.Kind != SegmentLiteral {
				// A literal in the dispatch check cannot match a
				// placeholder position without guessing intent.
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}
