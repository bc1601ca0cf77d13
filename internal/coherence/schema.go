// Package coherence treats the filesystem as a schema-addressed routing
// target: transmit writes a packet to the path its schema computes,
// receive turns a partial intent into a glob, and derive infers a
// schema from an existing corpus of paths.
package coherence

import (
	"fmt"
	"regexp"
	"strings"
)

// SegmentKind distinguishes the two segment kinds: SegTemplate covers
// both literal text and {key} substitution; SegComputedGroup is a
// computed group.
type SegmentKind int

const (
	// SegTemplate is a segment built from literal text interleaved with
	// {key} placeholders, e.g. "outcome={outcome}" or "{step}.json".
	SegTemplate SegmentKind = iota
	// SegComputedGroup calls a named grouping function over one packet
	// key, e.g. "decile(step)".
	SegComputedGroup
)

// Segment is one path element of a Schema.
type Segment struct {
	Kind SegmentKind

	// Template holds the raw text for SegTemplate segments, e.g.
	// "outcome={outcome}".
	Template string
	// Keys lists the packet keys a SegTemplate segment substitutes.
	Keys []string

	// GroupFunc and GroupKey describe a SegComputedGroup segment, e.g.
	// GroupFunc="decile", GroupKey="step".
	GroupFunc string
	GroupKey  string
}

// Schema is an ordered sequence of path segments.
type Schema struct {
	Segments []Segment
}

var (
	placeholderRE  = regexp.MustCompile(`\{(\w+)\}`)
	computedFnRE   = regexp.MustCompile(`^(\w+)\((\w+)\)$`)
	keyValueRE     = regexp.MustCompile(`^([A-Za-z_][\w]*)=(.*)$`)
	decileRangeRE  = regexp.MustCompile(`^(\d+)-(\d+)$`)
)

// ParseSchema parses a '/'-delimited template string into a Schema.
// Each segment is either a bare "fn(key)" computed-group call or a
// template containing zero or more {key} placeholders.
func ParseSchema(template string) (Schema, error) {
	template = strings.Trim(template, "/")
	if template == "" {
		return Schema{}, fmt.Errorf("empty schema template")
	}

	parts := strings.Split(template, "/")
	segments := make([]Segment, 0, len(parts))

	for _, part := range parts {
		if m := computedFnRE.FindStringSubmatch(part); m != nil {
			segments = append(segments, Segment{
				Kind:      SegComputedGroup,
				GroupFunc: m[1],
				GroupKey:  m[2],
			})
			continue
		}

		keys := extractKeys(part)
		segments = append(segments, Segment{
			Kind:     SegTemplate,
			Template: part,
			Keys:     keys,
		})
	}

	return Schema{Segments: segments}, nil
}

func extractKeys(template string) []string {
	matches := placeholderRE.FindAllStringSubmatch(template, -1)
	keys := make([]string, 0, len(matches))
	seen := map[string]bool{}
	for _, m := range matches {
		if !seen[m[1]] {
			seen[m[1]] = true
			keys = append(keys, m[1])
		}
	}
	return keys
}

// String renders the schema back to its template form.
func (s Schema) String() string {
	parts := make([]string, len(s.Segments))
	for i, seg := range s.Segments {
		if seg.Kind == SegComputedGroup {
			parts[i] = fmt.Sprintf("%s(%s)", seg.GroupFunc, seg.GroupKey)
		} else {
			parts[i] = seg.Template
		}
	}
	return strings.Join(parts, "/")
}
