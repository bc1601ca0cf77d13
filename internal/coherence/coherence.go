package coherence

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/sovereign-stack/sovereign-stack/internal/atomicfile"
	"github.com/sovereign-stack/sovereign-stack/internal/rootctx"
	"github.com/sovereign-stack/sovereign-stack/internal/sverrors"
)

// Engine is the Coherence Engine: it routes packets to paths via a
// schema, and derives schemas from path corpora. Paths and globs it
// returns are relative to the configured root and begin with "memory/".
type Engine struct {
	root rootctx.RootContext
}

// New constructs a Coherence Engine rooted at rc.
func New(rc rootctx.RootContext) *Engine {
	return &Engine{root: rc}
}

const memoryDir = "memory"

// Transmit routes packet through schema, optionally persisting it as
// JSON at the computed path. It returns the path relative to the
// configured root (e.g. "memory/outcome=success/...").
func (e *Engine) Transmit(packet Packet, schema Schema, dryRun bool) (string, error) {
	segments := make([]string, 0, len(schema.Segments)+1)
	segments = append(segments, memoryDir)

	for _, seg := range schema.Segments {
		rendered, err := renderSegment(seg, packet)
		if err != nil {
			return "", err
		}

		if isUnsafeSegment(rendered) {
			return "", sverrors.New(sverrors.UnsafePath, "path segment sanitized to empty or unsafe value")
		}
		segments = append(segments, rendered)
	}

	relPath := strings.Join(segments, "/")

	if !dryRun {
		data, err := json.MarshalIndent(packet, "", "  ")
		if err != nil {
			return "", sverrors.Wrap(sverrors.Internal, "marshaling packet", err)
		}
		fsPath := e.root.Path(filepath.FromSlash(relPath))
		if err := atomicfile.Write(fsPath, data, 0o644); err != nil {
			return "", sverrors.Wrap(sverrors.Internal, "writing routed packet", err)
		}
	}

	return relPath, nil
}

// renderSegment produces the final path text for one schema segment
// given a packet, validating that every referenced key is present.
// Only the values substituted into a template are sanitized; the
// template's own literal text (e.g. "outcome=" or ".json") passes
// through unchanged, so characters like "=" survive in the rendered
// path while untrusted packet content cannot inject path separators
// or otherwise-unsafe characters.
func renderSegment(seg Segment, packet Packet) (string, error) {
	switch seg.Kind {
	case SegComputedGroup:
		value, ok := packet[seg.GroupKey]
		if !ok {
			return "", sverrors.New(sverrors.InvalidInput, "packet missing key \""+seg.GroupKey+"\" required by schema")
		}
		group, err := computeGroup(seg.GroupFunc, value)
		if err != nil {
			return "", sverrors.Wrap(sverrors.InvalidInput, "evaluating computed group", err)
		}
		return sanitize(group), nil

	default: // SegTemplate
		out := seg.Template
		for _, key := range seg.Keys {
			value, ok := packet[key]
			if !ok {
				return "", sverrors.New(sverrors.InvalidInput, "packet missing key \""+key+"\" required by schema")
			}
			out = strings.ReplaceAll(out, "{"+key+"}", sanitize(stringify(value)))
		}
		return out, nil
	}
}

// Receive generates a glob pattern from a partial set of constraints,
// substituting known values into their schema positions and leaving
// unknown positions as "*".
func (e *Engine) Receive(schema Schema, constraints Packet) string {
	segments := make([]string, 0, len(schema.Segments)+1)
	segments = append(segments, memoryDir)

	for _, seg := range schema.Segments {
		rendered, ok := tryRenderSegment(seg, constraints)
		if !ok {
			segments = append(segments, "*")
			continue
		}
		segments = append(segments, rendered)
	}

	return strings.Join(segments, "/")
}

// tryRenderSegment renders a segment if every key it needs is present
// in constraints, otherwise reports ok=false.
func tryRenderSegment(seg Segment, constraints Packet) (string, bool) {
	switch seg.Kind {
	case SegComputedGroup:
		value, ok := constraints[seg.GroupKey]
		if !ok {
			return "", false
		}
		group, err := computeGroup(seg.GroupFunc, value)
		if err != nil {
			return "", false
		}
		return sanitize(group), true

	default:
		out := seg.Template
		for _, key := range seg.Keys {
			value, ok := constraints[key]
			if !ok {
				return "", false
			}
			out = strings.ReplaceAll(out, "{"+key+"}", sanitize(stringify(value)))
		}
		return out, true
	}
}
