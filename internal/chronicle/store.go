package chronicle

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sovereign-stack/sovereign-stack/internal/atomicfile"
	"github.com/sovereign-stack/sovereign-stack/internal/rootctx"
	"github.com/sovereign-stack/sovereign-stack/internal/sverrors"
)

// Store is the file-backed Experiential Chronicle, laid out per
// spec.md §3: one file per record under
// chronicle/insights/<domain>/<layer>/<id>.json,
// chronicle/learnings/<id>.json, chronicle/open_threads/<domain>/<id>.json.
type Store struct {
	root rootctx.RootContext
}

// New constructs a Chronicle Store rooted at rc.
func New(rc rootctx.RootContext) *Store {
	return &Store{root: rc}
}

func (s *Store) insightPath(domain string, layer Layer, id string) string {
	return s.root.Path("chronicle", "insights", domain, string(layer), id+".json")
}

func (s *Store) learningPath(id string) string {
	return s.root.Path("chronicle", "learnings", id+".json")
}

func (s *Store) threadPath(domain, id string) string {
	return s.root.Path("chronicle", "open_threads", domain, id+".json")
}

// RecordInsight validates and persists a new insight. layer=hypothesis
// requires confidence in [0,1]; every other layer forbids it.
func (s *Store) RecordInsight(domain, content string, intensity float64, layer Layer, confidence *float64, sessionID string) (string, error) {
	if domain == "" || content == "" {
		return "", sverrors.New(sverrors.InvalidInput, "domain and content are required")
	}
	if !ValidateLayer(layer) {
		return "", sverrors.New(sverrors.InvalidInput, "invalid layer \""+string(layer)+"\"")
	}
	if intensity < 0 || intensity > 1 {
		return "", sverrors.New(sverrors.InvalidInput, "intensity must be in [0,1]")
	}

	if layer == Hypothesis {
		if confidence == nil {
			return "", sverrors.New(sverrors.InvalidInput, "confidence is required when layer=hypothesis")
		}
		if *confidence < 0 || *confidence > 1 {
			return "", sverrors.New(sverrors.InvalidInput, "confidence must be in [0,1]")
		}
	} else if confidence != nil {
		return "", sverrors.New(sverrors.InvalidInput, "confidence is forbidden unless layer=hypothesis")
	}

	insight := Insight{
		ID:         newID(),
		Timestamp:  nowStamp(),
		Domain:     domain,
		Content:    content,
		Intensity:  intensity,
		Layer:      layer,
		Confidence: confidence,
		SessionID:  sessionID,
	}

	data, err := json.MarshalIndent(insight, "", "  ")
	if err != nil {
		return "", sverrors.Wrap(sverrors.Internal, "marshaling insight", err)
	}

	path := s.insightPath(domain, layer, insight.ID)
	if err := atomicfile.CreateNew(path, data, 0o644); err != nil {
		return "", sverrors.Wrap(sverrors.Internal, "persisting insight", err)
	}

	return insight.ID, nil
}

// RecallInsights returns the most-recent-first insights matching the
// optional domain/layer filters, up to limit.
func (s *Store) RecallInsights(domain *string, layer *Layer, limit int) ([]Insight, error) {
	if limit <= 0 {
		limit = 10
	}

	base := s.root.Path("chronicle", "insights")
	var domains []string
	if domain != nil {
		domains = []string{*domain}
	} else {
		entries, err := os.ReadDir(base)
		if err != nil {
			if os.IsNotExist(err) {
				return []Insight{}, nil
			}
			return nil, sverrors.Wrap(sverrors.Internal, "listing insight domains", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				domains = append(domains, e.Name())
			}
		}
	}

	var layers []Layer
	if layer != nil {
		layers = []Layer{*layer}
	} else {
		layers = []Layer{GroundTruth, Hypothesis, OpenThread}
	}

	var out []Insight
	for _, d := range domains {
		for _, l := range layers {
			dir := s.root.Path("chronicle", "insights", d, string(l))
			entries, err := os.ReadDir(dir)
			if err != nil {
				continue
			}
			for _, e := range entries {
				if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
					continue
				}
				data, err := os.ReadFile(filepath.Join(dir, e.Name()))
				if err != nil {
					continue
				}
				var insight Insight
				if err := json.Unmarshal(data, &insight); err != nil {
					continue
				}
				out = append(out, insight)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// RecordLearning persists a new learning record.
func (s *Store) RecordLearning(whatHappened, whatLearned, appliesTo, sessionID string) (string, error) {
	if whatHappened == "" || whatLearned == "" {
		return "", sverrors.New(sverrors.InvalidInput, "what_happened and what_learned are required")
	}

	learning := Learning{
		ID:           newID(),
		Timestamp:    nowStamp(),
		WhatHappened: whatHappened,
		WhatLearned:  whatLearned,
		AppliesTo:    appliesTo,
		SessionID:    sessionID,
	}

	data, err := json.MarshalIndent(learning, "", "  ")
	if err != nil {
		return "", sverrors.Wrap(sverrors.Internal, "marshaling learning", err)
	}

	path := s.learningPath(learning.ID)
	if err := atomicfile.CreateNew(path, data, 0o644); err != nil {
		return "", sverrors.Wrap(sverrors.Internal, "persisting learning", err)
	}

	return learning.ID, nil
}

// CheckMistakes scores stored learnings by token overlap with context
// and returns the top N, most relevant first.
func (s *Store) CheckMistakes(context string, limit int) ([]Learning, error) {
	if limit <= 0 {
		limit = 10
	}

	dir := s.root.Path("chronicle", "learnings")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Learning{}, nil
		}
		return nil, sverrors.Wrap(sverrors.Internal, "listing learnings", err)
	}

	contextTokens := tokenize(context)

	type scored struct {
		learning Learning
		score    int
	}
	var candidates []scored

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		var l Learning
		if err := json.Unmarshal(data, &l); err != nil {
			continue
		}
		score := overlapScore(contextTokens, tokenize(l.WhatHappened+" "+l.AppliesTo))
		if score > 0 {
			candidates = append(candidates, scored{learning: l, score: score})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].learning.Timestamp > candidates[j].learning.Timestamp
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]Learning, len(candidates))
	for i, c := range candidates {
		out[i] = c.learning
	}
	return out, nil
}

func tokenize(s string) map[string]bool {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[strings.Trim(f, ".,!?;:\"'()")] = true
	}
	return set
}

func overlapScore(a, b map[string]bool) int {
	score := 0
	for tok := range a {
		if b[tok] {
			score++
		}
	}
	return score
}

// RecordOpenThread persists a new unresolved question.
func (s *Store) RecordOpenThread(domain, question, context, sessionID string) (string, error) {
	if domain == "" || question == "" {
		return "", sverrors.New(sverrors.InvalidInput, "domain and question are required")
	}

	thread := OpenThreadRecord{
		ID:        newID(),
		Timestamp: nowStamp(),
		Question:  question,
		Context:   context,
		Domain:    domain,
		Resolved:  false,
		SessionID: sessionID,
	}

	data, err := json.MarshalIndent(thread, "", "  ")
	if err != nil {
		return "", sverrors.Wrap(sverrors.Internal, "marshaling open thread", err)
	}

	path := s.threadPath(domain, thread.ID)
	if err := atomicfile.CreateNew(path, data, 0o644); err != nil {
		return "", sverrors.Wrap(sverrors.Internal, "persisting open thread", err)
	}

	return thread.ID, nil
}

// GetOpenThreads returns open threads in domain (or all domains if
// domain is nil), optionally filtered to unresolved only.
func (s *Store) GetOpenThreads(domain *string, unresolvedOnly bool) ([]OpenThreadRecord, error) {
	base := s.root.Path("chronicle", "open_threads")

	var domains []string
	if domain != nil {
		domains = []string{*domain}
	} else {
		entries, err := os.ReadDir(base)
		if err != nil {
			if os.IsNotExist(err) {
				return []OpenThreadRecord{}, nil
			}
			return nil, sverrors.Wrap(sverrors.Internal, "listing thread domains", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				domains = append(domains, e.Name())
			}
		}
	}

	var out []OpenThreadRecord
	for _, d := range domains {
		dir := s.root.Path("chronicle", "open_threads", d)
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
				continue
			}
			data, err := os.ReadFile(filepath.Join(dir, e.Name()))
			if err != nil {
				continue
			}
			var thread OpenThreadRecord
			if err := json.Unmarshal(data, &thread); err != nil {
				continue
			}
			if unresolvedOnly && thread.Resolved {
				continue
			}
			out = append(out, thread)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out, nil
}

// ResolveThread finds the first unresolved thread in domain whose
// question contains questionFragment, marks it resolved, and emits a
// companion ground-truth insight citing the resolution — unconditionally,
// even when resolution is empty, per spec.md's Open Question (b).
func (s *Store) ResolveThread(domain, questionFragment, resolution, sessionID string) (OpenThreadRecord, string, error) {
	dir := s.root.Path("chronicle", "open_threads", domain)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return OpenThreadRecord{}, "", sverrors.New(sverrors.NotFound, "no open threads in domain \""+domain+"\"")
	}

	fragment := strings.ToLower(questionFragment)

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var thread OpenThreadRecord
		if err := json.Unmarshal(data, &thread); err != nil {
			continue
		}
		if thread.Resolved {
			continue
		}
		if !strings.Contains(strings.ToLower(thread.Question), fragment) {
			continue
		}

		thread.Resolved = true
		res := resolution
		thread.Resolution = &res

		out, err := json.MarshalIndent(thread, "", "  ")
		if err != nil {
			return OpenThreadRecord{}, "", sverrors.Wrap(sverrors.Internal, "marshaling resolved thread", err)
		}
		if err := atomicfile.Write(path, out, 0o644); err != nil {
			return OpenThreadRecord{}, "", sverrors.Wrap(sverrors.Internal, "rewriting resolved thread", err)
		}

		content := "Resolved: " + thread.Question + " -> " + resolution
		insightID, err := s.RecordInsight(domain, content, 0.5, GroundTruth, nil, sessionID)
		if err != nil {
			return OpenThreadRecord{}, "", err
		}

		return thread, insightID, nil
	}

	return OpenThreadRecord{}, "", sverrors.New(sverrors.NotFound, "no unresolved thread matching \""+questionFragment+"\" in domain \""+domain+"\"")
}

// GetInheritableContext assembles the porous inheritance package:
// ground_truth carried verbatim, hypotheses offered as flagged
// non-canonical references, open_threads presented as invitations.
// The three lists are pairwise disjoint by construction (drawn from
// disjoint layers).
func (s *Store) GetInheritableContext(limit int) (InheritablePackage, error) {
	if limit <= 0 {
		limit = 20
	}

	gtLayer := GroundTruth
	groundTruths, err := s.RecallInsights(nil, &gtLayer, limit)
	if err != nil {
		return InheritablePackage{}, err
	}

	hypLayer := Hypothesis
	hypotheses, err := s.RecallInsights(nil, &hypLayer, limit)
	if err != nil {
		return InheritablePackage{}, err
	}
	offers := make([]HypothesisOffer, len(hypotheses))
	for i, h := range hypotheses {
		conf := 0.0
		if h.Confidence != nil {
			conf = *h.Confidence
		}
		offers[i] = HypothesisOffer{Insight: h, Confidence: conf, Flag: "offered, not canon"}
	}

	threads, err := s.GetOpenThreads(nil, true)
	if err != nil {
		return InheritablePackage{}, err
	}
	if len(threads) > limit {
		threads = threads[:limit]
	}

	return InheritablePackage{
		GroundTruth: groundTruths,
		Hypotheses:  offers,
		OpenThreads: threads,
	}, nil
}
