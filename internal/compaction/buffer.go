// Package compaction implements the bounded FIFO ring of high-fidelity
// session summaries that lets an external agent recover context after
// its own conversation is compacted away.
package compaction

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sovereign-stack/sovereign-stack/internal/atomicfile"
	"github.com/sovereign-stack/sovereign-stack/internal/lockfile"
	"github.com/sovereign-stack/sovereign-stack/internal/rootctx"
	"github.com/sovereign-stack/sovereign-stack/internal/sverrors"
)

// Capacity is the buffer's fixed size; the oldest entry is evicted
// before the (Capacity+1)th is appended.
const Capacity = 3

// Summary is a single stored compaction summary.
type Summary struct {
	Timestamp           string   `json:"timestamp"`
	SummaryText          string   `json:"summary_text"`
	SessionID            string   `json:"session_id"`
	CompactionNumber     int      `json:"compaction_number"`
	KeyPoints            []string `json:"key_points"`
	ActiveTasks          []string `json:"active_tasks"`
	RecentBreakthroughs  []string `json:"recent_breakthroughs"`
}

type bufferDoc struct {
	Summaries   []Summary `json:"summaries"`
	LastUpdated string    `json:"last_updated"`
}

// Stats summarizes the buffer's current occupancy.
type Stats struct {
	TotalSummaries   int     `json:"total_summaries"`
	MaxCapacity      int     `json:"max_capacity"`
	OldestTimestamp  *string `json:"oldest_timestamp"`
	NewestTimestamp  *string `json:"newest_timestamp"`
	TotalCompactions int     `json:"total_compactions"`
}

// Store persists the compaction buffer as a single JSON document,
// guarded by an advisory lock for the duration of each
// read-modify-write.
type Store struct {
	root rootctx.RootContext
}

// New constructs a Store rooted at rc.
func New(rc rootctx.RootContext) *Store {
	return &Store{root: rc}
}

func (s *Store) path() string {
	return s.root.Path("compaction_memory", "buffer.json")
}

func (s *Store) load() (bufferDoc, error) {
	data, err := os.ReadFile(s.path())
	if os.IsNotExist(err) {
		return bufferDoc{}, nil
	}
	if err != nil {
		return bufferDoc{}, sverrors.Wrap(sverrors.Internal, "reading compaction buffer", err)
	}
	var doc bufferDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return bufferDoc{}, sverrors.Wrap(sverrors.Internal, "parsing compaction buffer", err)
	}
	return doc, nil
}

func (s *Store) save(doc bufferDoc) error {
	doc.LastUpdated = time.Now().UTC().Format(time.RFC3339Nano)
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return sverrors.Wrap(sverrors.Internal, "marshaling compaction buffer", err)
	}
	if err := atomicfile.Write(s.path(), data, 0o644); err != nil {
		return sverrors.Wrap(sverrors.Internal, "writing compaction buffer", err)
	}
	return nil
}

// Store appends a new summary, evicting the oldest entry first if the
// buffer is already at Capacity. The summary's compaction_number is
// the last stored value plus one, monotonically increasing even across
// evictions.
func (s *Store) Store(sessionID, summaryText string, keyPoints, activeTasks, breakthroughs []string) (Summary, error) {
	guard, err := lockfile.Acquire(s.path())
	if err != nil {
		return Summary{}, err
	}
	defer guard.Release()

	doc, err := s.load()
	if err != nil {
		return Summary{}, err
	}

	number := 1
	if len(doc.Summaries) > 0 {
		number = doc.Summaries[len(doc.Summaries)-1].CompactionNumber + 1
	}

	if len(doc.Summaries) >= Capacity {
		doc.Summaries = doc.Summaries[1:]
	}

	summary := Summary{
		Timestamp:          time.Now().UTC().Format(time.RFC3339Nano),
		SummaryText:        summaryText,
		SessionID:          sessionID,
		CompactionNumber:   number,
		KeyPoints:          orEmpty(keyPoints),
		ActiveTasks:        orEmpty(activeTasks),
		RecentBreakthroughs: orEmpty(breakthroughs),
	}
	doc.Summaries = append(doc.Summaries, summary)

	if err := s.save(doc); err != nil {
		return Summary{}, err
	}
	return summary, nil
}

func orEmpty(xs []string) []string {
	if xs == nil {
		return []string{}
	}
	return xs
}

// GetContext returns all stored summaries in chronological order,
// formatted as text for an agent recovering context after compaction.
func (s *Store) GetContext() (string, error) {
	guard, err := lockfile.Acquire(s.path())
	if err != nil {
		return "", err
	}
	defer guard.Release()

	doc, err := s.load()
	if err != nil {
		return "", err
	}
	if len(doc.Summaries) == 0 {
		return "No compaction history available.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Compaction Memory - Recent Context\n\n")
	fmt.Fprintf(&b, "Buffer holds %d recent compaction(s)\n", len(doc.Summaries))

	for i, sm := range doc.Summaries {
		agesAgo := len(doc.Summaries) - i
		fmt.Fprintf(&b, "\n## Compaction #%d (%d compaction(s) ago)\n", sm.CompactionNumber, agesAgo)
		fmt.Fprintf(&b, "Time: %s\n", sm.Timestamp)
		fmt.Fprintf(&b, "Session: %s\n\n", sm.SessionID)

		writeList(&b, "Key Points", sm.KeyPoints)
		writeList(&b, "Active Tasks", sm.ActiveTasks)
		writeList(&b, "Recent Breakthroughs", sm.RecentBreakthroughs)

		fmt.Fprintf(&b, "Summary:\n%s\n", sm.SummaryText)
		b.WriteString(strings.Repeat("=", 60) + "\n")
	}

	return b.String(), nil
}

func writeList(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", label)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

// GetStats reports buffer occupancy and the monotonic compaction
// counter.
func (s *Store) GetStats() (Stats, error) {
	guard, err := lockfile.Acquire(s.path())
	if err != nil {
		return Stats{}, err
	}
	defer guard.Release()

	doc, err := s.load()
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{TotalSummaries: len(doc.Summaries), MaxCapacity: Capacity}
	if len(doc.Summaries) > 0 {
		oldest := doc.Summaries[0].Timestamp
		newest := doc.Summaries[len(doc.Summaries)-1].Timestamp
		stats.OldestTimestamp = &oldest
		stats.NewestTimestamp = &newest
		stats.TotalCompactions = doc.Summaries[len(doc.Summaries)-1].CompactionNumber
	}
	return stats, nil
}
