package spiral

import (
	"encoding/json"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/sovereign-stack/sovereign-stack/internal/atomicfile"
	"github.com/sovereign-stack/sovereign-stack/internal/lockfile"
	"github.com/sovereign-stack/sovereign-stack/internal/rootctx"
	"github.com/sovereign-stack/sovereign-stack/internal/sverrors"
)

// reflectThreshold is the reflection-depth divisor that advances the
// phase by one, saturating at CoherenceCheck; spec.md §4.8 names this
// "depth divisible by 2 advances once."
const reflectThreshold = 2

// State is one session's persisted snapshot.
type State struct {
	SessionID       string   `json:"session_id"`
	Phase           Phase    `json:"phase"`
	ReflectionDepth int      `json:"reflection_depth"`
	Transitions     []string `json:"transitions"`
	InheritedFrom   *string  `json:"inherited_from,omitempty"`
	CreatedAt       string   `json:"created_at"`
	UpdatedAt       string   `json:"updated_at"`
}

// Store persists spiral session state, one JSON file per session,
// each guarded by its own advisory lock for the duration of a
// read-modify-write.
type Store struct {
	root rootctx.RootContext
}

// New constructs a Store rooted at rc.
func New(rc rootctx.RootContext) *Store {
	return &Store{root: rc}
}

func (s *Store) path(sessionID string) string {
	return s.root.Path("spiral", sessionID+".json")
}

func nowStamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}

func newSessionID() string {
	return "spiral_" + time.Now().UTC().Format("20060102_150405.000000000")
}

func (s *Store) load(sessionID string) (State, error) {
	data, err := os.ReadFile(s.path(sessionID))
	if os.IsNotExist(err) {
		return State{}, sverrors.New(sverrors.NotFound, "spiral session \""+sessionID+"\" does not exist")
	}
	if err != nil {
		return State{}, sverrors.Wrap(sverrors.Internal, "reading spiral session", err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, sverrors.Wrap(sverrors.Internal, "parsing spiral session", err)
	}
	return st, nil
}

func (s *Store) save(st State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return sverrors.Wrap(sverrors.Internal, "marshaling spiral session", err)
	}
	if err := atomicfile.Write(s.path(st.SessionID), data, 0o644); err != nil {
		return sverrors.Wrap(sverrors.Internal, "writing spiral session", err)
	}
	return nil
}

// StartSession creates a fresh, un-inherited session at phase 1.
func (s *Store) StartSession() (State, error) {
	ts := nowStamp()
	st := State{
		SessionID:       newSessionID(),
		Phase:           Initialization,
		ReflectionDepth: 0,
		Transitions:     []string{},
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}
	guard, err := lockfile.Acquire(s.path(st.SessionID))
	if err != nil {
		return State{}, err
	}
	defer guard.Release()
	if err := s.save(st); err != nil {
		return State{}, err
	}
	return st, nil
}

// Status returns the current snapshot of sessionID.
func (s *Store) Status(sessionID string) (State, error) {
	return s.load(sessionID)
}

// Reflect appends observation to the session's transitions, increments
// reflection_depth, and advances phase per spec.md §4.8: depth crossing
// a multiple of two advances one phase, saturating at CoherenceCheck;
// the sole permitted decrease is CoherenceCheck returning to
// MetaReflection when a further reflection is recorded post-coherence.
func (s *Store) Reflect(sessionID, observation string) (State, error) {
	guard, err := lockfile.Acquire(s.path(sessionID))
	if err != nil {
		return State{}, err
	}
	defer guard.Release()

	st, err := s.load(sessionID)
	if err != nil {
		return State{}, err
	}

	st.ReflectionDepth++
	st.Transitions = append(st.Transitions, observation)

	switch {
	case st.Phase == CoherenceCheck:
		st.Phase = MetaReflection
	case st.ReflectionDepth%reflectThreshold == 0 && st.Phase < CoherenceCheck:
		st.Phase++
	}

	st.UpdatedAt = nowStamp()
	if err := s.save(st); err != nil {
		return State{}, err
	}
	return st, nil
}

// Inherit starts a new session whose inherited_from points at fromSessionID
// (or the most recently updated existing session, if empty). The new
// session resets phase to Initialization and reflection_depth to zero;
// it carries forward only the pointer, never the prior session's depth,
// phase, or transitions — the porous content package itself (ground
// truth, hypotheses, open threads) is assembled separately by the
// chronicle, not duplicated into the spiral session file.
func (s *Store) Inherit(fromSessionID string) (State, error) {
	if fromSessionID == "" {
		latest, err := s.mostRecentSessionID()
		if err != nil {
			return State{}, err
		}
		fromSessionID = latest
	}
	if fromSessionID != "" {
		if _, err := s.load(fromSessionID); err != nil {
			return State{}, err
		}
	}

	ts := nowStamp()
	st := State{
		SessionID:       newSessionID(),
		Phase:           Initialization,
		ReflectionDepth: 0,
		Transitions:     []string{},
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}
	if fromSessionID != "" {
		st.InheritedFrom = &fromSessionID
	}

	guard, err := lockfile.Acquire(s.path(st.SessionID))
	if err != nil {
		return State{}, err
	}
	defer guard.Release()
	if err := s.save(st); err != nil {
		return State{}, err
	}
	return st, nil
}

// mostRecentSessionID returns the session with the latest updated_at,
// or "" if no sessions exist yet.
func (s *Store) mostRecentSessionID() (string, error) {
	dir := s.root.Path("spiral")
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", sverrors.Wrap(sverrors.Internal, "listing spiral sessions", err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
	}
	if len(ids) == 0 {
		return "", nil
	}

	sort.Slice(ids, func(i, j int) bool {
		si, errI := s.load(ids[i])
		sj, errJ := s.load(ids[j])
		if errI != nil || errJ != nil {
			return false
		}
		return si.UpdatedAt > sj.UpdatedAt
	})
	return ids[0], nil
}
