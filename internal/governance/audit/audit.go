// Package audit implements the tamper-evident, hash-chained governance
// log: one JSON line per governance decision, each entry's hash covering
// its predecessor's hash and its own canonical encoding.
package audit

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"strconv"

	"github.com/sovereign-stack/sovereign-stack/internal/atomicfile"
	"github.com/sovereign-stack/sovereign-stack/internal/governance/deliberator"
	"github.com/sovereign-stack/sovereign-stack/internal/lockfile"
	"github.com/sovereign-stack/sovereign-stack/internal/rootctx"
	"github.com/sovereign-stack/sovereign-stack/internal/sverrors"
)

// GenesisPrevHash is the prev_hash of the first entry in any chain:
// 64 hex zero digits, per spec.md §3.
const GenesisPrevHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Entry is one governance decision. Hash is always the last JSON field
// so entryForHash's field order matches it exactly minus Hash itself.
type Entry struct {
	Ts        string               `json:"ts"`
	Actor     string               `json:"actor"`
	Action    string               `json:"action"`
	Target    string               `json:"target"`
	Vote      *deliberator.Ballot  `json:"vote,omitempty"`
	Rationale string               `json:"rationale,omitempty"`
	PrevHash  string               `json:"prev_hash"`
	Hash      string               `json:"hash"`
}

// entryForHash mirrors Entry's field order without Hash, giving a
// stable canonical encoding to digest.
type entryForHash struct {
	Ts        string              `json:"ts"`
	Actor     string              `json:"actor"`
	Action    string              `json:"action"`
	Target    string              `json:"target"`
	Vote      *deliberator.Ballot `json:"vote,omitempty"`
	Rationale string              `json:"rationale,omitempty"`
	PrevHash  string              `json:"prev_hash"`
}

// Log is the append-only, hash-chained audit log at governance/audit.jsonl.
type Log struct {
	path string
}

// New constructs a Log rooted at rc.
func New(rc rootctx.RootContext) *Log {
	return &Log{path: rc.Path("governance", "audit.jsonl")}
}

func computeHash(e entryForHash) (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(append([]byte(e.PrevHash), data...))
	return hex.EncodeToString(sum[:]), nil
}

// Append verifies the existing chain is intact, then writes a new
// entry chained to its tail, under an advisory lock serializing
// concurrent writers. Corruption of any prior entry — not just the
// tail — is fatal and blocks the append.
func (l *Log) Append(ts, actor, action, target string, vote *deliberator.Ballot, rationale string) (Entry, error) {
	guard, err := lockfile.Acquire(l.path)
	if err != nil {
		return Entry{}, err
	}
	defer guard.Release()

	prevHash, err := l.verifyAndTailHashLocked()
	if err != nil {
		return Entry{}, err
	}

	forHash := entryForHash{
		Ts:        ts,
		Actor:     actor,
		Action:    action,
		Target:    target,
		Vote:      vote,
		Rationale: rationale,
		PrevHash:  prevHash,
	}
	hash, err := computeHash(forHash)
	if err != nil {
		return Entry{}, sverrors.Wrap(sverrors.Internal, "hashing audit entry", err)
	}

	entry := Entry{
		Ts:        ts,
		Actor:     actor,
		Action:    action,
		Target:    target,
		Vote:      vote,
		Rationale: rationale,
		PrevHash:  prevHash,
		Hash:      hash,
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return Entry{}, sverrors.Wrap(sverrors.Internal, "marshaling audit entry", err)
	}
	if err := atomicfile.AppendLine(l.path, line); err != nil {
		return Entry{}, sverrors.Wrap(sverrors.Internal, "appending audit entry", err)
	}

	return entry, nil
}

// verifyAndTailHashLocked verifies every existing entry's hash chain
// and returns the tail hash (or the genesis prev_hash if the log is
// empty) to chain the next entry off. Caller must hold the log's lock.
func (l *Log) verifyAndTailHashLocked() (string, error) {
	entries, err := l.readAllLocked()
	if err != nil {
		return "", err
	}
	if err := verifyChain(entries); err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return GenesisPrevHash, nil
	}
	return entries[len(entries)-1].Hash, nil
}

func (l *Log) readAllLocked() ([]Entry, error) {
	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, sverrors.Wrap(sverrors.Internal, "opening audit log", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, sverrors.Wrap(sverrors.Internal, "parsing audit log", err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, sverrors.Wrap(sverrors.Internal, "reading audit log", err)
	}
	return entries, nil
}

// ReadAll returns every entry in the log, oldest first.
func (l *Log) ReadAll() ([]Entry, error) {
	guard, err := lockfile.Acquire(l.path)
	if err != nil {
		return nil, err
	}
	defer guard.Release()
	return l.readAllLocked()
}

// Verify recomputes every entry's hash and checks the chain. It returns
// a ChainBroken error naming the offending index on the first mismatch.
func (l *Log) Verify() error {
	entries, err := l.ReadAll()
	if err != nil {
		return err
	}
	return verifyChain(entries)
}

// verifyChain recomputes every entry's hash and checks prev_hash
// linkage, returning a ChainBroken error naming the offending index on
// the first mismatch anywhere in the chain, not just at the tail.
func verifyChain(entries []Entry) error {
	expectedPrev := GenesisPrevHash
	for i, e := range entries {
		if e.PrevHash != expectedPrev {
			return sverrors.New(sverrors.ChainBroken, chainErrMsg(i, "prev_hash mismatch"))
		}
		forHash := entryForHash{
			Ts: e.Ts, Actor: e.Actor, Action: e.Action, Target: e.Target,
			Vote: e.Vote, Rationale: e.Rationale, PrevHash: e.PrevHash,
		}
		recomputed, err := computeHash(forHash)
		if err != nil {
			return sverrors.Wrap(sverrors.Internal, "recomputing audit hash", err)
		}
		if recomputed != e.Hash {
			return sverrors.New(sverrors.ChainBroken, chainErrMsg(i, "hash mismatch"))
		}
		expectedPrev = e.Hash
	}
	return nil
}

func chainErrMsg(index int, reason string) string {
	return "audit chain broken at entry " + strconv.Itoa(index) + ": " + reason
}
