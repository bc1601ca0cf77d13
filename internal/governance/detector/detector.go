// Package detector implements the Threshold Detector: a read-only scan
// of a subtree against five configured metrics, honoring a wall-clock
// timeout and flagging partial results as incomplete when it expires.
package detector

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sovereign-stack/sovereign-stack/internal/config"
	"github.com/sovereign-stack/sovereign-stack/internal/sverrors"
)

// Metric names the five monitored dimensions.
type Metric string

const (
	FileCount     Metric = "file_count"
	Depth         Metric = "depth"
	Entropy       Metric = "entropy"
	SelfReference Metric = "self_reference"
	GrowthRate    Metric = "growth_rate"
)

// Severity grades a violation.
type Severity string

const (
	Warning  Severity = "warning"
	Critical Severity = "critical"
)

// Event is a single detected violation.
type Event struct {
	Metric   Metric   `json:"metric"`
	Path     string   `json:"path"`
	Observed float64  `json:"observed"`
	Limit    float64  `json:"limit"`
	Severity Severity `json:"severity"`
}

// Result is the outcome of a scan.
type Result struct {
	Events     []Event `json:"events"`
	Incomplete bool    `json:"incomplete"`
}

// Detector scans subtrees against configured limits.
type Detector struct {
	limits config.ThresholdLimits
}

// New constructs a Detector with the given limits.
func New(limits config.ThresholdLimits) *Detector {
	return &Detector{limits: limits}
}

// Scan walks root (recursively or not) and emits ThresholdEvents for
// every metric that exceeds its configured limit. The scan honors the
// detector's configured wall-clock timeout, yielding cooperatively at
// each directory boundary so cancellation is observed promptly.
func (d *Detector) Scan(ctx context.Context, root string, recursive bool) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, d.limits.Timeout)
	defer cancel()

	info, err := os.Stat(root)
	if err != nil {
		return Result{}, sverrors.Wrap(sverrors.NotFound, "scan target does not exist", err)
	}
	if !info.IsDir() {
		return Result{}, sverrors.New(sverrors.InvalidInput, "scan target must be a directory")
	}

	var events []Event
	incomplete := false

	dirs, err := d.collectDirs(ctx, root, recursive)
	if err != nil {
		if sverrors.Is(err, sverrors.Timeout) {
			incomplete = true
		} else {
			return Result{}, err
		}
	}

	maxDepth := 0
	var mtimes []time.Time
	var selfRefEvents []Event

	for _, dir := range dirs {
		select {
		case <-ctx.Done():
			incomplete = true
		default:
		}
		if incomplete {
			break
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}

		relDepth := depthOf(root, dir)
		if relDepth > maxDepth {
			maxDepth = relDepth
		}

		var names []string
		fileCount := 0
		for _, e := range entries {
			names = append(names, e.Name())
			if e.IsDir() {
				continue
			}
			fileCount++

			fullPath := filepath.Join(dir, e.Name())
			if fi, err := os.Lstat(fullPath); err == nil {
				mtimes = append(mtimes, fi.ModTime())
				if fi.Mode()&os.ModeSymlink != 0 {
					if cyc := detectCycle(fullPath, root); cyc {
						selfRefEvents = append(selfRefEvents, Event{
							Metric:   SelfReference,
							Path:     fullPath,
							Observed: 1,
							Limit:    0,
							Severity: Critical,
						})
					}
				}
			}
		}

		if fileCount > d.limits.FileCount {
			events = append(events, Event{
				Metric:   FileCount,
				Path:     dir,
				Observed: float64(fileCount),
				Limit:    float64(d.limits.FileCount),
				Severity: severityFor(float64(fileCount), float64(d.limits.FileCount)),
			})
		}

		if e := shannonEntropy(names); e > d.limits.Entropy {
			events = append(events, Event{
				Metric:   Entropy,
				Path:     dir,
				Observed: e,
				Limit:    d.limits.Entropy,
				Severity: severityFor(e, d.limits.Entropy),
			})
		}
	}

	events = append(events, selfRefEvents...)

	if maxDepth > d.limits.Depth {
		events = append(events, Event{
			Metric:   Depth,
			Path:     root,
			Observed: float64(maxDepth),
			Limit:    float64(d.limits.Depth),
			Severity: severityFor(float64(maxDepth), float64(d.limits.Depth)),
		})
	}

	if rate := growthRate(mtimes, time.Hour); rate > float64(d.limits.GrowthRate) {
		events = append(events, Event{
			Metric:   GrowthRate,
			Path:     root,
			Observed: rate,
			Limit:    float64(d.limits.GrowthRate),
			Severity: severityFor(rate, float64(d.limits.GrowthRate)),
		})
	}

	return Result{Events: events, Incomplete: incomplete}, nil
}

// collectDirs enumerates directories under root, yielding at each
// directory boundary so the caller can observe cancellation.
func (d *Detector) collectDirs(ctx context.Context, root string, recursive bool) ([]string, error) {
	if !recursive {
		return []string{root}, nil
	}

	var dirs []string
	err := filepath.WalkDir(root, func(path string, de os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return sverrors.New(sverrors.Timeout, "scan deadline exceeded")
		default:
		}
		if de.IsDir() {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return dirs, err
	}
	return dirs, nil
}

func depthOf(root, dir string) int {
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == "." {
		return 0
	}
	return len(strings.Split(rel, string(filepath.Separator)))
}

func severityFor(observed, limit float64) Severity {
	if limit <= 0 {
		return Critical
	}
	if observed >= limit*2 {
		return Critical
	}
	return Warning
}

// shannonEntropy computes the Shannon entropy, in bits, over the
// character tokens of a directory's filenames.
func shannonEntropy(names []string) float64 {
	if len(names) == 0 {
		return 0
	}

	freq := map[rune]int{}
	total := 0
	for _, name := range names {
		for _, r := range name {
			freq[r]++
			total++
		}
	}
	if total == 0 {
		return 0
	}

	entropy := 0.0
	for _, count := range freq {
		p := float64(count) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// growthRate counts files whose mtime falls within the most recent
// window.
func growthRate(mtimes []time.Time, window time.Duration) float64 {
	if len(mtimes) == 0 {
		return 0
	}
	cutoff := time.Now().Add(-window)
	count := 0
	for _, t := range mtimes {
		if t.After(cutoff) {
			count++
		}
	}
	return float64(count)
}

// detectCycle reports whether a symlink at path, once resolved, points
// back at one of its own ancestor directories beneath root — a
// name-as-pointer reference cycle.
func detectCycle(path, root string) bool {
	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		return false
	}

	dir := filepath.Dir(path)
	for {
		if target == dir {
			return true
		}
		if dir == root || dir == filepath.Dir(dir) {
			break
		}
		dir = filepath.Dir(dir)
	}
	return false
}
