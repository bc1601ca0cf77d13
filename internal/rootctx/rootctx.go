// Package rootctx resolves and carries the single configured root
// directory beneath which every Sovereign Stack subsystem persists its
// records. It replaces the module-level singleton the teacher's tools
// used for project-root discovery with an explicit value passed to every
// component constructor.
package rootctx

import (
	"os"
	"path/filepath"
)

const envVar = "SOVEREIGN_ROOT"

// RootContext carries the resolved storage root.
type RootContext struct {
	Root string
}

// Resolve determines the root directory from SOVEREIGN_ROOT, falling
// back to ~/.sovereign, and ensures it exists.
func Resolve() (RootContext, error) {
	root := os.Getenv(envVar)
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return RootContext{}, err
		}
		root = filepath.Join(home, ".sovereign")
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return RootContext{}, err
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return RootContext{}, err
	}

	return RootContext{Root: abs}, nil
}

// Path joins the root with the given relative path segments.
func (r RootContext) Path(segments ...string) string {
	return filepath.Join(append([]string{r.Root}, segments...)...)
}

// Sub returns the absolute path of a subdirectory beneath the root,
// creating it if necessary.
func (r RootContext) Sub(segments ...string) (string, error) {
	p := r.Path(segments...)
	if err := os.MkdirAll(p, 0o755); err != nil {
		return "", err
	}
	return p, nil
}
