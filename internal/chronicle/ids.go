package chronicle

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// newID returns a monotonic-timestamp-plus-random-suffix identifier,
// guaranteeing both sortability and collision-freedom under concurrent
// writers, as spec.md §4.2 requires.
func newID() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixNano(), uuid.New().String()[:8])
}

func nowStamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}
