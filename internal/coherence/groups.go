package coherence

import (
	"fmt"
)

// computeGroup evaluates a named grouping function over a numeric
// packet value, returning the path segment it contributes (e.g.
// decile(5) -> "0-9").
func computeGroup(fn string, value any) (string, error) {
	n, ok := toFloat64(value)
	if !ok {
		return "", fmt.Errorf("group function %q requires a numeric value, got %v", fn, value)
	}

	switch fn {
	case "decile":
		base := int(n) / 10 * 10
		return fmt.Sprintf("%d-%d", base, base+9), nil
	case "century":
		base := int(n) / 100 * 100
		return fmt.Sprintf("%d-%d", base, base+99), nil
	default:
		return "", fmt.Errorf("unknown group function %q", fn)
	}
}
