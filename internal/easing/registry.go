package easing

import (
	"fmt"
	"sort"
	"strings"
)

var registry = map[string]Func{
	"linear": Linear,

	"in-quad":     InQuad,
	"out-quad":    OutQuad,
	"in-out-quad": InOutQuad,

	"in-cubic":     InCubic,
	"out-cubic":    OutCubic,
	"in-out-cubic": InOutCubic,

	"in-quart":     InQuart,
	"out-quart":    OutQuart,
	"in-out-quart": InOutQuart,

	"in-quint":     InQuint,
	"out-quint":    OutQuint,
	"in-out-quint": InOutQuint,

	"in-sine":     InSine,
	"out-sine":    OutSine,
	"in-out-sine": InOutSine,

	"in-expo":     InExpo,
	"out-expo":    OutExpo,
	"in-out-expo": InOutExpo,

	"in-circ":     InCirc,
	"out-circ":    OutCirc,
	"in-out-circ": InOutCirc,

	"in-elastic":     InElastic,
	"out-elastic":    OutElastic,
	"in-out-elastic": InOutElastic,

	"in-back":     InBack,
	"out-back":    OutBack,
	"in-out-back": InOutBack,

	"in-bounce":     InBounce,
	"out-bounce":    OutBounce,
	"in-out-bounce": InOutBounce,
}

// Lookup returns the curve registered under name, e.g. "out-quint".
// Matching ignores case and surrounding whitespace.
func Lookup(name string) (Func, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	f, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("easing: unknown curve %q", name)
	}
	return f, nil
}

// Names lists every registered curve name in sorted order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
