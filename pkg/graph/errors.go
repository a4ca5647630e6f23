package graph

import (
	"fmt"
	"strings"

	"github.com/zuzpack/zuz/pkg/types"
)

// CycleError reports entry points that depend on each other in a cycle.
// Cycle starts and ends with the same ID.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	names := make([]string, len(e.Cycle))
	for i, id := range e.Cycle {
		if id == "" {
			id = "<primary>"
		}
		names[i] = id
	}
	return fmt.Sprintf("%s: %s", types.ErrDependencyCycle, strings.Join(names, " -> "))
}

func (e *CycleError) Unwrap() error {
	return types.ErrDependencyCycle
}

// Members returns the distinct entry points on the cycle
func (e *CycleError) Members() []string {
	if len(e.Cycle) < 2 {
		return e.Cycle
	}
	return e.Cycle[:len(e.Cycle)-1]
}
