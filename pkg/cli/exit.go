package cli

import (
	"errors"

	"github.com/zuzpack/zuz/pkg/types"
)

// Process exit codes
const (
	ExitOK            = 0
	ExitDependencies  = 65
	ExitConfiguration = 78
	ExitFailure       = 111
)

// ExitCode maps an error returned by Execute to the process exit code
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, types.ErrConfiguration):
		return ExitConfiguration
	case errors.Is(err, types.ErrDependencyCycle):
		return ExitDependencies
	default:
		return ExitFailure
	}
}
