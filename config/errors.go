package config

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// errorList accumulates configuration problems so Validate can report
// every one of them in a single message instead of stopping at the
// first, matching the requirement that a configuration error
// be surfaced with a clear message before startup aborts.
type errorList struct {
	err *multierror.Error
}

func (e *errorList) add(err error) {
	e.err = multierror.Append(e.err, err)
}

func (e *errorList) addf(format string, args ...any) {
	e.add(fmt.Errorf(format, args...))
}

func (e *errorList) errorOrNil() error {
	return e.err.ErrorOrNil()
}

// IsConfigError reports whether err originated from configuration
// validation, for callers that need to distinguish it from other
// startup failures when choosing an exit code.
func IsConfigError(err error) bool {
	var merr *multierror.Error
	return errors.As(err, &merr)
}
