package charm

import (
	"errors"
	"fmt"
	"strings"
)

// ProvisioningError reports a failed provisioning step. The configuration
// attempt stops at the failed step; earlier steps are not undone.
type ProvisioningError struct {
	Step    string
	Command []string
	Err     error
}

func (e *ProvisioningError) Error() string {
	if len(e.Command) > 0 {
		return fmt.Sprintf("%s: %q: %v", e.Step, strings.Join(e.Command, " "), e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *ProvisioningError) Unwrap() error { return e.Err }

// IsProvisioningError reports whether err carries a ProvisioningError.
func IsProvisioningError(err error) bool {
	var pe *ProvisioningError
	return errors.As(err, &pe)
}
