package toolbox

import (
	"errors"
	"fmt"

	"github.com/f0mster/xpctoolbox/pkg/servicename"
)

// ErrUnexpectedServiceName matches every *UnexpectedServiceNameError.
var ErrUnexpectedServiceName = errors.New("toolbox: unexpected service name")

// UnexpectedServiceNameError is returned when a ServiceName is neither a
// SystemServiceName nor an AppServiceName.
type UnexpectedServiceNameError struct {
	// Type is the concrete type of the rejected name.
	Type string
}

func (e *UnexpectedServiceNameError) Error() string {
	return fmt.Sprintf("toolbox: unexpected concrete service name type %s", e.Type)
}

func (e *UnexpectedServiceNameError) Is(target error) bool {
	return target == ErrUnexpectedServiceName
}

func unexpectedServiceName(name servicename.ServiceName) error {
	return &UnexpectedServiceNameError{Type: fmt.Sprintf("%T", name)}
}
