package dag

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidNode    = errors.New("invalid node")
	ErrNegativeWeight = errors.New("negative edge weight")
	ErrNoEdge         = errors.New("edge not found")
	ErrCycle          = errors.New("same-iteration cycle")
	ErrUnreachable    = errors.New("unreachable from roots")
)

// GraphError reports a structural problem together with the nodes involved.
type GraphError struct {
	Kind  error
	Nodes []string
}

func (e *GraphError) Error() string {
	if e == nil {
		return ""
	}
	if len(e.Nodes) == 0 {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), strings.Join(e.Nodes, ", "))
}

func (e *GraphError) Unwrap() error { return e.Kind }
