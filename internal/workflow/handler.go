package workflow

import (
	"context"
	"errors"
	"fmt"
)

// Result is what a handler produces for one node invocation.
type Result struct {
	// Tag is the discriminator matched against conditional edges.
	Tag string

	// Params are merged into the accumulated mapping before the next node
	// runs.
	Params Params

	// Output is the node's textual product; the last node's Output becomes
	// the execution result.
	Output string

	// Pause suspends the execution once this node's edge is resolved; a
	// later Resume picks up at the successor with externally supplied
	// params merged in.
	Pause bool
}

// Handler executes nodes of one type.
type Handler interface {
	Type() NodeType
	Run(ctx context.Context, node *Node, params Params) (*Result, error)
}

// retryableError marks a transient failure eligible for node-level retry.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// Retryable marks an error as transient. The executor retries the node a
// bounded number of times before failing the execution; unmarked errors
// fail immediately.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

// IsRetryable reports whether err carries the transient marker.
func IsRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

// handlerTable is the closed dispatch table. Duplicate registrations are a
// programming error.
type handlerTable map[NodeType]Handler

func buildHandlerTable(handlers []Handler) (handlerTable, error) {
	table := make(handlerTable, len(handlers))
	for _, h := range handlers {
		if _, dup := table[h.Type()]; dup {
			return nil, fmt.Errorf("duplicate handler for node type %q", h.Type())
		}
		table[h.Type()] = h
	}
	return table, nil
}
