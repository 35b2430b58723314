package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/copilot-ai/copilot/internal/event"
	"github.com/copilot-ai/copilot/internal/logging"
)

// Status is the lifecycle state of one execution.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusPaused   Status = "paused"
	StatusFinished Status = "finished"
	StatusFailed   Status = "failed"
)

// maxSteps bounds how many node invocations one execution may make.
// Conditional edges can form retry loops; a runaway loop fails instead of
// spinning.
const maxSteps = 50

// Execution is the state of one graph run.
type Execution struct {
	Graph  *Graph
	Status Status
	Params Params
	Output string
	Err    error

	current string
	steps   int
}

// Executor walks workflow graphs, dispatching each node to the handler
// registered for its type.
type Executor struct {
	handlers       handlerTable
	bus            *event.Bus
	maxNodeRetries uint64
	retryInterval  time.Duration
}

// ExecutorOption adjusts executor construction.
type ExecutorOption func(*Executor)

// WithNodeRetries sets the per-node retry bound for retryable failures.
func WithNodeRetries(n uint64) ExecutorOption {
	return func(e *Executor) { e.maxNodeRetries = n }
}

// WithRetryInterval sets the initial backoff interval between node retries.
func WithRetryInterval(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.retryInterval = d }
}

// NewExecutor creates an executor over a closed handler set. bus may be
// nil.
func NewExecutor(handlers []Handler, bus *event.Bus, opts ...ExecutorOption) (*Executor, error) {
	table, err := buildHandlerTable(handlers)
	if err != nil {
		return nil, err
	}

	e := &Executor{
		handlers:       table,
		bus:            bus,
		maxNodeRetries: 3,
		retryInterval:  500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// NewDefaultExecutor wires the built-in node handlers.
func NewDefaultExecutor(deps NodeDeps, bus *event.Bus, opts ...ExecutorOption) (*Executor, error) {
	return NewExecutor([]Handler{
		NewChatHandler(deps.Prompts, deps.Factory),
		NewImageHandler(deps.Prompts, deps.Factory),
		NewCheckHTMLHandler(),
		NewCheckJSONHandler(),
	}, bus, opts...)
}

// Run executes a graph from its root until termination, pause or failure.
func (e *Executor) Run(ctx context.Context, graph *Graph, params Params) (*Execution, error) {
	if err := graph.Validate(); err != nil {
		return nil, err
	}

	exec := &Execution{
		Graph:   graph,
		Status:  StatusPending,
		Params:  params.Clone(),
		current: graph.Root,
	}
	return exec, e.resume(ctx, exec)
}

// Resume continues a paused execution, merging the params produced by the
// external event that caused the pause.
func (e *Executor) Resume(ctx context.Context, exec *Execution, params Params) error {
	if exec.Status != StatusPaused {
		return fmt.Errorf("execution of %s is %s, not paused", exec.Graph.Name, exec.Status)
	}
	for k, v := range params {
		exec.Params[k] = v
	}
	return e.resume(ctx, exec)
}

func (e *Executor) resume(ctx context.Context, exec *Execution) error {
	exec.Status = StatusRunning

	for {
		if exec.steps >= maxSteps {
			return e.fail(exec, fmt.Errorf("graph %s exceeded %d steps", exec.Graph.Name, maxSteps))
		}
		exec.steps++

		node := exec.Graph.Nodes[exec.current]
		handler, ok := e.handlers[node.Type]
		if !ok {
			return e.fail(exec, fmt.Errorf("no handler for node type %q", node.Type))
		}

		result, err := e.runNode(ctx, handler, node, exec.Params)
		if err != nil {
			return e.fail(exec, fmt.Errorf("node %s: %w", node.ID, err))
		}

		for k, v := range result.Params {
			exec.Params[k] = v
		}
		exec.Output = result.Output

		logging.Debug().
			Str("graph", exec.Graph.Name).
			Str("node", node.ID).
			Str("tag", result.Tag).
			Msg("workflow node finished")

		next, ok := node.next(result.Tag)
		if !ok {
			exec.Status = StatusFinished
			observeExecution(exec.Graph.Name, string(StatusFinished))
			e.publish(event.WorkflowFinished, event.WorkflowData{Graph: exec.Graph.Name, Output: exec.Output})
			return nil
		}
		exec.current = next

		// The node already ran to completion; suspend before its successor.
		if result.Pause {
			exec.Status = StatusPaused
			return nil
		}
	}
}

// runNode invokes a handler with bounded retry. Only errors carrying the
// retryable marker are retried; everything else fails the node at once.
func (e *Executor) runNode(ctx context.Context, handler Handler, node *Node, params Params) (*Result, error) {
	var result *Result

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = e.retryInterval

	err := backoff.Retry(func() error {
		r, err := handler.Run(ctx, node, params)
		if err != nil {
			if IsRetryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		result = r
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(policy, e.maxNodeRetries), ctx))

	if err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Executor) fail(exec *Execution, err error) error {
	exec.Status = StatusFailed
	exec.Err = err

	observeExecution(exec.Graph.Name, string(StatusFailed))
	e.publish(event.WorkflowFailed, event.WorkflowData{Graph: exec.Graph.Name, Error: err.Error()})
	logging.Error().Err(err).Str("graph", exec.Graph.Name).Msg("workflow failed")
	return err
}

func (e *Executor) publish(t event.Type, data any) {
	if e.bus != nil {
		e.bus.Publish(event.Event{Type: t, Data: data})
	}
}
