package pipeline

import (
	"fmt"

	"github.com/km-arc/arc/framework/container"
)

// ── Pipe types ────────────────────────────────────────────────────────────────

// Destination receives the passable and produces the final result. Each layer
// of the pipeline sees the rest of the pipeline as its Destination.
type Destination func(passable any) (any, error)

// Handler is the closure form of a pipe: do work, call next (or don't, to
// short-circuit), optionally rewrite the result on the way back out.
type Handler func(passable any, next Destination) (any, error)

// Pipe is the interface form of a pipe.
//
//	// Laravel: public function handle($request, Closure $next)
type Pipe interface {
	Handle(passable any, next Destination) (any, error)
}

// ── Pipeline ──────────────────────────────────────────────────────────────────

// Pipeline sends a passable value through a stack of pipes, innermost last —
// a port of Laravel's Illuminate\Pipeline\Pipeline. Pipes wrap each other
// right to left, so the first pipe given to Through is the outermost layer:
// first to see the passable going in, last to see the result coming out.
//
//	// Laravel: app(Pipeline::class)->send($request)->through($middleware)->then($handler)
//	out, err := pipeline.New(c).
//	    Send(req).
//	    Through(auth, throttle).
//	    Then(func(p any) (any, error) { return handle(p.(*http.Request)) })
//
// A pipe returns without calling next to short-circuit: inner pipes and the
// destination never run, and the pipe's result travels back out through the
// layers already entered.
type Pipeline struct {
	container *container.Container
	passable  any
	pipes     []any
}

// New creates a pipeline resolving string pipes from c.
func New(c *container.Container) *Pipeline {
	return &Pipeline{container: c}
}

// Send sets the value to pass through the pipeline.
func (p *Pipeline) Send(passable any) *Pipeline {
	p.passable = passable
	return p
}

// Through sets the pipe stack, replacing any existing one. Each pipe is a
// Handler closure, a Pipe implementation, or a string abstract resolved from
// the container before the stack runs.
func (p *Pipeline) Through(pipes ...any) *Pipeline {
	p.pipes = pipes
	return p
}

// Pipe appends pipes to the stack.
//
//	// Laravel: $pipeline->pipe($extra)
func (p *Pipeline) Pipe(pipes ...any) *Pipeline {
	p.pipes = append(p.pipes, pipes...)
	return p
}

// Then composes the onion and runs it: destination at the core, pipes wrapped
// around it right to left. String pipes are resolved from the container once
// here, before any layer runs, so a broken binding fails the whole send
// instead of surfacing mid-flight.
func (p *Pipeline) Then(destination Destination) (any, error) {
	pipes := make([]any, len(p.pipes))
	for i, pipe := range p.pipes {
		abstract, ok := pipe.(string)
		if !ok {
			pipes[i] = pipe
			continue
		}
		resolved, err := p.container.Make(abstract)
		if err != nil {
			return nil, err
		}
		typed, ok := resolved.(Pipe)
		if !ok {
			return nil, fmt.Errorf("pipeline: [%s] resolved to %T, which does not implement Pipe", abstract, resolved)
		}
		pipes[i] = typed
	}

	stack := destination
	for i := len(pipes) - 1; i >= 0; i-- {
		stack = carry(pipes[i], stack)
	}
	return stack(p.passable)
}

// ThenReturn runs the pipeline with an identity destination, handing back
// whatever the innermost pipe passes on.
//
//	// Laravel: ->thenReturn()
func (p *Pipeline) ThenReturn() (any, error) {
	return p.Then(func(passable any) (any, error) {
		return passable, nil
	})
}

// carry wraps one pipe around the rest of the stack.
func carry(pipe any, next Destination) Destination {
	return func(passable any) (any, error) {
		switch v := pipe.(type) {
		case Handler:
			return v(passable, next)
		case func(any, Destination) (any, error):
			return v(passable, next)
		case Pipe:
			return v.Handle(passable, next)
		default:
			return nil, fmt.Errorf("pipeline: unsupported pipe type %T", pipe)
		}
	}
}
