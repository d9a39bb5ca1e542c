package module

import "context"

// Handler runs a fired command.
type Handler interface {
	Handle(ctx context.Context, inv *Invocation) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, inv *Invocation) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, inv *Invocation) error {
	return f(ctx, inv)
}

// Middleware wraps a Handler with cross-cutting behaviour.
type Middleware func(next Handler) Handler

// Chain wraps h so that the first middleware is the outermost.
func Chain(h Handler, middlewares ...Middleware) Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
