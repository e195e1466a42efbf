package logging

import "context"

type contextKey string

const (
	hookKey      contextKey = "hook"
	componentKey contextKey = "component"
)

// WithHook returns a context carrying the hook name for log attribution.
func WithHook(ctx context.Context, hook string) context.Context {
	return context.WithValue(ctx, hookKey, hook)
}

// WithComponent returns a context carrying a component label.
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}
