// Package pagectx carries the host page's location and request id through a context.
package pagectx

import "context"

type contextKey string

const (
	locationKey  contextKey = "location"
	requestIDKey contextKey = "request_id"
)

// WithLocation records the address of the page an event originates from.
func WithLocation(ctx context.Context, href string) context.Context {
	return context.WithValue(ctx, locationKey, href)
}

// WithRequestID attaches a request id used to correlate log lines.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// Location returns the page address stored in ctx and whether one was set.
func Location(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	href, ok := ctx.Value(locationKey).(string)
	return href, ok
}

func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
