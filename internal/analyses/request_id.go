package analyses

import "context"

type requestIDKey struct{}

// WithRequestID attaches a request ID so pipeline logs can be correlated.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// backgroundWithRequestID detaches from the request's cancellation but keeps its ID,
// for cleanup that must run after the client has gone.
func backgroundWithRequestID(ctx context.Context) context.Context {
	return WithRequestID(context.Background(), requestIDFromContext(ctx))
}
