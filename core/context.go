package core

import "context"

// Context keys for evaluation options
type contextKey string

const (
	suppressHeaderKey contextKey = "suppressHeader"
	historyRunKey     contextKey = "historyRun"
)

// withSuppressHeader sets whether headers should be suppressed in the context
func withSuppressHeader(ctx context.Context) context.Context {
	return context.WithValue(ctx, suppressHeaderKey, true)
}

// shouldSuppressHeader returns whether headers should be suppressed from context
func shouldSuppressHeader(ctx context.Context) bool {
	val := ctx.Value(suppressHeaderKey)
	if val == nil {
		return false // default: show headers
	}
	suppress, ok := val.(bool)
	return ok && suppress
}

// withHistoryRun stores the history store run id for the evaluation in flight
func withHistoryRun(ctx context.Context, runID int64) context.Context {
	return context.WithValue(ctx, historyRunKey, runID)
}

// historyRunFromContext returns the history run id, if one was started
func historyRunFromContext(ctx context.Context) (int64, bool) {
	runID, ok := ctx.Value(historyRunKey).(int64)
	return runID, ok && runID > 0
}
