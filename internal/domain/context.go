package domain

import "context"

type contextKey string

const accountIDKey contextKey = "account_id"

// WithAccountID returns a context carrying the authenticated account id.
// Every request-scoped operation takes its account context from here;
// there is no process-wide session state and no default account.
func WithAccountID(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, accountIDKey, accountID)
}

// AccountIDFromContext extracts the authenticated account id.
// ok is false when no account context was established.
func AccountIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(accountIDKey).(string)
	return id, ok && id != ""
}
