package interceptors

import "context"

type contextKey struct{ name string }

var (
	subjectKey = contextKey{"subject"}
	rolesKey   = contextKey{"roles"}
)

// WithIdentity returns a context carrying the authenticated subject and its roles.
// Handlers read them via GetSubject and GetRoles.
func WithIdentity(ctx context.Context, subject string, roles []string) context.Context {
	ctx = context.WithValue(ctx, subjectKey, subject)
	ctx = context.WithValue(ctx, rolesKey, roles)
	return ctx
}

// GetSubject returns the subject from context and true if set; otherwise "", false.
func GetSubject(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(subjectKey).(string)
	return v, ok
}

// GetRoles returns the roles from context, or nil.
func GetRoles(ctx context.Context) []string {
	v, _ := ctx.Value(rolesKey).([]string)
	return v
}
