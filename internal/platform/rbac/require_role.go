// Package rbac checks the caller's role on gRPC handlers.
package rbac

import (
	"context"
	"slices"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"sessionguard/internal/server/interceptors"
)

// RequireRole ensures the caller is authenticated and holds role.
// Returns the caller's subject on success; returns a gRPC error (Unauthenticated or PermissionDenied) on failure.
func RequireRole(ctx context.Context, role string) (string, error) {
	subject, ok := interceptors.GetSubject(ctx)
	if !ok || subject == "" {
		return "", status.Error(codes.Unauthenticated, "authentication required")
	}
	if !slices.Contains(interceptors.GetRoles(ctx), role) {
		return "", status.Errorf(codes.PermissionDenied, "%s role required", role)
	}
	return subject, nil
}
