package interceptors

import (
	"context"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"sessionguard/internal/security"
)

func bearerContext(token string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+token))
}

func identityHandler(ctx context.Context, req interface{}) (interface{}, error) {
	subject, _ := GetSubject(ctx)
	return subject, nil
}

func TestAuthUnary(t *testing.T) {
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	valid, _, err := tokens.Issue("ops@example.com", security.RoleOperator)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	publicMethods := map[string]bool{"/test.Service/Public": true}

	testCases := []struct {
		name    string
		ctx     context.Context
		method  string
		want    string
		wantErr codes.Code
	}{
		{"public without token", context.Background(), "/test.Service/Public", "", codes.OK},
		{"public with bad token", bearerContext("garbage"), "/test.Service/Public", "", codes.OK},
		{"public with token", bearerContext(valid), "/test.Service/Public", "ops@example.com", codes.OK},
		{"protected without token", context.Background(), "/test.Service/Protected", "", codes.Unauthenticated},
		{"protected with bad token", bearerContext("garbage"), "/test.Service/Protected", "", codes.Unauthenticated},
		{"protected with token", bearerContext(valid), "/test.Service/Protected", "ops@example.com", codes.OK},
	}
	interceptor := AuthUnary(tokens, publicMethods)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := interceptor(tc.ctx, "request", &grpc.UnaryServerInfo{FullMethod: tc.method}, identityHandler)
			if status.Code(err) != tc.wantErr {
				t.Fatalf("code = %v, want %v (err %v)", status.Code(err), tc.wantErr, err)
			}
			if err == nil && resp != tc.want {
				t.Errorf("subject = %v, want %q", resp, tc.want)
			}
		})
	}
}

func TestAuthUnary_Disabled(t *testing.T) {
	interceptor := AuthUnary(nil, nil)
	var roles []string
	_, err := interceptor(context.Background(), "request", &grpc.UnaryServerInfo{FullMethod: "/test.Service/Protected"},
		func(ctx context.Context, req interface{}) (interface{}, error) {
			roles = GetRoles(ctx)
			return identityHandler(ctx, req)
		})
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if len(roles) != 2 {
		t.Errorf("dev roles = %v, want operator and service", roles)
	}
}

type fakeServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (f *fakeServerStream) Context() context.Context { return f.ctx }

func TestAuthStream(t *testing.T) {
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	valid, _, err := tokens.Issue("ops@example.com", security.RoleOperator)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	interceptor := AuthStream(tokens, nil)
	info := &grpc.StreamServerInfo{FullMethod: "/test.Service/Watch", IsServerStream: true}

	var got string
	handler := func(srv interface{}, ss grpc.ServerStream) error {
		got, _ = GetSubject(ss.Context())
		return nil
	}
	if err := interceptor(nil, &fakeServerStream{ctx: bearerContext(valid)}, info, handler); err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if got != "ops@example.com" {
		t.Errorf("stream subject = %q, want ops@example.com", got)
	}

	err = interceptor(nil, &fakeServerStream{ctx: context.Background()}, info, handler)
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("missing token code = %v, want Unauthenticated", status.Code(err))
	}
}

func TestExtractBearer(t *testing.T) {
	testCases := []struct {
		name   string
		header string
		want   string
	}{
		{"valid", "Bearer token123", "token123"},
		{"case insensitive", "bearer token123", "token123"},
		{"invalid prefix", "Basic token123", ""},
		{"whitespace", "  Bearer   token123  ", "token123"},
		{"too short", "Bear", ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", tc.header))
			if got := extractBearer(ctx); got != tc.want {
				t.Errorf("token = %q, want %q", got, tc.want)
			}
		})
	}
	if got := extractBearer(context.Background()); got != "" {
		t.Errorf("token without metadata = %q, want empty", got)
	}
}
