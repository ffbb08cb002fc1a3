package handler

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	guardv1 "sessionguard/api/guard/v1"
	"sessionguard/internal/platform/clock"
	"sessionguard/internal/security"
	"sessionguard/internal/server/interceptors"
	"sessionguard/internal/session/tracker"
	"sessionguard/internal/store/memory"
)

func serviceCtx() context.Context {
	return interceptors.WithIdentity(context.Background(), "login-gateway", []string{security.RoleService})
}

func newTestServer() (*Server, *memory.Sessions, *clock.Fake) {
	clk := clock.NewFake(time.Date(2024, 9, 10, 12, 0, 0, 0, time.UTC))
	repo := memory.NewSessions()
	return NewServer(tracker.New(repo, tracker.WithClock(clk))), repo, clk
}

func TestSessionLifecycle(t *testing.T) {
	srv, _, clk := newTestServer()
	ctx := serviceCtx()

	open, err := srv.OpenSession(ctx, &guardv1.OpenSessionRequest{UserID: "u1", OriginAddress: "10.0.0.1", ClientDescriptor: "Firefox"})
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	clk.Advance(7 * time.Minute)
	hb, err := srv.Heartbeat(ctx, &guardv1.HeartbeatRequest{SessionID: open.SessionID})
	if err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
	if hb.DurationMinutes != 7 {
		t.Errorf("heartbeat duration = %d, want 7", hb.DurationMinutes)
	}

	got, err := srv.GetSession(ctx, &guardv1.GetSessionRequest{SessionID: open.SessionID})
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if !got.Session.Active || !got.Session.Online || got.Session.OriginAddress != "10.0.0.1" {
		t.Errorf("session = %+v, want active, online, origin 10.0.0.1", got.Session)
	}

	clk.Advance(3 * time.Minute)
	closed, err := srv.CloseSession(ctx, &guardv1.CloseSessionRequest{SessionID: open.SessionID})
	if err != nil {
		t.Fatalf("CloseSession: %v", err)
	}
	if closed.DurationMinutes != 10 {
		t.Errorf("close duration = %d, want 10", closed.DurationMinutes)
	}
	got, err = srv.GetSession(ctx, &guardv1.GetSessionRequest{SessionID: open.SessionID})
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Session.Active || got.Session.Online || got.Session.EndedAt == nil {
		t.Errorf("closed session = %+v", got.Session)
	}
}

func TestOpenSession_OriginFallback(t *testing.T) {
	srv, repo, _ := newTestServer()
	ctx := peer.NewContext(serviceCtx(), &peer.Peer{Addr: &net.TCPAddr{IP: net.ParseIP("192.0.2.10"), Port: 4000}})
	ctx = metadata.NewIncomingContext(ctx, metadata.Pairs("x-forwarded-for", "203.0.113.5"))

	open, err := srv.OpenSession(ctx, &guardv1.OpenSessionRequest{UserID: "u1"})
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	s, _ := repo.GetByID(context.Background(), open.SessionID)
	if s.OriginAddress != "203.0.113.5" {
		t.Errorf("origin = %q, want forwarded address", s.OriginAddress)
	}
}

func TestSessionErrors(t *testing.T) {
	srv, repo, _ := newTestServer()
	ctx := serviceCtx()

	testCases := []struct {
		name string
		call func() error
		want codes.Code
	}{
		{"missing user", func() error {
			_, err := srv.OpenSession(ctx, &guardv1.OpenSessionRequest{})
			return err
		}, codes.InvalidArgument},
		{"missing session id", func() error {
			_, err := srv.Heartbeat(ctx, &guardv1.HeartbeatRequest{})
			return err
		}, codes.InvalidArgument},
		{"unknown session", func() error {
			_, err := srv.CloseSession(ctx, &guardv1.CloseSessionRequest{SessionID: "nope"})
			return err
		}, codes.NotFound},
		{"unknown get", func() error {
			_, err := srv.GetSession(ctx, &guardv1.GetSessionRequest{SessionID: "nope"})
			return err
		}, codes.NotFound},
		{"operator only", func() error {
			opCtx := interceptors.WithIdentity(context.Background(), "ops", []string{security.RoleOperator})
			_, err := srv.OpenSession(opCtx, &guardv1.OpenSessionRequest{UserID: "u1"})
			return err
		}, codes.PermissionDenied},
		{"unauthenticated", func() error {
			_, err := srv.OpenSession(context.Background(), &guardv1.OpenSessionRequest{UserID: "u1"})
			return err
		}, codes.Unauthenticated},
		{"store failure", func() error {
			repo.Err = errors.New("db down")
			defer func() { repo.Err = nil }()
			_, err := srv.Heartbeat(ctx, &guardv1.HeartbeatRequest{SessionID: "s1"})
			return err
		}, codes.Internal},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := status.Code(tc.call()); got != tc.want {
				t.Errorf("code = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNilTracker(t *testing.T) {
	srv := NewServer(nil)
	_, err := srv.OpenSession(serviceCtx(), &guardv1.OpenSessionRequest{UserID: "u1"})
	if status.Code(err) != codes.Unimplemented {
		t.Errorf("code = %v, want Unimplemented", status.Code(err))
	}
}
