package tenancy

import (
	"context"
	"testing"
)

func TestWithSessionAndSessionFromContext(t *testing.T) {
	ctx := WithSession(context.Background(), Session{UserID: "user-1", AccessToken: "tok", TargetGymID: "gym-9"})

	got, ok := SessionFromContext(ctx)
	if !ok {
		t.Fatalf("expected session to be present")
	}
	if got.UserID != "user-1" || got.TargetGymID != "gym-9" {
		t.Fatalf("unexpected session %#v", got)
	}
}

func TestSessionFromContext_EmptyOrMissing(t *testing.T) {
	ctx := context.Background()
	if _, ok := SessionFromContext(ctx); ok {
		t.Fatalf("expected missing session to return false")
	}

	ctx = context.WithValue(ctx, sessionKey, "not-a-session")
	if _, ok := SessionFromContext(ctx); ok {
		t.Fatalf("expected non-session value to return false")
	}

	ctx = WithSession(context.Background(), Session{UserID: "user-1"})
	if _, ok := SessionFromContext(ctx); ok {
		t.Fatalf("expected session without token to return false")
	}
}
