// ABOUTME: Tests for the request subject context helpers
// ABOUTME: Verifies round-tripping and the anonymous default

package auth

import (
	"context"
	"testing"
)

func TestSubjectContext(t *testing.T) {
	ctx := context.Background()
	if got := SubjectFromContext(ctx); got != "" {
		t.Errorf("SubjectFromContext(empty) = %q, want empty", got)
	}

	ctx = WithSubject(ctx, "claude-desktop")
	if got := SubjectFromContext(ctx); got != "claude-desktop" {
		t.Errorf("SubjectFromContext() = %q, want %q", got, "claude-desktop")
	}
}
