package domain

import (
	"testing"
	"time"
)

func TestRefreshTokenExpiredAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	token := RefreshToken{ExpiresAt: now}

	if !token.ExpiredAt(now) {
		t.Fatal("a token expiring exactly now is expired")
	}
	if !token.ExpiredAt(now.Add(time.Second)) {
		t.Fatal("a token past its deadline is expired")
	}
	if token.ExpiredAt(now.Add(-time.Second)) {
		t.Fatal("a token before its deadline is not expired")
	}
}

func TestRoleFromAlias(t *testing.T) {
	cases := map[string]Role{
		"admin":   RoleAdmin,
		"mod":     RoleModerator,
		"default": RoleUser,
		"":        RoleUser,
		"ADMIN":   RoleUser,
	}
	for alias, want := range cases {
		if got := RoleFromAlias(alias); got != want {
			t.Fatalf("alias %q mapped to %s, want %s", alias, got, want)
		}
	}
}
