package core

import (
	"errors"
	"reflect"
	"testing"
)

func TestNormalizeRoomName(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"lowercases", "Random", "random", false},
		{"spaces become hyphens", "  Study   Group ", "study-group", false},
		{"strips invalid chars", "c++ club!", "c-club", false},
		{"too short raw", "ab", "", true},
		{"too long raw", "this-name-is-way-too-long", "", true},
		{"too short after strip", "$$$", "", true},
		{"three chars ok", "abc", "abc", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeRoomName(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("expected validation error, got %v (slug %q)", err, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("want %q, got %q", tt.want, got)
			}
		})
	}
}

func TestWithDefaultRoom(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"empty list falls back", nil, []string{"general"}},
		{"missing general is prepended", []string{"random", "homework"}, []string{"general", "random", "homework"}},
		{"server order kept", []string{"alpha", "general", "zeta"}, []string{"alpha", "general", "zeta"}},
		{"duplicates dropped", []string{"general", "random", "random"}, []string{"general", "random"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WithDefaultRoom(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("want %v, got %v", tt.want, got)
			}
		})
	}
}

func TestErrorMatchesByCode(t *testing.T) {
	err := AuthError("Invalid username or password.")
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("expected auth error to match sentinel")
	}
	if errors.Is(err, ErrSessionExpired) {
		t.Fatalf("auth error must not match session expired")
	}

	cause := errors.New("connection refused")
	netErr := NetworkError("get messages", cause)
	if !errors.Is(netErr, ErrNetwork) || !errors.Is(netErr, cause) {
		t.Fatalf("network error should match sentinel and cause: %v", netErr)
	}
	if got := SessionExpiredError("").Error(); got == "" {
		t.Fatalf("expected default session expired message")
	}
}

func TestValidRoomID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"general", true},
		{"study-group", true},
		{"abc", true},
		{"ab", false},
		{"sixteen-chars-xx", false},
		{"foo bar!!", false},
		{"Random", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidRoomID(tt.id); got != tt.want {
			t.Fatalf("ValidRoomID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}
