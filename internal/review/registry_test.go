package review

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRegistry_Available(t *testing.T) {
	want := []string{"architect", "junior", "performance", "security"}
	if diff := cmp.Diff(want, NewRegistry().Available()); diff != "" {
		t.Errorf("Available() mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_GetCaseInsensitive(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"security", "SECURITY", " Security "} {
		a, err := reg.Get(name, &fakeClient{})
		if err != nil {
			t.Fatalf("Get(%q) error: %v", name, err)
		}
		if a.Name() != "security" {
			t.Errorf("Get(%q).Name() = %q, want %q", name, a.Name(), "security")
		}
	}
}

func TestRegistry_Unknown(t *testing.T) {
	_, err := NewRegistry().Get("wizard", &fakeClient{})
	var unknown *UnknownAgentError
	if !errors.As(err, &unknown) {
		t.Fatalf("err = %v, want *UnknownAgentError", err)
	}
	if !strings.Contains(err.Error(), "architect, junior, performance, security") {
		t.Errorf("error should list available agents, got: %v", err)
	}
}

func TestRegistry_Describe(t *testing.T) {
	reg := NewRegistry()
	for _, name := range reg.Available() {
		d, ok := reg.Describe(name)
		if !ok || d == "" {
			t.Errorf("Describe(%q) = %q, %v", name, d, ok)
		}
	}
	if _, ok := reg.Describe("wizard"); ok {
		t.Error("Describe of unknown agent should report false")
	}
}
