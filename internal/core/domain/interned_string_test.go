package domain_test

import (
	"testing"

	"go.trai.ch/keel/internal/core/domain"
)

func TestInternedStringRoundTrip(t *testing.T) {
	is := domain.NewInternedString(":lib:core")
	if got := is.String(); got != ":lib:core" {
		t.Fatalf("String() = %q, want %q", got, ":lib:core")
	}
}

func TestInternedStringCanonicalizes(t *testing.T) {
	a := domain.NewInternedString("compile")
	b := domain.NewInternedString("com" + "pile")
	if a != b {
		t.Fatal("equal strings must intern to the same handle")
	}
	if a == domain.NewInternedString("package") {
		t.Fatal("distinct strings must not share a handle")
	}
}

func TestInternedStringZeroValue(t *testing.T) {
	var is domain.InternedString
	if got := is.String(); got != "" {
		t.Fatalf("zero value String() = %q, want empty", got)
	}
}
