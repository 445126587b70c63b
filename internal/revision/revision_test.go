package revision

import (
	"strings"
	"testing"
	"time"
)

func TestNextTokensPairwiseDistinct(t *testing.T) {
	var generator Generator
	seen := make(map[Token]struct{})
	for i := 0; i < 500; i++ {
		token, err := generator.Next()
		if err != nil {
			t.Fatalf("next token: %v", err)
		}
		if token.IsZero() {
			t.Fatal("expected non-zero token")
		}
		if _, ok := seen[token]; ok {
			t.Fatalf("duplicate token: %s", token)
		}
		seen[token] = struct{}{}
	}
}

func TestNextDistinctWithinSameMillisecond(t *testing.T) {
	frozen := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	generator := Generator{Clock: func() time.Time { return frozen }}

	first, err := generator.Next()
	if err != nil {
		t.Fatalf("next token: %v", err)
	}
	second, err := generator.Next()
	if err != nil {
		t.Fatalf("next token: %v", err)
	}
	if Equal(first, second) {
		t.Fatalf("expected distinct tokens within one millisecond, got %s twice", first)
	}
	prefix := "1785585600000-"
	if !strings.HasPrefix(string(first), prefix) || !strings.HasPrefix(string(second), prefix) {
		t.Fatalf("expected frozen timestamp prefix %s, got %s and %s", prefix, first, second)
	}
}

func TestEqual(t *testing.T) {
	if !Equal(Token("a"), Token("a")) {
		t.Fatal("expected equal tokens to match")
	}
	if Equal(Token("a"), Token("b")) {
		t.Fatal("expected different tokens not to match")
	}
	if !Token("").IsZero() {
		t.Fatal("expected empty token to be zero")
	}
}

func TestNextRandFailure(t *testing.T) {
	generator := Generator{Rand: func([]byte) (int, error) {
		return 0, errRandExhausted
	}}
	if _, err := generator.Next(); err == nil {
		t.Fatal("expected error from failing random source")
	}
}

var errRandExhausted = &randError{}

type randError struct{}

func (*randError) Error() string { return "rng exhausted" }
