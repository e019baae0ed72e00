package entryhash

import (
	"strings"
	"testing"
)

func TestEncodeDeterministic(t *testing.T) {
	codec := NewCodec("site-secret")

	first := codec.Encode(42)
	second := codec.Encode(42)
	if first == "" {
		t.Fatal("expected non-empty hash")
	}
	if first != second {
		t.Fatalf("expected deterministic encoding, got %q and %q", first, second)
	}
}

func TestRoundTrip(t *testing.T) {
	codec := NewCodec("site-secret")

	for _, id := range []int64{1, 7, 42, 999999, 1<<40 + 3} {
		hash := codec.Encode(id)
		if got := codec.Decode(hash); got != id {
			t.Fatalf("round trip for %d returned %d", id, got)
		}
	}
}

func TestEncodeRejectsNonPositive(t *testing.T) {
	codec := NewCodec("site-secret")

	if codec.Encode(0) != "" {
		t.Fatal("expected empty hash for zero id")
	}
	if codec.Encode(-5) != "" {
		t.Fatal("expected empty hash for negative id")
	}
}

func TestDecodeRejectsTampering(t *testing.T) {
	codec := NewCodec("site-secret")
	hash := codec.Encode(42)

	// Flip a character inside the signature portion.
	tampered := []byte(hash)
	last := len(tampered) - 3
	if tampered[last] == 'A' {
		tampered[last] = 'B'
	} else {
		tampered[last] = 'A'
	}

	if got := codec.Decode(string(tampered)); got != 0 {
		t.Fatalf("expected tampered hash to decode to 0, got %d", got)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	codec := NewCodec("site-secret")

	cases := []string{
		"",
		"not base64 at all!!!",
		"YWJjZGVm", // valid base64, no separator
		strings.Repeat("A", 500),
	}
	for _, c := range cases {
		if got := codec.Decode(c); got != 0 {
			t.Fatalf("expected %q to decode to 0, got %d", c, got)
		}
	}
}

func TestDecodeRejectsForeignSecret(t *testing.T) {
	ours := NewCodec("site-secret")
	theirs := NewCodec("other-secret")

	hash := theirs.Encode(42)
	if got := ours.Decode(hash); got != 0 {
		t.Fatalf("expected foreign-secret hash to decode to 0, got %d", got)
	}
}
