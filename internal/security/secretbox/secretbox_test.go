package secretbox

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"
)

func testKey(seed byte) []byte {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = seed + byte(i)
	}
	return raw
}

func TestSealOpen_RoundTrip(t *testing.T) {
	t.Parallel()
	box, err := New(base64.StdEncoding.EncodeToString(testKey(1)))
	if err != nil {
		t.Fatalf("New err: %v", err)
	}

	msg := "JBSWY3DPEHPK3PXP ✓ secreto"
	ct, err := box.Seal(msg)
	if err != nil {
		t.Fatalf("Seal err: %v", err)
	}
	pt, err := box.Open(ct)
	if err != nil {
		t.Fatalf("Open err: %v", err)
	}
	if pt != msg {
		t.Fatalf("plaintext mismatch: got %q want %q", pt, msg)
	}
}

func TestOpen_DetectsTamper(t *testing.T) {
	t.Parallel()
	box, err := NewFromBytes(testKey(200))
	if err != nil {
		t.Fatal(err)
	}

	ct, err := box.Seal("top secret")
	if err != nil {
		t.Fatalf("Seal err: %v", err)
	}
	parts := strings.Split(ct, "|")
	if len(parts) != 2 {
		t.Fatalf("unexpected ct format")
	}
	bs, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatal(err)
	}
	bs[0] ^= 0x01 // flip
	corrupted := parts[0] + "|" + base64.StdEncoding.EncodeToString(bs)

	if _, err := box.Open(corrupted); err == nil {
		t.Fatalf("expected auth error, got nil")
	}
}

func TestOpen_WrongKey(t *testing.T) {
	t.Parallel()
	a, _ := NewFromBytes(testKey(1))
	b, _ := NewFromBytes(testKey(2))
	ct, err := a.Seal("x")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Open(ct); err == nil {
		t.Fatalf("expected error opening with a different key")
	}
}

func TestOpen_Malformed(t *testing.T) {
	t.Parallel()
	box, _ := NewFromBytes(testKey(3))
	if _, err := box.Open("no-separator"); err != ErrMalformed {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestParseKey_Formats(t *testing.T) {
	t.Parallel()
	raw := testKey(9)
	for name, in := range map[string]string{
		"base64":     base64.StdEncoding.EncodeToString(raw),
		"base64-raw": base64.RawStdEncoding.EncodeToString(raw),
		"hex":        hex.EncodeToString(raw),
		"raw":        "0123456789abcdef0123456789abcdef",
	} {
		if _, err := ParseKey(in); err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
	}
	if _, err := ParseKey(""); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if _, err := ParseKey("short"); err == nil {
		t.Fatalf("expected error for short key")
	}
}
