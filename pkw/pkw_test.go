package pkw

import (
	"bytes"
	"errors"
	"testing"

	"github.com/younisk/forward-secure-cloud-storage/internal/tag"
)

func mustTag(t *testing.T, bits ...bool) tag.Tag {
	t.Helper()
	tg, err := tag.New(bits...)
	if err != nil {
		t.Fatalf("tag.New: %v", err)
	}
	return tg
}

// TestWrapUnwrapRoundTrip is scenario S1 from spec §8.
func TestWrapUnwrapRoundTrip(t *testing.T) {
	p, err := NewFresh(128, 128)
	if err != nil {
		t.Fatal(err)
	}
	tg, err := tag.FromInt(1, 128)
	if err != nil {
		t.Fatal(err)
	}
	wrapped, err := p.Wrap(tg, []byte("headerinfo"), []byte("mykey000000000012"))
	if err != nil {
		t.Fatal(err)
	}
	got, err := p.Unwrap(tg, []byte("headerinfo"), wrapped)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("mykey000000000012")) {
		t.Fatalf("got %q", got)
	}
}

// TestWrapAfterPuncFails is scenario S2 from spec §8.
func TestWrapAfterPuncFails(t *testing.T) {
	p, err := NewFresh(128, 128)
	if err != nil {
		t.Fatal(err)
	}
	tg, err := tag.FromInt(1, 128)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Punc(tg); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Wrap(tg, []byte("h"), []byte("dek")); !errors.Is(err, ErrTagIllegal) {
		t.Fatalf("expected ErrTagIllegal, got %v", err)
	}
	if _, err := p.Unwrap(tg, []byte("h"), []byte{}); !errors.Is(err, ErrTagIllegal) {
		t.Fatalf("expected ErrTagIllegal, got %v", err)
	}
}

func TestUnwrapTamperedCiphertextFailsAuth(t *testing.T) {
	p, err := NewFresh(128, 128)
	if err != nil {
		t.Fatal(err)
	}
	tg := mustTag(t, true, false, true)
	wrapped, err := p.Wrap(tg, []byte("hdr"), []byte("0123456789abcdef"))
	if err != nil {
		t.Fatal(err)
	}
	tampered := append([]byte{}, wrapped...)
	tampered[0] ^= 0xff
	if _, err := p.Unwrap(tg, []byte("hdr"), tampered); !errors.Is(err, ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
}

func TestUnwrapWrongHeaderFailsAuth(t *testing.T) {
	p, err := NewFresh(128, 128)
	if err != nil {
		t.Fatal(err)
	}
	tg := mustTag(t, true, false, true)
	wrapped, err := p.Wrap(tg, []byte("hdr"), []byte("0123456789abcdef"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Unwrap(tg, []byte("other"), wrapped); !errors.Is(err, ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
}

func TestPasswordSealRoundTrip(t *testing.T) {
	p, err := NewFresh(128, 64)
	if err != nil {
		t.Fatal(err)
	}
	tg := mustTag(t, true, false, true)
	wrapped, err := p.Wrap(tg, []byte("hdr"), []byte("0123456789abcdef"))
	if err != nil {
		t.Fatal(err)
	}

	sealed, err := p.SerializeAndEncryptKey([]byte("correct horse"))
	if err != nil {
		t.Fatal(err)
	}

	restored, err := FromSerializedAndEncrypted(sealed, []byte("correct horse"))
	if err != nil {
		t.Fatal(err)
	}
	dek, err := restored.Unwrap(tg, []byte("hdr"), wrapped)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dek, []byte("0123456789abcdef")) {
		t.Fatalf("got %q", dek)
	}

	if _, err := FromSerializedAndEncrypted(sealed, []byte("wrong password")); !errors.Is(err, ErrImport) {
		t.Fatalf("expected ErrImport, got %v", err)
	}
}
