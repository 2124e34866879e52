package operator

import (
	"bytes"
	"testing"

	"github.com/younisk/forward-secure-cloud-storage/idprovider"
	"github.com/younisk/forward-secure-cloud-storage/internal/tag"
)

func TestLookupTableRoundTrip(t *testing.T) {
	tg, err := tag.FromInt(5, 16)
	if err != nil {
		t.Fatal(err)
	}
	table := map[string]idprovider.Id{
		"a/b.txt": {LocalTag: tg, RemoteID: "abc123"},
	}
	key, err := NewRatchetKey(32)
	if err != nil {
		t.Fatal(err)
	}
	blob, err := EncodeLookupTable(table, 16, key)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeLookupTable(blob, 16, key)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := decoded["a/b.txt"]
	if !ok {
		t.Fatal("expected entry to round-trip")
	}
	if got.RemoteID != "abc123" || !got.LocalTag.Equal(tg) {
		t.Fatalf("got %+v", got)
	}

	next, err := RatchetNextKey(key)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(next, key) {
		t.Fatal("ratcheted key must differ from the previous one")
	}
	if _, err := DecodeLookupTable(blob, 16, next); err == nil {
		t.Fatal("expected decode under the ratcheted key to fail")
	}
}

func TestPropertiesRoundTrip(t *testing.T) {
	data := EncodeProperties(256, 128)
	keyLen, tagLen, err := DecodeProperties(data)
	if err != nil {
		t.Fatal(err)
	}
	if keyLen != 256 || tagLen != 128 {
		t.Fatalf("got keyLen=%d tagLen=%d", keyLen, tagLen)
	}
}
