package settings

import (
	"bytes"
	"testing"
)

func TestExistsFalseUntilAllFilesPresent(t *testing.T) {
	d := New(t.TempDir())
	if d.Exists() {
		t.Fatal("expected Exists to be false for an empty directory")
	}
	if err := d.EnsureDir(); err != nil {
		t.Fatal(err)
	}
	if err := d.WriteKey([]byte("key")); err != nil {
		t.Fatal(err)
	}
	if d.Exists() {
		t.Fatal("expected Exists to still be false without properties")
	}
	if err := d.WriteProperties([]byte("key_len\t256\n")); err != nil {
		t.Fatal(err)
	}
	if !d.Exists() {
		t.Fatal("expected Exists to be true once key and properties are present")
	}
}

func TestReadOrInitRatchetKeySamplesWhenMissing(t *testing.T) {
	d := New(t.TempDir())
	if err := d.EnsureDir(); err != nil {
		t.Fatal(err)
	}
	sampled := []byte("sampled-key-material-000")
	key, err := d.ReadOrInitRatchetKey(func(n int) ([]byte, error) { return sampled, nil }, len(sampled))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(key, sampled) {
		t.Fatalf("got %q", key)
	}

	if err := d.WriteRatchetKey(sampled); err != nil {
		t.Fatal(err)
	}
	again, err := d.ReadOrInitRatchetKey(func(n int) ([]byte, error) { return nil, nil }, len(sampled))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(again, sampled) {
		t.Fatalf("expected persisted key to be read back, got %q", again)
	}
}
