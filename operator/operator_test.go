package operator

import (
	"bytes"
	"testing"

	"github.com/younisk/forward-secure-cloud-storage/cloud"
	"github.com/younisk/forward-secure-cloud-storage/idprovider"
	"github.com/younisk/forward-secure-cloud-storage/pkw"
)

func newTestOperator(t *testing.T) *Operator {
	t.Helper()
	ids, err := idprovider.NewFlatProvider(128)
	if err != nil {
		t.Fatal(err)
	}
	keys, err := pkw.NewFresh(128, 128)
	if err != nil {
		t.Fatal(err)
	}
	return New(ids, keys, cloud.NewMemoryCommunicator())
}

// TestOperatorScenario is scenario S6 from spec §8.
func TestOperatorScenario(t *testing.T) {
	op := newTestOperator(t)

	id1, err := op.Put("file1", []byte("content one"))
	if err != nil {
		t.Fatal(err)
	}
	id2, err := op.Put("file2", []byte("content two"))
	if err != nil {
		t.Fatal(err)
	}
	id3, err := op.Put("file3", []byte("content three"))
	if err != nil {
		t.Fatal(err)
	}

	if err := op.Shred(id2); err != nil {
		t.Fatal(err)
	}

	fresh, err := pkw.NewFresh(128, 128)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := op.RotateKeys(fresh); err != nil {
		t.Fatal(err)
	}

	n, err := op.Clean()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected 2 orphaned objects cleaned, got %d", n)
	}

	got1, err := op.Get(id1)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got1, []byte("content one")) {
		t.Fatalf("got %q", got1)
	}

	got3, err := op.Get(id3)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got3, []byte("content three")) {
		t.Fatalf("got %q", got3)
	}

	if _, err := op.Get(id2); err == nil {
		t.Fatal("expected shredded id2 to no longer be readable")
	}
}

func TestOperatorPutOverwriteShredsOldID(t *testing.T) {
	op := newTestOperator(t)

	first, err := op.Put("a", []byte("v1"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := op.Put("a", []byte("v2"))
	if err != nil {
		t.Fatal(err)
	}
	if first.Equal(second) {
		t.Fatal("expected overwrite to allocate a fresh id")
	}
	if _, err := op.Get(first); err == nil {
		t.Fatal("expected old id to be shredded")
	}
	got, err := op.Get(second)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("v2")) {
		t.Fatalf("got %q", got)
	}
}
