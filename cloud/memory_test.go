package cloud

import (
	"bytes"
	"testing"

	"github.com/younisk/forward-secure-cloud-storage/idprovider"
	"github.com/younisk/forward-secure-cloud-storage/internal/tag"
)

func mustID(t *testing.T, remote string) idprovider.Id {
	t.Helper()
	tg, err := tag.FromInt(1, 16)
	if err != nil {
		t.Fatal(err)
	}
	return idprovider.Id{LocalTag: tg, RemoteID: remote}
}

func TestMemoryCommunicatorWriteRead(t *testing.T) {
	c := NewMemoryCommunicator()
	id := mustID(t, "abc")
	if err := c.WriteToCloud(id, []byte("wrapped"), []byte("cipher"), []byte("nonce12345678")); err != nil {
		t.Fatal(err)
	}
	got, err := c.ReadFromCloud(c.IDToCloudName(id))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("nonce12345678cipher")) {
		t.Fatalf("got %q", got)
	}
	header, err := c.ReadFromCloud(c.IDToCloudHeader(id))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(header, []byte("wrapped")) {
		t.Fatalf("got %q", header)
	}
}

func TestMemoryCommunicatorCleanStorage(t *testing.T) {
	c := NewMemoryCommunicator()
	keep := mustID(t, "keep")
	orphan := mustID(t, "orphan")
	if err := c.WriteToCloud(keep, []byte("w"), []byte("c"), []byte("n")); err != nil {
		t.Fatal(err)
	}
	if err := c.WriteToCloud(orphan, []byte("w"), []byte("c"), []byte("n")); err != nil {
		t.Fatal(err)
	}
	if err := c.WriteLookupTableToCloud([]byte("lookup")); err != nil {
		t.Fatal(err)
	}

	n, err := c.CleanStorage([]idprovider.Id{keep})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected 2 orphans removed, got %d", n)
	}
	if _, err := c.ReadFromCloud(c.IDToCloudName(orphan)); err == nil {
		t.Fatal("expected orphan removed")
	}
	if _, err := c.ReadFromCloud(c.IDToCloudName(keep)); err != nil {
		t.Fatal("expected keep to survive clean")
	}
	if _, err := c.ReadLookupTableFromCloud(); err != nil {
		t.Fatal("expected lookup table to survive clean")
	}
}

func TestMemoryCommunicatorDeleteQueueFlushesPastThreshold(t *testing.T) {
	c := NewMemoryCommunicator()
	for i := 0; i < 11; i++ {
		id := mustID(t, "obj")
		c.EnqueueDelete(id)
	}
	if len(c.queue) <= maxDeleteQueueSize {
		t.Skip("threshold not exceeded by this fixture")
	}
	if err := c.HandleDeleteQueue(); err != nil {
		t.Fatal(err)
	}
	if len(c.queue) != 0 {
		t.Fatalf("expected queue drained, got %d", len(c.queue))
	}
}
