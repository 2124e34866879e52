package idprovider

import "testing"

// TestFlatDirProviderAvoidsCrossDirCollision guards against the collision
// the original per-directory-only counter allowed: two different
// directories' first files must not be assigned the same local tag, since
// that tag is the actual PPRF key-derivation input.
func TestFlatDirProviderAvoidsCrossDirCollision(t *testing.T) {
	p, err := NewFlatDirProvider(32)
	if err != nil {
		t.Fatal(err)
	}
	a, err := p.GetID("dirA/file1")
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.GetID("dirB/file1")
	if err != nil {
		t.Fatal(err)
	}
	if a.LocalTag.Equal(b.LocalTag) {
		t.Fatal("first files of two different directories must not share a local tag")
	}
}

func TestFlatDirProviderRemoveDir(t *testing.T) {
	p, err := NewFlatDirProvider(32)
	if err != nil {
		t.Fatal(err)
	}
	a, err := p.GetID("dirA/file1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.GetID("dirA/file2"); err != nil {
		t.Fatal(err)
	}
	b, err := p.GetID("dirB/file1")
	if err != nil {
		t.Fatal(err)
	}

	p.RemoveDir("dirA")
	if p.ExistsID(a) {
		t.Fatal("expected dirA/file1 removed")
	}
	if !p.ExistsID(b) {
		t.Fatal("expected dirB/file1 to remain")
	}
	if p.Size() != 1 {
		t.Fatalf("expected size 1, got %d", p.Size())
	}
}
