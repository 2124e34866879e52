package idprovider

import "testing"

func int2tag16(t *testing.T, n int) []bool {
	t.Helper()
	bits := make([]bool, dirBits)
	for i := 0; i < dirBits; i++ {
		bits[i] = (n>>uint(dirBits-1-i))&1 == 1
	}
	return bits
}

// TestHierarchicalTagConcatenation is scenario S4 from spec §8.
func TestHierarchicalTagConcatenation(t *testing.T) {
	p := NewHierarchicalProvider()

	id1, err := p.GetID("path/one/file1.txt")
	if err != nil {
		t.Fatal(err)
	}
	id2, err := p.GetID("path/one/file2.txt")
	if err != nil {
		t.Fatal(err)
	}
	id3, err := p.GetID("path/two")
	if err != nil {
		t.Fatal(err)
	}

	want1 := append(append(int2tag16(t, 0), int2tag16(t, 0)...), int2tag16(t, 0)...)
	want2 := append(append(int2tag16(t, 0), int2tag16(t, 0)...), int2tag16(t, 1)...)
	want3 := append(int2tag16(t, 0), int2tag16(t, 1)...)

	for i := 0; i < len(want1); i++ {
		if id1.LocalTag.Bit(i) != want1[i] {
			t.Fatalf("id1 tag mismatch at bit %d", i)
		}
	}
	for i := 0; i < len(want2); i++ {
		if id2.LocalTag.Bit(i) != want2[i] {
			t.Fatalf("id2 tag mismatch at bit %d", i)
		}
	}
	for i := 0; i < len(want3); i++ {
		if id3.LocalTag.Bit(i) != want3[i] {
			t.Fatalf("id3 tag mismatch at bit %d", i)
		}
	}
}

// TestHierarchicalGetIdIdempotent checks that repeated GetID calls on the
// same path return the same Id rather than allocating a fresh one.
func TestHierarchicalGetIdIdempotent(t *testing.T) {
	p := NewHierarchicalProvider()
	a, err := p.GetID("a/b")
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.GetID("a/b")
	if err != nil {
		t.Fatal(err)
	}
	if !a.Equal(b) {
		t.Fatalf("expected same id, got %v and %v", a, b)
	}
}

// TestHierarchicalDirCountDropsOnRemoval is scenario S9 from spec §8: once
// every child of a directory is removed, the directory count drops by the
// number of directories that became empty up to the root.
func TestHierarchicalDirCountDropsOnRemoval(t *testing.T) {
	p := NewHierarchicalProvider()

	id1, err := p.GetID("path/one/file1.txt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.GetID("path/two"); err != nil {
		t.Fatal(err)
	}

	// "path", "path/one" are directories; "path/two" is a leaf.
	if got := p.GetNumDirs(); got != 2 {
		t.Fatalf("expected 2 dirs, got %d", got)
	}

	p.Remove(id1)
	// "path/one" had its only child removed and is pruned; "path" survives
	// because "path/two" still lives under it.
	if got := p.GetNumDirs(); got != 1 {
		t.Fatalf("expected 1 dir after removing file1, got %d", got)
	}

	id3, err := p.GetID("path/two")
	if err != nil {
		t.Fatal(err)
	}
	p.Remove(id3)
	if got := p.GetNumDirs(); got != 0 {
		t.Fatalf("expected 0 dirs after removing last child of path, got %d", got)
	}
	if p.Size() != 0 {
		t.Fatalf("expected empty provider, got size %d", p.Size())
	}
}

// TestHierarchicalRecreatesPrunedPath confirms that requesting a path whose
// ancestor directory was fully removed succeeds, re-creating the pruned
// components rather than surfacing an error.
func TestHierarchicalRecreatesPrunedPath(t *testing.T) {
	p := NewHierarchicalProvider()
	id, err := p.GetID("root/child")
	if err != nil {
		t.Fatal(err)
	}
	p.Remove(id)
	if _, err := p.GetID("root/child/grandchild"); err != nil {
		// "root/child" was pruned along with "root"; a fresh request for
		// "root/child/grandchild" is free to allocate new tags for both,
		// since the old subtree is gone rather than reserved.
		t.Fatalf("unexpected error re-creating a pruned path: %v", err)
	}
}
