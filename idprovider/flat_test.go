package idprovider

import "testing"

func TestFlatProviderAssignsSequentialTags(t *testing.T) {
	p, err := NewFlatProvider(16)
	if err != nil {
		t.Fatal(err)
	}
	a, err := p.GetID("a")
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.GetID("b")
	if err != nil {
		t.Fatal(err)
	}
	if a.LocalTag.Equal(b.LocalTag) {
		t.Fatal("expected distinct tags")
	}
	again, err := p.GetID("a")
	if err != nil {
		t.Fatal(err)
	}
	if !again.Equal(a) {
		t.Fatal("GetID must be idempotent per path")
	}
}

func TestFlatProviderRemoveAndRestore(t *testing.T) {
	p, err := NewFlatProvider(16)
	if err != nil {
		t.Fatal(err)
	}
	a, _ := p.GetID("a")
	b, _ := p.GetID("b")
	p.Remove(a)
	if p.ExistsID(a) {
		t.Fatal("expected a removed")
	}
	if !p.ExistsID(b) {
		t.Fatal("expected b to remain")
	}

	table := map[string]Id{"b": b}
	restored, err := RestoreFlatProvider(16, table)
	if err != nil {
		t.Fatal(err)
	}
	c, err := restored.GetID("c")
	if err != nil {
		t.Fatal(err)
	}
	if c.LocalTag.Equal(b.LocalTag) {
		t.Fatal("restored counter must continue past the highest seen tag")
	}
}
