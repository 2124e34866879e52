package idprovider

import (
	"sync"

	"github.com/younisk/forward-secure-cloud-storage/internal/tag"
)

// FlatProvider assigns every path a tag drawn from a single global counter
// (spec §4.3.1). remoteId is the fixed-width base64 view of the local tag.
type FlatProvider struct {
	mu      sync.Mutex
	tagLen  int
	counter tag.Tag

	byPath map[string]Id
	byTag  map[string]string // tag.String() -> path
}

var _ Provider = (*FlatProvider)(nil)

// NewFlatProvider starts a fresh counter at the all-zero tag.
func NewFlatProvider(tagLen int) (*FlatProvider, error) {
	zero, err := tag.FromInt(0, tagLen)
	if err != nil {
		return nil, err
	}
	return &FlatProvider{
		tagLen:  tagLen,
		counter: zero,
		byPath:  map[string]Id{},
		byTag:   map[string]string{},
	}, nil
}

// RestoreFlatProvider rebuilds a FlatProvider from a persisted lookup
// table, setting the counter to the highest tag seen so that the next
// allocated tag is one past it (spec §4.3.1's restore rule).
func RestoreFlatProvider(tagLen int, table map[string]Id) (*FlatProvider, error) {
	p, err := NewFlatProvider(tagLen)
	if err != nil {
		return nil, err
	}
	max, err := tag.FromInt(0, tagLen)
	if err != nil {
		return nil, err
	}
	haveAny := false
	for path, id := range table {
		p.byPath[path] = id
		p.byTag[id.LocalTag.String()] = path
		if !haveAny || id.LocalTag.String() > max.String() {
			max = id.LocalTag
			haveAny = true
		}
	}
	if haveAny {
		p.counter = max
	}
	return p, nil
}

func (p *FlatProvider) GetID(path string) (Id, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if id, ok := p.byPath[path]; ok {
		return id, nil
	}
	next, ok := p.counter.Increment()
	if !ok {
		return Id{}, ErrSpaceExhausted
	}
	p.counter = next
	id := Id{LocalTag: next, RemoteID: tag.Base64(next, p.tagLen)}
	p.byPath[path] = id
	p.byTag[next.String()] = path
	return id, nil
}

func (p *FlatProvider) GetPath(id Id) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	path, ok := p.byTag[id.LocalTag.String()]
	if !ok {
		return "", ErrUnknownID
	}
	return path, nil
}

func (p *FlatProvider) ExistsID(id Id) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.byTag[id.LocalTag.String()]
	return ok
}

func (p *FlatProvider) ExistsPath(path string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.byPath[path]
	return ok
}

func (p *FlatProvider) Remove(id Id) {
	p.mu.Lock()
	defer p.mu.Unlock()
	path, ok := p.byTag[id.LocalTag.String()]
	if !ok {
		return
	}
	delete(p.byTag, id.LocalTag.String())
	delete(p.byPath, path)
}

func (p *FlatProvider) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byPath)
}

func (p *FlatProvider) ListIDs() []Id {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Id, 0, len(p.byPath))
	for _, id := range p.byPath {
		out = append(out, id)
	}
	return out
}
