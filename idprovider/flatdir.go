package idprovider

import (
	"strings"
	"sync"

	"github.com/younisk/forward-secure-cloud-storage/internal/tag"
)

// FlatDirProvider assigns each directory a unique index, drawn from its
// own global counter, and each file within a directory a local counter
// scoped to that directory (spec §4.3.2). A file's tag is the
// concatenation of its directory's index and its own counter, so that
// (unlike a single flat counter keyed purely per-directory) two files in
// different directories never collide on the same PPRF tag — see
// DESIGN.md for why this departs from the original's literal per-
// directory-only counter. remoteId is drawn from a counter shared across
// all directories, so cloud object names never reveal which directory a
// file belongs to.
type FlatDirProvider struct {
	mu sync.Mutex

	tagLen            int
	dirBits, fileBits int

	dirCounter   tag.Tag // next directory index to hand out
	dirIndex     map[string]tag.Tag
	fileCounters map[string]tag.Tag // per-directory file counter

	remoteCounter tag.Tag

	byPath map[string]Id
	byTag  map[string]string
}

var _ Provider = (*FlatDirProvider)(nil)

// NewFlatDirProvider splits tagLen evenly between the directory index and
// the per-directory file counter.
func NewFlatDirProvider(tagLen int) (*FlatDirProvider, error) {
	dirBits := tagLen / 2
	fileBits := tagLen - dirBits
	zeroDir, err := tag.FromInt(0, dirBits)
	if err != nil {
		return nil, err
	}
	zeroRemote, err := tag.FromInt(0, tagLen)
	if err != nil {
		return nil, err
	}
	return &FlatDirProvider{
		tagLen:        tagLen,
		dirBits:       dirBits,
		fileBits:      fileBits,
		dirCounter:    zeroDir,
		dirIndex:      map[string]tag.Tag{},
		fileCounters:  map[string]tag.Tag{},
		remoteCounter: zeroRemote,
		byPath:        map[string]Id{},
		byTag:         map[string]string{},
	}, nil
}

func parentDir(path string) string {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return ""
	}
	return path[:i]
}

func (p *FlatDirProvider) GetID(path string) (Id, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if id, ok := p.byPath[path]; ok {
		return id, nil
	}

	dir := parentDir(path)
	dirTag, ok := p.dirIndex[dir]
	if !ok {
		next, ok := p.dirCounter.Increment()
		if !ok {
			return Id{}, ErrSpaceExhausted
		}
		p.dirCounter = next
		dirTag = next
		p.dirIndex[dir] = dirTag
		zero, err := tag.FromInt(0, p.fileBits)
		if err != nil {
			return Id{}, err
		}
		p.fileCounters[dir] = zero
	}

	fileCounter := p.fileCounters[dir]
	nextFile, ok := fileCounter.Increment()
	if !ok {
		return Id{}, ErrSpaceExhausted
	}
	p.fileCounters[dir] = nextFile

	localTag, err := dirTag.Concat(nextFile)
	if err != nil {
		return Id{}, err
	}

	nextRemote, ok := p.remoteCounter.Increment()
	if !ok {
		return Id{}, ErrSpaceExhausted
	}
	p.remoteCounter = nextRemote

	id := Id{LocalTag: localTag, RemoteID: tag.Base64(nextRemote, p.tagLen)}
	p.byPath[path] = id
	p.byTag[localTag.String()] = path
	return id, nil
}

func (p *FlatDirProvider) GetPath(id Id) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	path, ok := p.byTag[id.LocalTag.String()]
	if !ok {
		return "", ErrUnknownID
	}
	return path, nil
}

func (p *FlatDirProvider) ExistsID(id Id) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.byTag[id.LocalTag.String()]
	return ok
}

func (p *FlatDirProvider) ExistsPath(path string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.byPath[path]
	return ok
}

func (p *FlatDirProvider) Remove(id Id) {
	p.mu.Lock()
	defer p.mu.Unlock()
	path, ok := p.byTag[id.LocalTag.String()]
	if !ok {
		return
	}
	delete(p.byTag, id.LocalTag.String())
	delete(p.byPath, path)
}

// RemoveDir erases every entry whose path starts with the string dir (a
// plain string-prefix match, so "dirA" also matches "dirAB/file"),
// mirroring the original's flat_dir_id_provider.h removeDir. Only dir's
// own index and file counter are dropped.
func (p *FlatDirProvider) RemoveDir(dir string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for path, id := range p.byPath {
		if strings.HasPrefix(path, dir) {
			delete(p.byPath, path)
			delete(p.byTag, id.LocalTag.String())
		}
	}
	delete(p.dirIndex, dir)
	delete(p.fileCounters, dir)
}

func (p *FlatDirProvider) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byPath)
}

func (p *FlatDirProvider) ListIDs() []Id {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Id, 0, len(p.byPath))
	for _, id := range p.byPath {
		out = append(out, id)
	}
	return out
}
