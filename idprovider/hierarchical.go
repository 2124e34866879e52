package idprovider

import (
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/younisk/forward-secure-cloud-storage/internal/tag"
)

// dirBits is the width each path component occupies in the concatenated
// local tag (spec §4.3.3's MAX_DIR_SIZE = 2^16).
const dirBits = 16
const maxDirSize = 1 << dirBits

// ErrDirFull is returned when a directory's 2^16 children have all been
// assigned.
var ErrDirFull = errors.New("idprovider: directory has reached its child capacity")

// ErrRootRemoved is returned by GetID when a parent node is missing from
// the tree while a path is being resolved. The virtual root is never
// removed, and GetID creates each missing component on its way down, so a
// path whose ancestors were pruned by an earlier Remove is re-created
// under fresh indices rather than rejected with this error.
var ErrRootRemoved = errors.New("idprovider: ancestor directory no longer exists")

type hNode struct {
	tag      tag.Tag
	parent   string
	children map[string]string // basename -> child full path
	next     int               // next child index to hand out; never reused
}

// hierarchicalRemoteCounter is the process-wide counter feeding the
// decimal remoteIds of every HierarchicalProvider.
var hierarchicalRemoteCounter uint64

// HierarchicalProvider assigns each path component a 16-bit index scoped
// to its parent directory, so a file's local tag is the concatenation of
// its ancestors' indices with its own (spec §4.3.3). Puncturing the tag
// of any ancestor therefore invalidates every descendant at once: a
// single HPPRF prefix-puncture deletes a whole subtree.
type HierarchicalProvider struct {
	mu sync.Mutex

	nodes  map[string]*hNode // full path -> tree node, "" is the virtual root
	byPath map[string]Id     // paths explicitly handed out via GetID
	byTag  map[string]string // tag.String() -> path
}

var _ Provider = (*HierarchicalProvider)(nil)

func NewHierarchicalProvider() *HierarchicalProvider {
	root := &hNode{children: map[string]string{}}
	return &HierarchicalProvider{
		nodes:  map[string]*hNode{"": root},
		byPath: map[string]Id{},
		byTag:  map[string]string{},
	}
}

func splitPath(path string) []string {
	return strings.Split(strings.Trim(path, "/"), "/")
}

// ensureChild returns the node at parentPath/comp, creating it (and
// assigning it the next free 16-bit index under parentPath) if absent.
func (p *HierarchicalProvider) ensureChild(parentPath, comp string) (string, *hNode, error) {
	parent, ok := p.nodes[parentPath]
	if !ok {
		return "", nil, ErrRootRemoved
	}
	childPath := comp
	if parentPath != "" {
		childPath = parentPath + "/" + comp
	}
	if existing, ok := parent.children[comp]; ok {
		return existing, p.nodes[existing], nil
	}
	if parent.next >= maxDirSize {
		return "", nil, ErrDirFull
	}
	idx, err := tag.FromInt(parent.next, dirBits)
	if err != nil {
		return "", nil, err
	}
	parent.next++
	childTag, err := parent.tag.Concat(idx)
	if err != nil {
		return "", nil, err
	}
	node := &hNode{tag: childTag, parent: parentPath, children: map[string]string{}}
	parent.children[comp] = childPath
	p.nodes[childPath] = node
	return childPath, node, nil
}

func (p *HierarchicalProvider) GetID(path string) (Id, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if id, ok := p.byPath[path]; ok {
		return id, nil
	}

	cur := ""
	var node *hNode
	for _, comp := range splitPath(path) {
		childPath, childNode, err := p.ensureChild(cur, comp)
		if err != nil {
			return Id{}, err
		}
		cur, node = childPath, childNode
	}

	remote := atomic.AddUint64(&hierarchicalRemoteCounter, 1)
	id := Id{LocalTag: node.tag, RemoteID: strconv.FormatUint(remote, 10)}
	p.byPath[path] = id
	p.byTag[node.tag.String()] = path
	return id, nil
}

func (p *HierarchicalProvider) GetPath(id Id) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	path, ok := p.byTag[id.LocalTag.String()]
	if !ok {
		return "", ErrUnknownID
	}
	return path, nil
}

func (p *HierarchicalProvider) ExistsID(id Id) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.byTag[id.LocalTag.String()]
	return ok
}

func (p *HierarchicalProvider) ExistsPath(path string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.byPath[path]
	return ok
}

// Remove deletes id, every transitive descendant of its path, and then
// prunes ancestor directories that became empty as a result, stopping at
// the root (spec §4.3.3 step 3). This makes directory deletion line up
// with a single HPPRF prefix-puncture on the directory's tag.
func (p *HierarchicalProvider) Remove(id Id) {
	p.mu.Lock()
	defer p.mu.Unlock()
	path, ok := p.byTag[id.LocalTag.String()]
	if !ok {
		return
	}
	p.removeSubtree(path)
	p.pruneEmptyAncestors(path)
}

func (p *HierarchicalProvider) removeSubtree(path string) {
	node, ok := p.nodes[path]
	if !ok {
		return
	}
	for _, childPath := range node.children {
		p.removeSubtree(childPath)
	}
	delete(p.nodes, path)
	if bid, ok := p.byPath[path]; ok {
		delete(p.byTag, bid.LocalTag.String())
		delete(p.byPath, path)
	}
}

func (p *HierarchicalProvider) pruneEmptyAncestors(path string) {
	node, ok := p.nodes[path]
	parent := ""
	if ok {
		parent = node.parent
	} else {
		i := strings.LastIndex(path, "/")
		if i < 0 {
			return
		}
		parent = path[:i]
	}
	comp := path
	if i := strings.LastIndex(path, "/"); i >= 0 {
		comp = path[i+1:]
	}
	for {
		parentNode, ok := p.nodes[parent]
		if !ok {
			return
		}
		delete(parentNode.children, comp)
		if len(parentNode.children) > 0 || parent == "" {
			return
		}
		// parentNode is now an empty, non-root directory: erase it too.
		if bid, ok := p.byPath[parent]; ok {
			delete(p.byTag, bid.LocalTag.String())
			delete(p.byPath, parent)
		}
		delete(p.nodes, parent)
		next := parentNode.parent
		if i := strings.LastIndex(parent, "/"); i >= 0 {
			comp = parent[i+1:]
		} else {
			comp = parent
		}
		parent = next
	}
}

func (p *HierarchicalProvider) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byPath)
}

func (p *HierarchicalProvider) ListIDs() []Id {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Id, 0, len(p.byPath))
	for _, id := range p.byPath {
		out = append(out, id)
	}
	return out
}

// GetNumDirs counts tree nodes (excluding the virtual root) that
// currently have at least one child, i.e. are acting as directories.
func (p *HierarchicalProvider) GetNumDirs() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for path, node := range p.nodes {
		if path != "" && len(node.children) > 0 {
			n++
		}
	}
	return n
}
