package pprf

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/younisk/forward-secure-cloud-storage/internal/secret"
	"github.com/younisk/forward-secure-cloud-storage/internal/tag"
)

// direction labels for the GGM tree expander, matching the original's
// HKDF(seed, info="l"/"r") children and the output-only info="o" step.
const (
	dirLeft  = "l"
	dirRight = "r"
	dirOut   = "o"
)

// Engine implements the hierarchical GGM-PPRF (spec §4.1): evaluation and
// puncturing over a tree of depth key.TagLen, whose surviving state is the
// prefix-free frontier held in Key.Nodes.
type Engine struct {
	key *Key
}

// NewEngine wraps an existing Key. The Engine takes ownership of the key's
// mutation; callers should not mutate k.Nodes directly afterwards.
func NewEngine(k *Key) *Engine {
	return &Engine{key: k}
}

// Key returns the engine's underlying key state.
func (e *Engine) Key() *Key { return e.key }

// NumPuncs reports how many individual-tag punctures have been performed.
func (e *Engine) NumPuncs() int { return e.key.Puncs }

// TagLen reports the key's configured maximum tag length, in bits.
func (e *Engine) TagLen() int { return e.key.TagLen }

// KeyLen reports the key's seed/output length, in bits.
func (e *Engine) KeyLen() int { return e.key.KeyLen }

// SerializeKey serializes the underlying key using the on-wire layout
// from spec §6.
func (e *Engine) SerializeKey() []byte { return e.key.Serialize() }

// Eval computes the PRF output at tag t: HKDF(seed_at_t, info="o"). It
// fails with ErrPunctured if t (or an ancestor prefix of t) has been
// punctured, and ErrTagTooLong if t exceeds the key's TagLen.
func (e *Engine) Eval(t tag.Tag) (secret.Buffer, error) {
	if t.Len() > e.key.TagLen {
		return secret.Buffer{}, ErrTagTooLong
	}
	node, ok := e.findCoveringNode(t)
	if !ok {
		return secret.Buffer{}, ErrPunctured
	}
	keyLenBytes := e.key.KeyLen / 8
	curr := node.Seed.Clone()
	for i := node.Prefix.Len(); i < t.Len(); i++ {
		dir := dirLeft
		if t.Bit(i) {
			dir = dirRight
		}
		next, err := hkdfDerive(curr.Bytes(), dir, keyLenBytes)
		if err != nil {
			return secret.Buffer{}, err
		}
		curr.Destroy()
		curr = next
	}
	out, err := hkdfDerive(curr.Bytes(), dirOut, keyLenBytes)
	curr.Destroy()
	if err != nil {
		return secret.Buffer{}, err
	}
	return out, nil
}

// Punc punctures t. If t is already punctured (no covering node, and no
// stored node lies beneath it), this is a no-op. If t is a strict ancestor
// of stored nodes (a prefix puncture), every node beneath it is dropped
// without replacement. Otherwise this is a point puncture: the covering
// node is replaced by the co-path siblings encountered while walking down
// to t, so every tag outside t keeps evaluating identically.
func (e *Engine) Punc(t tag.Tag) error {
	if t.Len() > e.key.TagLen {
		return ErrTagTooLong
	}
	node, ok := e.findCoveringNode(t)
	if !ok {
		for key, n := range e.key.Nodes {
			if n.Prefix.HasPrefix(t) {
				n.Seed.Destroy()
				delete(e.key.Nodes, key)
			}
		}
		return nil
	}

	keyLenBytes := e.key.KeyLen / 8
	curr := node.Seed.Clone()
	prefix := node.Prefix
	coPath := make([]SecretRoot, 0, t.Len()-node.Prefix.Len())
	for i := node.Prefix.Len(); i < t.Len(); i++ {
		right, err := hkdfDerive(curr.Bytes(), dirRight, keyLenBytes)
		if err != nil {
			return err
		}
		left, err := hkdfDerive(curr.Bytes(), dirLeft, keyLenBytes)
		if err != nil {
			return err
		}
		if t.Bit(i) {
			siblingPrefix, _ := prefix.Append(false)
			coPath = append(coPath, SecretRoot{Prefix: siblingPrefix, Seed: left})
			curr.Destroy()
			curr = right
			prefix, _ = prefix.Append(true)
		} else {
			siblingPrefix, _ := prefix.Append(true)
			coPath = append(coPath, SecretRoot{Prefix: siblingPrefix, Seed: right})
			curr.Destroy()
			curr = left
			prefix, _ = prefix.Append(false)
		}
	}
	curr.Destroy()

	node.Seed.Destroy()
	delete(e.key.Nodes, node.Prefix.String())
	for _, s := range coPath {
		e.key.Nodes[s.Prefix.String()] = s
	}
	e.key.Puncs++
	return nil
}

// findCoveringNode returns the (unique, by prefix-freeness) node whose
// prefix is a prefix of t, scanning t's own prefixes shortest-first.
func (e *Engine) findCoveringNode(t tag.Tag) (SecretRoot, bool) {
	for i := 0; i <= t.Len(); i++ {
		if n, ok := e.key.Nodes[t.Prefix(i).String()]; ok {
			return n, true
		}
	}
	return SecretRoot{}, false
}

func hkdfDerive(secretBytes []byte, info string, outLen int) (secret.Buffer, error) {
	h := hkdf.New(sha256.New, secretBytes, nil, []byte(info))
	out := secret.NewBuffer(outLen)
	if _, err := io.ReadFull(h, out.Bytes()); err != nil {
		out.Destroy()
		return secret.Buffer{}, err
	}
	return out, nil
}
