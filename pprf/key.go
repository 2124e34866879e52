package pprf

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/younisk/forward-secure-cloud-storage/internal/secret"
	"github.com/younisk/forward-secure-cloud-storage/internal/tag"
)

// SecretRoot is one node of the frontier: the seed for the subtree rooted
// at Prefix. Any tag extending Prefix can be evaluated from this seed
// alone.
type SecretRoot struct {
	Prefix tag.Tag
	Seed   secret.Buffer
}

// Key is the PPRF's mutable state: a prefix-free antichain of SecretRoots
// covering the live (non-punctured) tag space, plus the puncture counter.
// Nodes is keyed by Prefix.String() so map membership tests double as
// prefix lookups during puncture/serialize.
type Key struct {
	KeyLen int // seed/output length, in bits
	TagLen int // maximum tag length this key supports, in bits
	Puncs  int
	Nodes  map[string]SecretRoot
}

// NewKey samples a fresh root seed and returns a Key whose frontier is the
// entire tag space: a single node at the empty prefix.
func NewKey(keyLen, tagLen int) (*Key, error) {
	if keyLen <= 0 || keyLen%8 != 0 {
		return nil, fmt.Errorf("pprf: keyLen must be a positive multiple of 8, got %d", keyLen)
	}
	if tagLen <= 0 || tagLen > tag.MaxLen {
		return nil, fmt.Errorf("pprf: tagLen must be in (0, %d], got %d", tag.MaxLen, tagLen)
	}
	seed := secret.NewBuffer(keyLen / 8)
	if _, err := rand.Read(seed.Bytes()); err != nil {
		return nil, fmt.Errorf("pprf: sampling root seed: %w", err)
	}
	root, _ := tag.New()
	return &Key{
		KeyLen: keyLen,
		TagLen: tagLen,
		Nodes:  map[string]SecretRoot{root.String(): {Prefix: root, Seed: seed}},
	}, nil
}

// Destroy zeroes every seed held by the key. Call once the key is no
// longer needed (process exit, key rotation).
func (k *Key) Destroy() {
	for _, n := range k.Nodes {
		n.Seed.Destroy()
	}
}

// On-wire layout (spec §6), all integers big-endian:
//
//	u32 keyLen
//	u32 tagLen
//	u32 puncs
//	u32 nodeCount
//	repeat nodeCount times:
//	  u32  prefixBitLen
//	  byte prefix[ceil(prefixBitLen/8)]  // MSB-first, zero-padded
//	  byte seed[keyLen/8]

// Serialize produces the fixed on-wire layout. Node order follows Go's
// (randomized) map iteration; correctness never depends on order since
// Nodes is a set.
func (k *Key) Serialize() []byte {
	var buf bytes.Buffer
	writeU32(&buf, uint32(k.KeyLen))
	writeU32(&buf, uint32(k.TagLen))
	writeU32(&buf, uint32(k.Puncs))
	writeU32(&buf, uint32(len(k.Nodes)))
	for _, n := range k.Nodes {
		writeU32(&buf, uint32(n.Prefix.Len()))
		buf.Write(n.Prefix.Bytes())
		buf.Write(n.Seed.Bytes())
	}
	return buf.Bytes()
}

// Deserialize parses the layout written by Serialize.
func Deserialize(b []byte) (*Key, error) {
	r := bytes.NewReader(b)
	keyLen, err := readU32(r)
	if err != nil {
		return nil, fmt.Errorf("pprf: reading keyLen: %w", err)
	}
	tagLen, err := readU32(r)
	if err != nil {
		return nil, fmt.Errorf("pprf: reading tagLen: %w", err)
	}
	puncs, err := readU32(r)
	if err != nil {
		return nil, fmt.Errorf("pprf: reading puncs: %w", err)
	}
	count, err := readU32(r)
	if err != nil {
		return nil, fmt.Errorf("pprf: reading node count: %w", err)
	}
	seedBytes := int(keyLen / 8)
	nodes := make(map[string]SecretRoot, count)
	for i := uint32(0); i < count; i++ {
		bitLen, err := readU32(r)
		if err != nil {
			return nil, fmt.Errorf("pprf: reading prefix length of node %d: %w", i, err)
		}
		prefixBytes := make([]byte, (int(bitLen)+7)/8)
		if _, err := readFull(r, prefixBytes); err != nil {
			return nil, fmt.Errorf("pprf: reading prefix of node %d: %w", i, err)
		}
		prefix, err := tag.FromBytes(prefixBytes, int(bitLen))
		if err != nil {
			return nil, fmt.Errorf("pprf: decoding prefix of node %d: %w", i, err)
		}
		seed := make([]byte, seedBytes)
		if _, err := readFull(r, seed); err != nil {
			return nil, fmt.Errorf("pprf: reading seed of node %d: %w", i, err)
		}
		nodes[prefix.String()] = SecretRoot{Prefix: prefix, Seed: secret.FromBytes(seed)}
	}
	return &Key{
		KeyLen: int(keyLen),
		TagLen: int(tagLen),
		Puncs:  int(puncs),
		Nodes:  nodes,
	}, nil
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	buf.Write(tmp[:])
}

func readU32(r *bytes.Reader) (uint32, error) {
	var tmp [4]byte
	if _, err := readFull(r, tmp[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(tmp[:]), nil
}

func readFull(r *bytes.Reader, buf []byte) (int, error) {
	n, err := r.Read(buf)
	if err == nil && n < len(buf) {
		err = errors.New("pprf: unexpected end of serialized key")
	}
	return n, err
}
