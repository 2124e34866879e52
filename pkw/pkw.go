// Package pkw implements the HPPRF-AEAD puncturable key-wrapping
// construction (spec §4.2): wrap/unwrap a per-file DEK under a key
// derived per-tag from a pprf.Engine, such that puncturing the tag
// destroys every wrapped DEK that was ever produced under it.
package pkw

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/younisk/forward-secure-cloud-storage/internal/secret"
	"github.com/younisk/forward-secure-cloud-storage/internal/tag"
	"github.com/younisk/forward-secure-cloud-storage/pprf"
)

// PKW wraps DEKs under per-tag keys derived by a hierarchical PPRF.
type PKW struct {
	engine *pprf.Engine
}

// New wraps an existing engine.
func New(engine *pprf.Engine) *PKW { return &PKW{engine: engine} }

// NewFresh samples a brand-new PPRF key and wraps it in a PKW.
func NewFresh(keyLen, tagLen int) (*PKW, error) {
	k, err := pprf.NewKey(keyLen, tagLen)
	if err != nil {
		return nil, err
	}
	return New(pprf.NewEngine(k)), nil
}

// Engine exposes the underlying PPRF engine, e.g. for rotation.
func (p *PKW) Engine() *pprf.Engine { return p.engine }

// Wrap derives the per-tag key via the PPRF and AEAD-encrypts dek, binding
// header as associated data. The nonce is derived deterministically from
// the per-tag key itself: since every un-punctured tag is wrapped at most
// once, the (key, nonce) pair this produces is never reused.
func (p *PKW) Wrap(t tag.Tag, header, dek []byte) ([]byte, error) {
	k, err := p.engine.Eval(t)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTagIllegal, err)
	}
	defer k.Destroy()

	aead, err := newAEAD(k.Bytes())
	if err != nil {
		return nil, err
	}
	nonce, err := deriveNonce(k.Bytes(), aead.NonceSize())
	if err != nil {
		return nil, err
	}
	defer nonce.Destroy()

	return aead.Seal(nil, nonce.Bytes(), dek, header), nil
}

// Unwrap recovers the DEK wrapped by Wrap. It fails with ErrTagIllegal if
// t is punctured or out of range, and ErrAuth if wrapped was tampered
// with or header does not match what it was wrapped under.
func (p *PKW) Unwrap(t tag.Tag, header, wrapped []byte) ([]byte, error) {
	k, err := p.engine.Eval(t)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTagIllegal, err)
	}
	defer k.Destroy()

	aead, err := newAEAD(k.Bytes())
	if err != nil {
		return nil, err
	}
	nonce, err := deriveNonce(k.Bytes(), aead.NonceSize())
	if err != nil {
		return nil, err
	}
	defer nonce.Destroy()

	dek, err := aead.Open(nil, nonce.Bytes(), wrapped, header)
	if err != nil {
		return nil, ErrAuth
	}
	return dek, nil
}

// Punc punctures t, making every DEK ever wrapped under it unrecoverable.
func (p *PKW) Punc(t tag.Tag) error {
	if err := p.engine.Punc(t); err != nil {
		return fmt.Errorf("%w: %v", ErrTagIllegal, err)
	}
	return nil
}

// NumPuncs, TagLen, KeyLen and SerializeKey are pass-throughs to the
// underlying engine (spec §4.2).
func (p *PKW) NumPuncs() int        { return p.engine.NumPuncs() }
func (p *PKW) TagLen() int          { return p.engine.TagLen() }
func (p *PKW) KeyLen() int          { return p.engine.KeyLen() }
func (p *PKW) SerializeKey() []byte { return p.engine.SerializeKey() }

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("pkw: constructing AES block cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

func deriveNonce(key []byte, size int) (secret.Buffer, error) {
	h := hkdf.New(sha256.New, key, nil, []byte("nonce"))
	out := secret.NewBuffer(size)
	if _, err := io.ReadFull(h, out.Bytes()); err != nil {
		out.Destroy()
		return secret.Buffer{}, err
	}
	return out, nil
}
