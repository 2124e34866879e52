package pkw

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"github.com/younisk/forward-secure-cloud-storage/pprf"
)

const (
	pbkdf2Iterations = 100_000
	saltSize         = 16
	kekSize          = 32 // AES-256 KEK, independent of the wrapped PPRF key's own KeyLen
	gcmNonceSize     = 12
)

// SerializeAndEncryptKey derives a key-encryption-key from password via
// PBKDF2-HMAC-SHA256 (spec §4.2/§6) and seals the serialized PPRF key
// under it with AES-256-GCM. Output layout: salt[16] ‖ nonce[12] ‖
// ciphertext‖tag.
func (p *PKW) SerializeAndEncryptKey(password []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("pkw: sampling salt: %w", err)
	}
	kek := pbkdf2.Key(password, salt, pbkdf2Iterations, kekSize, sha256.New)

	aead, err := newAEAD(kek)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("pkw: sampling nonce: %w", err)
	}

	ciphertext := aead.Seal(nil, nonce, p.SerializeKey(), nil)

	out := make([]byte, 0, len(salt)+len(nonce)+len(ciphertext))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return out, nil
}

// FromSerializedAndEncrypted reverses SerializeAndEncryptKey. A wrong
// password or a malformed/tampered blob fails with ErrImport.
func FromSerializedAndEncrypted(blob, password []byte) (*PKW, error) {
	if len(blob) < saltSize+gcmNonceSize {
		return nil, ErrImport
	}
	salt := blob[:saltSize]
	nonce := blob[saltSize : saltSize+gcmNonceSize]
	ciphertext := blob[saltSize+gcmNonceSize:]

	kek := pbkdf2.Key(password, salt, pbkdf2Iterations, kekSize, sha256.New)
	aead, err := newAEAD(kek)
	if err != nil {
		return nil, ErrImport
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrImport
	}

	key, err := pprf.Deserialize(plaintext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImport, err)
	}
	return New(pprf.NewEngine(key)), nil
}
