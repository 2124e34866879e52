package operator

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/hkdf"

	"github.com/younisk/forward-secure-cloud-storage/idprovider"
	"github.com/younisk/forward-secure-cloud-storage/internal/tag"
)

// RatchetNextKey derives the next lookup-table encryption key from the
// current one, mirroring the original's getOrInitRatchetKey/HKDF(info="n")
// forward-ratchet: each time settings are persisted, the key used to
// protect the lookup table moves forward and the old key is discarded, so
// a compromised key cannot decrypt earlier snapshots.
func RatchetNextKey(current []byte) ([]byte, error) {
	r := hkdf.New(sha256.New, current, nil, []byte("n"))
	next := make([]byte, len(current))
	if _, err := io.ReadFull(r, next); err != nil {
		return nil, err
	}
	return next, nil
}

// NewRatchetKey samples a fresh ratchet key of keyLenBytes bytes, used the
// first time a lookup table is persisted for a given client.
func NewRatchetKey(keyLenBytes int) ([]byte, error) {
	key := make([]byte, keyLenBytes)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

// EncodeLookupTable renders path -> Id as tab-separated lines of
// path, base64(localTag), remoteId (spec §6's mandated external format for
// object T), then AES-GCM-encrypts the result under key. tagLen is the
// width to pad each tag's base64 view to (the owning provider's
// configured tag length). Unlike the original's fixed-IV block cipher,
// the nonce here is random and stored alongside the ciphertext.
func EncodeLookupTable(table map[string]idprovider.Id, tagLen int, key []byte) ([]byte, error) {
	var sb strings.Builder
	for path, id := range table {
		fmt.Fprintf(&sb, "%s\t%s\t%s\n", path, tag.Base64(id.LocalTag, tagLen), id.RemoteID)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	ciphertext := aead.Seal(nil, nonce, []byte(sb.String()), nil)
	return append(nonce, ciphertext...), nil
}

// DecodeLookupTable is the inverse of EncodeLookupTable; tagLen must match
// the value EncodeLookupTable was called with.
func DecodeLookupTable(blob []byte, tagLen int, key []byte) (map[string]idprovider.Id, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(blob) < aead.NonceSize() {
		return nil, fmt.Errorf("operator: lookup table blob shorter than a nonce")
	}
	nonce, ciphertext := blob[:aead.NonceSize()], blob[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, err
	}

	table := map[string]idprovider.Id{}
	for _, line := range strings.Split(strings.TrimRight(string(plaintext), "\n"), "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("operator: malformed lookup table line %q", line)
		}
		localTag, err := tag.FromBase64(parts[1], tagLen)
		if err != nil {
			return nil, err
		}
		table[parts[0]] = idprovider.Id{LocalTag: localTag, RemoteID: parts[2]}
	}
	return table, nil
}

// EncodeProperties renders key_len/tag_len as the tab-separated
// properties.cli format the original settings layer reads and writes.
func EncodeProperties(keyLen, tagLen int) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "key_len\t%d\n", keyLen)
	fmt.Fprintf(&sb, "tag_len\t%d\n", tagLen)
	return []byte(sb.String())
}

// DecodeProperties parses the tab-separated properties.cli format.
func DecodeProperties(data []byte) (keyLen, tagLen int, err error) {
	props := map[string]string{}
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		i := strings.IndexByte(line, '\t')
		if i < 0 {
			return 0, 0, fmt.Errorf("operator: malformed properties line %q", line)
		}
		props[line[:i]] = line[i+1:]
	}
	keyLen, err = strconv.Atoi(props["key_len"])
	if err != nil {
		return 0, 0, err
	}
	tagLen, err = strconv.Atoi(props["tag_len"])
	if err != nil {
		return 0, 0, err
	}
	return keyLen, tagLen, nil
}
