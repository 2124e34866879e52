// Package operator implements the top-level file API: put/get/shred/
// rotate-keys/clean, composed from an identifier provider, a PKW engine
// and a cloud communicator (spec §4.4).
package operator

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"
	"sync"

	"github.com/younisk/forward-secure-cloud-storage/cloud"
	"github.com/younisk/forward-secure-cloud-storage/idprovider"
	"github.com/younisk/forward-secure-cloud-storage/pkw"
)

// ErrNotFound is returned by Get/GetFileName for an id the operator does
// not (or no longer) know about.
var ErrNotFound = errors.New("operator: unknown id")

// Operator composes an identifier provider, a PKW engine, and a cloud
// communicator into the put/get/shred/rotate/clean surface. A single
// coarse mutex serializes mutating operations; only the two writes
// inside Put, and the batched deletes inside the cloud communicator, run
// concurrently with each other (spec §5).
type Operator struct {
	mu sync.Mutex

	ids   idprovider.Provider
	keys  *pkw.PKW
	cloud cloud.Communicator
}

func New(ids idprovider.Provider, keys *pkw.PKW, comm cloud.Communicator) *Operator {
	return &Operator{ids: ids, keys: keys, cloud: comm}
}

func newContentAEAD(dek []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(dek)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Put writes content under path, allocating a fresh identifier. If path
// was already live, the previous identifier is shredded first and a new
// one is allocated for the same path — callers never see data wrapped
// under an identifier whose local tag might still be reachable after a
// partial failure.
func (op *Operator) Put(path string, content []byte) (idprovider.Id, error) {
	op.mu.Lock()
	defer op.mu.Unlock()

	if op.ids.ExistsPath(path) {
		old, err := op.ids.GetID(path)
		if err != nil {
			return idprovider.Id{}, err
		}
		if err := op.shredLocked(old); err != nil {
			return idprovider.Id{}, err
		}
	}

	id, err := op.ids.GetID(path)
	if err != nil {
		return idprovider.Id{}, err
	}

	dek := make([]byte, op.keys.KeyLen()/8)
	if _, err := io.ReadFull(rand.Reader, dek); err != nil {
		return idprovider.Id{}, err
	}
	aead, err := newContentAEAD(dek)
	if err != nil {
		return idprovider.Id{}, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return idprovider.Id{}, err
	}
	ciphertext := aead.Seal(nil, nonce, content, []byte(id.RemoteID))

	wrapped, err := op.keys.Wrap(id.LocalTag, []byte(id.RemoteID), dek)
	if err != nil {
		return idprovider.Id{}, err
	}

	if err := op.cloud.WriteToCloud(id, wrapped, ciphertext, nonce); err != nil {
		return idprovider.Id{}, err
	}
	return id, nil
}

// Get reads and decrypts the content stored under id.
func (op *Operator) Get(id idprovider.Id) ([]byte, error) {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.getLocked(id)
}

func (op *Operator) getLocked(id idprovider.Id) ([]byte, error) {
	if !op.ids.ExistsID(id) {
		return nil, ErrNotFound
	}
	fileBlob, err := op.cloud.ReadFromCloud(op.cloud.IDToCloudName(id))
	if err != nil {
		return nil, err
	}
	header, err := op.cloud.ReadFromCloud(op.cloud.IDToCloudHeader(id))
	if err != nil {
		return nil, err
	}

	dek, err := op.keys.Unwrap(id.LocalTag, []byte(id.RemoteID), header)
	if err != nil {
		return nil, err
	}
	aead, err := newContentAEAD(dek)
	if err != nil {
		return nil, err
	}
	if len(fileBlob) < aead.NonceSize() {
		return nil, errors.New("operator: stored object shorter than a nonce")
	}
	nonce, ciphertext := fileBlob[:aead.NonceSize()], fileBlob[aead.NonceSize():]
	return aead.Open(nil, nonce, ciphertext, []byte(id.RemoteID))
}

// Shred punctures id's local tag (cryptographically destroying the
// ability to unwrap its DEK) and enqueues its two cloud objects for
// deletion.
func (op *Operator) Shred(id idprovider.Id) error {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.shredLocked(id)
}

func (op *Operator) shredLocked(id idprovider.Id) error {
	if err := op.keys.Punc(id.LocalTag); err != nil {
		return err
	}
	op.ids.Remove(id)
	op.cloud.EnqueueDelete(id)
	return op.cloud.HandleDeleteQueue()
}

// RotateKeys re-wraps every live DEK under fresh, then adopts fresh as
// the operator's key. File bodies (DEK and ciphertext) are not
// re-encrypted — only the wrapping layer rotates.
func (op *Operator) RotateKeys(fresh *pkw.PKW) (int, error) {
	op.mu.Lock()
	defer op.mu.Unlock()

	count := 0
	for _, id := range op.ids.ListIDs() {
		header, err := op.cloud.ReadFromCloud(op.cloud.IDToCloudHeader(id))
		if err != nil {
			return count, err
		}
		dek, err := op.keys.Unwrap(id.LocalTag, []byte(id.RemoteID), header)
		if err != nil {
			return count, err
		}
		newWrapped, err := fresh.Wrap(id.LocalTag, []byte(id.RemoteID), dek)
		if err != nil {
			return count, err
		}
		if err := op.cloud.WriteHeaderToCloud(id, newWrapped); err != nil {
			return count, err
		}
		count++
	}
	op.keys = fresh
	return count, nil
}

// Clean asks the cloud communicator to remove any remote object not
// referenced by a currently-live identifier.
func (op *Operator) Clean() (int, error) {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.cloud.CleanStorage(op.ids.ListIDs())
}

// ListFiles returns the paths of every currently-live file.
func (op *Operator) ListFiles() ([]string, error) {
	op.mu.Lock()
	defer op.mu.Unlock()
	ids := op.ids.ListIDs()
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		path, err := op.ids.GetPath(id)
		if err != nil {
			return nil, err
		}
		out = append(out, path)
	}
	return out, nil
}

func (op *Operator) GetID(path string) (idprovider.Id, error) {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.ids.GetID(path)
}

func (op *Operator) GetFileName(id idprovider.Id) (string, error) {
	op.mu.Lock()
	defer op.mu.Unlock()
	path, err := op.ids.GetPath(id)
	if errors.Is(err, idprovider.ErrUnknownID) {
		return "", ErrNotFound
	}
	return path, err
}

func (op *Operator) ExportKey() []byte {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.keys.SerializeKey()
}

func (op *Operator) TagLen() int {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.keys.TagLen()
}

func (op *Operator) KeyLen() int {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.keys.KeyLen()
}
