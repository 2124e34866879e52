// Package cloud defines the storage-backend boundary the operator writes
// encrypted blobs through, and a couple of concrete adapters (spec §4.5).
package cloud

import (
	"github.com/younisk/forward-secure-cloud-storage/idprovider"
)

// LookupObjectName is the special object holding the encrypted lookup
// table; it is always excluded from clean_storage's orphan scan.
const LookupObjectName = "T"

// Communicator is the abstract contract the operator depends on. A file
// is stored as two objects: IDToCloudName(id) holds nonce‖ciphertext,
// IDToCloudHeader(id) holds the wrapped DEK.
type Communicator interface {
	WriteToCloud(id idprovider.Id, wrappedKey, encryptedFile, nonce []byte) error
	WriteHeaderToCloud(id idprovider.Id, wrappedKey []byte) error
	ReadFromCloud(name string) ([]byte, error)

	WriteLookupTableToCloud(encrypted []byte) error
	ReadLookupTableFromCloud() ([]byte, error)

	EnqueueDelete(id idprovider.Id)
	HandleDeleteQueue() error

	// CleanStorage deletes every remote object not named by knownIDs
	// (aside from the lookup table) and returns how many were removed.
	CleanStorage(knownIDs []idprovider.Id) (int, error)

	IDToCloudName(id idprovider.Id) string
	IDToCloudHeader(id idprovider.Id) string
}

func idToCloudName(id idprovider.Id) string   { return id.RemoteID + ".f" }
func idToCloudHeader(id idprovider.Id) string { return id.RemoteID + ".h" }
