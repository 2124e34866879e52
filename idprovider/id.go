// Package idprovider binds file paths to compact identifiers, so that
// directory-level shredding can map onto subtree-level puncturing in the
// HPPRF (spec §4.3).
package idprovider

import (
	"errors"

	"github.com/younisk/forward-secure-cloud-storage/internal/tag"
)

// Id is the handle an IdProvider hands the operator: LocalTag is the
// cryptographic tag used by the PKW, RemoteID is the opaque name used on
// the cloud side so that storage sees no tag structure.
type Id struct {
	LocalTag tag.Tag
	RemoteID string
}

// Equal reports whether two Ids name the same local tag. RemoteID is not
// compared: it is derived from, and uniquely determined by, LocalTag or
// allocation order depending on the provider.
func (i Id) Equal(other Id) bool {
	return i.LocalTag.Equal(other.LocalTag)
}

// ErrUnknownID is returned by GetPath for an Id the provider never issued.
var ErrUnknownID = errors.New("idprovider: unknown id")

// ErrSpaceExhausted is returned when a provider's counter runs out of
// identifiers.
var ErrSpaceExhausted = errors.New("idprovider: identifier space exhausted")

// Provider is the common contract every identifier provider satisfies
// (spec §4.3).
type Provider interface {
	// GetID is idempotent: it returns the existing Id bound to path, or
	// allocates and binds a fresh one.
	GetID(path string) (Id, error)
	GetPath(id Id) (string, error)
	ExistsID(id Id) bool
	ExistsPath(path string) bool
	Remove(id Id)
	Size() int
	ListIDs() []Id
}
