// Package settings reads and writes the on-disk client configuration: the
// PKW key file, the lookup-table ratchet key, and the tab-separated
// properties file, matching the layout the original interactive client
// keeps in its settings directory.
package settings

import (
	"os"
	"path/filepath"
)

const (
	KeyFilename        = "pkw.key"
	RatchetFilename    = "lookup.key"
	PropertiesFilename = "properties.cli"

	DefaultDir    = ".cli"
	DefaultKeyLen = 256
	DefaultTagLen = 256
)

// Dir bundles the paths a client's settings directory resolves to.
type Dir struct {
	Root string
}

func New(root string) Dir {
	return Dir{Root: root}
}

func (d Dir) KeyPath() string        { return filepath.Join(d.Root, KeyFilename) }
func (d Dir) RatchetPath() string    { return filepath.Join(d.Root, RatchetFilename) }
func (d Dir) PropertiesPath() string { return filepath.Join(d.Root, PropertiesFilename) }

// Exists reports whether every settings file this client needs is
// already present, matching the original's getClientOperatorFromSettings
// check (settings dir + key file + properties file).
func (d Dir) Exists() bool {
	if _, err := os.Stat(d.Root); err != nil {
		return false
	}
	if _, err := os.Stat(d.KeyPath()); err != nil {
		return false
	}
	if _, err := os.Stat(d.PropertiesPath()); err != nil {
		return false
	}
	return true
}

func (d Dir) EnsureDir() error {
	return os.MkdirAll(d.Root, 0o700)
}

func (d Dir) ReadKey() ([]byte, error) {
	return os.ReadFile(d.KeyPath())
}

func (d Dir) WriteKey(data []byte) error {
	return os.WriteFile(d.KeyPath(), data, 0o600)
}

func (d Dir) ReadProperties() ([]byte, error) {
	return os.ReadFile(d.PropertiesPath())
}

func (d Dir) WriteProperties(data []byte) error {
	return os.WriteFile(d.PropertiesPath(), data, 0o600)
}

// ReadOrInitRatchetKey loads the persisted lookup-table ratchet key, or
// samples a fresh one of keyLenBytes if none has been written yet.
func (d Dir) ReadOrInitRatchetKey(sample func(n int) ([]byte, error), keyLenBytes int) ([]byte, error) {
	key, err := os.ReadFile(d.RatchetPath())
	if err == nil {
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}
	return sample(keyLenBytes)
}

func (d Dir) WriteRatchetKey(key []byte) error {
	return os.WriteFile(d.RatchetPath(), key, 0o600)
}
