package cloud

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/younisk/forward-secure-cloud-storage/idprovider"
)

// LocalCommunicator stores each object as a file in a directory, standing
// in for the original's GCS-backed adapter (gcs_cloud_communicator.h)
// without depending on a live cloud account.
type LocalCommunicator struct {
	dir string

	mu    sync.Mutex
	queue []string
}

var _ Communicator = (*LocalCommunicator)(nil)

func NewLocalCommunicator(dir string) (*LocalCommunicator, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &LocalCommunicator{dir: dir}, nil
}

func (c *LocalCommunicator) IDToCloudName(id idprovider.Id) string   { return idToCloudName(id) }
func (c *LocalCommunicator) IDToCloudHeader(id idprovider.Id) string { return idToCloudHeader(id) }

func (c *LocalCommunicator) path(name string) string {
	return filepath.Join(c.dir, name)
}

func (c *LocalCommunicator) write(name string, data []byte) error {
	return os.WriteFile(c.path(name), data, 0o600)
}

func (c *LocalCommunicator) WriteToCloud(id idprovider.Id, wrappedKey, encryptedFile, nonce []byte) error {
	var wg sync.WaitGroup
	var fileErr, headerErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		fileErr = c.write(c.IDToCloudName(id), append(append([]byte{}, nonce...), encryptedFile...))
	}()
	go func() {
		defer wg.Done()
		headerErr = c.write(c.IDToCloudHeader(id), wrappedKey)
	}()
	wg.Wait()
	if fileErr != nil {
		os.Remove(c.path(c.IDToCloudHeader(id)))
		return fileErr
	}
	if headerErr != nil {
		os.Remove(c.path(c.IDToCloudName(id)))
		return headerErr
	}
	return nil
}

func (c *LocalCommunicator) WriteHeaderToCloud(id idprovider.Id, wrappedKey []byte) error {
	return c.write(c.IDToCloudHeader(id), wrappedKey)
}

func (c *LocalCommunicator) ReadFromCloud(name string) ([]byte, error) {
	return os.ReadFile(c.path(name))
}

func (c *LocalCommunicator) WriteLookupTableToCloud(encrypted []byte) error {
	return c.write(LookupObjectName, encrypted)
}

func (c *LocalCommunicator) ReadLookupTableFromCloud() ([]byte, error) {
	return c.ReadFromCloud(LookupObjectName)
}

func (c *LocalCommunicator) EnqueueDelete(id idprovider.Id) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append(c.queue, c.IDToCloudName(id), c.IDToCloudHeader(id))
}

func (c *LocalCommunicator) HandleDeleteQueue() error {
	c.mu.Lock()
	if len(c.queue) <= maxDeleteQueueSize {
		c.mu.Unlock()
		return nil
	}
	queue := c.queue
	c.queue = nil
	c.mu.Unlock()
	return c.flush(queue)
}

// flush removes names concurrently and fails if any one deletion fails
// (spec §4.5).
func (c *LocalCommunicator) flush(names []string) error {
	var wg sync.WaitGroup
	errs := make([]error, len(names))
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			errs[i] = os.Remove(c.path(name))
		}(i, name)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *LocalCommunicator) CleanStorage(knownIDs []idprovider.Id) (int, error) {
	known := make(map[string]bool, len(knownIDs)*2)
	for _, id := range knownIDs {
		known[c.IDToCloudName(id)] = true
		known[c.IDToCloudHeader(id)] = true
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	toDelete := append([]string{}, c.queue...)
	c.queue = nil
	for _, e := range entries {
		name := e.Name()
		if name == LookupObjectName || known[name] {
			continue
		}
		already := false
		for _, q := range toDelete {
			if q == name {
				already = true
				break
			}
		}
		if !already {
			toDelete = append(toDelete, name)
		}
	}
	c.mu.Unlock()

	if err := c.flush(toDelete); err != nil {
		return 0, err
	}
	return len(toDelete), nil
}
