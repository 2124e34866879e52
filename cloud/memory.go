package cloud

import (
	"errors"
	"sync"

	"github.com/younisk/forward-secure-cloud-storage/idprovider"
)

// maxDeleteQueueSize mirrors the original GCS adapter's flush threshold:
// once the pending-delete queue grows past this many names, the next
// HandleDeleteQueue call flushes it.
const maxDeleteQueueSize = 20

// ErrNotFound is returned by ReadFromCloud for a name that was never
// written (or has since been deleted).
var ErrNotFound = errors.New("cloud: object not found")

// MemoryCommunicator is a functional in-memory Communicator, standing in
// for a real object store in tests and local experimentation. Unlike the
// original's benchmark-only no-op mock, this one actually stores and
// retrieves bytes, so operator round-trips can be exercised without a
// live cloud account.
type MemoryCommunicator struct {
	mu      sync.Mutex
	objects map[string][]byte
	queue   []string
}

var _ Communicator = (*MemoryCommunicator)(nil)

func NewMemoryCommunicator() *MemoryCommunicator {
	return &MemoryCommunicator{objects: map[string][]byte{}}
}

func (c *MemoryCommunicator) IDToCloudName(id idprovider.Id) string   { return idToCloudName(id) }
func (c *MemoryCommunicator) IDToCloudHeader(id idprovider.Id) string { return idToCloudHeader(id) }

func (c *MemoryCommunicator) WriteToCloud(id idprovider.Id, wrappedKey, encryptedFile, nonce []byte) error {
	var wg sync.WaitGroup
	var fileErr, headerErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		fileErr = c.put(c.IDToCloudName(id), append(append([]byte{}, nonce...), encryptedFile...))
	}()
	go func() {
		defer wg.Done()
		headerErr = c.put(c.IDToCloudHeader(id), wrappedKey)
	}()
	wg.Wait()
	if fileErr != nil {
		c.delete(c.IDToCloudHeader(id))
		return fileErr
	}
	if headerErr != nil {
		c.delete(c.IDToCloudName(id))
		return headerErr
	}
	return nil
}

func (c *MemoryCommunicator) WriteHeaderToCloud(id idprovider.Id, wrappedKey []byte) error {
	return c.put(c.IDToCloudHeader(id), wrappedKey)
}

func (c *MemoryCommunicator) ReadFromCloud(name string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.objects[name]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (c *MemoryCommunicator) WriteLookupTableToCloud(encrypted []byte) error {
	return c.put(LookupObjectName, encrypted)
}

func (c *MemoryCommunicator) ReadLookupTableFromCloud() ([]byte, error) {
	return c.ReadFromCloud(LookupObjectName)
}

func (c *MemoryCommunicator) EnqueueDelete(id idprovider.Id) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append(c.queue, c.IDToCloudName(id), c.IDToCloudHeader(id))
}

func (c *MemoryCommunicator) HandleDeleteQueue() error {
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

func (c *MemoryCommunicator) flush(names []string) error {
	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			c.delete(name)
		}(name)
	}
	wg.Wait()
	return nil
}

func (c *MemoryCommunicator) CleanStorage(knownIDs []idprovider.Id) (int, error) {
	known := make(map[string]bool, len(knownIDs)*2)
	for _, id := range knownIDs {
		known[c.IDToCloudName(id)] = true
		known[c.IDToCloudHeader(id)] = true
	}

	c.mu.Lock()
	var queue []string
	c.queue, queue = nil, c.queue
	toDelete := append([]string{}, queue...)
	for name := range c.objects {
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

func (c *MemoryCommunicator) put(name string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	c.objects[name] = cp
	return nil
}

func (c *MemoryCommunicator) delete(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.objects, name)
}
