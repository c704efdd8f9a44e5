package application

import (
	"sort"
	"strconv"
	"strings"
	"sync"
)

// consumerPrefix is the human-readable prefix of consumer names.
const consumerPrefix = "Consumer-"

// DefaultInstance is the instance a name resolves to when it carries no instance number.
const DefaultInstance = 1

// ConsumerName returns the directory name of an instance.
func ConsumerName(instance int) string {
	return consumerPrefix + strconv.Itoa(instance)
}

// CursorDirectory maps consumer names to live consumer handles.
// It only resolves names; it holds no message state.
type CursorDirectory struct {
	mu      sync.RWMutex
	names   map[string]int
	handles map[int]*ConsumerHandle
}

// NewCursorDirectory creates an empty directory.
func NewCursorDirectory() *CursorDirectory {
	return &CursorDirectory{
		names:   make(map[string]int),
		handles: make(map[int]*ConsumerHandle),
	}
}

// Register adds h under its name and instance id, replacing any previous entry.
func (d *CursorDirectory) Register(h *ConsumerHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.names[h.Name] = h.InstanceID
	d.handles[h.InstanceID] = h
}

// Unregister removes the handle of instance.
func (d *CursorDirectory) Unregister(instance int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if h, ok := d.handles[instance]; ok {
		delete(d.names, h.Name)
		delete(d.handles, instance)
	}
}

// Resolve maps a name to an instance id. Registered names win; otherwise
// "Consumer-<n>" maps to n and anything else to DefaultInstance.
func (d *CursorDirectory) Resolve(name string) int {
	d.mu.RLock()
	id, ok := d.names[name]
	d.mu.RUnlock()
	if ok {
		return id
	}
	if rest, found := strings.CutPrefix(name, consumerPrefix); found {
		if n, err := strconv.Atoi(rest); err == nil && n > 0 {
			return n
		}
	}
	return DefaultInstance
}

// Lookup returns the live handle a name resolves to.
func (d *CursorDirectory) Lookup(name string) (*ConsumerHandle, bool) {
	id := d.Resolve(name)
	d.mu.RLock()
	defer d.mu.RUnlock()
	h, ok := d.handles[id]
	return h, ok
}

// Handles returns all registered handles ordered by instance id.
func (d *CursorDirectory) Handles() []*ConsumerHandle {
	d.mu.RLock()
	out := make([]*ConsumerHandle, 0, len(d.handles))
	for _, h := range d.handles {
		out = append(out, h)
	}
	d.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].InstanceID < out[j].InstanceID })
	return out
}
