// internal/lobby/registry.go
package lobby

import (
	"sync"

	"github.com/cncnet/lobbyrelay/internal/announce"
)

// Handle is an opaque reference to the external rendering of a lobby,
// e.g. the ID of the listing message posted to Discord. The empty string
// means no rendering has been attached yet.
type Handle string

// Entry pairs the most recent Record for an announcer with the handle of its
// external rendering, if one exists.
type Entry struct {
	Record *announce.Record
	Handle Handle
}

// KeyedEntry is one snapshot element returned by Registry.Entries.
type KeyedEntry struct {
	Announcer string
	Entry     Entry
}

// Registry is the in-memory mapping from announcer identity (IRC nickname) to
// the lobby it currently hosts. It owns all mutation rules: an announcer has
// at most one entry, and closed lobbies are removed rather than retained.
// All methods are safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Lookup returns the current entry for announcer, if any.
func (r *Registry) Lookup(announcer string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[announcer]
	return e, ok
}

// Upsert inserts or replaces the record for announcer and returns the previous
// entry, if one existed. The previous entry's rendering handle is carried over
// to the new entry so the caller can decide whether to edit in place.
func (r *Registry) Upsert(announcer string, rec *announce.Record) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, existed := r.entries[announcer]
	next := Entry{Record: rec}
	if existed {
		next.Handle = prev.Handle
	}
	r.entries[announcer] = next
	return prev, existed
}

// Remove deletes the entry for announcer and returns it, if one existed.
func (r *Registry) Remove(announcer string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, existed := r.entries[announcer]
	if existed {
		delete(r.entries, announcer)
	}
	return prev, existed
}

// AttachHandle sets the rendering handle on the current entry for announcer.
// It reports false if the entry no longer exists, which can happen when the
// lobby was closed or swept while the rendering was being created.
func (r *Registry) AttachHandle(announcer string, h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[announcer]
	if !ok {
		return false
	}
	e.Handle = h
	r.entries[announcer] = e
	return true
}

// Entries returns a point-in-time snapshot of all entries. Mutations made
// after the call are not reflected in the returned slice, so it is safe to
// sweep over while other announcements are being processed.
func (r *Registry) Entries() []KeyedEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot := make([]KeyedEntry, 0, len(r.entries))
	for k, e := range r.entries {
		snapshot = append(snapshot, KeyedEntry{Announcer: k, Entry: e})
	}
	return snapshot
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
