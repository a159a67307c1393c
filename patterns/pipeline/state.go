package pipeline

import (
	"fmt"
	"slices"
)

// Value is anything a stage can write: plain text, a decoded JSON record
// (map[string]any) or a bool.
type Value = any

// Entry is one key/value pair of a Patch.
type Entry struct {
	Key   string
	Value Value
}

// Patch is the ordered list of writes a step produced. Steps return patches
// instead of writing into the shared state themselves.
type Patch []Entry

// Keys returns the keys written by the patch, in order.
func (patch Patch) Keys() []string {
	keys := make([]string, len(patch))
	for i, entry := range patch {
		keys[i] = entry.Key
	}
	return keys
}

// SharedState is the keyed blackboard of one run. Keys are write-once and
// remember their insertion order. It is owned by the goroutine driving the
// run and is not safe for concurrent use; concurrent steps read snapshots.
type SharedState struct {
	values map[string]Value
	order  []string
}

// NewSharedState returns an empty state.
func NewSharedState() *SharedState {
	return &SharedState{values: make(map[string]Value)}
}

// Set writes value under key. Writing a key twice fails with ErrKeyExists.
func (state *SharedState) Set(key string, value Value) error {
	if key == "" {
		return ErrEmptyKey
	}
	if _, exists := state.values[key]; exists {
		return fmt.Errorf("%w: %q", ErrKeyExists, key)
	}
	state.values[key] = value
	state.order = append(state.order, key)
	return nil
}

// Apply commits every entry of patch in order. The patch is checked as a
// whole first, so a conflicting patch leaves the state untouched.
func (state *SharedState) Apply(patch Patch) error {
	if err := checkPatch(state.values, patch); err != nil {
		return err
	}
	for _, entry := range patch {
		state.values[entry.Key] = entry.Value
		state.order = append(state.order, entry.Key)
	}
	return nil
}

// Get returns the value stored under key.
func (state *SharedState) Get(key string) (Value, bool) {
	value, ok := state.values[key]
	return value, ok
}

// Keys returns the written keys in insertion order.
func (state *SharedState) Keys() []string {
	return slices.Clone(state.order)
}

// Len returns the number of written keys.
func (state *SharedState) Len() int {
	return len(state.order)
}

// Snapshot returns an immutable view of the current contents.
func (state *SharedState) Snapshot() Snapshot {
	return Snapshot{values: state.values, order: state.order}.clone()
}

// Snapshot is a read-only view of a SharedState at one point in time. The
// zero value is an empty snapshot. Snapshots are safe for concurrent reads.
type Snapshot struct {
	values map[string]Value
	order  []string
}

// Get returns the value stored under key.
func (snapshot Snapshot) Get(key string) (Value, bool) {
	value, ok := snapshot.values[key]
	return value, ok
}

// Keys returns the keys in write order.
func (snapshot Snapshot) Keys() []string {
	return slices.Clone(snapshot.order)
}

// Len returns the number of keys.
func (snapshot Snapshot) Len() int {
	return len(snapshot.order)
}

// With returns a new snapshot extended by patch, leaving the receiver
// unchanged. It enforces the same write-once rule as SharedState.
func (snapshot Snapshot) With(patch Patch) (Snapshot, error) {
	if err := checkPatch(snapshot.values, patch); err != nil {
		return snapshot, err
	}
	extended := snapshot.clone()
	for _, entry := range patch {
		extended.values[entry.Key] = entry.Value
		extended.order = append(extended.order, entry.Key)
	}
	return extended, nil
}

func (snapshot Snapshot) clone() Snapshot {
	values := make(map[string]Value, len(snapshot.values))
	for key, value := range snapshot.values {
		values[key] = value
	}
	return Snapshot{values: values, order: slices.Clone(snapshot.order)}
}

// checkPatch rejects empty keys, keys already present and keys repeated
// inside the patch itself.
func checkPatch(existing map[string]Value, patch Patch) error {
	seen := make(map[string]bool, len(patch))
	for _, entry := range patch {
		if entry.Key == "" {
			return ErrEmptyKey
		}
		if _, exists := existing[entry.Key]; exists || seen[entry.Key] {
			return fmt.Errorf("%w: %q", ErrKeyExists, entry.Key)
		}
		seen[entry.Key] = true
	}
	return nil
}
