package klox

// Table is an open-addressed hash table with linear probing, used for
// globals, string interning, class method sets, and instance fields.
// Capacity is always a power of two; growth keeps the load factor at
// or below tableMaxLoad.
const tableMaxLoad = 0.75

type entry struct {
	key   *ObjString // nil key + Nil value marks an empty slot; nil key + Bool(true) value marks a tombstone
	value Value
	tomb  bool
}

type Table struct {
	count    int // live entries + tombstones
	entries  []entry
}

func NewTable() *Table { return &Table{} }

func (t *Table) Count() int { return t.count }

// Get looks up key, returning its value and whether it was present.
func (t *Table) Get(key *ObjString) (Value, bool) {
	if len(t.entries) == 0 {
		return NilValue(), false
	}
	e := t.findEntry(t.entries, key)
	if e.key == nil {
		return NilValue(), false
	}
	return e.value, true
}

// Set inserts or overwrites key -> value. Returns true if this added a
// brand new key (not previously present, including over a tombstone).
func (t *Table) Set(key *ObjString, value Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*tableMaxLoad {
		t.grow(growCapacity(len(t.entries)))
	}
	e := t.findEntry(t.entries, key)
	isNewKey := e.key == nil
	if isNewKey && !e.tomb {
		t.count++
	}
	e.key = key
	e.value = value
	e.tomb = false
	return isNewKey
}

// Delete removes key, leaving a tombstone behind so later probe chains
// through this slot remain valid.
func (t *Table) Delete(key *ObjString) bool {
	if len(t.entries) == 0 {
		return false
	}
	e := t.findEntry(t.entries, key)
	if e.key == nil {
		return false
	}
	e.key = nil
	e.value = BoolValue(true)
	e.tomb = true
	return true
}

// AddAll copies every entry of src into t, used by class inheritance
// to seed a subclass's method table with its superclass's methods.
func (t *Table) AddAll(src *Table) {
	for i := range src.entries {
		e := &src.entries[i]
		if e.key != nil {
			t.Set(e.key, e.value)
		}
	}
}

// FindString looks up an interned string by raw content and precomputed
// hash without allocating an ObjString, so the string-intern path
// (copyString in gc.go) can check "do we already have this string"
// before deciding whether to allocate one.
func (t *Table) FindString(chars string, hash uint32) *ObjString {
	if len(t.entries) == 0 {
		return nil
	}
	mask := uint32(len(t.entries) - 1)
	idx := hash & mask
	for {
		e := &t.entries[idx]
		if e.key == nil {
			if !e.tomb {
				return nil
			}
		} else if e.key.Hash == hash && e.key.Chars == chars {
			return e.key
		}
		idx = (idx + 1) & mask
	}
}

func (t *Table) findEntry(entries []entry, key *ObjString) *entry {
	mask := uint32(len(entries) - 1)
	idx := key.Hash & mask
	var tombstone *entry
	for {
		e := &entries[idx]
		if e.key == nil {
			if !e.tomb {
				if tombstone != nil {
					return tombstone
				}
				return e
			}
			if tombstone == nil {
				tombstone = e
			}
		} else if e.key == key {
			return e
		}
		idx = (idx + 1) & mask
	}
}

func (t *Table) grow(capacity int) {
	entries := make([]entry, capacity)
	t.count = 0
	for i := range t.entries {
		e := &t.entries[i]
		if e.key == nil {
			continue
		}
		dst := t.findEntry(entries, e.key)
		dst.key = e.key
		dst.value = e.value
		t.count++
	}
	t.entries = entries
}

func growCapacity(capacity int) int {
	if capacity < 8 {
		return 8
	}
	return capacity * 2
}

// MarkTable marks every key and value reachable from t as part of the
// GC's trace phase.
func MarkTable(gc *gcState, t *Table) {
	for i := range t.entries {
		e := &t.entries[i]
		if e.key != nil {
			gc.markObject(e.key)
			gc.markValue(e.value)
		}
	}
}

// removeWhite deletes every entry whose key is unmarked, used to purge
// the string-intern table of the strings the following sweep is about
// to collect. A method rather than a free function, since every other
// Table mutator is already a method here.
func (t *Table) removeWhite() {
	for i := range t.entries {
		e := &t.entries[i]
		if e.key != nil && !e.key.isMarked {
			t.Delete(e.key)
		}
	}
}
