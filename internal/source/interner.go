package source

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
)

// StringID is a handle into a string Interner.
type StringID uint32

// NoStringID maps to the empty string.
const NoStringID StringID = 0

// Interner deduplicates strings and hands out stable IDs.
type Interner struct {
	byID  []string
	index map[string]StringID
}

func NewInterner() *Interner {
	return &Interner{
		byID:  []string{""},
		index: map[string]StringID{"": 0},
	}
}

// Intern returns the ID for s, creating one on first use.
func (in *Interner) Intern(s string) StringID {
	if id, ok := in.index[s]; ok {
		return id
	}
	// Own copy so the interner never aliases a caller's buffer.
	cpy := string([]byte(s))
	n, err := safecast.Conv[uint32](len(in.byID))
	if err != nil {
		panic(fmt.Errorf("interner overflow: %w", err))
	}
	id := StringID(n)
	in.byID = append(in.byID, cpy)
	in.index[cpy] = id
	return id
}

// Lookup returns the string for id, or ("", false) for an unknown ID.
func (in *Interner) Lookup(id StringID) (string, bool) {
	if int(id) >= len(in.byID) {
		return "", false
	}
	return in.byID[id], true
}

// MustLookup panics on an unknown ID.
func (in *Interner) MustLookup(id StringID) string {
	s, ok := in.Lookup(id)
	if !ok {
		panic("source: invalid StringID")
	}
	return s
}

func (in *Interner) Len() int {
	return len(in.byID)
}

// Snapshot returns a copy of all interned strings, indexed by StringID.
func (in *Interner) Snapshot() []string {
	return slices.Clone(in.byID)
}

// RestoreInterner rebuilds an interner from a Snapshot slice. Entry 0 must
// be the empty string and entries must be unique.
func RestoreInterner(strs []string) (*Interner, error) {
	if len(strs) == 0 || strs[0] != "" {
		return nil, fmt.Errorf("source: snapshot missing empty string at slot 0")
	}
	in := &Interner{
		byID:  slices.Clone(strs),
		index: make(map[string]StringID, len(strs)),
	}
	for i, s := range in.byID {
		if _, dup := in.index[s]; dup {
			return nil, fmt.Errorf("source: duplicate string %q in snapshot", s)
		}
		n, err := safecast.Conv[uint32](i)
		if err != nil {
			return nil, fmt.Errorf("interner overflow: %w", err)
		}
		in.index[s] = StringID(n)
	}
	return in, nil
}
