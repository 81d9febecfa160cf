// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package replay

// maskTableSize is the span of the identifier admit table. Identifiers are a
// signed 32-bit space on the wire, but the table is only meaningfully sized
// for one byte; everything outside routes through the unknown-packet policy.
const maskTableSize = 256

// FilterMask is a per-identifier admit/reject policy.
//
// A mask is built once from include/exclude lists and then treated as
// immutable; the Merger only ever consults it. When the same identifier
// appears in both lists, the last operation wins.
type FilterMask struct {
	table   [maskTableSize]bool
	unknown bool
}

// NewFilterMask returns a mask whose table entries all start as
// defaultAdmit and whose out-of-table policy is admitUnknown.
func NewFilterMask(defaultAdmit, admitUnknown bool) *FilterMask {
	m := FilterMask{unknown: admitUnknown}
	if defaultAdmit {
		for i := range m.table {
			m.table[i] = true
		}
	}
	return &m
}

// Include marks the given identifiers admitted.
func (m *FilterMask) Include(ids ...uint8) *FilterMask {
	for _, id := range ids {
		m.table[id] = true
	}
	return m
}

// Exclude marks the given identifiers rejected.
func (m *FilterMask) Exclude(ids ...uint8) *FilterMask {
	for _, id := range ids {
		m.table[id] = false
	}
	return m
}

// Admits returns the mask's policy for id.
//
// Identifiers outside the table, including negative ones, use the
// unknown-packet policy rather than indexing out of bounds.
func (m *FilterMask) Admits(id int32) bool {
	if id < 0 || id >= maskTableSize {
		return m.unknown
	}
	return m.table[id]
}
