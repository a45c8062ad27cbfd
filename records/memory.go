////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package records

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Memory is an in-memory Store. It is used when no persistent storage is
// available and in tests.
type Memory struct {
	records map[string]Record
	mux     sync.RWMutex
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]Record)}
}

// Get returns the record for the channel or ErrNotFound.
func (m *Memory) Get(channelID string) (Record, error) {
	m.mux.RLock()
	defer m.mux.RUnlock()

	r, exists := m.records[channelID]
	if !exists {
		return Record{}, ErrNotFound
	}
	return r, nil
}

// GetAll returns every stored record ordered by channel ID.
func (m *Memory) GetAll() ([]Record, error) {
	m.mux.RLock()
	defer m.mux.RUnlock()

	all := make([]Record, 0, len(m.records))
	for _, r := range m.records {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].ChannelID < all[j].ChannelID
	})
	return all, nil
}

// Upsert inserts or replaces the record.
func (m *Memory) Upsert(r Record) error {
	if r.ChannelID == "" {
		return errors.New("cannot upsert record without channel ID")
	}

	m.mux.Lock()
	defer m.mux.Unlock()
	m.records[r.ChannelID] = r
	return nil
}

// MemoryLedger is an in-memory Ledger.
type MemoryLedger struct {
	lastRead map[string]int64
	mux      sync.RWMutex
}

// NewMemoryLedger returns an empty MemoryLedger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{lastRead: make(map[string]int64)}
}

// LastRead returns the last read time of the thread or 0.
func (l *MemoryLedger) LastRead(messageID string) int64 {
	l.mux.RLock()
	defer l.mux.RUnlock()
	return l.lastRead[messageID]
}

// SetLastRead stores the last read time of the thread.
func (l *MemoryLedger) SetLastRead(messageID string, ts int64) error {
	if messageID == "" {
		return errors.New("cannot mark thread without message ID as read")
	}

	l.mux.Lock()
	defer l.mux.Unlock()
	l.lastRead[messageID] = ts
	return nil
}
