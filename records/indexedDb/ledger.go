////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

//go:build js && wasm

package indexedDb

import (
	"strconv"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"

	"gitlab.com/threadkeeper/threadkeeper-wasm/storage"
)

// ledgerNamespace is the local storage namespace of the read ledger.
const ledgerNamespace = "lastRead"

// Ledger implements [records.Ledger] in local storage. Unlike IndexedDb, local
// storage answers synchronously, so LastRead can be called while the thread
// list is recomputed.
type Ledger struct {
	kv storage.KeyValue
}

// NewLedger returns a Ledger in the page's local storage.
func NewLedger() *Ledger {
	return &Ledger{kv: storage.NewNamespace(ledgerNamespace)}
}

// LastRead returns the last read time of the thread or 0.
func (l *Ledger) LastRead(messageID string) int64 {
	data, err := l.kv.Get(messageID)
	if err != nil {
		return 0
	}
	ts, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		jww.WARN.Printf("[IDB] Invalid last read time for thread %s: %q",
			messageID, data)
		return 0
	}
	return ts
}

// SetLastRead stores the last read time of the thread. Returns an error if
// local storage refuses the value.
func (l *Ledger) SetLastRead(messageID string, ts int64) error {
	if messageID == "" {
		return errors.New("cannot mark thread without message ID as read")
	}
	return l.kv.Set(messageID, []byte(strconv.FormatInt(ts, 10)))
}
