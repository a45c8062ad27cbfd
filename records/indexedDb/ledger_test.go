////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

//go:build js && wasm

package indexedDb

import (
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"gitlab.com/threadkeeper/threadkeeper-wasm/storage"
)

// refusingKV holds nothing and refuses every value, like local storage with an
// exhausted quota.
type refusingKV struct{}

func (refusingKV) Get(string) ([]byte, error) { return nil, os.ErrNotExist }
func (refusingKV) Set(string, []byte) error {
	return errors.New("QuotaExceededError")
}

// Tests that a read time set in the ledger is loaded back and that unknown
// threads have no read time.
func TestLedger_SetLastRead(t *testing.T) {
	ns := storage.NewNamespace("ledgerTest")
	ns.Clear()
	defer ns.Clear()
	l := &Ledger{kv: ns}

	require.Zero(t, l.LastRead("42"))
	require.NoError(t, l.SetLastRead("42", 1_700_000))
	if received := l.LastRead("42"); received != 1_700_000 {
		t.Errorf("Unexpected last read time.\nexpected: %d\nreceived: %d",
			1_700_000, received)
	}

	require.Error(t, l.SetLastRead("", 1))

	require.NoError(t, ns.Set("bad", []byte("x")))
	require.Zero(t, l.LastRead("bad"))
}

// Tests that SetLastRead returns the error of a storage that refuses the
// value.
func TestLedger_SetLastRead_StorageError(t *testing.T) {
	l := &Ledger{kv: refusingKV{}}
	if err := l.SetLastRead("42", 1); err == nil {
		t.Error("No error when storage refused the value.")
	}
}
