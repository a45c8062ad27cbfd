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

	jww "github.com/spf13/jwalterweatherman"

	"gitlab.com/threadkeeper/threadkeeper-wasm/records"
	"gitlab.com/threadkeeper/threadkeeper-wasm/storage"
)

func TestMain(m *testing.M) {
	jww.SetStdoutThreshold(jww.LevelDebug)
	os.Exit(m.Run())
}

// Tests that records survive a round trip through IndexedDb and that
// FindByName works against the store.
func TestStore_Upsert(t *testing.T) {
	s, err := NewStore("TestStore_Upsert")
	if err != nil {
		t.Fatalf("Failed to open store: %+v", err)
	}
	defer s.Close()

	if _, err = s.Get("missing"); !records.IsNotFound(err) {
		t.Errorf("Unexpected error for missing record: %+v", err)
	}

	expected := records.Record{
		ChannelID: "c1", Name: "General", MemberCount: 4, UpdatedAt: 1000}
	if err = s.Upsert(expected); err != nil {
		t.Fatalf("Failed to upsert: %+v", err)
	}
	if err = s.Upsert(records.Record{ChannelID: "c2", Name: "Random"}); err != nil {
		t.Fatalf("Failed to upsert: %+v", err)
	}

	received, err := s.Get("c1")
	if err != nil {
		t.Fatalf("Failed to get: %+v", err)
	}
	if received != expected {
		t.Errorf("Unexpected record.\nexpected: %+v\nreceived: %+v",
			expected, received)
	}

	all, err := s.GetAll()
	if err != nil || len(all) != 2 {
		t.Errorf("Unexpected records %+v: %+v", all, err)
	}

	found, err := records.FindByName(s, "random")
	if err != nil || found.ChannelID != "c2" {
		t.Errorf("Unexpected record by name %+v: %+v", found, err)
	}

	if err = s.Upsert(records.Record{}); err == nil {
		t.Errorf("No error for record without channel ID.")
	}
}

// Tests that the Ledger stores read times per thread.
func TestLedger(t *testing.T) {
	l := NewLedger()
	l.kv.(*storage.Namespace).Clear()

	if ts := l.LastRead("m1"); ts != 0 {
		t.Errorf("Unexpected time for unread thread: %d", ts)
	}
	if err := l.SetLastRead("m1", 1_700_000_000_000); err != nil {
		t.Fatalf("Failed to set last read: %+v", err)
	}
	if ts := l.LastRead("m1"); ts != 1_700_000_000_000 {
		t.Errorf("Unexpected last read.\nexpected: %d\nreceived: %d",
			int64(1_700_000_000_000), ts)
	}
	if err := l.SetLastRead("", 1); err == nil {
		t.Errorf("No error for empty message ID.")
	}
}
