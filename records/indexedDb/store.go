////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

//go:build js && wasm

// Package indexedDb persists chat records in the browser's IndexedDB and the
// thread read ledger in local storage.
package indexedDb

import (
	"encoding/json"
	"syscall/js"

	"github.com/hack-pad/go-indexeddb/idb"
	"github.com/pkg/errors"

	"gitlab.com/elixxir/wasm-utils/utils"

	"gitlab.com/threadkeeper/threadkeeper-wasm/records"
)

// Store implements [records.Store] backed by IndexedDb.
//
// Its methods block until the database answers and must not be called from a
// Javascript callback.
type Store struct {
	db *idb.Database
}

// Get returns the record for the channel or [records.ErrNotFound].
func (s *Store) Get(channelID string) (records.Record, error) {
	result, err := get(s.db, recordStoreName, js.ValueOf(channelID))
	if err != nil {
		if errors.Is(err, errDoesNotExist) {
			return records.Record{}, records.ErrNotFound
		}
		return records.Record{}, err
	}

	var r records.Record
	if err = json.Unmarshal([]byte(utils.JsToJson(result)), &r); err != nil {
		return records.Record{}, errors.Wrapf(err,
			"failed to unmarshal record for %s", channelID)
	}
	return r, nil
}

// GetAll returns every stored record ordered by channel ID.
func (s *Store) GetAll() ([]records.Record, error) {
	rows, err := getAll(s.db, recordStoreName)
	if err != nil {
		return nil, err
	}

	all := make([]records.Record, 0, len(rows))
	for _, row := range rows {
		var r records.Record
		if err = json.Unmarshal([]byte(utils.JsToJson(row)), &r); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal record")
		}
		all = append(all, r)
	}
	return all, nil
}

// Upsert inserts or replaces the record.
func (s *Store) Upsert(r records.Record) error {
	if r.ChannelID == "" {
		return errors.New("cannot upsert record without channel ID")
	}

	data, err := json.Marshal(r)
	if err != nil {
		return errors.Errorf("Unable to marshal Record: %+v", err)
	}
	obj, err := utils.JsonToJS(data)
	if err != nil {
		return errors.Errorf("Unable to marshal Record: %+v", err)
	}

	if err = put(s.db, recordStoreName, obj); err != nil {
		return errors.WithMessagef(err, "failed to put record %s", r.ChannelID)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
