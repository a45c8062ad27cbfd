////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

//go:build js && wasm

// This file contains the generic IndexedDB helper functions used by the
// record store.

package indexedDb

import (
	"context"
	"syscall/js"
	"time"

	"github.com/hack-pad/go-indexeddb/idb"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"

	"gitlab.com/elixxir/wasm-utils/utils"
)

// dbTimeout is the global timeout for operations with the storage
// [context.Context].
const dbTimeout = time.Second

// errDoesNotExist is returned by get when the key has no value.
var errDoesNotExist = errors.New("result is undefined")

// newContext builds a context for indexedDb operations.
func newContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), dbTimeout)
}

// sendRequest is a wrapper for the request.Await() method providing a timeout.
func sendRequest(request *idb.Request) (js.Value, error) {
	ctx, cancel := newContext()
	defer cancel()
	result, err := request.Await(ctx)
	if err != nil {
		return js.Undefined(), err
	} else if ctx.Err() != nil {
		return js.Undefined(), ctx.Err()
	}
	return result, nil
}

// sendCursorRequest is a wrapper for the cursorRequest.Await() method
// providing a timeout.
func sendCursorRequest(cur *idb.CursorWithValueRequest,
	iterFunc func(cursor *idb.CursorWithValue) error) error {
	ctx, cancel := newContext()
	defer cancel()
	err := cur.Iter(ctx, iterFunc)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// objectStore opens a transaction on a single [idb.ObjectStore].
func objectStore(db *idb.Database, mode idb.TransactionMode,
	objectStoreName string) (*idb.ObjectStore, error) {
	txn, err := db.Transaction(mode, objectStoreName)
	if err != nil {
		return nil, errors.Errorf("Unable to create Transaction: %+v", err)
	}
	store, err := txn.ObjectStore(objectStoreName)
	if err != nil {
		return nil, errors.Errorf("Unable to get ObjectStore: %+v", err)
	}
	return store, nil
}

// get returns the value stored at the primary key or errDoesNotExist.
func get(db *idb.Database, objectStoreName string, key js.Value) (js.Value, error) {
	parentErr := errors.Errorf("failed to Get %s", objectStoreName)

	store, err := objectStore(db, idb.TransactionReadOnly, objectStoreName)
	if err != nil {
		return js.Undefined(), errors.WithMessagef(parentErr, "%+v", err)
	}

	getRequest, err := store.Get(key)
	if err != nil {
		return js.Undefined(), errors.WithMessagef(parentErr,
			"Unable to Get from ObjectStore: %+v", err)
	}

	resultObj, err := sendRequest(getRequest)
	if err != nil {
		return js.Undefined(), errors.WithMessagef(parentErr,
			"Unable to get from ObjectStore: %+v", err)
	} else if resultObj.IsUndefined() {
		return js.Undefined(), errDoesNotExist
	}

	jww.TRACE.Printf("[IDB] Got from %s: %s",
		objectStoreName, utils.JsToJson(resultObj))
	return resultObj, nil
}

// getAll returns every value of the [idb.ObjectStore] in primary key order.
func getAll(db *idb.Database, objectStoreName string) ([]js.Value, error) {
	parentErr := errors.Errorf("failed to GetAll %s", objectStoreName)

	store, err := objectStore(db, idb.TransactionReadOnly, objectStoreName)
	if err != nil {
		return nil, errors.WithMessagef(parentErr, "%+v", err)
	}

	cursorRequest, err := store.OpenCursor(idb.CursorNext)
	if err != nil {
		return nil, errors.WithMessagef(parentErr,
			"Unable to open Cursor: %+v", err)
	}
	result := make([]js.Value, 0)

	err = sendCursorRequest(cursorRequest,
		func(cursor *idb.CursorWithValue) error {
			row, err := cursor.Value()
			if err != nil {
				return err
			}
			result = append(result, row)
			return nil
		})
	if err != nil {
		return nil, errors.WithMessagef(parentErr, "%+v", err)
	}
	return result, nil
}

// put inserts the value or replaces the one stored at its primary key.
func put(db *idb.Database, objectStoreName string, value js.Value) error {
	store, err := objectStore(db, idb.TransactionReadWrite, objectStoreName)
	if err != nil {
		return err
	}

	request, err := store.Put(value)
	if err != nil {
		return errors.Errorf("Unable to Put: %+v", err)
	}

	if _, err = sendRequest(request); err != nil {
		return errors.Errorf("Putting value failed: %+v\n%s",
			err, utils.JsToJson(value))
	}
	jww.TRACE.Printf("[IDB] Put value in %s: %s",
		objectStoreName, utils.JsToJson(value))
	return nil
}
