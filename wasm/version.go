////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

//go:build js && wasm

package wasm

import (
	"syscall/js"

	"gitlab.com/threadkeeper/threadkeeper-wasm/storage"
)

// GetVersion returns the storage.SEMVER.
//
// Returns:
//   - string
func GetVersion(js.Value, []js.Value) any {
	return storage.SEMVER
}
