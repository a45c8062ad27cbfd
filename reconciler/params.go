////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package reconciler

import "time"

// Params are parameters used in the [Reconciler].
type Params struct {
	// DebounceWindow is restarted by every navigation signal. Only the last
	// signal in the window is verified.
	DebounceWindow time.Duration `json:"debounceWindow"`

	// VerifyInterval is the delay between two DOM consistency checks.
	VerifyInterval time.Duration `json:"verifyInterval"`

	// VerifyAttempts is the number of DOM consistency checks made before the
	// signal is dropped.
	VerifyAttempts uint64 `json:"verifyAttempts"`
}

// DefaultParams returns the default parameters.
func DefaultParams() Params {
	return Params{
		DebounceWindow: 150 * time.Millisecond,
		VerifyInterval: 100 * time.Millisecond,
		VerifyAttempts: 5,
	}
}
