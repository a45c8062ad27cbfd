////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package store

import "time"

// Params are parameters used in the [Store].
type Params struct {
	// MaxChannels is the maximum number of channels kept in memory before the
	// least recently updated one is evicted.
	MaxChannels int `json:"maxChannels"`

	// ReadBuffer is added to the current time when a thread is marked as read
	// so that replies stamped by a slightly fast server clock are not
	// reported as unread.
	ReadBuffer time.Duration `json:"readBuffer"`

	// PreviewCount is the number of most recent replies kept per thread.
	PreviewCount int `json:"previewCount"`
}

// DefaultParams returns the default parameters.
func DefaultParams() Params {
	return Params{
		MaxChannels:  20,
		ReadBuffer:   time.Second,
		PreviewCount: 2,
	}
}
