////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package interceptor

import "time"

// Params are parameters used in the [Interceptor].
type Params struct {
	// APIHost is matched against the host of HTTP requests to find chat API
	// calls.
	APIHost string `json:"apiHost"`

	// SocketHost is matched against the host of socket URLs to find the chat
	// realtime socket.
	SocketHost string `json:"socketHost"`

	// ThreadInfoParam is the query parameter appended to message-list
	// requests so that responses carry thread metadata.
	ThreadInfoParam string `json:"threadInfoParam"`

	// CorrelationTTL is how long an outbound message waits for its server
	// echo.
	CorrelationTTL time.Duration `json:"correlationTTL"`

	// LogPayloadLength is the maximum length of payloads printed in logs.
	LogPayloadLength int `json:"logPayloadLength"`

	// EventLogging prints every intercepted payload at TRACE level.
	EventLogging bool `json:"eventLogging"`
}

// DefaultParams returns the default parameters.
func DefaultParams() Params {
	return Params{
		APIHost:          "sendbird.com",
		SocketHost:       "sendbird.com",
		ThreadInfoParam:  "include_thread_info",
		CorrelationTTL:   5 * time.Second,
		LogPayloadLength: 128,
	}
}
