////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package model

import "strconv"

// RealtimeKind describes the shape of a realtime update pushed over the chat
// socket.
type RealtimeKind uint8

const (
	// RealtimeMessage is a new top-level message.
	RealtimeMessage RealtimeKind = iota

	// RealtimeReply is a new reply posted inside the thread of ParentID.
	RealtimeReply

	// RealtimeThreadMeta only carries new thread metadata for ParentID.
	RealtimeThreadMeta
)

// String returns a human-readable name of the RealtimeKind. This function
// adheres to the fmt.Stringer interface.
func (k RealtimeKind) String() string {
	switch k {
	case RealtimeMessage:
		return "message"
	case RealtimeReply:
		return "reply"
	case RealtimeThreadMeta:
		return "threadMeta"
	default:
		return "INVALID REALTIME KIND: " + strconv.Itoa(int(k))
	}
}

// RealtimeEvent is a normalized realtime update for a single channel.
type RealtimeEvent struct {
	Kind      RealtimeKind
	ChannelID string

	// Message is the new message or reply. It is empty for RealtimeThreadMeta.
	Message Message

	// ParentID is the thread parent targeted by a reply or metadata update.
	ParentID string

	// Thread is the thread summary carried by the frame, if any. For replies
	// a nil Thread means the reply count must be incremented locally.
	Thread *ThreadSummary

	// Timestamp is the server time of the event in milliseconds.
	Timestamp int64
}

// NavigationSource identifies what produced a navigation signal.
type NavigationSource string

const (
	// SourceDOM is a change observed in the page markup.
	SourceDOM NavigationSource = "dom"

	// SourceAPI is a channel-details or channel-create response.
	SourceAPI NavigationSource = "api"

	// SourceMessage is the first message received while no channel is
	// current.
	SourceMessage NavigationSource = "message"
)

// NavigationSignal is a raw hint that the user may be looking at a channel.
// ChannelID may be empty when only a display name is known.
type NavigationSignal struct {
	ChannelID string
	Name      string
	Source    NavigationSource
}
