////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package events

// Kind describes how an event should be handled. Every event variant has
// exactly one Kind.
type Kind string

// List of kinds that can be dispatched or registered for.
const (
	// Produced by the HTTP interceptors.
	ChannelMessagesKind  Kind = "ChannelMessages"
	ChannelChangelogKind Kind = "ChannelChangelog"
	ThreadRepliesKind    Kind = "ThreadReplies"
	ChannelDetailsKind   Kind = "ChannelDetails"
	DMCreatedKind        Kind = "DMCreated"

	// Produced by the socket interceptor.
	RealtimeKind         Kind = "Realtime"
	MessageUpdatedKind   Kind = "MessageUpdated"
	MessageSentKind      Kind = "MessageSent"
	MessageConfirmedKind Kind = "MessageConfirmed"
	ReadReceiptKind      Kind = "ReadReceipt"
	DeliveryReceiptKind  Kind = "DeliveryReceipt"
	TypingKind           Kind = "Typing"
	HeartbeatKind        Kind = "Heartbeat"
	BroadcastKind        Kind = "Broadcast"
	SystemEventKind      Kind = "SystemEvent"
	LoginKind            Kind = "Login"

	// Produced by the core for the UI.
	ChannelChangedKind Kind = "ChannelChanged"
	PanelRefreshKind   Kind = "PanelRefresh"
	BadgeUpdateKind    Kind = "BadgeUpdate"
)
