////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package events

import (
	"gitlab.com/threadkeeper/threadkeeper-wasm/model"
)

// Event is a typed event variant passed through the Dispatcher.
type Event interface {
	Kind() Kind
}

// ChannelMessages is a message-list snapshot for one channel.
type ChannelMessages struct {
	ChannelID string
	Messages  []model.Message
}

// ChannelChangelog is a changelog diff for one channel.
type ChannelChangelog struct {
	ChannelID string
	Changelog model.Changelog
}

// ThreadReplies is a list of replies fetched for one thread parent.
type ThreadReplies struct {
	ChannelID string
	ParentID  string
	Replies   []model.Message
}

// ChannelDetails is channel metadata asserted by the chat API.
type ChannelDetails struct {
	Channel model.Channel
}

// DMCreated is a newly created (or reopened) distinct channel.
type DMCreated struct {
	Channel model.Channel
}

// Realtime is a normalized socket push that affects the message cache.
type Realtime struct {
	Update model.RealtimeEvent
}

// MessageUpdated is an in-place edit of an existing message.
type MessageUpdated struct {
	Message model.Message
}

// MessageSent is a message sent by the local user, either observed on the
// outbound socket or in a send-endpoint response.
type MessageSent struct {
	ChannelID string
	RequestID string
	Message   model.Message
}

// MessageConfirmed is the server echo of a previously sent message.
type MessageConfirmed struct {
	ChannelID string
	RequestID string
	MessageID string
}

// ReadReceipt reports that a member read a channel up to Timestamp.
type ReadReceipt struct {
	ChannelID string
	UserID    string
	Timestamp int64
}

// DeliveryReceipt reports message delivery in a channel.
type DeliveryReceipt struct {
	ChannelID string
	Timestamp int64
}

// Typing reports a typing indicator change.
type Typing struct {
	ChannelID string
	UserID    string
	Started   bool
}

// Heartbeat is a socket keep-alive. Ack is true for the server reply.
type Heartbeat struct {
	Ack bool
}

// Broadcast is a broadcast frame. Payload is the raw frame body.
type Broadcast struct {
	ChannelID string
	Payload   []byte
}

// SystemEvent is a channel-level system event (joins, leaves, renames).
type SystemEvent struct {
	ChannelID string
	Category  int64
}

// Login is the socket login acknowledgement.
type Login struct {
	Success bool
	UserID  string
	Error   string
}

// ChannelChanged is emitted when the current channel changes.
type ChannelChanged struct {
	Previous string
	Current  string
	Source   model.NavigationSource
}

// PanelRefresh asks the UI to repaint the thread panel. HasContent is true if
// the channel's threads are already cached.
type PanelRefresh struct {
	ChannelID  string
	HasContent bool
}

// BadgeUpdate carries the new unread thread count of the active channel.
type BadgeUpdate struct {
	ChannelID string
	Unread    int
}

func (ChannelMessages) Kind() Kind  { return ChannelMessagesKind }
func (ChannelChangelog) Kind() Kind { return ChannelChangelogKind }
func (ThreadReplies) Kind() Kind    { return ThreadRepliesKind }
func (ChannelDetails) Kind() Kind   { return ChannelDetailsKind }
func (DMCreated) Kind() Kind        { return DMCreatedKind }
func (Realtime) Kind() Kind         { return RealtimeKind }
func (MessageUpdated) Kind() Kind   { return MessageUpdatedKind }
func (MessageSent) Kind() Kind      { return MessageSentKind }
func (MessageConfirmed) Kind() Kind { return MessageConfirmedKind }
func (ReadReceipt) Kind() Kind      { return ReadReceiptKind }
func (DeliveryReceipt) Kind() Kind  { return DeliveryReceiptKind }
func (Typing) Kind() Kind           { return TypingKind }
func (Heartbeat) Kind() Kind        { return HeartbeatKind }
func (Broadcast) Kind() Kind        { return BroadcastKind }
func (SystemEvent) Kind() Kind      { return SystemEventKind }
func (Login) Kind() Kind            { return LoginKind }
func (ChannelChanged) Kind() Kind   { return ChannelChangedKind }
func (PanelRefresh) Kind() Kind     { return PanelRefreshKind }
func (BadgeUpdate) Kind() Kind      { return BadgeUpdateKind }
