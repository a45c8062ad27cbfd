////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package model contains the internal representation of channels, messages and
// threads observed on the hosted chat application, and the normalization layer
// that converts raw Sendbird JSON into them.
package model

import "strings"

// ChannelPrefix is the prefix of every Sendbird group channel URL.
const ChannelPrefix = "sendbird_group_channel_"

// IsChannelID returns true if the string looks like a Sendbird group channel
// URL.
func IsChannelID(s string) bool {
	return strings.HasPrefix(s, ChannelPrefix) && len(s) > len(ChannelPrefix)
}

// Channel is a conversation as asserted by the chat API or scraped from the
// page.
type Channel struct {
	ID          string `json:"channelUrl"`
	Name        string `json:"name"`
	Distinct    bool   `json:"distinct"`
	MemberCount int    `json:"memberCount"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// Sender identifies the author of a message.
type Sender struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Message is a single message in a channel. IDs are unique within a channel.
type Message struct {
	ID            string         `json:"id"`
	ChannelID     string         `json:"channelUrl"`
	Text          string         `json:"text"`
	Sender        Sender         `json:"sender"`
	CreatedAt     int64          `json:"createdAt"`
	ParentID      string         `json:"parentId,omitempty"`
	HasAttachment bool           `json:"hasAttachment,omitempty"`
	Thread        *ThreadSummary `json:"thread,omitempty"`

	// RequestID is the client generated correlation ID of a message sent
	// over the socket. It is empty for messages received from others.
	RequestID string `json:"requestId,omitempty"`
}

// IsReply returns true if the message was posted inside a thread.
func (m Message) IsReply() bool {
	return m.ParentID != "" && m.ParentID != "0"
}

// HasThread returns true if the message is the parent of at least one reply.
func (m Message) HasThread() bool {
	return m.Thread != nil && m.Thread.ReplyCount > 0
}

// Changelog is an incremental diff of previously fetched messages.
type Changelog struct {
	Updated []Message `json:"updated"`
	Deleted []string  `json:"deleted"`
}
