////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package model

import (
	"reflect"
	"testing"
)

// Tests that ParseMessage accepts the REST field names.
func TestParseMessage_Rest(t *testing.T) {
	raw := []byte(`{"message_id":42,"channel_url":"sendbird_group_channel_1",
		"message":"hello","created_at":1000,
		"user":{"user_id":"u1","nickname":"Alice","profile_url":"a.png"},
		"thread_info":{"reply_count":2,"last_replied_at":900,"updated_at":950},
		"file":{"url":"x"}}`)

	expected := Message{
		ID:            "42",
		ChannelID:     "sendbird_group_channel_1",
		Text:          "hello",
		Sender:        Sender{ID: "u1", Name: "Alice", AvatarURL: "a.png"},
		CreatedAt:     1000,
		HasAttachment: true,
		Thread: &ThreadSummary{
			ReplyCount: 2, LastRepliedAt: 900, UpdatedAt: 950},
	}

	received, err := ParseMessage(raw)
	if err != nil {
		t.Fatalf("Failed to parse message: %+v", err)
	}

	if !reflect.DeepEqual(expected, received) {
		t.Errorf("Unexpected message.\nexpected: %+v\nreceived: %+v",
			expected, received)
	}
}

// Tests that ParseMessage accepts the socket field names.
func TestParseMessage_Socket(t *testing.T) {
	raw := []byte(`{"msg_id":7,"channel_url":"sendbird_group_channel_2",
		"message":"yo","ts":55,"parent_message_id":3,"req_id":"rq1",
		"user":{"guest_id":"u2","name":"Bob","image":"b.png"}}`)

	received, err := ParseMessage(raw)
	if err != nil {
		t.Fatalf("Failed to parse message: %+v", err)
	}

	if received.ID != "7" || received.ParentID != "3" ||
		received.CreatedAt != 55 || received.RequestID != "rq1" {
		t.Errorf("Unexpected message: %+v", received)
	}
	if received.Sender != (Sender{ID: "u2", Name: "Bob", AvatarURL: "b.png"}) {
		t.Errorf("Unexpected sender: %+v", received.Sender)
	}
	if !received.IsReply() {
		t.Errorf("Message with parent should be a reply.")
	}
	if received.Thread != nil {
		t.Errorf("Expected no thread summary, got %+v", received.Thread)
	}
}

// Error path: malformed and ID-less payloads are rejected.
func TestParseMessage_Invalid(t *testing.T) {
	for _, raw := range []string{``, `[]`, `{"message":"no id"}`, `{bad`,
		`{"message_id":0}`} {
		if _, err := ParseMessage([]byte(raw)); err == nil {
			t.Errorf("No error for invalid payload %q", raw)
		}
	}
}

// Tests that a parent_message_id of 0 is not treated as a reply.
func TestParseMessage_ZeroParent(t *testing.T) {
	m, err := ParseMessage([]byte(`{"message_id":1,"parent_message_id":0}`))
	if err != nil {
		t.Fatalf("Failed to parse message: %+v", err)
	}
	if m.IsReply() {
		t.Errorf("Message with zero parent is a reply: %+v", m)
	}
}

// Tests that ParseMessages skips broken entries and fills in the channel.
func TestParseMessages(t *testing.T) {
	raw := []byte(`{"messages":[{"message_id":1},{"nope":true},
		{"message_id":2,"channel_url":"sendbird_group_channel_x"}]}`)

	msgs, err := ParseMessages(raw, "messages", "sendbird_group_channel_d")
	if err != nil {
		t.Fatalf("Failed to parse messages: %+v", err)
	}

	if len(msgs) != 2 {
		t.Fatalf("Expected 2 messages, got %d: %+v", len(msgs), msgs)
	}
	if msgs[0].ChannelID != "sendbird_group_channel_d" {
		t.Errorf("Default channel not applied: %+v", msgs[0])
	}
	if msgs[1].ChannelID != "sendbird_group_channel_x" {
		t.Errorf("Own channel overridden: %+v", msgs[1])
	}

	if _, err = ParseMessages([]byte(`{"messages":5}`), "messages", ""); err == nil {
		t.Errorf("No error for non-array messages.")
	}
}

// Tests that ParseChangelog handles both deleted ID shapes.
func TestParseChangelog(t *testing.T) {
	raw := []byte(`{"updated":[{"message_id":9,"thread_info":
		{"reply_count":1,"last_replied_at":10}}],
		"deleted":[4,{"message_id":5},"6"]}`)

	cl, err := ParseChangelog(raw, "sendbird_group_channel_c")
	if err != nil {
		t.Fatalf("Failed to parse changelog: %+v", err)
	}

	if !reflect.DeepEqual(cl.Deleted, []string{"4", "5", "6"}) {
		t.Errorf("Unexpected deleted IDs: %v", cl.Deleted)
	}
	if len(cl.Updated) != 1 || cl.Updated[0].Thread.UpdatedAt != 10 {
		t.Errorf("Unexpected updated messages: %+v", cl.Updated)
	}

	if _, err = ParseChangelog([]byte(`{"has_more":false}`), ""); err == nil {
		t.Errorf("No error for changelog without arrays.")
	}
}

// Tests ParseChannel on a channel-details payload.
func TestParseChannel(t *testing.T) {
	raw := []byte(`{"channel_url":"sendbird_group_channel_9","name":"Ops",
		"is_distinct":true,"member_count":2,"cover_url":"c.png"}`)

	expected := Channel{ID: "sendbird_group_channel_9", Name: "Ops",
		Distinct: true, MemberCount: 2, AvatarURL: "c.png"}
	received, err := ParseChannel(raw)
	if err != nil {
		t.Fatalf("Failed to parse channel: %+v", err)
	}
	if expected != received {
		t.Errorf("Unexpected channel.\nexpected: %+v\nreceived: %+v",
			expected, received)
	}

	if _, err = ParseChannel([]byte(`{"channel_url":"other"}`)); err == nil {
		t.Errorf("No error for invalid channel URL.")
	}
}

// Tests the precedence rules of Newer.
func TestNewer(t *testing.T) {
	tests := []struct {
		a, b     *ThreadSummary
		expected bool
	}{
		{nil, nil, false},
		{&ThreadSummary{}, nil, true},
		{nil, &ThreadSummary{}, false},
		{&ThreadSummary{UpdatedAt: 2}, &ThreadSummary{UpdatedAt: 1}, true},
		{&ThreadSummary{UpdatedAt: 1}, &ThreadSummary{UpdatedAt: 2}, false},
		{&ThreadSummary{UpdatedAt: 1, ReplyCount: 3},
			&ThreadSummary{UpdatedAt: 1, ReplyCount: 2}, true},
		{&ThreadSummary{UpdatedAt: 1, ReplyCount: 2},
			&ThreadSummary{UpdatedAt: 1, ReplyCount: 2}, false},
	}

	for i, tt := range tests {
		if received := Newer(tt.a, tt.b); received != tt.expected {
			t.Errorf("Unexpected result for test %d (%+v, %+v)."+
				"\nexpected: %t\nreceived: %t",
				i, tt.a, tt.b, tt.expected, received)
		}
	}
}

// Tests the unread rules.
func TestIsUnread(t *testing.T) {
	tests := []struct {
		replies       int
		replied, read int64
		expected      bool
	}{
		{1, 100, 50, true},
		{1, 50, 100, false},
		{1, 50, 0, true},
		{1, 0, 0, true},
		{0, 100, 0, false},
	}

	for i, tt := range tests {
		received := IsUnread(tt.replies, tt.replied, tt.read)
		if received != tt.expected {
			t.Errorf("Unexpected unread for test %d.\nexpected: %t\n"+
				"received: %t", i, tt.expected, received)
		}
	}
}
