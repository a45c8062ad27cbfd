////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package model

import (
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/tidwall/gjson"
)

// Field name variants found across the REST API and the socket frames. The
// first path that exists wins.
var (
	messageIDPaths   = []string{"message_id", "msg_id", "messageId", "id"}
	channelIDPaths   = []string{"channel_url", "channelUrl", "channel.channel_url"}
	textPaths        = []string{"message", "text", "name"}
	senderPaths      = []string{"user", "sender"}
	senderIDPaths    = []string{"user_id", "guest_id", "userId", "id"}
	senderNamePaths  = []string{"nickname", "name"}
	senderImagePaths = []string{"profile_url", "image", "profileUrl"}
	createdAtPaths   = []string{"created_at", "ts", "createdAt"}
	parentIDPaths    = []string{"parent_message_id", "parent_msg_id", "parentMessageId"}
	threadPaths      = []string{"thread_info", "threadInfo"}
	requestIDPaths   = []string{"req_id", "request_id", "reqId"}
)

// ErrInvalidPayload is returned when a payload is not a JSON object.
var ErrInvalidPayload = errors.New("payload is not a JSON object")

// first returns the first of the paths that exists on the result.
func first(r gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if v := r.Get(p); v.Exists() && v.Type != gjson.Null {
			return v
		}
	}
	return gjson.Result{}
}

// ParseMessage normalizes a single raw message object.
func ParseMessage(raw []byte) (Message, error) {
	if !gjson.ValidBytes(raw) {
		return Message{}, errors.Wrapf(ErrInvalidPayload, "invalid JSON")
	}
	return MessageFromResult(gjson.ParseBytes(raw), "")
}

// MessageFromResult normalizes a parsed message object. channelID is used
// when the object does not name its own channel.
func MessageFromResult(r gjson.Result, channelID string) (Message, error) {
	if !r.IsObject() {
		return Message{}, ErrInvalidPayload
	}

	id := first(r, messageIDPaths...).String()
	if id == "" || id == "0" {
		return Message{}, errors.New("message has no ID")
	}

	m := Message{
		ID:        id,
		ChannelID: first(r, channelIDPaths...).String(),
		Text:      first(r, textPaths...).String(),
		CreatedAt: first(r, createdAtPaths...).Int(),
		ParentID:  first(r, parentIDPaths...).String(),
		RequestID: first(r, requestIDPaths...).String(),
		Thread:    ThreadSummaryFromResult(first(r, threadPaths...)),
	}
	if m.ChannelID == "" {
		m.ChannelID = channelID
	}
	if m.ParentID == "0" {
		m.ParentID = ""
	}

	if s := first(r, senderPaths...); s.IsObject() {
		m.Sender = Sender{
			ID:        first(s, senderIDPaths...).String(),
			Name:      first(s, senderNamePaths...).String(),
			AvatarURL: first(s, senderImagePaths...).String(),
		}
	}

	m.HasAttachment = r.Get("file").IsObject() ||
		len(r.Get("files").Array()) > 0 || r.Get("type").String() == "FILE"

	return m, nil
}

// ThreadSummaryFromResult parses a thread_info object. Returns nil if the
// object does not exist. A missing updated_at falls back to last_replied_at.
func ThreadSummaryFromResult(r gjson.Result) *ThreadSummary {
	if !r.IsObject() {
		return nil
	}

	ts := &ThreadSummary{
		ReplyCount:    int(first(r, "reply_count", "replyCount").Int()),
		LastRepliedAt: first(r, "last_replied_at", "lastRepliedAt").Int(),
		UpdatedAt:     first(r, "updated_at", "updatedAt").Int(),
	}
	if ts.UpdatedAt == 0 {
		ts.UpdatedAt = ts.LastRepliedAt
	}

	return ts
}

// ParseMessages normalizes the array of messages found at path in the raw
// payload. Entries that cannot be parsed are skipped.
func ParseMessages(raw []byte, path, channelID string) ([]Message, error) {
	if !gjson.ValidBytes(raw) {
		return nil, errors.Wrapf(ErrInvalidPayload, "invalid JSON")
	}

	list := gjson.GetBytes(raw, path)
	if !list.IsArray() {
		return nil, errors.Errorf("%q is not an array", path)
	}

	return messagesFromArray(list, channelID), nil
}

func messagesFromArray(list gjson.Result, channelID string) []Message {
	entries := list.Array()
	msgs := make([]Message, 0, len(entries))
	for i, e := range entries {
		m, err := MessageFromResult(e, channelID)
		if err != nil {
			jww.DEBUG.Printf("[MODEL] Skipping message %d of %d: %+v",
				i, len(entries), err)
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs
}

// ParseChangelog normalizes a changelog response. Deleted entries may be bare
// IDs or objects carrying a message ID.
func ParseChangelog(raw []byte, channelID string) (Changelog, error) {
	if !gjson.ValidBytes(raw) {
		return Changelog{}, errors.Wrapf(ErrInvalidPayload, "invalid JSON")
	}

	r := gjson.ParseBytes(raw)
	if !r.IsObject() {
		return Changelog{}, ErrInvalidPayload
	}

	updated, deleted := r.Get("updated"), r.Get("deleted")
	if !updated.IsArray() && !deleted.IsArray() {
		return Changelog{}, errors.New("changelog has neither updated " +
			"nor deleted messages")
	}

	cl := Changelog{Updated: messagesFromArray(updated, channelID)}
	for _, d := range deleted.Array() {
		var id string
		if d.IsObject() {
			id = first(d, messageIDPaths...).String()
		} else {
			id = d.String()
		}
		if id != "" {
			cl.Deleted = append(cl.Deleted, id)
		}
	}

	return cl, nil
}

// ParseChannel normalizes a channel-details or channel-create response.
func ParseChannel(raw []byte) (Channel, error) {
	if !gjson.ValidBytes(raw) {
		return Channel{}, errors.Wrapf(ErrInvalidPayload, "invalid JSON")
	}

	r := gjson.ParseBytes(raw)
	if !r.IsObject() {
		return Channel{}, ErrInvalidPayload
	}

	c := Channel{
		ID:          first(r, "channel_url", "channelUrl").String(),
		Name:        r.Get("name").String(),
		Distinct:    first(r, "is_distinct", "isDistinct").Bool(),
		MemberCount: int(first(r, "member_count", "memberCount").Int()),
		AvatarURL:   first(r, "cover_url", "coverUrl").String(),
	}
	if !IsChannelID(c.ID) {
		return Channel{}, errors.Errorf("invalid channel URL %q", c.ID)
	}

	return c, nil
}
