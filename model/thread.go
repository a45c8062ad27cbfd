////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package model

import "strconv"

// ThreadSummary is the denormalized thread metadata attached to a parent
// message. UpdatedAt is the version used to order conflicting summaries.
type ThreadSummary struct {
	ReplyCount    int   `json:"replyCount"`
	LastRepliedAt int64 `json:"lastRepliedAt"`
	UpdatedAt     int64 `json:"updatedAt"`
}

// Newer returns true if summary a must replace summary b. The larger UpdatedAt
// wins; on an exact tie the higher reply count wins. A nil summary never wins
// over a non-nil one.
func Newer(a, b *ThreadSummary) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	case a.UpdatedAt != b.UpdatedAt:
		return a.UpdatedAt > b.UpdatedAt
	default:
		return a.ReplyCount > b.ReplyCount
	}
}

// SortOrder selects how a thread list is ordered.
type SortOrder uint8

const (
	// SortLastReplied orders threads by their most recent reply, newest
	// first. This is the default.
	SortLastReplied SortOrder = iota

	// SortCreated orders threads by the creation time of the parent message,
	// newest first.
	SortCreated
)

// String returns a human-readable name of the SortOrder. This function adheres
// to the fmt.Stringer interface.
func (o SortOrder) String() string {
	switch o {
	case SortLastReplied:
		return "lastReplied"
	case SortCreated:
		return "created"
	default:
		return "INVALID SORT ORDER: " + strconv.Itoa(int(o))
	}
}

// ParseSortOrder returns the SortOrder for its name. Unknown names fall back
// to SortLastReplied.
func ParseSortOrder(s string) SortOrder {
	if s == SortCreated.String() {
		return SortCreated
	}
	return SortLastReplied
}

// Thread is a view of a parent message that has replies. It is computed on
// demand and never stored.
type Thread struct {
	ParentID      string    `json:"parentId"`
	ParentText    string    `json:"parentText"`
	ChannelID     string    `json:"channelUrl"`
	Sender        Sender    `json:"sender"`
	ReplyCount    int       `json:"replyCount"`
	CreatedAt     int64     `json:"createdAt"`
	LastRepliedAt int64     `json:"lastRepliedAt"`
	LastReadAt    int64     `json:"lastReadAt"`
	Unread        bool      `json:"unread"`
	Previews      []Message `json:"previews,omitempty"`
}

// IsUnread reports whether a thread with the given state has replies the user
// has not seen yet.
func IsUnread(replyCount int, lastRepliedAt, lastReadAt int64) bool {
	if replyCount <= 0 {
		return false
	}
	if lastReadAt == 0 {
		return true
	}
	return lastRepliedAt > lastReadAt
}
