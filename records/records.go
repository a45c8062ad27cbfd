////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package records contains the persisted collaborators of the thread tracker:
// the chat record store keyed by channel and the per-thread read ledger.
package records

import (
	"strings"

	"github.com/pkg/errors"

	"gitlab.com/threadkeeper/threadkeeper-wasm/model"
)

// ErrNotFound is returned when no record exists for a channel.
var ErrNotFound = errors.New("record not found")

// Record is the persisted view of a channel.
type Record struct {
	ChannelID   string `json:"channel_id"` // Primary key
	Name        string `json:"name"`
	Distinct    bool   `json:"distinct"`
	MemberCount int    `json:"member_count"`
	AvatarURL   string `json:"avatar_url"`
	UpdatedAt   int64  `json:"updated_at"`
}

// Store persists chat records keyed by channel ID.
type Store interface {
	// Get returns the record for the channel or ErrNotFound.
	Get(channelID string) (Record, error)

	// GetAll returns every stored record.
	GetAll() ([]Record, error)

	// Upsert inserts the record or replaces the stored one.
	Upsert(r Record) error
}

// Ledger persists the last read timestamp, in milliseconds, of each thread
// keyed by parent message ID.
type Ledger interface {
	// LastRead returns the last read time of the thread or 0 if it was never
	// read.
	LastRead(messageID string) int64

	// SetLastRead stores the last read time of the thread.
	SetLastRead(messageID string, ts int64) error
}

// FromChannel builds a record from API-asserted channel metadata.
func FromChannel(c model.Channel, now int64) Record {
	return Record{
		ChannelID:   c.ID,
		Name:        c.Name,
		Distinct:    c.Distinct,
		MemberCount: c.MemberCount,
		AvatarURL:   c.AvatarURL,
		UpdatedAt:   now,
	}
}

// Merge combines API-asserted metadata from update into the stored record.
// API values win over values scraped from the page: a non-empty update name
// replaces the stored one, as do the distinct flag, member count and avatar.
func Merge(stored, update Record) Record {
	merged := stored
	merged.ChannelID = update.ChannelID
	if update.Name != "" {
		merged.Name = update.Name
	}
	merged.Distinct = update.Distinct
	if update.MemberCount > 0 {
		merged.MemberCount = update.MemberCount
	}
	if update.AvatarURL != "" {
		merged.AvatarURL = update.AvatarURL
	}
	if update.UpdatedAt > merged.UpdatedAt {
		merged.UpdatedAt = update.UpdatedAt
	}
	return merged
}

// FindByName returns the first record whose name matches, ignoring case and
// surrounding whitespace.
func FindByName(s Store, name string) (Record, error) {
	return FindByNameFunc(s, name, strings.TrimSpace)
}

// FindByNameFunc returns the first record whose name, passed through
// normalize, matches name ignoring case.
func FindByNameFunc(
	s Store, name string, normalize func(string) string) (Record, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Record{}, ErrNotFound
	}

	all, err := s.GetAll()
	if err != nil {
		return Record{}, errors.WithMessage(err, "failed to list records")
	}

	for _, r := range all {
		if strings.EqualFold(normalize(r.Name), name) {
			return r, nil
		}
	}
	return Record{}, ErrNotFound
}

// IsNotFound returns true if the error is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
