////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package records

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"gitlab.com/threadkeeper/threadkeeper-wasm/model"
)

// Tests that Merge prefers API metadata, including the display name.
func TestMerge(t *testing.T) {
	stored := Record{ChannelID: "c", Name: "Alice", MemberCount: 3,
		AvatarURL: "old.png", UpdatedAt: 10}
	update := FromChannel(model.Channel{ID: "c", Name: "alice.smith",
		Distinct: true, MemberCount: 2, AvatarURL: "new.png"}, 20)

	expected := Record{ChannelID: "c", Name: "alice.smith", Distinct: true,
		MemberCount: 2, AvatarURL: "new.png", UpdatedAt: 20}
	require.Equal(t, expected, Merge(stored, update))

	// A name cut short when read from the page is replaced by the API name
	merged := Merge(Record{ChannelID: "c", Name: "Team"},
		Record{ChannelID: "c", Name: "Team 42"})
	if merged.Name != "Team 42" {
		t.Errorf("Unexpected name.\nexpected: %q\nreceived: %q",
			"Team 42", merged.Name)
	}

	// An update with no name keeps the stored one
	require.Equal(t, "Alice",
		Merge(stored, Record{ChannelID: "c", MemberCount: 4}).Name)
}

// Tests that FindByNameFunc compares normalized record names.
func TestFindByNameFunc(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Upsert(Record{ChannelID: "c", Name: "Team 42"}))

	_, err := FindByName(m, "Team")
	require.True(t, IsNotFound(err))

	found, err := FindByNameFunc(m, "team", func(name string) string {
		return strings.TrimSuffix(name, " 42")
	})
	require.NoError(t, err)
	require.Equal(t, "c", found.ChannelID)
}

// Happy path of the Memory store.
func TestMemory(t *testing.T) {
	m := NewMemory()

	_, err := m.Get("missing")
	require.True(t, IsNotFound(err))

	require.NoError(t, m.Upsert(Record{ChannelID: "b", Name: "Bob"}))
	require.NoError(t, m.Upsert(Record{ChannelID: "a", Name: "Alice"}))
	require.Error(t, m.Upsert(Record{Name: "no id"}))

	r, err := m.Get("a")
	require.NoError(t, err)
	require.Equal(t, "Alice", r.Name)

	all, err := m.GetAll()
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "a", all[0].ChannelID)

	found, err := FindByName(m, "  bob ")
	require.NoError(t, err)
	require.Equal(t, "b", found.ChannelID)

	_, err = FindByName(m, "Carol")
	require.True(t, IsNotFound(err))
	_, err = FindByName(m, " ")
	require.True(t, IsNotFound(err))
}

// Happy path of the MemoryLedger.
func TestMemoryLedger(t *testing.T) {
	l := NewMemoryLedger()
	require.Zero(t, l.LastRead("m"))
	require.NoError(t, l.SetLastRead("m", 42))
	require.EqualValues(t, 42, l.LastRead("m"))
	require.Error(t, l.SetLastRead("", 1))
}
