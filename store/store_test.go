////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package store

import (
	"errors"
	"reflect"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"gitlab.com/threadkeeper/threadkeeper-wasm/model"
	"gitlab.com/threadkeeper/threadkeeper-wasm/notifier"
	"gitlab.com/threadkeeper/threadkeeper-wasm/records"
)

const (
	c1 = model.ChannelPrefix + "c1"
	c2 = model.ChannelPrefix + "c2"
)

// badgeLog records the badge notifications received by the store.
type badgeLog struct {
	calls []string
	mux   sync.Mutex
}

func (b *badgeLog) notifier() notifier.Notifier {
	return notifier.Funcs{OnBadgeUpdate: func(channelID string, unread int) {
		b.mux.Lock()
		defer b.mux.Unlock()
		b.calls = append(b.calls, channelID+":"+strconv.Itoa(unread))
	}}
}

func (b *badgeLog) get() []string {
	b.mux.Lock()
	defer b.mux.Unlock()
	return append([]string(nil), b.calls...)
}

func newTestStore(t *testing.T) (*Store, *records.MemoryLedger, *clock.Mock, *badgeLog) {
	t.Helper()
	ledger := records.NewMemoryLedger()
	clk := clock.NewMock()
	clk.Set(time.UnixMilli(1_000_000))
	b := &badgeLog{}
	return New(DefaultParams(), ledger, b.notifier(), clk), ledger, clk, b
}

func parent(id string, count int, lastReplied, updated int64) model.Message {
	return model.Message{
		ID:        id,
		ChannelID: c1,
		Text:      "parent " + id,
		CreatedAt: 10,
		Thread: &model.ThreadSummary{
			ReplyCount:    count,
			LastRepliedAt: lastReplied,
			UpdatedAt:     updated,
		},
	}
}

func summary(t *testing.T, s *Store, channelID, id string) *model.ThreadSummary {
	t.Helper()
	m, exists := s.Message(channelID, id)
	if !exists {
		t.Fatalf("Message %s not found in %s.", id, channelID)
	}
	return m.Thread
}

// Tests that ingesting the same snapshot twice produces the same thread list.
func TestStore_IngestMessageSnapshot_Idempotent(t *testing.T) {
	s, _, _, _ := newTestStore(t)

	msgs := []model.Message{
		parent("m1", 2, 300, 300),
		parent("m2", 1, 500, 500),
		{ID: "m3", ChannelID: c1, Text: "plain"},
		parent("m4", 4, 300, 300),
	}

	s.IngestMessageSnapshot(c1, msgs)
	first := s.Threads(c1, model.SortLastReplied)
	s.IngestMessageSnapshot(c1, msgs)
	second := s.Threads(c1, model.SortLastReplied)

	if len(first) != 3 {
		t.Fatalf("Unexpected number of threads.\nexpected: %d\nreceived: %d",
			3, len(first))
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Thread list changed after repeated snapshot."+
			"\nexpected: %+v\nreceived: %+v", first, second)
	}

	expected := []string{"m2", "m4", "m1"}
	for i, th := range first {
		if th.ParentID != expected[i] {
			t.Errorf("Unexpected thread at index %d.\nexpected: %s\nreceived: %s",
				i, expected[i], th.ParentID)
		}
	}
}

// Tests that the newer thread summary is kept regardless of arrival order.
func TestStore_IngestMessageSnapshot_Monotonic(t *testing.T) {
	older := parent("m1", 1, 100, 100)
	newer := parent("m1", 3, 200, 200)

	orders := map[string][]model.Message{
		"old then new": {older, newer},
		"new then old": {newer, older},
	}

	for name, order := range orders {
		t.Run(name, func(t *testing.T) {
			s, _, _, _ := newTestStore(t)
			for _, m := range order {
				s.IngestMessageSnapshot(c1, []model.Message{m})
			}

			received := summary(t, s, c1, "m1")
			if !reflect.DeepEqual(newer.Thread, received) {
				t.Errorf("Unexpected thread summary.\nexpected: %+v\nreceived: %+v",
					newer.Thread, received)
			}
		})
	}
}

// Tests that a changelog follows the same precedence and removes deleted
// messages.
func TestStore_IngestChangelog(t *testing.T) {
	s, _, _, _ := newTestStore(t)
	s.IngestMessageSnapshot(c1, []model.Message{
		parent("m1", 2, 200, 200),
		parent("m2", 1, 100, 100),
	})

	s.IngestChangelog(c1, model.Changelog{
		Updated: []model.Message{
			parent("m1", 1, 150, 150),
			parent("m3", 1, 400, 400),
		},
		Deleted: []string{"m2"},
	})

	if _, exists := s.Message(c1, "m2"); exists {
		t.Errorf("Deleted message m2 still cached.")
	}
	require.Equal(t, 2, summary(t, s, c1, "m1").ReplyCount)
	require.Equal(t, 1, summary(t, s, c1, "m3").ReplyCount)

	threads := s.Threads(c1, model.SortLastReplied)
	require.Len(t, threads, 2)
	require.Equal(t, "m3", threads[0].ParentID)
}

// Tests that a realtime reply is not reverted by a stale snapshot arriving
// afterwards.
func TestStore_IngestRealtimeEvent_Priority(t *testing.T) {
	s, _, _, _ := newTestStore(t)
	s.IngestMessageSnapshot(c1, []model.Message{parent("m1", 1, 500, 500)})

	s.IngestRealtimeEvent(model.RealtimeEvent{
		Kind:      model.RealtimeReply,
		ChannelID: c1,
		ParentID:  "m1",
		Message:   model.Message{ID: "r2", ChannelID: c1, ParentID: "m1"},
		Timestamp: 1000,
	})

	// The in-flight snapshot was taken before the reply
	s.IngestMessageSnapshot(c1, []model.Message{parent("m1", 1, 500, 500)})

	expected := &model.ThreadSummary{
		ReplyCount: 2, LastRepliedAt: 1000, UpdatedAt: 1000}
	received := summary(t, s, c1, "m1")
	if !reflect.DeepEqual(expected, received) {
		t.Errorf("Stale snapshot reverted realtime reply."+
			"\nexpected: %+v\nreceived: %+v", expected, received)
	}
}

// Tests the scenario of a realtime reply followed by a delayed snapshot and an
// explicitly older update.
func TestStore_EndToEnd(t *testing.T) {
	s, _, _, _ := newTestStore(t)

	// 1. Snapshot with a message with no thread
	s.IngestMessageSnapshot(c1, []model.Message{{ID: "m1", ChannelID: c1}})
	require.False(t, s.HasThreads(c1))

	// 2. Realtime reply carrying thread info
	s.IngestRealtimeEvent(model.RealtimeEvent{
		Kind:      model.RealtimeReply,
		ChannelID: c1,
		ParentID:  "m1",
		Message:   model.Message{ID: "r1", ParentID: "m1", CreatedAt: 1000},
		Thread:    &model.ThreadSummary{ReplyCount: 1, LastRepliedAt: 1000},
		Timestamp: 1000,
	})
	applied := *summary(t, s, c1, "m1")
	require.Equal(t, model.ThreadSummary{
		ReplyCount: 1, LastRepliedAt: 1000, UpdatedAt: 1000}, applied)

	// 3. Delayed snapshot with older thread info
	s.IngestMessageSnapshot(c1, []model.Message{parent("m1", 1, 900, 900)})
	require.Equal(t, applied, *summary(t, s, c1, "m1"))

	// 4. Explicitly older thread metadata with a higher count
	s.IngestRealtimeEvent(model.RealtimeEvent{
		Kind:      model.RealtimeThreadMeta,
		ChannelID: c1,
		ParentID:  "m1",
		Thread: &model.ThreadSummary{
			ReplyCount: 5, LastRepliedAt: 800, UpdatedAt: 800},
	})
	s.IngestChangelog(c1, model.Changelog{
		Updated: []model.Message{parent("m1", 7, 700, 700)}})

	received := summary(t, s, c1, "m1")
	if !reflect.DeepEqual(applied, *received) {
		t.Errorf("Older update moved thread summary backwards."+
			"\nexpected: %+v\nreceived: %+v", applied, received)
	}
	if s.UnreadCount(c1) != 1 {
		t.Errorf("Unexpected unread count.\nexpected: %d\nreceived: %d",
			1, s.UnreadCount(c1))
	}
}

// Tests that a repeated realtime reply is only counted once.
func TestStore_IngestRealtimeEvent_DuplicateReply(t *testing.T) {
	s, _, _, _ := newTestStore(t)
	s.IngestMessageSnapshot(c1, []model.Message{parent("m1", 1, 100, 100)})

	ev := model.RealtimeEvent{
		Kind:      model.RealtimeReply,
		ChannelID: c1,
		Message: model.Message{
			ID: "r2", ParentID: "m1", Text: "hi", CreatedAt: 200},
	}
	s.IngestRealtimeEvent(ev)
	s.IngestRealtimeEvent(ev)

	require.Equal(t, 2, summary(t, s, c1, "m1").ReplyCount)

	threads := s.Threads(c1, model.SortLastReplied)
	require.Len(t, threads, 1)
	require.Len(t, threads[0].Previews, 1)
	require.Equal(t, "r2", threads[0].Previews[0].ID)
}

// Tests that thread metadata for an uncached message is dropped.
func TestStore_IngestRealtimeEvent_ThreadMetaCacheMiss(t *testing.T) {
	s, _, _, _ := newTestStore(t)
	s.IngestMessageSnapshot(c1, []model.Message{{ID: "m1", ChannelID: c1}})

	s.IngestRealtimeEvent(model.RealtimeEvent{
		Kind:      model.RealtimeThreadMeta,
		ChannelID: c1,
		ParentID:  "missing",
		Thread:    &model.ThreadSummary{ReplyCount: 3, UpdatedAt: 50},
	})

	if _, exists := s.Message(c1, "missing"); exists {
		t.Errorf("Thread metadata created an uncached message.")
	}
	require.False(t, s.HasThreads(c1))
}

// Tests that a plain realtime message is inserted.
func TestStore_IngestRealtimeEvent_Message(t *testing.T) {
	s, _, _, _ := newTestStore(t)
	s.IngestRealtimeEvent(model.RealtimeEvent{
		Kind:    model.RealtimeMessage,
		Message: model.Message{ID: "m9", ChannelID: c2, Text: "new"},
	})

	m, exists := s.Message(c2, "m9")
	require.True(t, exists)
	require.Equal(t, "new", m.Text)
}

// Tests that only the two most recent replies are kept as previews.
func TestStore_IngestThreadReplies(t *testing.T) {
	s, _, _, _ := newTestStore(t)
	s.IngestMessageSnapshot(c1, []model.Message{parent("m1", 3, 300, 300)})

	s.IngestThreadReplies(c1, "m1", []model.Message{
		{ID: "r3", ParentID: "m1", CreatedAt: 300},
		{ID: "r1", ParentID: "m1", CreatedAt: 100},
		{ID: "r2", ParentID: "m1", CreatedAt: 200},
	})

	threads := s.Threads(c1, model.SortLastReplied)
	require.Len(t, threads, 1)

	var ids []string
	for _, p := range threads[0].Previews {
		ids = append(ids, p.ID)
	}
	require.Equal(t, []string{"r2", "r3"}, ids)
}

// Tests that marking a thread read writes a future timestamp to the ledger
// and clears its unread state.
func TestStore_MarkThreadRead(t *testing.T) {
	s, ledger, clk, badges := newTestStore(t)
	s.SetActive(c1)

	now := clk.Now().UnixMilli()
	s.IngestMessageSnapshot(c1, []model.Message{
		parent("m1", 1, now+500, now+500),
		parent("m2", 1, now-500, now-500),
	})
	require.Equal(t, 2, s.UnreadCount(c1))

	s.MarkThreadRead("m1")

	expected := now + time.Second.Milliseconds()
	if received := ledger.LastRead("m1"); received != expected {
		t.Errorf("Unexpected read timestamp.\nexpected: %d\nreceived: %d",
			expected, received)
	}
	require.Equal(t, 1, s.UnreadCount(c1))
	require.Equal(t, []string{c1 + ":2", c1 + ":1"}, badges.get())
}

// refusingLedger is a read ledger whose storage refuses every write.
type refusingLedger struct{}

func (refusingLedger) LastRead(string) int64 { return 0 }
func (refusingLedger) SetLastRead(string, int64) error {
	return errors.New("QuotaExceededError")
}

// Tests that a ledger write error is survived: the store keeps working and the
// thread stays unread because no read time was stored.
func TestStore_MarkThreadRead_LedgerError(t *testing.T) {
	clk := clock.NewMock()
	clk.Set(time.UnixMilli(1_000_000))
	b := &badgeLog{}
	s := New(DefaultParams(), refusingLedger{}, b.notifier(), clk)
	s.SetActive(c1)

	now := clk.Now().UnixMilli()
	s.IngestMessageSnapshot(c1, []model.Message{parent("m1", 1, now, now)})
	require.Equal(t, 1, s.UnreadCount(c1))

	require.NotPanics(t, func() { s.MarkThreadRead("m1") })
	if received := s.UnreadCount(c1); received != 1 {
		t.Errorf("Unexpected unread count.\nexpected: %d\nreceived: %d",
			1, received)
	}

	require.Equal(t, []string{c1 + ":1", c1 + ":1"}, b.get())
}

// Tests that the open thread is excluded from the thread list.
func TestStore_SetOpenThread(t *testing.T) {
	s, _, _, badges := newTestStore(t)
	s.SetActive(c1)
	s.IngestMessageSnapshot(c1, []model.Message{
		parent("m1", 1, 100, 100),
		parent("m2", 1, 200, 200),
	})

	s.SetOpenThread("m2")
	threads := s.Threads(c1, model.SortLastReplied)
	require.Len(t, threads, 1)
	require.Equal(t, "m1", threads[0].ParentID)

	s.SetOpenThread("")
	require.Equal(t, 2, s.UnreadCount(c1))
	require.Equal(t, []string{c1 + ":2", c1 + ":1", c1 + ":2"}, badges.get())
}

// Tests that only the active channel is notified.
func TestStore_NotifiesActiveOnly(t *testing.T) {
	s, _, _, badges := newTestStore(t)
	s.SetActive(c1)

	s.IngestMessageSnapshot(c2, []model.Message{parent("x", 1, 100, 100)})
	if calls := badges.get(); len(calls) != 0 {
		t.Errorf("Background channel was notified: %v", calls)
	}

	s.IngestMessageSnapshot(c1, []model.Message{parent("m1", 1, 100, 100)})
	require.Equal(t, []string{c1 + ":1"}, badges.get())
}

// Tests that eviction never removes the active channel even when it is the
// least recently updated.
func TestStore_Eviction(t *testing.T) {
	p := DefaultParams()
	p.MaxChannels = 3
	s := New(p, records.NewMemoryLedger(), nil, clock.NewMock())

	active := model.ChannelPrefix + "active"
	s.SetActive(active)
	s.IngestMessageSnapshot(active, []model.Message{{ID: "a"}})

	for i := 0; i < 5; i++ {
		id := model.ChannelPrefix + strconv.Itoa(i)
		s.IngestMessageSnapshot(id, []model.Message{{ID: "m" + strconv.Itoa(i)}})
	}

	channels := s.Channels()
	require.Len(t, channels, 3)
	require.Contains(t, channels, active)
	require.Equal(t, []string{
		active, model.ChannelPrefix + "3", model.ChannelPrefix + "4"}, channels)

	_, exists := s.Message(active, "a")
	require.True(t, exists)
}

// Tests that realtime events that store nothing do not add channels past the
// cache limit.
func TestStore_IngestRealtimeEvent_NoChangeKeepsLimit(t *testing.T) {
	p := DefaultParams()
	p.MaxChannels = 2
	s := New(p, records.NewMemoryLedger(), nil, clock.NewMock())

	for i := 0; i < 10; i++ {
		id := model.ChannelPrefix + strconv.Itoa(i)
		s.IngestRealtimeEvent(model.RealtimeEvent{
			Kind:      model.RealtimeThreadMeta,
			ChannelID: id,
			ParentID:  "m" + strconv.Itoa(i),
			Thread:    &model.ThreadSummary{ReplyCount: 1, UpdatedAt: 5},
		})
		s.IngestRealtimeEvent(model.RealtimeEvent{
			Kind: model.RealtimeMessage, ChannelID: id})
	}
	if n := len(s.Channels()); n != 0 {
		t.Errorf("Unexpected number of cached channels."+
			"\nexpected: %d\nreceived: %d", 0, n)
	}

	s.IngestMessageSnapshot(c1, []model.Message{parent("m1", 1, 10, 10)})
	s.IngestRealtimeEvent(model.RealtimeEvent{
		Kind: model.RealtimeThreadMeta, ChannelID: c1, ParentID: "unknown",
		Thread: &model.ThreadSummary{ReplyCount: 1, UpdatedAt: 5}})
	require.Equal(t, []string{c1}, s.Channels())
	require.Equal(t, 1, s.UnreadCount(c1))
}

// Tests that malformed input is ignored and leaves the store usable.
func TestStore_MalformedInput(t *testing.T) {
	s, _, _, _ := newTestStore(t)

	s.IngestMessageSnapshot("", []model.Message{{ID: "x"}})
	s.IngestMessageSnapshot(c1, nil)
	s.IngestChangelog("", model.Changelog{Deleted: []string{"x"}})
	s.IngestRealtimeEvent(model.RealtimeEvent{Kind: model.RealtimeReply})
	s.IngestRealtimeEvent(model.RealtimeEvent{
		Kind: model.RealtimeReply, ChannelID: c1})
	s.IngestRealtimeEvent(model.RealtimeEvent{
		Kind: model.RealtimeThreadMeta, ChannelID: c1, ParentID: "m1"})
	s.IngestThreadReplies(c1, "", nil)
	s.MarkThreadRead("")
	s.MarkThreadRead("unknown")

	s.IngestMessageSnapshot(c1, []model.Message{{}, parent("m1", 1, 10, 10)})
	require.Equal(t, 1, s.UnreadCount(c1))
	require.Equal(t, []string{c1}, s.Channels())
}

// Tests ExtractThreads sort orders and that it does not modify its input.
func TestExtractThreads(t *testing.T) {
	messages := map[string]model.Message{
		"a": {ID: "a", CreatedAt: 30, Thread: &model.ThreadSummary{
			ReplyCount: 1, LastRepliedAt: 100}},
		"b": {ID: "b", CreatedAt: 10, Thread: &model.ThreadSummary{
			ReplyCount: 1, LastRepliedAt: 300}},
		"c": {ID: "c", CreatedAt: 20, Thread: &model.ThreadSummary{
			ReplyCount: 2, LastRepliedAt: 200}},
		"d": {ID: "d", CreatedAt: 40},
	}
	ledger := records.NewMemoryLedger()
	require.NoError(t, ledger.SetLastRead("c", 250))

	ids := func(threads []model.Thread) []string {
		var out []string
		for _, th := range threads {
			out = append(out, th.ParentID)
		}
		return out
	}

	byReply := ExtractThreads(messages, nil, "", ledger, model.SortLastReplied)
	require.Equal(t, []string{"b", "c", "a"}, ids(byReply))
	require.False(t, byReply[1].Unread)
	require.True(t, byReply[0].Unread)

	byCreated := ExtractThreads(messages, nil, "b", ledger, model.SortCreated)
	require.Equal(t, []string{"a", "c"}, ids(byCreated))
	require.Len(t, messages, 4)
}
