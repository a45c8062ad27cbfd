////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package store is the in-memory source of truth for per-channel message and
// thread state. It merges message-list snapshots, changelog diffs and realtime
// socket pushes under a single precedence rule: a thread summary with a newer
// update time is never replaced by an older one.
package store

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/elliotchance/orderedmap"
	jww "github.com/spf13/jwalterweatherman"

	"gitlab.com/threadkeeper/threadkeeper-wasm/model"
	"gitlab.com/threadkeeper/threadkeeper-wasm/notifier"
	"gitlab.com/threadkeeper/threadkeeper-wasm/records"
)

// channelCache is the cached state of a single channel.
type channelCache struct {
	id       string
	messages map[string]model.Message
	threads  []model.Thread

	// previews holds the most recent replies of each thread keyed on the
	// parent message ID.
	previews map[string][]model.Message

	// seenReplies contains the IDs of realtime replies already counted so
	// that a repeated frame does not increment a reply count twice.
	seenReplies map[string]struct{}

	recomputedAt time.Time
}

func newChannelCache(id string) *channelCache {
	return &channelCache{
		id:          id,
		messages:    make(map[string]model.Message),
		previews:    make(map[string][]model.Message),
		seenReplies: make(map[string]struct{}),
	}
}

// Store caches messages and derived threads per channel.
//
// Every exported mutation takes the lock for its whole read-modify-write so
// other callers never observe a partially updated channel. Notifications are
// sent after the lock is released and only for the active channel.
type Store struct {
	// channels maps channel IDs to *channelCache ordered from least to most
	// recently recomputed.
	channels *orderedmap.OrderedMap

	active     string
	openThread string

	ledger   records.Ledger
	notifier notifier.Notifier
	clock    clock.Clock
	params   Params

	mux sync.Mutex
}

// badge is a pending notification computed under the lock.
type badge struct {
	channelID string
	unread    int
	send      bool
}

// New returns an empty Store. A nil clock uses the wall clock.
func New(p Params, ledger records.Ledger, n notifier.Notifier,
	clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.New()
	}
	if p.MaxChannels < 1 {
		p.MaxChannels = 1
	}
	if p.PreviewCount < 1 {
		p.PreviewCount = DefaultParams().PreviewCount
	}

	return &Store{
		channels: orderedmap.NewOrderedMap(),
		ledger:   ledger,
		notifier: n,
		clock:    clk,
		params:   p,
	}
}

// IngestMessageSnapshot upserts a message-list snapshot of the channel.
func (s *Store) IngestMessageSnapshot(channelID string, msgs []model.Message) {
	if channelID == "" {
		jww.WARN.Printf("[STORE] Ignoring snapshot of %d messages with no "+
			"channel", len(msgs))
		return
	}

	s.mux.Lock()
	c := s.cache(channelID, true)
	for _, m := range msgs {
		s.mergeMessage(c, m)
	}
	b := s.recompute(c)
	s.mux.Unlock()

	jww.DEBUG.Printf("[STORE] Ingested snapshot of %d messages for %s",
		len(msgs), channelID)
	s.notify(b)
}

// IngestChangelog merges the updated messages of a changelog and removes the
// deleted ones.
func (s *Store) IngestChangelog(channelID string, cl model.Changelog) {
	if channelID == "" {
		jww.WARN.Printf("[STORE] Ignoring changelog with no channel")
		return
	}

	s.mux.Lock()
	c := s.cache(channelID, true)
	for _, m := range cl.Updated {
		s.mergeMessage(c, m)
	}
	for _, id := range cl.Deleted {
		delete(c.messages, id)
		delete(c.previews, id)
	}
	b := s.recompute(c)
	s.mux.Unlock()

	jww.DEBUG.Printf("[STORE] Ingested changelog for %s: %d updated, "+
		"%d deleted", channelID, len(cl.Updated), len(cl.Deleted))
	s.notify(b)
}

// IngestRealtimeEvent applies a realtime socket update. Realtime thread data
// is the freshest available and replaces the cached summary, but the cached
// update time never moves backwards.
func (s *Store) IngestRealtimeEvent(ev model.RealtimeEvent) {
	channelID := ev.ChannelID
	if channelID == "" {
		channelID = ev.Message.ChannelID
	}
	if channelID == "" {
		jww.WARN.Printf("[STORE] Ignoring realtime %s event with no channel",
			ev.Kind)
		return
	}

	s.mux.Lock()
	_, cached := s.channels.Get(channelID)
	c := s.cache(channelID, true)

	var changed bool
	switch ev.Kind {
	case model.RealtimeReply:
		changed = s.applyReply(c, ev)
	case model.RealtimeThreadMeta:
		changed = s.applyThreadMeta(c, ev)
	default:
		if ev.Message.ID == "" {
			jww.WARN.Printf("[STORE] Ignoring realtime message with no ID "+
				"for %s", channelID)
		} else {
			ev.Message.ChannelID = channelID
			s.mergeMessage(c, ev.Message)
			changed = true
		}
	}

	var b badge
	if changed {
		b = s.recompute(c)
	} else if !cached {
		// Nothing was stored, so the channel does not count against the limit
		s.channels.Delete(channelID)
	}
	s.mux.Unlock()

	s.notify(b)
}

// IngestThreadReplies stores the most recent of the fetched replies as the
// previews of the thread.
func (s *Store) IngestThreadReplies(
	channelID, parentID string, replies []model.Message) {
	if channelID == "" || parentID == "" {
		jww.WARN.Printf("[STORE] Ignoring %d thread replies with channel %q "+
			"and parent %q", len(replies), channelID, parentID)
		return
	}

	s.mux.Lock()
	c := s.cache(channelID, true)
	for _, r := range replies {
		s.addPreview(c, parentID, r)
	}
	b := s.recompute(c)
	s.mux.Unlock()

	s.notify(b)
}

// Threads returns the thread list of the channel in the requested order. The
// default order is served from the cache.
func (s *Store) Threads(channelID string, order model.SortOrder) []model.Thread {
	s.mux.Lock()
	defer s.mux.Unlock()

	c := s.cache(channelID, false)
	if c == nil {
		return nil
	}
	if order == model.SortLastReplied {
		return copyThreads(c.threads)
	}
	return ExtractThreads(c.messages, c.previews, s.openThread, s.ledger, order)
}

// UnreadCount returns the number of unread threads in the channel.
func (s *Store) UnreadCount(channelID string) int {
	s.mux.Lock()
	defer s.mux.Unlock()

	if c := s.cache(channelID, false); c != nil {
		return countUnread(c.threads)
	}
	return 0
}

// HasThreads returns true if thread data for the channel is already cached.
func (s *Store) HasThreads(channelID string) bool {
	s.mux.Lock()
	defer s.mux.Unlock()

	c := s.cache(channelID, false)
	return c != nil && len(c.threads) > 0
}

// Message returns the cached message.
func (s *Store) Message(channelID, messageID string) (model.Message, bool) {
	s.mux.Lock()
	defer s.mux.Unlock()

	if c := s.cache(channelID, false); c != nil {
		m, exists := c.messages[messageID]
		return m, exists
	}
	return model.Message{}, false
}

// Channels returns the IDs of the cached channels from least to most recently
// updated.
func (s *Store) Channels() []string {
	s.mux.Lock()
	defer s.mux.Unlock()

	ids := make([]string, 0, s.channels.Len())
	for el := s.channels.Front(); el != nil; el = el.Next() {
		ids = append(ids, el.Key.(string))
	}
	return ids
}

// MarkThreadRead records the thread as read slightly in the future and
// recomputes the thread list of its channel.
func (s *Store) MarkThreadRead(messageID string) {
	if messageID == "" {
		jww.WARN.Printf("[STORE] Cannot mark thread with no ID as read")
		return
	}

	s.mux.Lock()
	readAt := s.clock.Now().Add(s.params.ReadBuffer).UnixMilli()
	if s.ledger == nil {
		jww.ERROR.Printf("[STORE] No read ledger to mark %s as read", messageID)
	} else if err := s.ledger.SetLastRead(messageID, readAt); err != nil {
		jww.ERROR.Printf("[STORE] Failed to mark %s as read: %+v",
			messageID, err)
	}

	var b badge
	if c := s.channelOf(messageID); c != nil {
		b = s.recompute(c)
	} else {
		jww.DEBUG.Printf("[STORE] Marked uncached thread %s as read",
			messageID)
	}
	s.mux.Unlock()

	s.notify(b)
}

// SetActive sets the channel the user is looking at and clears the open
// thread, also when the channel is confirmed again. The active channel is
// never evicted and is the only one notified.
func (s *Store) SetActive(channelID string) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.openThread = ""
	s.active = channelID
}

// OpenThread returns the thread the user is currently reading.
func (s *Store) OpenThread() string {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.openThread
}

// Active returns the active channel.
func (s *Store) Active() string {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.active
}

// SetOpenThread sets the thread the user is currently reading, or clears it
// when messageID is empty, and recomputes the active channel.
func (s *Store) SetOpenThread(messageID string) {
	s.mux.Lock()
	s.openThread = messageID
	var b badge
	if c := s.cache(s.active, false); c != nil {
		b = s.recompute(c)
	}
	s.mux.Unlock()

	s.notify(b)
}

// Refresh recomputes the channel and notifies its unread count if it is the
// active channel.
func (s *Store) Refresh(channelID string) {
	s.mux.Lock()
	var b badge
	if c := s.cache(channelID, false); c != nil {
		b = s.recompute(c)
	} else if channelID == s.active && channelID != "" {
		b = badge{channelID: channelID, send: true}
	}
	s.mux.Unlock()

	s.notify(b)
}

////////////////////////////////////////////////////////////////////////////////
// Internal, callers must hold the lock                                       //
////////////////////////////////////////////////////////////////////////////////

// cache returns the cache of the channel, creating it when create is set.
func (s *Store) cache(channelID string, create bool) *channelCache {
	if v, exists := s.channels.Get(channelID); exists {
		return v.(*channelCache)
	}
	if !create || channelID == "" {
		return nil
	}

	c := newChannelCache(channelID)
	s.channels.Set(channelID, c)
	return c
}

// channelOf returns the cache containing the message, looking at the active
// channel first.
func (s *Store) channelOf(messageID string) *channelCache {
	if c := s.cache(s.active, false); c != nil {
		if _, exists := c.messages[messageID]; exists {
			return c
		}
	}
	for el := s.channels.Front(); el != nil; el = el.Next() {
		c := el.Value.(*channelCache)
		if _, exists := c.messages[messageID]; exists {
			return c
		}
	}
	return nil
}

// mergeMessage upserts the message. A cached thread summary that is newer than
// the incoming one is kept.
func (s *Store) mergeMessage(c *channelCache, m model.Message) {
	if m.ID == "" {
		jww.DEBUG.Printf("[STORE] Skipping message with no ID in %s", c.id)
		return
	}
	if m.ChannelID == "" {
		m.ChannelID = c.id
	}

	if existing, exists := c.messages[m.ID]; exists &&
		model.Newer(existing.Thread, m.Thread) {
		if m.Thread != nil {
			jww.DEBUG.Printf("[STORE] Keeping newer thread of %s in %s "+
				"(cached %d > incoming %d)", m.ID, c.id,
				existing.Thread.UpdatedAt, m.Thread.UpdatedAt)
		}
		m.Thread = existing.Thread
	}

	c.messages[m.ID] = m
}

// applyReply updates the thread summary of the reply's parent. Returns true if
// the channel changed.
func (s *Store) applyReply(c *channelCache, ev model.RealtimeEvent) bool {
	parentID := ev.ParentID
	if parentID == "" {
		parentID = ev.Message.ParentID
	}
	if parentID == "" {
		jww.WARN.Printf("[STORE] Ignoring reply with no parent in %s", c.id)
		return false
	}

	if id := ev.Message.ID; id != "" {
		if _, seen := c.seenReplies[id]; seen {
			jww.DEBUG.Printf("[STORE] Ignoring repeated reply %s to %s",
				id, parentID)
			return false
		}
		c.seenReplies[id] = struct{}{}
		s.addPreview(c, parentID, ev.Message)
	}

	parent, exists := c.messages[parentID]
	if !exists {
		jww.DEBUG.Printf("[STORE] Reply to uncached parent %s in %s; "+
			"waiting for next snapshot", parentID, c.id)
		return true
	}

	ts := s.eventTime(ev)
	next := model.ThreadSummary{LastRepliedAt: ts, UpdatedAt: ts}
	if ev.Thread != nil {
		next.ReplyCount = ev.Thread.ReplyCount
		if ev.Thread.LastRepliedAt > 0 {
			next.LastRepliedAt = ev.Thread.LastRepliedAt
		}
		if ev.Thread.UpdatedAt > next.UpdatedAt {
			next.UpdatedAt = ev.Thread.UpdatedAt
		}
	} else if parent.Thread != nil {
		next.ReplyCount = parent.Thread.ReplyCount + 1
	} else {
		next.ReplyCount = 1
	}

	parent.Thread = monotonic(parent.Thread, next)
	c.messages[parentID] = parent
	return true
}

// applyThreadMeta replaces the thread summary of a cached message. A message
// that is not cached yet is skipped; the next snapshot brings it in.
func (s *Store) applyThreadMeta(c *channelCache, ev model.RealtimeEvent) bool {
	if ev.Thread == nil {
		jww.WARN.Printf("[STORE] Ignoring thread update with no thread info "+
			"for %s in %s", ev.ParentID, c.id)
		return false
	}

	parent, exists := c.messages[ev.ParentID]
	if !exists {
		jww.DEBUG.Printf("[STORE] Thread update for uncached message %s in "+
			"%s dropped", ev.ParentID, c.id)
		return false
	}

	next := *ev.Thread
	if next.UpdatedAt == 0 {
		next.UpdatedAt = s.eventTime(ev)
	}
	if model.Newer(parent.Thread, &next) {
		jww.DEBUG.Printf("[STORE] Dropping thread update for %s in %s older "+
			"than cached (%d > %d)", ev.ParentID, c.id,
			parent.Thread.UpdatedAt, next.UpdatedAt)
		return false
	}

	parent.Thread = monotonic(parent.Thread, next)
	c.messages[ev.ParentID] = parent
	return true
}

// addPreview keeps the most recent replies of a thread, one entry per reply.
func (s *Store) addPreview(c *channelCache, parentID string, reply model.Message) {
	if reply.ID == "" {
		return
	}

	list := c.previews[parentID]
	for i, p := range list {
		if p.ID == reply.ID {
			list = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	list = append(list, reply)

	// Keep the newest replies in chronological order
	for i := len(list) - 1; i > 0 && list[i].CreatedAt < list[i-1].CreatedAt; i-- {
		list[i], list[i-1] = list[i-1], list[i]
	}
	if n := s.params.PreviewCount; len(list) > n {
		list = list[len(list)-n:]
	}
	c.previews[parentID] = list
}

// eventTime returns the timestamp of a realtime event, falling back to the
// message time and then the local clock.
func (s *Store) eventTime(ev model.RealtimeEvent) int64 {
	switch {
	case ev.Timestamp > 0:
		return ev.Timestamp
	case ev.Message.CreatedAt > 0:
		return ev.Message.CreatedAt
	default:
		return s.clock.Now().UnixMilli()
	}
}

// recompute rebuilds the thread list of the channel, marks it as most recently
// updated and evicts old channels. Returns the badge to send.
func (s *Store) recompute(c *channelCache) badge {
	c.threads = ExtractThreads(
		c.messages, c.previews, s.openThread, s.ledger, model.SortLastReplied)
	c.recomputedAt = s.clock.Now()

	s.channels.Delete(c.id)
	s.channels.Set(c.id, c)
	s.evict()

	return badge{
		channelID: c.id,
		unread:    countUnread(c.threads),
		send:      c.id == s.active,
	}
}

// evict removes the least recently updated channels until the limit is met.
// The active channel is never evicted.
func (s *Store) evict() {
	for s.channels.Len() > s.params.MaxChannels {
		var victim *channelCache
		for el := s.channels.Front(); el != nil; el = el.Next() {
			if c := el.Value.(*channelCache); c.id != s.active {
				victim = c
				break
			}
		}
		if victim == nil {
			return
		}

		s.channels.Delete(victim.id)
		jww.DEBUG.Printf("[STORE] Evicted channel %s (%d messages, last "+
			"updated %s)", victim.id, len(victim.messages),
			victim.recomputedAt.Format(time.RFC3339))
	}
}

// monotonic returns next, keeping the update and reply times of prev when they
// are later.
func monotonic(prev *model.ThreadSummary, next model.ThreadSummary) *model.ThreadSummary {
	if prev != nil {
		if prev.UpdatedAt > next.UpdatedAt {
			next.UpdatedAt = prev.UpdatedAt
		}
		if prev.LastRepliedAt > next.LastRepliedAt {
			next.LastRepliedAt = prev.LastRepliedAt
		}
	}
	return &next
}

////////////////////////////////////////////////////////////////////////////////
// Notifications                                                              //
////////////////////////////////////////////////////////////////////////////////

// notify sends the badge if it belongs to the active channel. Must be called
// without the lock.
func (s *Store) notify(b badge) {
	if !b.send || s.notifier == nil {
		return
	}
	s.notifier.BadgeUpdate(b.channelID, b.unread)
}
