////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package tracker builds the thread tracker once per page: the event
// dispatcher, the interceptor, the message store and the navigation
// reconciler, wired together by event handlers.
package tracker

import (
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"

	"gitlab.com/threadkeeper/threadkeeper-wasm/dom"
	"gitlab.com/threadkeeper/threadkeeper-wasm/events"
	"gitlab.com/threadkeeper/threadkeeper-wasm/interceptor"
	"gitlab.com/threadkeeper/threadkeeper-wasm/model"
	"gitlab.com/threadkeeper/threadkeeper-wasm/notifier"
	"gitlab.com/threadkeeper/threadkeeper-wasm/reconciler"
	"gitlab.com/threadkeeper/threadkeeper-wasm/records"
	"gitlab.com/threadkeeper/threadkeeper-wasm/store"
)

// Deps are the collaborators of the Tracker that live outside of it.
type Deps struct {
	// Page is read to verify navigation. Required.
	Page dom.Page

	// Records persists chat records. Defaults to an in-memory store.
	Records records.Store

	// Ledger persists thread read times. Defaults to an in-memory ledger.
	Ledger records.Ledger

	// Notifier receives UI notifications in addition to the dispatcher.
	Notifier notifier.Notifier

	// Clock defaults to the wall clock.
	Clock clock.Clock

	// Dispatcher carries the events of the tracker. A new dispatcher is
	// created when nil. A tracker started on the dispatcher of a closed one
	// receives the events of interceptors installed for the closed one.
	Dispatcher *events.Dispatcher
}

// Tracker is the handle to a running thread tracker.
type Tracker struct {
	d           *events.Dispatcher
	interceptor *interceptor.Interceptor
	store       *store.Store
	reconciler  *reconciler.Reconciler
	records     records.Store
	clock       clock.Clock

	handlerIDs []uint64
	closed     bool
	mux        sync.Mutex
}

// New builds a Tracker and registers its event handlers.
func New(p Params, deps Deps) (*Tracker, error) {
	if err := p.validate(); err != nil {
		return nil, errors.WithMessage(err, "invalid tracker params")
	}
	if deps.Page == nil {
		return nil, errors.New("a page is required to verify navigation")
	}
	if deps.Records == nil {
		deps.Records = records.NewMemory()
	}
	if deps.Ledger == nil {
		deps.Ledger = records.NewMemoryLedger()
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}

	d := deps.Dispatcher
	if d == nil {
		d = events.NewDispatcher()
		d.EventLogging = p.EventLogging
	}

	var n notifier.Notifier = notifier.NewBus(d)
	if deps.Notifier != nil {
		n = notifier.Multi{n, deps.Notifier}
	}

	s := store.New(p.Store, deps.Ledger, n, deps.Clock)
	t := &Tracker{
		d:           d,
		interceptor: interceptor.New(p.Interceptor, d, deps.Clock),
		store:       s,
		reconciler: reconciler.New(
			p.Reconciler, deps.Page, deps.Records, s, n, deps.Clock),
		records: deps.Records,
		clock:   deps.Clock,
	}
	t.registerHandlers()

	jww.INFO.Printf("[TRK] Thread tracker started (max %d channels)",
		p.Store.MaxChannels)
	return t, nil
}

// Interceptor returns the interceptor to install on the page.
func (t *Tracker) Interceptor() *interceptor.Interceptor { return t.interceptor }

// Dispatcher returns the event dispatcher.
func (t *Tracker) Dispatcher() *events.Dispatcher { return t.d }

// CurrentChannel returns the channel the user is looking at or an empty
// string.
func (t *Tracker) CurrentChannel() string {
	return t.reconciler.Current()
}

// Threads returns the threads of the current channel.
func (t *Tracker) Threads(order model.SortOrder) []model.Thread {
	return t.ThreadsOf(t.reconciler.Current(), order)
}

// ThreadsOf returns the threads of any cached channel.
func (t *Tracker) ThreadsOf(channelID string, order model.SortOrder) []model.Thread {
	if channelID == "" {
		return nil
	}
	return t.store.Threads(channelID, order)
}

// UnreadCount returns the number of unread threads of the current channel.
func (t *Tracker) UnreadCount() int {
	return t.store.UnreadCount(t.reconciler.Current())
}

// MarkThreadRead marks the thread as read.
func (t *Tracker) MarkThreadRead(messageID string) {
	t.store.MarkThreadRead(messageID)
}

// SetOpenThread sets the thread the user is reading. An empty ID closes it.
func (t *Tracker) SetOpenThread(messageID string) {
	t.reconciler.SetOpenThread(messageID)
}

// Navigate reports a navigation observed in the page.
func (t *Tracker) Navigate(sig model.NavigationSignal) {
	t.reconciler.Signal(sig)
}

// Close unregisters every handler and stops pending timers. Events dispatched
// afterwards are ignored.
func (t *Tracker) Close() {
	t.mux.Lock()
	defer t.mux.Unlock()
	if t.closed {
		return
	}
	t.closed = true

	for _, id := range t.handlerIDs {
		t.d.Unregister(id)
	}
	t.handlerIDs = nil
	t.reconciler.Close()
	jww.INFO.Printf("[TRK] Thread tracker closed")
}

////////////////////////////////////////////////////////////////////////////////
// Event Handlers                                                             //
////////////////////////////////////////////////////////////////////////////////

func (t *Tracker) registerHandlers() {
	handlers := map[events.Kind]events.Handler{
		events.ChannelMessagesKind:  t.onChannelMessages,
		events.ChannelChangelogKind: t.onChannelChangelog,
		events.ThreadRepliesKind:    t.onThreadReplies,
		events.ChannelDetailsKind:   t.onChannel,
		events.DMCreatedKind:        t.onChannel,
		events.RealtimeKind:         t.onRealtime,
		events.MessageUpdatedKind:   t.onMessageUpdated,
		events.MessageSentKind:      t.onMessageSent,
		events.MessageConfirmedKind: t.onMessageConfirmed,
		events.LoginKind:            t.onLogin,
		events.ReadReceiptKind:      t.onQuiet,
		events.DeliveryReceiptKind:  t.onQuiet,
		events.TypingKind:           t.onQuiet,
		events.HeartbeatKind:        t.onQuiet,
		events.BroadcastKind:        t.onQuiet,
		events.SystemEventKind:      t.onQuiet,
	}

	t.mux.Lock()
	defer t.mux.Unlock()
	for kind, h := range handlers {
		t.handlerIDs = append(t.handlerIDs, t.d.Register(kind, h))
	}
}

func (t *Tracker) onChannelMessages(ev events.Event) {
	e := ev.(events.ChannelMessages)
	t.store.IngestMessageSnapshot(e.ChannelID, e.Messages)
	t.signalFirstMessage(e.ChannelID)
}

func (t *Tracker) onChannelChangelog(ev events.Event) {
	e := ev.(events.ChannelChangelog)
	t.store.IngestChangelog(e.ChannelID, e.Changelog)
}

func (t *Tracker) onThreadReplies(ev events.Event) {
	e := ev.(events.ThreadReplies)
	t.store.IngestThreadReplies(e.ChannelID, e.ParentID, e.Replies)
}

// onChannel merges API metadata into the channel's record and reports the
// channel as a navigation candidate.
func (t *Tracker) onChannel(ev events.Event) {
	var c model.Channel
	switch e := ev.(type) {
	case events.ChannelDetails:
		c = e.Channel
	case events.DMCreated:
		c = e.Channel
	}
	if c.ID == "" {
		return
	}

	update := records.FromChannel(c, t.clock.Now().UnixMilli())
	stored, err := t.records.Get(c.ID)
	switch {
	case err == nil:
		update = records.Merge(stored, update)
	case !records.IsNotFound(err):
		jww.ERROR.Printf("[TRK] Failed to get record for %s: %+v", c.ID, err)
		return
	}
	if err = t.records.Upsert(update); err != nil {
		jww.ERROR.Printf("[TRK] Failed to save record for %s: %+v", c.ID, err)
	}

	t.reconciler.Signal(model.NavigationSignal{
		ChannelID: c.ID, Name: c.Name, Source: model.SourceAPI})
}

func (t *Tracker) onRealtime(ev events.Event) {
	e := ev.(events.Realtime)
	t.store.IngestRealtimeEvent(e.Update)
	t.signalFirstMessage(e.Update.ChannelID)
}

func (t *Tracker) onMessageUpdated(ev events.Event) {
	e := ev.(events.MessageUpdated)
	t.store.IngestRealtimeEvent(model.RealtimeEvent{
		Kind:      model.RealtimeMessage,
		ChannelID: e.Message.ChannelID,
		Message:   e.Message,
	})
}

func (t *Tracker) onMessageSent(ev events.Event) {
	e := ev.(events.MessageSent)
	jww.DEBUG.Printf("[TRK] Message %q sent to %s", e.RequestID, e.ChannelID)
}

func (t *Tracker) onMessageConfirmed(ev events.Event) {
	e := ev.(events.MessageConfirmed)
	jww.DEBUG.Printf("[TRK] Message %q confirmed as %s in %s",
		e.RequestID, e.MessageID, e.ChannelID)
}

func (t *Tracker) onLogin(ev events.Event) {
	e := ev.(events.Login)
	if e.Success {
		jww.INFO.Printf("[TRK] Chat socket logged in as %q", e.UserID)
	} else {
		jww.WARN.Printf("[TRK] Chat socket login failed: %s", e.Error)
	}
}

func (t *Tracker) onQuiet(ev events.Event) {
	jww.TRACE.Printf("[TRK] %s: %+v", ev.Kind(), ev)
}

// signalFirstMessage reports the channel of a message as a navigation
// candidate while no channel is current.
func (t *Tracker) signalFirstMessage(channelID string) {
	if channelID == "" || t.reconciler.Current() != "" {
		return
	}
	t.reconciler.Signal(model.NavigationSignal{
		ChannelID: channelID, Source: model.SourceMessage})
}
