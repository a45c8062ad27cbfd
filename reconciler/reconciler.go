////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package reconciler decides which channel the user is looking at. Navigation
// signals from the page, the chat API and incoming messages are debounced,
// verified against the page and cross-checked with the persisted chat records
// before the current channel changes.
package reconciler

import (
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"

	"gitlab.com/threadkeeper/threadkeeper-wasm/dom"
	"gitlab.com/threadkeeper/threadkeeper-wasm/model"
	"gitlab.com/threadkeeper/threadkeeper-wasm/notifier"
	"gitlab.com/threadkeeper/threadkeeper-wasm/records"
)

// State is the state of the navigation state machine.
type State uint8

const (
	// Idle is the state before the first signal and after a dropped one.
	Idle State = iota

	// Debouncing waits for the debounce window to close.
	Debouncing

	// Verifying polls the page until the header and sidebar agree.
	Verifying

	// Accepted means the last verified signal changed (or confirmed) the
	// current channel.
	Accepted

	// Rejected means the last verified signal conflicted with a persisted
	// record and was discarded.
	Rejected
)

// String returns a human-readable name of the State. This function adheres
// to the fmt.Stringer interface.
func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Debouncing:
		return "Debouncing"
	case Verifying:
		return "Verifying"
	case Accepted:
		return "Accepted"
	case Rejected:
		return "Rejected"
	default:
		return "Unknown"
	}
}

var (
	errInconsistent = errors.New("header and sidebar disagree")
	errSuperseded   = errors.New("superseded by a newer signal")
)

// Store is the part of the message store driven by navigation.
type Store interface {
	SetActive(channelID string)
	OpenThread() string
	SetOpenThread(messageID string)
	Refresh(channelID string)
	HasThreads(channelID string) bool
}

// Reconciler owns the current channel pointer. The open thread pointer lives
// in the Store and is cleared whenever a channel is accepted.
type Reconciler struct {
	params   Params
	page     dom.Page
	records  records.Store
	store    Store
	notifier notifier.Notifier
	clock    clock.Clock

	state   State
	current string

	// pending is the last signal received. generation is incremented by
	// every signal so that a verification started for an older signal can
	// detect that it was superseded.
	pending    model.NavigationSignal
	generation uint64
	timer      *clock.Timer

	mux sync.Mutex
}

// New returns a Reconciler in the Idle state. A nil clock uses the wall clock.
func New(p Params, page dom.Page, rs records.Store, s Store,
	n notifier.Notifier, clk clock.Clock) *Reconciler {
	if clk == nil {
		clk = clock.New()
	}
	if p.VerifyAttempts < 1 {
		p.VerifyAttempts = 1
	}

	return &Reconciler{
		params:   p,
		page:     page,
		records:  rs,
		store:    s,
		notifier: n,
		clock:    clk,
	}
}

// Signal reports that the user may be looking at a channel. Every signal
// restarts the debounce window; only the last one in the window is verified.
func (r *Reconciler) Signal(sig model.NavigationSignal) {
	if sig.ChannelID == "" && strings.TrimSpace(sig.Name) == "" &&
		sig.Source != model.SourceDOM {
		jww.DEBUG.Printf("[NAV] Ignoring empty %s signal", sig.Source)
		return
	}

	r.mux.Lock()
	defer r.mux.Unlock()

	r.generation++
	gen := r.generation
	r.pending = sig
	r.state = Debouncing

	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = r.clock.AfterFunc(r.params.DebounceWindow, func() {
		// Verification waits on timers of the same clock
		go r.verify(gen)
	})

	jww.TRACE.Printf("[NAV] Signal %d from %s: channel %q name %q",
		gen, sig.Source, sig.ChannelID, sig.Name)
}

// Current returns the current channel or an empty string.
func (r *Reconciler) Current() string {
	r.mux.Lock()
	defer r.mux.Unlock()
	return r.current
}

// State returns the state of the state machine.
func (r *Reconciler) State() State {
	r.mux.Lock()
	defer r.mux.Unlock()
	return r.state
}

// OpenThread returns the thread the user is reading or an empty string.
func (r *Reconciler) OpenThread() string {
	return r.store.OpenThread()
}

// SetOpenThread records the thread the user is reading so that it is not
// counted as unread. An empty ID closes the thread.
func (r *Reconciler) SetOpenThread(messageID string) {
	r.store.SetOpenThread(messageID)
}

// Close stops a pending debounce timer.
func (r *Reconciler) Close() {
	r.mux.Lock()
	defer r.mux.Unlock()

	r.generation++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.state = Idle
}

// verify runs once the debounce window of signal gen closes.
func (r *Reconciler) verify(gen uint64) {
	r.mux.Lock()
	if gen != r.generation {
		r.mux.Unlock()
		return
	}
	sig := r.pending
	r.state = Verifying
	r.mux.Unlock()

	name, err := r.waitConsistent(gen)
	if err != nil {
		if errors.Is(err, errSuperseded) {
			jww.TRACE.Printf("[NAV] Signal %d superseded", gen)
			return
		}
		jww.DEBUG.Printf("[NAV] Dropping %s signal for %q: %v after %d "+
			"checks", sig.Source, sig.ChannelID, err, r.params.VerifyAttempts)
		r.finish(gen, Idle)
		return
	}

	id := sig.ChannelID
	if id == "" {
		rec, err := records.FindByNameFunc(r.records, name, dom.NormalizeName)
		if err != nil {
			jww.DEBUG.Printf("[NAV] Dropping %s signal: no channel named %q: %v",
				sig.Source, name, err)
			r.finish(gen, Idle)
			return
		}
		id = rec.ChannelID
	}

	stored, err := r.records.Get(id)
	switch {
	case err == nil && stored.Name != "" &&
		!strings.EqualFold(dom.NormalizeName(stored.Name), name):
		jww.WARN.Printf("[NAV] Rejecting stale %s signal for %s: record "+
			"name %q does not match page name %q", sig.Source, id,
			stored.Name, name)
		r.finish(gen, Rejected)
		return
	case err != nil && !records.IsNotFound(err):
		jww.ERROR.Printf("[NAV] Failed to get record for %s: %+v", id, err)
	}

	r.accept(gen, id, name, sig.Source, stored)
}

// waitConsistent polls the page until the header and sidebar agree and
// returns the agreed name.
func (r *Reconciler) waitConsistent(gen uint64) (string, error) {
	var name string
	op := func() error {
		if r.superseded(gen) {
			return backoff.Permanent(errSuperseded)
		}
		n, ok := dom.Consistent(r.page)
		if !ok {
			return errInconsistent
		}
		name = n
		return nil
	}

	b := backoff.WithMaxRetries(
		backoff.NewConstantBackOff(r.params.VerifyInterval),
		r.params.VerifyAttempts-1)
	err := backoff.RetryNotifyWithTimer(op, b, nil, &timer{clock: r.clock})
	return name, err
}

// accept makes id the current channel.
func (r *Reconciler) accept(gen uint64, id, name string,
	src model.NavigationSource, stored records.Record) {
	r.mux.Lock()
	if gen != r.generation {
		r.mux.Unlock()
		return
	}
	prev := r.current
	r.current = id
	r.mux.Unlock()
	defer r.finish(gen, Accepted)

	r.store.SetActive(id)
	if prev != id {
		jww.INFO.Printf("[NAV] Channel changed from %q to %s (%s)",
			prev, id, src)
		r.notifier.ChannelChanged(prev, id, src)
	} else {
		jww.DEBUG.Printf("[NAV] Channel %s reconfirmed by %s", id, src)
	}
	r.store.Refresh(id)
	r.notifier.PanelRefresh(id, r.store.HasThreads(id))

	// The page name only fills a record the API has not named
	if stored.Name != "" {
		return
	}
	stored.ChannelID = id
	stored.Name = name
	if now := r.clock.Now().UnixMilli(); now > stored.UpdatedAt {
		stored.UpdatedAt = now
	}
	if err := r.records.Upsert(stored); err != nil {
		jww.ERROR.Printf("[NAV] Failed to save record for %s: %+v", id, err)
	}
}

// finish sets the final state of a verification unless a newer signal
// arrived.
func (r *Reconciler) finish(gen uint64, s State) {
	r.mux.Lock()
	defer r.mux.Unlock()
	if gen == r.generation {
		r.state = s
	}
}

func (r *Reconciler) superseded(gen uint64) bool {
	r.mux.Lock()
	defer r.mux.Unlock()
	return gen != r.generation
}

// timer adapts a clock.Clock to the backoff.Timer interface so that DOM
// verification follows the same clock as the debounce window.
type timer struct {
	clock clock.Clock
	t     *clock.Timer
}

func (t *timer) Start(d time.Duration) {
	t.t = t.clock.Timer(d)
}

func (t *timer) Stop() {
	if t.t != nil {
		t.t.Stop()
	}
}

func (t *timer) C() <-chan time.Time {
	return t.t.C
}
