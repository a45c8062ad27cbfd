////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package notifier is the boundary between the thread tracker and the UI. The
// core only ever calls it for the active channel.
package notifier

import (
	"gitlab.com/threadkeeper/threadkeeper-wasm/events"
	"gitlab.com/threadkeeper/threadkeeper-wasm/model"
)

// Notifier receives repaint requests from the core.
type Notifier interface {
	// BadgeUpdate is called with the unread thread count of the active
	// channel every time its thread list is recomputed.
	BadgeUpdate(channelID string, unread int)

	// PanelRefresh is called when the thread panel must be repainted.
	// hasContent is true if threads for the channel are already cached.
	PanelRefresh(channelID string, hasContent bool)

	// ChannelChanged is called when the current channel changes.
	ChannelChanged(previous, current string, source model.NavigationSource)
}

// Bus is a Notifier that publishes every notification as a typed event on
// the dispatcher.
type Bus struct {
	d *events.Dispatcher
}

// NewBus returns a Notifier publishing to the dispatcher.
func NewBus(d *events.Dispatcher) *Bus {
	return &Bus{d: d}
}

func (b *Bus) BadgeUpdate(channelID string, unread int) {
	b.d.Dispatch(events.BadgeUpdate{ChannelID: channelID, Unread: unread})
}

func (b *Bus) PanelRefresh(channelID string, hasContent bool) {
	b.d.Dispatch(events.PanelRefresh{
		ChannelID: channelID, HasContent: hasContent})
}

func (b *Bus) ChannelChanged(
	previous, current string, source model.NavigationSource) {
	b.d.Dispatch(events.ChannelChanged{
		Previous: previous, Current: current, Source: source})
}

// Funcs adapts plain callbacks to a Notifier. Nil callbacks are skipped.
type Funcs struct {
	OnBadgeUpdate    func(channelID string, unread int)
	OnPanelRefresh   func(channelID string, hasContent bool)
	OnChannelChanged func(previous, current string, source model.NavigationSource)
}

func (f Funcs) BadgeUpdate(channelID string, unread int) {
	if f.OnBadgeUpdate != nil {
		f.OnBadgeUpdate(channelID, unread)
	}
}

func (f Funcs) PanelRefresh(channelID string, hasContent bool) {
	if f.OnPanelRefresh != nil {
		f.OnPanelRefresh(channelID, hasContent)
	}
}

func (f Funcs) ChannelChanged(
	previous, current string, source model.NavigationSource) {
	if f.OnChannelChanged != nil {
		f.OnChannelChanged(previous, current, source)
	}
}

// Subscribe registers n to receive the UI events published by a Bus on the
// dispatcher. Returns the registration IDs.
func Subscribe(d *events.Dispatcher, n Notifier) []uint64 {
	return []uint64{
		d.Register(events.BadgeUpdateKind, func(ev events.Event) {
			e := ev.(events.BadgeUpdate)
			n.BadgeUpdate(e.ChannelID, e.Unread)
		}),
		d.Register(events.PanelRefreshKind, func(ev events.Event) {
			e := ev.(events.PanelRefresh)
			n.PanelRefresh(e.ChannelID, e.HasContent)
		}),
		d.Register(events.ChannelChangedKind, func(ev events.Event) {
			e := ev.(events.ChannelChanged)
			n.ChannelChanged(e.Previous, e.Current, e.Source)
		}),
	}
}

// Multi forwards every notification to each of its Notifiers in order.
type Multi []Notifier

func (m Multi) BadgeUpdate(channelID string, unread int) {
	for _, n := range m {
		n.BadgeUpdate(channelID, unread)
	}
}

func (m Multi) PanelRefresh(channelID string, hasContent bool) {
	for _, n := range m {
		n.PanelRefresh(channelID, hasContent)
	}
}

func (m Multi) ChannelChanged(
	previous, current string, source model.NavigationSource) {
	for _, n := range m {
		n.ChannelChanged(previous, current, source)
	}
}
