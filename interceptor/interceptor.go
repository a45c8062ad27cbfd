////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package interceptor observes the chat page's network traffic. It classifies
// chat API calls, parses their responses and socket frames into typed events
// and never changes what the page itself receives.
package interceptor

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/aquilax/truncate"
	"github.com/benbjohnson/clock"
	jww "github.com/spf13/jwalterweatherman"

	"gitlab.com/threadkeeper/threadkeeper-wasm/events"
	"gitlab.com/threadkeeper/threadkeeper-wasm/model"
)

// pendingSend is an outbound message waiting for its server echo.
type pendingSend struct {
	channelID string
	expires   time.Time
}

// Interceptor turns intercepted traffic into events on the dispatcher.
type Interceptor struct {
	params Params
	d      *events.Dispatcher
	clock  clock.Clock

	// pending maps request IDs of outbound messages to their channel until
	// the server echo arrives or the entry expires.
	pending map[string]pendingSend

	wg  sync.WaitGroup
	mux sync.Mutex
}

// New returns an Interceptor dispatching to d. A nil clock uses the wall
// clock.
func New(p Params, d *events.Dispatcher, clk clock.Clock) *Interceptor {
	if clk == nil {
		clk = clock.New()
	}
	return &Interceptor{
		params:  p,
		d:       d,
		clock:   clk,
		pending: make(map[string]pendingSend),
	}
}

// IsChatSocket returns true if the socket URL belongs to the chat realtime
// host.
func (ic *Interceptor) IsChatSocket(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return (u.Scheme == "ws" || u.Scheme == "wss") &&
		strings.Contains(u.Host, ic.params.SocketHost)
}

// ObserveResponse parses the response of a chat API call in a new goroutine
// and dispatches the matching event. Failures are logged and never returned.
// The body is not retained after the call returns.
func (ic *Interceptor) ObserveResponse(
	method, rawURL string, status int, body []byte) {
	route := ic.Classify(method, rawURL)
	if route.Endpoint == NotChat {
		return
	}
	if status < 200 || status > 299 {
		jww.DEBUG.Printf("[INT] Ignoring %s response with status %d",
			route.Endpoint, status)
		return
	}

	body = append([]byte(nil), body...)
	ic.wg.Add(1)
	go func() {
		defer ic.wg.Done()
		defer ic.recover("response", route.Endpoint.String())
		ic.handleResponse(route, body)
	}()
}

// Wait blocks until every response being parsed has been dispatched.
func (ic *Interceptor) Wait() {
	ic.wg.Wait()
}

func (ic *Interceptor) handleResponse(route Route, body []byte) {
	if ic.params.EventLogging {
		jww.TRACE.Printf("[INT] %s response for %q: %s",
			route.Endpoint, route.ChannelID, ic.truncate(body))
	}

	var ev events.Event
	switch route.Endpoint {
	case Messages:
		msgs, err := model.ParseMessages(body, "messages", route.ChannelID)
		if err != nil {
			ic.parseFailed(route, body, err)
			return
		}
		ev = events.ChannelMessages{ChannelID: route.ChannelID, Messages: msgs}

	case ThreadReplies:
		replies, err := model.ParseMessages(body, "messages", route.ChannelID)
		if err != nil {
			ic.parseFailed(route, body, err)
			return
		}
		ev = events.ThreadReplies{ChannelID: route.ChannelID,
			ParentID: route.ParentID, Replies: replies}

	case Changelog:
		cl, err := model.ParseChangelog(body, route.ChannelID)
		if err != nil {
			ic.parseFailed(route, body, err)
			return
		}
		ev = events.ChannelChangelog{ChannelID: route.ChannelID, Changelog: cl}

	case ChannelDetails:
		c, err := model.ParseChannel(body)
		if err != nil {
			ic.parseFailed(route, body, err)
			return
		}
		ev = events.ChannelDetails{Channel: c}

	case ChannelCreate:
		c, err := model.ParseChannel(body)
		if err != nil {
			ic.parseFailed(route, body, err)
			return
		}
		if c.Distinct {
			ev = events.DMCreated{Channel: c}
		} else {
			ev = events.ChannelDetails{Channel: c}
		}

	case MessageSend:
		m, err := model.ParseMessage(body)
		if err != nil {
			ic.parseFailed(route, body, err)
			return
		}
		if m.ChannelID == "" {
			m.ChannelID = route.ChannelID
		}
		ev = events.MessageSent{
			ChannelID: m.ChannelID, RequestID: m.RequestID, Message: m}

	default:
		return
	}

	ic.d.Dispatch(ev)
}

// ObserveInbound parses a frame received on the chat socket and dispatches the
// matching event. Unparseable frames and unknown commands are dropped.
func (ic *Interceptor) ObserveInbound(raw []byte) {
	defer ic.recover("inbound frame", "")

	f, err := ParseFrame(raw)
	if err != nil {
		jww.DEBUG.Printf("[INT] Dropping inbound frame %s: %v",
			ic.truncate(raw), err)
		return
	}
	if f.Command == CmdMessageAck {
		return
	}
	if ic.params.EventLogging {
		jww.TRACE.Printf("[INT] Inbound %s: %s", f.Command, ic.truncate(raw))
	}

	b := f.Body
	channelID := b.Get("channel_url").String()

	var ev events.Event
	switch f.Command {
	case CmdMessage:
		ev = ic.inboundMessage(f)
	case CmdRead:
		ev = events.ReadReceipt{
			ChannelID: channelID,
			UserID:    b.Get("user.user_id").String(),
			Timestamp: b.Get("ts").Int(),
		}
	case CmdDelivery:
		ev = events.DeliveryReceipt{
			ChannelID: channelID, Timestamp: b.Get("updated.ts").Int()}
	case CmdTypingStart, CmdTypingEnd:
		ev = events.Typing{
			ChannelID: channelID,
			UserID:    b.Get("user.user_id").String(),
			Started:   f.Command == CmdTypingStart,
		}
	case CmdPing, CmdPong:
		ev = events.Heartbeat{Ack: f.Command == CmdPong}
	case CmdBroadcast:
		ev = events.Broadcast{ChannelID: channelID, Payload: f.Raw}
	case CmdThreadMeta:
		ev = ic.threadMeta(f)
	case CmdUpdate:
		m, err := model.MessageFromResult(b, "")
		if err != nil {
			jww.DEBUG.Printf("[INT] Dropping %s frame: %v", f.Command, err)
			return
		}
		ev = events.MessageUpdated{Message: m}
	case CmdSystemEvent:
		ev = events.SystemEvent{
			ChannelID: first(b, "channel_url", "channel.channel_url"),
			Category:  b.Get("cat").Int(),
		}
	case CmdLogin:
		errMsg := b.Get("message").String()
		failed := b.Get("error").Bool() || b.Get("code").Int() != 0
		if !failed {
			errMsg = ""
		}
		ev = events.Login{
			Success: !failed,
			UserID:  b.Get("user_id").String(),
			Error:   errMsg,
		}
	default:
		jww.TRACE.Printf("[INT] Ignoring unknown command %q", f.Command)
		return
	}

	if ev != nil {
		ic.d.Dispatch(ev)
	}
}

// ObserveOutbound inspects a frame sent on the chat socket. An outbound
// message is remembered for the correlation TTL so that its server echo can be
// matched.
func (ic *Interceptor) ObserveOutbound(raw []byte) {
	defer ic.recover("outbound frame", "")

	f, err := ParseFrame(raw)
	if err != nil || f.Command != CmdMessage {
		return
	}

	reqID := f.Body.Get("req_id").String()
	channelID := f.Body.Get("channel_url").String()
	if reqID == "" || channelID == "" {
		jww.DEBUG.Printf("[INT] Outbound message without request ID or "+
			"channel: %s", ic.truncate(raw))
		return
	}

	now := ic.clock.Now()
	ic.mux.Lock()
	ic.prune(now)
	ic.pending[reqID] = pendingSend{
		channelID: channelID,
		expires:   now.Add(ic.params.CorrelationTTL),
	}
	ic.mux.Unlock()

	ic.d.Dispatch(events.MessageSent{
		ChannelID: channelID,
		RequestID: reqID,
		Message: model.Message{
			ChannelID: channelID,
			Text:      f.Body.Get("message").String(),
			ParentID:  f.Body.Get("parent_message_id").String(),
			RequestID: reqID,
		},
	})
}

// PendingSends returns the number of outbound messages awaiting their echo.
func (ic *Interceptor) PendingSends() int {
	ic.mux.Lock()
	defer ic.mux.Unlock()
	ic.prune(ic.clock.Now())
	return len(ic.pending)
}

// inboundMessage builds the event of a MESG frame. An echo of a pending
// outbound message is reported as a confirmation.
func (ic *Interceptor) inboundMessage(f Frame) events.Event {
	m, err := model.MessageFromResult(f.Body, "")
	if err != nil {
		jww.DEBUG.Printf("[INT] Dropping %s frame: %v", f.Command, err)
		return nil
	}

	if m.RequestID != "" {
		ic.mux.Lock()
		ic.prune(ic.clock.Now())
		p, exists := ic.pending[m.RequestID]
		delete(ic.pending, m.RequestID)
		ic.mux.Unlock()

		if exists {
			ic.d.Dispatch(events.MessageConfirmed{
				ChannelID: p.channelID,
				RequestID: m.RequestID,
				MessageID: m.ID,
			})
		}
	}

	if m.IsReply() {
		thread := m.Thread
		m.Thread = nil
		return events.Realtime{Update: model.RealtimeEvent{
			Kind:      model.RealtimeReply,
			ChannelID: m.ChannelID,
			Message:   m,
			ParentID:  m.ParentID,
			Thread:    thread,
			Timestamp: m.CreatedAt,
		}}
	}

	return events.Realtime{Update: model.RealtimeEvent{
		Kind:      model.RealtimeMessage,
		ChannelID: m.ChannelID,
		Message:   m,
		Timestamp: m.CreatedAt,
	}}
}

// threadMeta builds the event of an MTHD frame.
func (ic *Interceptor) threadMeta(f Frame) events.Event {
	b := f.Body
	parentID := first(b, "parent_message_id", "root_message_id", "msg_id")
	thread := model.ThreadSummaryFromResult(b.Get("thread_info"))
	if parentID == "" || thread == nil {
		jww.DEBUG.Printf("[INT] Dropping %s frame without parent or thread "+
			"info", f.Command)
		return nil
	}

	return events.Realtime{Update: model.RealtimeEvent{
		Kind:      model.RealtimeThreadMeta,
		ChannelID: b.Get("channel_url").String(),
		ParentID:  parentID,
		Thread:    thread,
		Timestamp: b.Get("ts").Int(),
	}}
}

// prune removes expired correlation entries. Must be called with the lock.
func (ic *Interceptor) prune(now time.Time) {
	for id, p := range ic.pending {
		if !now.Before(p.expires) {
			delete(ic.pending, id)
		}
	}
}

// recover logs a panic raised while inspecting traffic so that it never
// reaches the page.
func (ic *Interceptor) recover(what, detail string) {
	if r := recover(); r != nil {
		jww.ERROR.Printf("[INT] Recovered from panic while inspecting %s %s: "+
			"%+v", what, detail, r)
	}
}

func (ic *Interceptor) truncate(data []byte) string {
	return truncate.Truncate(fmt.Sprintf("%q", data),
		ic.params.LogPayloadLength, "...", truncate.PositionMiddle)
}

// parseFailed logs a response that could not be parsed.
func (ic *Interceptor) parseFailed(route Route, body []byte, err error) {
	jww.DEBUG.Printf("[INT] Failed to parse %s response for %q: %+v\n%s",
		route.Endpoint, route.ChannelID, err, ic.truncate(body))
}
