////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package interceptor

import (
	"bytes"
	"io"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"
	jww "github.com/spf13/jwalterweatherman"
)

// Transport is an http.RoundTripper that rewrites chat message-list requests
// and observes chat API responses. The caller receives the response of the
// wrapped RoundTripper with an identical body.
type Transport struct {
	base http.RoundTripper
	ic   *Interceptor
}

// Transport wraps base. A nil base uses http.DefaultTransport.
func (ic *Interceptor) Transport(base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{base: base, ic: ic}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if rewritten, ok := t.ic.RewriteURL(req.Method, req.URL.String()); ok {
		if u, err := url.Parse(rewritten); err == nil {
			req = req.Clone(req.Context())
			req.URL = u
		}
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil || resp == nil || resp.Body == nil {
		return resp, err
	}
	if t.ic.Classify(req.Method, req.URL.String()).Endpoint == NotChat {
		return resp, nil
	}

	body, readErr := io.ReadAll(resp.Body)
	if closeErr := resp.Body.Close(); closeErr != nil {
		jww.DEBUG.Printf("[INT] Failed to close response body: %v", closeErr)
	}
	if readErr != nil {
		// Hand the caller the bytes read so far followed by the same error
		resp.Body = io.NopCloser(
			io.MultiReader(bytes.NewReader(body), errReader{readErr}))
		return resp, nil
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	t.ic.ObserveResponse(req.Method, req.URL.String(), resp.StatusCode, body)
	return resp, nil
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

// Socket is the subset of a websocket connection the interceptor wraps. It is
// satisfied by *websocket.Conn.
type Socket interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Conn is a Socket whose text frames are observed in both directions.
type Conn struct {
	Socket
	ic *Interceptor
}

// WrapSocket returns s wrapped in a Conn if rawURL is the chat realtime
// socket, or s unchanged otherwise.
func (ic *Interceptor) WrapSocket(rawURL string, s Socket) Socket {
	if s == nil || !ic.IsChatSocket(rawURL) {
		return s
	}
	jww.DEBUG.Printf("[INT] Instrumenting chat socket %s", rawURL)
	return &Conn{Socket: s, ic: ic}
}

// ReadMessage reads the next message and observes it if it is a text frame.
func (c *Conn) ReadMessage() (int, []byte, error) {
	mt, data, err := c.Socket.ReadMessage()
	if err == nil && mt == websocket.TextMessage {
		c.ic.ObserveInbound(data)
	}
	return mt, data, err
}

// WriteMessage observes a text frame and writes it.
func (c *Conn) WriteMessage(mt int, data []byte) error {
	if mt == websocket.TextMessage {
		c.ic.ObserveOutbound(data)
	}
	return c.Socket.WriteMessage(mt, data)
}
