////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package interceptor

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
)

// DialFunc opens a socket.
type DialFunc func(ctx context.Context, rawURL string,
	header http.Header) (Socket, *http.Response, error)

// Globals are the network primitives the page uses. Install replaces them with
// instrumented variants.
type Globals struct {
	// Fetch performs fetch requests.
	Fetch http.RoundTripper

	// XHR performs XMLHttpRequest requests.
	XHR http.RoundTripper

	// Dial opens sockets.
	Dial DialFunc
}

// DefaultGlobals returns Globals backed by http.DefaultTransport and the
// default websocket dialer.
func DefaultGlobals() *Globals {
	return &Globals{
		Fetch: http.DefaultTransport,
		XHR:   http.DefaultTransport,
		Dial:  DialWebsocket,
	}
}

// DialWebsocket dials with websocket.DefaultDialer.
func DialWebsocket(ctx context.Context, rawURL string,
	header http.Header) (Socket, *http.Response, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, rawURL, header)
	if err != nil {
		return nil, resp, err
	}
	return conn, resp, nil
}

// Install replaces every primitive in g with a wrapped variant that reports
// to ic. Returns an error if a primitive is missing or g is already
// instrumented; nothing is replaced in that case.
func Install(g *Globals, ic *Interceptor) error {
	switch {
	case g == nil:
		return errors.New("no globals to instrument")
	case ic == nil:
		return errors.New("no interceptor to install")
	case g.Fetch == nil:
		return errors.New("fetch is not available")
	case g.XHR == nil:
		return errors.New("XMLHttpRequest is not available")
	case g.Dial == nil:
		return errors.New("WebSocket is not available")
	}
	if _, installed := g.Fetch.(*Transport); installed {
		return errors.New("interceptors are already installed")
	}

	g.Fetch = ic.Transport(g.Fetch)
	g.XHR = ic.Transport(g.XHR)

	dial := g.Dial
	g.Dial = func(ctx context.Context, rawURL string,
		header http.Header) (Socket, *http.Response, error) {
		s, resp, err := dial(ctx, rawURL, header)
		if err != nil {
			return s, resp, err
		}
		return ic.WrapSocket(rawURL, s), resp, nil
	}

	jww.INFO.Printf("[INT] Installed fetch, XHR and socket interceptors")
	return nil
}
