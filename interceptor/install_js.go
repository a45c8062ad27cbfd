////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

//go:build js && wasm

package interceptor

import (
	"net/http"
	"syscall/js"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
)

// Property names set on instrumented XMLHttpRequest objects and on the
// global scope once installed.
const (
	xhrMethodKey = "__threadkeeperMethod"
	xhrURLKey    = "__threadkeeperURL"
	installedKey = "__threadkeeperInstalled"
)

// InstallJS patches fetch, the WebSocket constructor and the XMLHttpRequest
// prototype of the global scope so that chat traffic is reported to ic. The
// page keeps receiving the original promises, sockets and responses.
//
// Returns an error if any of the primitives is missing; nothing is patched in
// that case.
func InstallJS(global js.Value, ic *Interceptor) error {
	fetch := global.Get("fetch")
	ws := global.Get("WebSocket")
	xhr := global.Get("XMLHttpRequest")
	switch {
	case fetch.Type() != js.TypeFunction:
		return errors.New("fetch is not available")
	case ws.Type() != js.TypeFunction:
		return errors.New("WebSocket is not available")
	case xhr.Type() != js.TypeFunction:
		return errors.New("XMLHttpRequest is not available")
	case global.Get(installedKey).Truthy():
		return errors.New("interceptors are already installed")
	}

	global.Set("fetch", ic.wrapFetch(global, fetch))
	global.Set("WebSocket", ic.wrapWebSocket(ws))
	ic.patchXHR(xhr.Get("prototype"))
	global.Set(installedKey, true)

	jww.INFO.Printf("[INT] Installed fetch, XHR and WebSocket interceptors")
	return nil
}

// wrapFetch returns a fetch that rewrites chat requests and reads a clone of
// chat responses. The original promise is returned to the caller.
func (ic *Interceptor) wrapFetch(global, fetch js.Value) js.Func {
	return js.FuncOf(func(this js.Value, args []js.Value) any {
		method, rawURL := fetchTarget(args)
		args = ic.rewriteFetch(global, method, rawURL, args)

		promise := fetch.Invoke(anySlice(args)...)
		if ic.Classify(method, rawURL).Endpoint == NotChat {
			return promise
		}

		var onResponse, onError js.Func
		release := func() {
			onResponse.Release()
			onError.Release()
		}
		onResponse = js.FuncOf(func(_ js.Value, r []js.Value) any {
			defer release()
			defer ic.recover("fetch response", rawURL)
			resp := r[0]
			status := resp.Get("status").Int()
			finalURL := rawURL
			if u := resp.Get("url"); u.Type() == js.TypeString && u.String() != "" {
				finalURL = u.String()
			}
			ic.readText(resp.Call("clone").Call("text"), func(text string) {
				ic.ObserveResponse(method, finalURL, status, []byte(text))
			})
			return nil
		})
		onError = js.FuncOf(func(js.Value, []js.Value) any {
			release()
			return nil
		})

		// Observe on a side branch so the caller keeps the original promise
		promise.Call("then", onResponse, onError)
		return promise
	})
}

// fetchTarget returns the method and URL of fetch(input, init).
func fetchTarget(args []js.Value) (string, string) {
	if len(args) == 0 {
		return http.MethodGet, ""
	}

	method := http.MethodGet
	var rawURL string
	input := args[0]
	if input.Type() == js.TypeString {
		rawURL = input.String()
	} else if input.Type() == js.TypeObject {
		if u := input.Get("url"); u.Type() == js.TypeString {
			rawURL = u.String()
			if m := input.Get("method"); m.Type() == js.TypeString {
				method = m.String()
			}
		} else {
			rawURL = input.Call("toString").String()
		}
	}

	if len(args) > 1 && args[1].Type() == js.TypeObject {
		if m := args[1].Get("method"); m.Type() == js.TypeString {
			method = m.String()
		}
	}
	return method, rawURL
}

// rewriteFetch replaces the fetch input with the rewritten URL when needed.
func (ic *Interceptor) rewriteFetch(
	global js.Value, method, rawURL string, args []js.Value) []js.Value {
	rewritten, ok := ic.RewriteURL(method, rawURL)
	if !ok {
		return args
	}

	out := append([]js.Value(nil), args...)
	if args[0].Type() == js.TypeString || args[0].Get("url").Type() != js.TypeString {
		out[0] = js.ValueOf(rewritten)
	} else {
		out[0] = global.Get("Request").New(rewritten, args[0])
	}
	return out
}

// wrapWebSocket returns a WebSocket constructor that instruments chat
// sockets. The wrapper shares the prototype and constants of the original so
// that instanceof checks keep working.
func (ic *Interceptor) wrapWebSocket(ws js.Value) js.Func {
	wrapper := js.FuncOf(func(this js.Value, args []js.Value) any {
		socket := ws.New(anySlice(args)...)
		if len(args) == 0 || !ic.IsChatSocket(args[0].String()) {
			return socket
		}
		ic.instrumentSocket(socket, args[0].String())
		return socket
	})

	w := wrapper.Value
	w.Set("prototype", ws.Get("prototype"))
	for _, c := range []string{"CONNECTING", "OPEN", "CLOSING", "CLOSED"} {
		w.Set(c, ws.Get(c))
	}
	return wrapper
}

// instrumentSocket observes the inbound and outbound text frames of socket.
func (ic *Interceptor) instrumentSocket(socket js.Value, rawURL string) {
	jww.DEBUG.Printf("[INT] Instrumenting chat socket %s", rawURL)

	send := socket.Get("send")
	var sendFn, onMessage, onClose js.Func
	sendFn = js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) > 0 && args[0].Type() == js.TypeString {
			ic.ObserveOutbound([]byte(args[0].String()))
		}
		return send.Call("apply", socket, js.ValueOf(anySlice(args)))
	})
	onMessage = js.FuncOf(func(_ js.Value, args []js.Value) any {
		if len(args) == 0 {
			return nil
		}
		if data := args[0].Get("data"); data.Type() == js.TypeString {
			ic.ObserveInbound([]byte(data.String()))
		}
		return nil
	})
	onClose = js.FuncOf(func(js.Value, []js.Value) any {
		socket.Call("removeEventListener", "message", onMessage)
		socket.Call("removeEventListener", "close", onClose)
		socket.Set("send", send)
		sendFn.Release()
		onMessage.Release()
		onClose.Release()
		return nil
	})

	socket.Set("send", sendFn)
	socket.Call("addEventListener", "message", onMessage)
	socket.Call("addEventListener", "close", onClose)
}

// patchXHR wraps open and send on the XMLHttpRequest prototype.
func (ic *Interceptor) patchXHR(proto js.Value) {
	open, send := proto.Get("open"), proto.Get("send")

	proto.Set("open", js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) >= 2 {
			method, rawURL := args[0].String(), args[1].String()
			if rewritten, ok := ic.RewriteURL(method, rawURL); ok {
				args = append([]js.Value(nil), args...)
				args[1] = js.ValueOf(rewritten)
				rawURL = rewritten
			}
			this.Set(xhrMethodKey, method)
			this.Set(xhrURLKey, rawURL)
		}
		return open.Call("apply", this, js.ValueOf(anySlice(args)))
	}))

	proto.Set("send", js.FuncOf(func(this js.Value, args []js.Value) any {
		method, rawURL := this.Get(xhrMethodKey), this.Get(xhrURLKey)
		if rawURL.Type() == js.TypeString &&
			ic.Classify(method.String(), rawURL.String()).Endpoint != NotChat {
			ic.observeXHR(this, method.String(), rawURL.String())
		}
		return send.Call("apply", this, js.ValueOf(anySlice(args)))
	}))
}

// observeXHR reads the response of a chat XMLHttpRequest once it loads.
func (ic *Interceptor) observeXHR(req js.Value, method, rawURL string) {
	var onLoad js.Func
	onLoad = js.FuncOf(func(js.Value, []js.Value) any {
		defer onLoad.Release()
		defer ic.recover("XHR response", rawURL)
		req.Call("removeEventListener", "load", onLoad)

		rt := req.Get("responseType").String()
		if rt != "" && rt != "text" {
			return nil
		}
		ic.ObserveResponse(method, rawURL, req.Get("status").Int(),
			[]byte(req.Get("responseText").String()))
		return nil
	})
	req.Call("addEventListener", "load", onLoad)
}

// readText calls fn with the resolved value of a text() promise. Rejections
// are logged.
func (ic *Interceptor) readText(promise js.Value, fn func(text string)) {
	var onText, onError js.Func
	release := func() {
		onText.Release()
		onError.Release()
	}
	onText = js.FuncOf(func(_ js.Value, args []js.Value) any {
		defer release()
		if len(args) > 0 && args[0].Type() == js.TypeString {
			fn(args[0].String())
		}
		return nil
	})
	onError = js.FuncOf(func(_ js.Value, args []js.Value) any {
		defer release()
		jww.DEBUG.Printf("[INT] Failed to read cloned response body")
		return nil
	})
	promise.Call("then", onText, onError)
}

func anySlice(args []js.Value) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = a
	}
	return out
}
