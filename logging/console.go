////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

//go:build js && wasm

package logging

import (
	"io"
	"sync"
	"syscall/js"

	jww "github.com/spf13/jwalterweatherman"
)

var consoleObj = js.Global().Get("console")

// consoleListener is the ID of the registered console listener, if any.
var consoleListener struct {
	id     uint64
	active bool
	sync.Mutex
}

// setOutput replaces the console listener with one at the new threshold and
// silences stdout, which the browser would otherwise print as console.log.
func setOutput(threshold jww.Threshold) {
	consoleListener.Lock()
	defer consoleListener.Unlock()

	if consoleListener.active {
		RemoveLogListener(consoleListener.id)
	}
	ll := NewJsConsoleLogListener(threshold)
	consoleListener.id = AddLogListener(ll.Listen)
	consoleListener.active = true
	jww.SetStdoutThreshold(jww.LevelFatal + 1)
}

// Console contains the Javascript console object, which provides access to the
// browser's debugging console. This structure is defined for only a single
// method on the console object. For example, if the method is set to debug,
// then all calls to console.Write will print a debug message to the Javascript
// console.
//
// Doc: https://developer.mozilla.org/en-US/docs/Web/API/console
type Console struct {
	method string
	js.Value
}

// Write writes the data to the Javascript console with preset method. Returns
// the number of bytes written.
func (c *Console) Write(p []byte) (n int, err error) {
	c.Call(c.method, string(p))
	return len(p), nil
}

// JsConsoleLogListener redirects log output to the Javascript console using the
// correct console method.
type JsConsoleLogListener struct {
	jww.Threshold

	byLevel map[jww.Threshold]*Console
	def     *Console
}

// NewJsConsoleLogListener initialises a new log listener that listener for the
// specific threshold and prints the logs to the Javascript console.
func NewJsConsoleLogListener(threshold jww.Threshold) *JsConsoleLogListener {
	return &JsConsoleLogListener{
		Threshold: threshold,
		byLevel: map[jww.Threshold]*Console{
			jww.LevelTrace:    {"debug", consoleObj},
			jww.LevelDebug:    {"log", consoleObj},
			jww.LevelInfo:     {"info", consoleObj},
			jww.LevelWarn:     {"warn", consoleObj},
			jww.LevelError:    {"error", consoleObj},
			jww.LevelCritical: {"error", consoleObj},
			jww.LevelFatal:    {"error", consoleObj},
		},
		def: &Console{"log", consoleObj},
	}
}

// Listen is called for every logging event. This function adheres to the
// [jwalterweatherman.LogListener] type.
func (ll *JsConsoleLogListener) Listen(t jww.Threshold) io.Writer {
	if t < ll.Threshold {
		return nil
	}

	if c, exists := ll.byLevel[t]; exists {
		return c
	}
	return ll.def
}
