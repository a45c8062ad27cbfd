////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

//go:build js && wasm

package main

import (
	"syscall/js"

	jww "github.com/spf13/jwalterweatherman"

	"gitlab.com/threadkeeper/threadkeeper-wasm/logging"
	"gitlab.com/threadkeeper/threadkeeper-wasm/wasm"
)

func main() {
	// Logs go to the console until the page sets another level
	if err := logging.LogLevel(jww.LevelInfo); err != nil {
		jww.FATAL.Panicf("Failed to set log level: %+v", err)
	}
	jww.INFO.Print("[TRK] Starting thread tracker WASM")

	// wasm/tracker.go
	js.Global().Set("StartThreadTracker", js.FuncOf(wasm.StartThreadTracker))

	// wasm/version.go
	js.Global().Set("GetThreadTrackerVersion", js.FuncOf(wasm.GetVersion))

	// logging/bindings.go
	js.Global().Set("LogLevel", js.FuncOf(logging.LogLevelJS))
	js.Global().Set("LogToFile", js.FuncOf(logging.LogToFileJS))

	// Keep the runtime alive for the callbacks
	<-make(chan struct{})
}
