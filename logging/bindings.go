////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

//go:build js && wasm

package logging

import (
	"syscall/js"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"

	"gitlab.com/elixxir/wasm-utils/exception"
)

// LogLevelJS sets level of logging. All logs at the set level and below will be
// displayed (e.g., when log level is ERROR, only ERROR, CRITICAL, and FATAL
// messages will be printed).
//
// Log level options:
//
//	TRACE    - 0
//	DEBUG    - 1
//	INFO     - 2
//	WARN     - 3
//	ERROR    - 4
//	CRITICAL - 5
//	FATAL    - 6
//
// The default log level without updates is INFO.
//
// Parameters:
//   - args[0] - Log level (int).
//
// Returns:
//   - Throws an error if the log level is invalid.
func LogLevelJS(_ js.Value, args []js.Value) any {
	if len(args) < 1 || args[0].Type() != js.TypeNumber {
		exception.ThrowTrace(errors.New("log level must be a number"))
		return nil
	}

	if err := LogLevel(jww.Threshold(args[0].Int())); err != nil {
		exception.ThrowTrace(err)
		return nil
	}
	return nil
}

// LogToFileJS enables logging to a file that can be downloaded.
//
// Parameters:
//   - args[0] - Log level (int).
//   - args[1] - Log file name (string).
//   - args[2] - Max log file size, in bytes (int).
//
// Returns:
//   - A Javascript representation of the [LogFile] object, which allows
//     accessing the contents of the log file and other metadata.
//   - Throws an error if the arguments are invalid or logging to the file
//     fails.
func LogToFileJS(_ js.Value, args []js.Value) any {
	if len(args) < 3 {
		exception.ThrowTrace(errors.Errorf(
			"expected 3 arguments, received %d", len(args)))
		return nil
	}
	threshold := jww.Threshold(args[0].Int())
	logFileName := args[1].String()
	maxLogFileSize := args[2].Int()

	lf, err := LogToFile(threshold, logFileName, maxLogFileSize)
	if err != nil {
		exception.ThrowTrace(err)
		return nil
	}

	return newLogFileJS(lf)
}

// newLogFileJS creates a new Javascript compatible object (map[string]any)
// that matches the [LogFile] structure.
func newLogFileJS(lf *LogFile) map[string]any {
	return map[string]any{
		"Name": js.FuncOf(func(js.Value, []js.Value) any {
			return lf.Name()
		}),
		"Threshold": js.FuncOf(func(js.Value, []js.Value) any {
			return lf.Threshold().String()
		}),
		"GetFile": js.FuncOf(func(js.Value, []js.Value) any {
			return string(lf.GetFile())
		}),
		"MaxSize": js.FuncOf(func(js.Value, []js.Value) any {
			return lf.MaxSize()
		}),
		"Size": js.FuncOf(func(js.Value, []js.Value) any {
			return lf.Size()
		}),
		"Stop": js.FuncOf(func(js.Value, []js.Value) any {
			lf.Stop()
			return nil
		}),
	}
}
