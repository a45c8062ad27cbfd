////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package logging

import (
	"io"
	"sync"

	"github.com/armon/circbuf"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
)

// LogFile represents a virtual log file in memory. It contains a circular
// buffer that limits the log file, overwriting the oldest logs.
type LogFile struct {
	name       string
	threshold  jww.Threshold
	b          *circbuf.Buffer
	listenerID uint64
	mux        sync.Mutex
}

// NewLogFile initialises a new [LogFile] for log writing. It is not
// registered as a listener; use [LogToFile] for that.
func NewLogFile(
	name string, threshold jww.Threshold, maxSize int) (*LogFile, error) {
	b, err := circbuf.NewBuffer(int64(maxSize))
	if err != nil {
		return nil, errors.Wrap(err, "could not create new circular buffer")
	}

	return &LogFile{
		name:      name,
		threshold: threshold,
		b:         b,
	}, nil
}

// LogToFile enables logging to a file that can be downloaded.
func LogToFile(threshold jww.Threshold, logFileName string,
	maxLogFileSize int) (*LogFile, error) {
	if err := validThreshold(threshold); err != nil {
		return nil, err
	}

	lf, err := NewLogFile(logFileName, threshold, maxLogFileSize)
	if err != nil {
		return nil, err
	}
	lf.listenerID = AddLogListener(lf.Listen)

	printAt(threshold, "[LOG] Outputting log to file %s of max size %s with "+
		"level %s", lf.Name(), humanize.IBytes(uint64(lf.MaxSize())), threshold)

	return lf, nil
}

// Stop removes the log file from the log listeners. Its contents remain
// readable.
func (lf *LogFile) Stop() {
	RemoveLogListener(lf.listenerID)
}

// Listen is called for every logging event. This function adheres to the
// [jwalterweatherman.LogListener] type.
func (lf *LogFile) Listen(t jww.Threshold) io.Writer {
	if t < lf.threshold {
		return nil
	}

	return lf
}

// Write writes the log entry to the buffer.
func (lf *LogFile) Write(p []byte) (int, error) {
	lf.mux.Lock()
	defer lf.mux.Unlock()
	return lf.b.Write(p)
}

// Name returns the name of the log file.
func (lf *LogFile) Name() string { return lf.name }

// Threshold returns the log level threshold used in the file.
func (lf *LogFile) Threshold() jww.Threshold { return lf.threshold }

// GetFile returns the entire log file.
func (lf *LogFile) GetFile() []byte {
	lf.mux.Lock()
	defer lf.mux.Unlock()
	return append([]byte(nil), lf.b.Bytes()...)
}

// MaxSize returns the max size, in bytes, that the log file is allowed to be.
func (lf *LogFile) MaxSize() int { return int(lf.b.Size()) }

// Size returns the total number of bytes written to the log file, including
// bytes that have since been overwritten.
func (lf *LogFile) Size() int {
	lf.mux.Lock()
	defer lf.mux.Unlock()
	return int(lf.b.TotalWritten())
}
