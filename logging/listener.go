////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package logging routes jwalterweatherman output to the Javascript console,
// to in-memory log files and to the terminal.
package logging

import (
	"sort"
	"sync"

	"github.com/samber/lo"
	jww "github.com/spf13/jwalterweatherman"
)

// logListeners contains all registered log listeners keyed on a unique ID
// that can be used to remove the listener once it has been added. This global
// keeps track of all listeners that are registered to jwalterweatherman
// logging.
var logListeners = newLogListenerList()

type logListenerList struct {
	listeners map[uint64]jww.LogListener
	currentID uint64
	sync.Mutex
}

func newLogListenerList() *logListenerList {
	return &logListenerList{listeners: make(map[uint64]jww.LogListener)}
}

// AddLogListener registers the log listener with jwalterweatherman. Returns a
// unique ID that can be used to remove the listener.
func AddLogListener(ll jww.LogListener) uint64 {
	logListeners.Lock()
	defer logListeners.Unlock()

	id := logListeners.currentID
	logListeners.currentID++
	logListeners.listeners[id] = ll
	jww.SetLogListeners(logListeners.ordered()...)
	return id
}

// RemoveLogListener unregisters the log listener with the ID from
// jwalterweatherman.
func RemoveLogListener(id uint64) {
	logListeners.Lock()
	defer logListeners.Unlock()

	delete(logListeners.listeners, id)
	jww.SetLogListeners(logListeners.ordered()...)
}

// ordered returns the listeners in registration order.
func (lll *logListenerList) ordered() []jww.LogListener {
	ids := lo.Keys(lll.listeners)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return lo.Map(ids, func(id uint64, _ int) jww.LogListener {
		return lll.listeners[id]
	})
}
