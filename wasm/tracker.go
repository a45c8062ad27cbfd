////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

//go:build js && wasm

package wasm

import (
	"encoding/json"
	"sync"
	"syscall/js"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"

	"gitlab.com/elixxir/wasm-utils/exception"
	"gitlab.com/elixxir/wasm-utils/utils"

	"gitlab.com/threadkeeper/threadkeeper-wasm/dom"
	"gitlab.com/threadkeeper/threadkeeper-wasm/events"
	"gitlab.com/threadkeeper/threadkeeper-wasm/interceptor"
	"gitlab.com/threadkeeper/threadkeeper-wasm/model"
	"gitlab.com/threadkeeper/threadkeeper-wasm/notifier"
	"gitlab.com/threadkeeper/threadkeeper-wasm/records"
	"gitlab.com/threadkeeper/threadkeeper-wasm/records/indexedDb"
	"gitlab.com/threadkeeper/threadkeeper-wasm/storage"
	"gitlab.com/threadkeeper/threadkeeper-wasm/tracker"
)

// defaultDatabaseName is the IndexedDb database of the chat records.
const defaultDatabaseName = "threadkeeper"

// startParams are the JSON parameters of StartThreadTracker.
type startParams struct {
	tracker.Params

	// Selectors override the CSS selectors of the chat page.
	Selectors dom.Selectors `json:"selectors"`

	// DatabaseName is the IndexedDb database of the chat records.
	DatabaseName string `json:"databaseName"`
}

// started holds the running tracker. The interceptors are patched into the
// page once and feed every tracker through the shared dispatcher.
var started struct {
	tr        *tracker.Tracker
	stopWatch func()
	d         *events.Dispatcher
	installed bool
	sync.Mutex
}

// StartThreadTracker builds the thread tracker, installs the network
// interceptors and starts watching the page for navigation.
//
// Parameters:
//   - args[0] - JSON of the parameters (string). Fields that are omitted keep
//     their default values. May be empty.
//   - args[1] - Javascript object with the optional UI callbacks:
//     onBadgeUpdate(channelID: string, unread: number),
//     onPanelRefresh(channelID: string, hasContent: boolean) and
//     onChannelChanged(previous: string, current: string, source: string).
//
// Returns a promise:
//   - Resolves to a Javascript representation of the tracker.
//   - Rejected with an error if parsing the parameters, opening storage or
//     installing the interceptors fails.
func StartThreadTracker(_ js.Value, args []js.Value) any {
	var paramsJSON string
	if len(args) > 0 && args[0].Type() == js.TypeString {
		paramsJSON = args[0].String()
	}
	callbacks := js.Undefined()
	if len(args) > 1 {
		callbacks = args[1]
	}

	promiseFn := func(resolve, reject func(args ...any) js.Value) {
		tr, err := startThreadTracker([]byte(paramsJSON), newNotifier(callbacks))
		if err != nil {
			reject(exception.NewTrace(err))
		} else {
			resolve(newTrackerJS(tr))
		}
	}

	return utils.CreatePromise(promiseFn)
}

func startThreadTracker(
	paramsJSON []byte, n notifier.Notifier) (*tracker.Tracker, error) {
	started.Lock()
	defer started.Unlock()
	if started.tr != nil {
		return nil, errors.New("thread tracker is already running")
	}

	p := startParams{
		Params:       tracker.DefaultParams(),
		Selectors:    dom.DefaultSelectors(),
		DatabaseName: defaultDatabaseName,
	}
	if len(paramsJSON) > 0 {
		if err := json.Unmarshal(paramsJSON, &p); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal params")
		}
	}

	if err := storage.CheckAndStoreVersion(); err != nil {
		return nil, err
	}

	page, err := dom.NewBrowser(p.Selectors)
	if err != nil {
		return nil, err
	}

	var rs records.Store
	if rs, err = indexedDb.NewStore(p.DatabaseName); err != nil {
		jww.WARN.Printf("[TRK] Failed to open record database %s, keeping "+
			"records in memory: %+v", p.DatabaseName, err)
		rs = records.NewMemory()
	}

	if started.d == nil {
		started.d = events.NewDispatcher()
		started.d.EventLogging = p.EventLogging
	}

	tr, err := tracker.New(p.Params, tracker.Deps{
		Page:       page,
		Records:    rs,
		Ledger:     indexedDb.NewLedger(),
		Notifier:   n,
		Dispatcher: started.d,
	})
	if err != nil {
		return nil, err
	}

	if !started.installed {
		if err = interceptor.InstallJS(js.Global(), tr.Interceptor()); err != nil {
			tr.Close()
			return nil, err
		}
		started.installed = true
	}

	stopWatch, err := page.Watch(tr.Navigate)
	if err != nil {
		jww.WARN.Printf("[TRK] Navigation will only follow chat traffic: "+
			"failed to watch page: %+v", err)
	}

	started.tr, started.stopWatch = tr, stopWatch
	return tr, nil
}

// stopThreadTracker closes tr and stops watching the page so that a new
// tracker can be started. Does nothing to the running tracker if tr is
// another one.
func stopThreadTracker(tr *tracker.Tracker) {
	started.Lock()
	defer started.Unlock()
	tr.Close()
	if started.tr != tr {
		return
	}
	if started.stopWatch != nil {
		started.stopWatch()
	}
	started.tr, started.stopWatch = nil, nil
}

// newNotifier forwards notifications to the Javascript callbacks that exist.
func newNotifier(callbacks js.Value) notifier.Notifier {
	f := notifier.Funcs{}
	if cb := wrapOptionalCB(callbacks, "onBadgeUpdate"); cb != nil {
		f.OnBadgeUpdate = func(channelID string, unread int) {
			cb(channelID, unread)
		}
	}
	if cb := wrapOptionalCB(callbacks, "onPanelRefresh"); cb != nil {
		f.OnPanelRefresh = func(channelID string, hasContent bool) {
			cb(channelID, hasContent)
		}
	}
	if cb := wrapOptionalCB(callbacks, "onChannelChanged"); cb != nil {
		f.OnChannelChanged = func(prev, cur string, src model.NavigationSource) {
			cb(prev, cur, string(src))
		}
	}
	return f
}

////////////////////////////////////////////////////////////////////////////////
// Tracker Javascript Object                                                  //
////////////////////////////////////////////////////////////////////////////////

// threadTracker wraps the [tracker.Tracker] so its methods can be wrapped to
// be Javascript compatible.
type threadTracker struct {
	api *tracker.Tracker
}

// newTrackerJS creates a new Javascript compatible object (map[string]any)
// that matches the [tracker.Tracker] structure.
func newTrackerJS(api *tracker.Tracker) map[string]any {
	t := threadTracker{api}
	return map[string]any{
		"GetThreads":     js.FuncOf(t.GetThreads),
		"GetThreadsOf":   js.FuncOf(t.GetThreadsOf),
		"UnreadCount":    js.FuncOf(t.UnreadCount),
		"MarkThreadRead": js.FuncOf(t.MarkThreadRead),
		"SetOpenThread":  js.FuncOf(t.SetOpenThread),
		"CurrentChannel": js.FuncOf(t.CurrentChannel),
		"Close":          js.FuncOf(t.Close),
	}
}

// GetThreads returns the threads of the current channel.
//
// Parameters:
//   - args[0] - Sort order, "lastReplied" (default) or "created" (string).
//
// Returns:
//   - Array of thread objects.
//   - Throws an error if the threads cannot be converted.
func (t *threadTracker) GetThreads(_ js.Value, args []js.Value) any {
	return threadsJS(t.api.Threads(sortOrder(args, 0)))
}

// GetThreadsOf returns the threads of any cached channel.
//
// Parameters:
//   - args[0] - Channel URL (string).
//   - args[1] - Sort order, "lastReplied" (default) or "created" (string).
//
// Returns:
//   - Array of thread objects.
//   - Throws an error if the channel URL is not a string.
func (t *threadTracker) GetThreadsOf(_ js.Value, args []js.Value) any {
	if len(args) < 1 || args[0].Type() != js.TypeString {
		exception.ThrowTrace(errors.New("channel URL must be a string"))
		return nil
	}
	return threadsJS(t.api.ThreadsOf(args[0].String(), sortOrder(args, 1)))
}

// UnreadCount returns the number of unread threads of the current channel.
//
// Returns:
//   - Unread thread count (int).
func (t *threadTracker) UnreadCount(js.Value, []js.Value) any {
	return t.api.UnreadCount()
}

// MarkThreadRead marks the thread as read.
//
// Parameters:
//   - args[0] - Message ID of the thread parent (string).
//
// Throws an error if the message ID is not a string.
func (t *threadTracker) MarkThreadRead(_ js.Value, args []js.Value) any {
	if len(args) < 1 || args[0].Type() != js.TypeString {
		exception.ThrowTrace(errors.New("message ID must be a string"))
		return nil
	}
	t.api.MarkThreadRead(args[0].String())
	return nil
}

// SetOpenThread sets the thread the user is reading.
//
// Parameters:
//   - args[0] - Message ID of the thread parent (string). Null or an empty
//     string closes the thread.
func (t *threadTracker) SetOpenThread(_ js.Value, args []js.Value) any {
	var id string
	if len(args) > 0 && args[0].Type() == js.TypeString {
		id = args[0].String()
	}
	t.api.SetOpenThread(id)
	return nil
}

// CurrentChannel returns the channel the user is looking at.
//
// Returns:
//   - Channel URL (string) or null.
func (t *threadTracker) CurrentChannel(js.Value, []js.Value) any {
	if id := t.api.CurrentChannel(); id != "" {
		return id
	}
	return js.Null()
}

// Close stops the tracker. The interceptors stay installed and feed the next
// tracker started with StartThreadTracker.
func (t *threadTracker) Close(js.Value, []js.Value) any {
	stopThreadTracker(t.api)
	return nil
}

func sortOrder(args []js.Value, i int) model.SortOrder {
	if len(args) > i && args[i].Type() == js.TypeString {
		return model.ParseSortOrder(args[i].String())
	}
	return model.SortLastReplied
}

func threadsJS(threads []model.Thread) any {
	if threads == nil {
		threads = []model.Thread{}
	}
	value, err := marshalJS(threads)
	if err != nil {
		exception.ThrowTrace(err)
		return nil
	}
	return value
}
