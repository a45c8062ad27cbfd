////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

//go:build js && wasm

package dom

import (
	"github.com/hack-pad/safejs"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"

	"gitlab.com/threadkeeper/threadkeeper-wasm/model"
)

// Selectors are the CSS selectors of the page elements the tracker reads. They
// are the only place that depends on the markup of the chat page.
type Selectors struct {
	// ActiveChatHeader selects the title of the open message panel.
	ActiveChatHeader string `json:"activeChatHeader"`

	// SidebarSelected selects the title of the highlighted sidebar item.
	SidebarSelected string `json:"sidebarSelected"`

	// ObserveRoot selects the element watched for navigation changes.
	ObserveRoot string `json:"observeRoot"`
}

// DefaultSelectors returns the selectors of the current chat page markup.
func DefaultSelectors() Selectors {
	return Selectors{
		ActiveChatHeader: "[data-testid='channel-header'] [data-testid='channel-title']",
		SidebarSelected:  "[data-testid='channel-list'] [aria-selected='true'] [data-testid='channel-name']",
		ObserveRoot:      "body",
	}
}

// Browser is a Page reading the live document.
type Browser struct {
	document safejs.Value
	sel      Selectors
}

// NewBrowser returns a Page reading the global document.
func NewBrowser(sel Selectors) (*Browser, error) {
	document, err := safejs.Global().Get("document")
	if err != nil {
		return nil, errors.Wrap(err, "failed to get document")
	}
	if document.IsUndefined() || document.IsNull() {
		return nil, errors.New("document is not available")
	}
	return &Browser{document: document, sel: sel}, nil
}

func (b *Browser) ActiveChatDisplayName() string {
	return b.text(b.sel.ActiveChatHeader)
}

func (b *Browser) SidebarSelectedDisplayName() string {
	return b.text(b.sel.SidebarSelected)
}

// text returns the text content of the first element matching the selector or
// an empty string.
func (b *Browser) text(selector string) string {
	el, err := b.document.Call("querySelector", selector)
	if err != nil {
		jww.DEBUG.Printf("[DOM] Failed to query %q: %+v", selector, err)
		return ""
	}
	if el.IsNull() || el.IsUndefined() {
		return ""
	}

	content, err := el.Get("textContent")
	if err != nil || content.IsNull() {
		return ""
	}
	s, err := content.String()
	if err != nil {
		return ""
	}
	return s
}

// Watch observes the page for changes to the open chat and calls fn with a
// navigation signal carrying the header name every time it changes. The
// returned function stops the observer.
func (b *Browser) Watch(fn func(sig model.NavigationSignal)) (func(), error) {
	root, err := b.document.Call("querySelector", b.sel.ObserveRoot)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query %q", b.sel.ObserveRoot)
	}
	if root.IsNull() || root.IsUndefined() {
		return nil, errors.Errorf("no element matches %q", b.sel.ObserveRoot)
	}

	var last string
	callback, err := safejs.FuncOf(func(safejs.Value, []safejs.Value) any {
		name := NormalizeName(b.ActiveChatDisplayName())
		if name == "" || name == last {
			return nil
		}
		last = name
		jww.TRACE.Printf("[DOM] Header changed to %q", name)
		go fn(model.NavigationSignal{Name: name, Source: model.SourceDOM})
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create observer callback")
	}

	constructor, err := safejs.Global().Get("MutationObserver")
	if err != nil {
		callback.Release()
		return nil, errors.Wrap(err, "failed to get MutationObserver")
	}
	observer, err := constructor.New(callback)
	if err != nil {
		callback.Release()
		return nil, errors.Wrap(err, "failed to create MutationObserver")
	}

	opts := map[string]any{
		"childList":     true,
		"subtree":       true,
		"characterData": true,
	}
	if _, err = observer.Call("observe", root, opts); err != nil {
		callback.Release()
		return nil, errors.Wrap(err, "failed to observe page")
	}

	return func() {
		if _, err := observer.Call("disconnect"); err != nil {
			jww.WARN.Printf("[DOM] Failed to disconnect observer: %+v", err)
		}
		callback.Release()
	}, nil
}
