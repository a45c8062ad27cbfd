////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package dom isolates every dependency on the markup of the chat page. The
// rest of the tracker only sees display names.
package dom

import (
	"strings"
	"sync"
	"unicode"
)

// Page exposes the display names scraped from the chat page.
type Page interface {
	// ActiveChatDisplayName returns the name shown in the header of the open
	// message panel, or an empty string if no panel is open.
	ActiveChatDisplayName() string

	// SidebarSelectedDisplayName returns the name of the selected sidebar
	// item, or an empty string if nothing is selected.
	SidebarSelectedDisplayName() string
}

// NormalizeName strips notification badges and collapses whitespace in a
// scraped display name. Badges are trailing counts such as "3", "99+" or "(2)"
// separated from the name by whitespace.
func NormalizeName(name string) string {
	fields := strings.Fields(name)
	for len(fields) > 1 && isBadge(fields[len(fields)-1]) {
		fields = fields[:len(fields)-1]
	}
	return strings.Join(fields, " ")
}

// isBadge returns true if the token is an unread count.
func isBadge(token string) bool {
	token = strings.TrimPrefix(strings.TrimSuffix(token, ")"), "(")
	token = strings.TrimSuffix(token, "+")
	if token == "" {
		return false
	}
	for _, r := range token {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// Consistent returns the header name if the header and the sidebar agree on
// the current chat.
func Consistent(p Page) (string, bool) {
	if p == nil {
		return "", false
	}

	header := NormalizeName(p.ActiveChatDisplayName())
	sidebar := NormalizeName(p.SidebarSelectedDisplayName())
	if header == "" || !strings.EqualFold(header, sidebar) {
		return "", false
	}
	return header, true
}

// Static is a Page with names set by the caller. It stands in for the real
// page in tests and when replaying captured traffic.
type Static struct {
	header  string
	sidebar string
	mux     sync.RWMutex
}

// NewStatic returns a Static page showing the chat in both places.
func NewStatic(name string) *Static {
	return &Static{header: name, sidebar: name}
}

// Show sets the header and sidebar names.
func (s *Static) Show(header, sidebar string) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.header, s.sidebar = header, sidebar
}

func (s *Static) ActiveChatDisplayName() string {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.header
}

func (s *Static) SidebarSelectedDisplayName() string {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.sidebar
}
