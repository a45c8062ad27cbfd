////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package interceptor

import (
	"net/http"
	"testing"

	"gitlab.com/threadkeeper/threadkeeper-wasm/events"
)

const (
	apiBase = "https://api-app.sendbird.com/v3/group_channels/"
	testCh  = "sendbird_group_channel_42_abc"
)

func newTestInterceptor() *Interceptor {
	return New(DefaultParams(), events.NewDispatcher(), nil)
}

// Tests that Classify recognizes every chat endpoint.
func TestInterceptor_Classify(t *testing.T) {
	ic := newTestInterceptor()

	tests := []struct {
		method, url string
		expected    Route
	}{
		{http.MethodGet, apiBase + testCh + "/messages?prev_limit=30",
			Route{Endpoint: Messages, ChannelID: testCh}},
		{http.MethodGet, apiBase + testCh + "/messages?parent_message_id=77",
			Route{Endpoint: ThreadReplies, ChannelID: testCh, ParentID: "77"}},
		{http.MethodGet, apiBase + testCh + "/messages/changelogs?ts=1",
			Route{Endpoint: Changelog, ChannelID: testCh}},
		{http.MethodGet, apiBase + testCh + "?show_member=true",
			Route{Endpoint: ChannelDetails, ChannelID: testCh}},
		{http.MethodPost, "https://api-app.sendbird.com/v3/group_channels",
			Route{Endpoint: ChannelCreate}},
		{http.MethodPost, apiBase + testCh + "/messages",
			Route{Endpoint: MessageSend, ChannelID: testCh}},
		{http.MethodPut, apiBase + testCh, Route{}},
		{http.MethodGet, apiBase + testCh + "/members", Route{}},
		{http.MethodGet, "https://api-app.sendbird.com/v3/users/me", Route{}},
		{http.MethodGet, "https://example.com/v3/group_channels/" + testCh, Route{}},
		{http.MethodGet, "::not a url", Route{}},
	}

	for i, tt := range tests {
		received := ic.Classify(tt.method, tt.url)
		if received != tt.expected {
			t.Errorf("Unexpected route for %s %s (%d)."+
				"\nexpected: %+v\nreceived: %+v",
				tt.method, tt.url, i, tt.expected, received)
		}
	}
}

// Tests that RewriteURL only appends the thread info parameter to message
// lists that lack it and keeps the existing query intact.
func TestInterceptor_RewriteURL(t *testing.T) {
	ic := newTestInterceptor()

	tests := []struct {
		method, url string
		expected    string
		rewritten   bool
	}{
		{http.MethodGet, apiBase + testCh + "/messages?prev_limit=30&include=b",
			apiBase + testCh + "/messages?prev_limit=30&include=b" +
				"&include_thread_info=true", true},
		{http.MethodGet, apiBase + testCh + "/messages",
			apiBase + testCh + "/messages?include_thread_info=true", true},
		{http.MethodGet,
			apiBase + testCh + "/messages?include_thread_info=false",
			apiBase + testCh + "/messages?include_thread_info=false", false},
		{http.MethodPost, apiBase + testCh + "/messages",
			apiBase + testCh + "/messages", false},
		{http.MethodGet, apiBase + testCh, apiBase + testCh, false},
		{http.MethodGet, "https://example.com/messages",
			"https://example.com/messages", false},
	}

	for i, tt := range tests {
		received, ok := ic.RewriteURL(tt.method, tt.url)
		if received != tt.expected || ok != tt.rewritten {
			t.Errorf("Unexpected rewrite (%d).\nexpected: %s %t"+
				"\nreceived: %s %t", i, tt.expected, tt.rewritten, received, ok)
		}
	}
}

// Tests that only sockets on the chat host are recognized.
func TestInterceptor_IsChatSocket(t *testing.T) {
	ic := newTestInterceptor()

	tests := map[string]bool{
		"wss://ws-app.sendbird.com/?p=JS":  true,
		"ws://ws-app.sendbird.com":         true,
		"wss://realtime.example.com":       false,
		"https://api-app.sendbird.com/v3/": false,
		"":                                 false,
	}
	for url, expected := range tests {
		if received := ic.IsChatSocket(url); received != expected {
			t.Errorf("Unexpected result for %q.\nexpected: %t\nreceived: %t",
				url, expected, received)
		}
	}
}
