////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package interceptor

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/samber/lo"
)

// Endpoint is a chat API endpoint kind.
type Endpoint uint8

const (
	// NotChat is any request that is not a chat API call.
	NotChat Endpoint = iota

	// Messages is a message-list request of a channel.
	Messages

	// Changelog is a message changelog request of a channel.
	Changelog

	// ThreadReplies is a message-list request filtered on a thread parent.
	ThreadReplies

	// ChannelDetails is a request for the metadata of a single channel.
	ChannelDetails

	// ChannelCreate creates (or reopens) a channel.
	ChannelCreate

	// MessageSend posts a new message to a channel.
	MessageSend
)

// String returns a human-readable name of the Endpoint. This function adheres
// to the fmt.Stringer interface.
func (e Endpoint) String() string {
	switch e {
	case NotChat:
		return "NotChat"
	case Messages:
		return "Messages"
	case Changelog:
		return "Changelog"
	case ThreadReplies:
		return "ThreadReplies"
	case ChannelDetails:
		return "ChannelDetails"
	case ChannelCreate:
		return "ChannelCreate"
	case MessageSend:
		return "MessageSend"
	default:
		return "Unknown"
	}
}

const (
	channelsSegment  = "group_channels"
	messagesSegment  = "messages"
	changelogSegment = "changelogs"
	parentQueryParam = "parent_message_id"
)

// Route is the result of classifying a request URL.
type Route struct {
	Endpoint  Endpoint
	ChannelID string
	ParentID  string
}

// Classify returns the chat endpoint addressed by the request. Requests to
// other hosts or paths return a Route with the NotChat endpoint.
func (ic *Interceptor) Classify(method, rawURL string) Route {
	u, err := url.Parse(rawURL)
	if err != nil || !strings.Contains(u.Host, ic.params.APIHost) {
		return Route{}
	}
	return classifyPath(method, u)
}

func classifyPath(method string, u *url.URL) Route {
	segments := strings.Split(strings.Trim(u.EscapedPath(), "/"), "/")

	i := lo.IndexOf(segments, channelsSegment)
	if i < 0 {
		return Route{}
	}
	rest := segments[i+1:]

	if len(rest) == 0 {
		if method == http.MethodPost {
			return Route{Endpoint: ChannelCreate}
		}
		return Route{}
	}

	channelID, err := url.PathUnescape(rest[0])
	if err != nil || channelID == "" {
		return Route{}
	}
	rest = rest[1:]

	switch {
	case len(rest) == 0 && method == http.MethodGet:
		return Route{Endpoint: ChannelDetails, ChannelID: channelID}
	case len(rest) == 1 && rest[0] == messagesSegment &&
		method == http.MethodPost:
		return Route{Endpoint: MessageSend, ChannelID: channelID}
	case len(rest) == 2 && rest[0] == messagesSegment &&
		rest[1] == changelogSegment && method == http.MethodGet:
		return Route{Endpoint: Changelog, ChannelID: channelID}
	case len(rest) == 1 && rest[0] == messagesSegment &&
		method == http.MethodGet:
		if parent := u.Query().Get(parentQueryParam); parent != "" {
			return Route{
				Endpoint: ThreadReplies, ChannelID: channelID, ParentID: parent}
		}
		return Route{Endpoint: Messages, ChannelID: channelID}
	}

	return Route{}
}

// RewriteURL appends the thread-info query parameter to message-list requests
// that lack it. Returns the URL unchanged and false for every other request.
// The existing query is kept byte for byte.
func (ic *Interceptor) RewriteURL(method, rawURL string) (string, bool) {
	switch ic.Classify(method, rawURL).Endpoint {
	case Messages, ThreadReplies, Changelog:
	default:
		return rawURL, false
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Query().Has(ic.params.ThreadInfoParam) {
		return rawURL, false
	}

	param := ic.params.ThreadInfoParam + "=true"
	if u.RawQuery == "" {
		u.RawQuery = param
	} else {
		u.RawQuery += "&" + param
	}
	return u.String(), true
}
