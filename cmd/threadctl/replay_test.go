////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"gitlab.com/threadkeeper/threadkeeper-wasm/model"
	"gitlab.com/threadkeeper/threadkeeper-wasm/records/sqlite"
	"gitlab.com/threadkeeper/threadkeeper-wasm/tracker"
)

const testCh = model.ChannelPrefix + "replay"

var capture = []string{
	`{"kind":"http","method":"GET","url":"https://api-app.sendbird.com/v3/group_channels/` +
		testCh + `","status":200,"body":{"channel_url":"` + testCh +
		`","name":"General","member_count":3}}`,
	`{"kind":"http","method":"GET","url":"https://api-app.sendbird.com/v3/group_channels/` +
		testCh + `/messages","status":200,"body":"{\"messages\":[` +
		`{\"message_id\":1,\"message\":\"ship it?\",\"created_at\":100,` +
		`\"thread_info\":{\"reply_count\":1,\"last_replied_at\":200,\"updated_at\":200}}]}"}`,
	`not json`,
	`{"kind":"ws","dir":"in","url":"wss://ws-app.sendbird.com/?p=JS",` +
		`"frame":"MESG{\"msg_id\":5,\"channel_url\":\"` + testCh +
		`\",\"parent_message_id\":1,\"ts\":300}"}`,
	`{"kind":"ws","dir":"in","url":"wss://other.example.com",` +
		`"frame":"MESG{\"msg_id\":6,\"channel_url\":\"` + testCh +
		`\",\"parent_message_id\":1,\"ts\":400}"}`,
	`{"kind":"unknown"}`,
}

func fastParams() tracker.Params {
	p := tracker.DefaultParams()
	p.Reconciler.DebounceWindow = time.Millisecond
	p.Reconciler.VerifyInterval = time.Millisecond
	return p
}

// Tests that a capture selects its channel, persists the record and builds
// the thread list from snapshot and socket traffic.
func Test_replay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.jsonl")
	require.NoError(t, os.WriteFile(path,
		[]byte(strings.Join(capture, "\n")), 0644))

	db, err := sqlite.Open(sqlite.MemoryPath)
	require.NoError(t, err)
	defer db.Close()

	tr, err := replay(path, db, fastParams())
	require.NoError(t, err)
	defer tr.Close()

	require.Eventually(t, func() bool {
		return tr.CurrentChannel() == testCh
	}, time.Second, time.Millisecond)

	threads := tr.Threads(model.SortLastReplied)
	require.Len(t, threads, 1)
	require.Equal(t, 2, threads[0].ReplyCount)
	require.Equal(t, int64(300), threads[0].LastRepliedAt)
	require.Equal(t, "ship it?", threads[0].ParentText)

	rec, err := db.Get(testCh)
	require.NoError(t, err)
	require.Equal(t, "General", rec.Name)
	require.Equal(t, 3, rec.MemberCount)
}

// Tests that printThreads writes the channel and each thread to its writer.
func Test_printThreads(t *testing.T) {
	var buf bytes.Buffer
	err := printThreads(&buf, testCh, []model.Thread{{
		ParentID: "1", ParentText: "ship it?", ReplyCount: 2,
		LastRepliedAt: 300, Unread: true,
	}})
	require.NoError(t, err)
	require.Contains(t, buf.String(), testCh)
	require.Contains(t, buf.String(), "ship it?")

	buf.Reset()
	require.NoError(t, printThreads(&buf, testCh, nil))
	require.Contains(t, buf.String(), "0 threads")
}

// Tests that a missing capture file is reported.
func Test_replay_Missing(t *testing.T) {
	db, err := sqlite.Open(sqlite.MemoryPath)
	require.NoError(t, err)
	defer db.Close()

	_, err = replay(filepath.Join(t.TempDir(), "none.jsonl"), db, fastParams())
	require.Error(t, err)
}

// Tests that string and inline bodies are both accepted.
func Test_captureBody(t *testing.T) {
	require.Equal(t, `{"a":1}`,
		string(captureBody(gjson.Parse(`{"b":"{\"a\":1}"}`).Get("b"))))
	require.Equal(t, `{"a":1}`,
		string(captureBody(gjson.Parse(`{"b":{"a":1}}`).Get("b"))))
}
