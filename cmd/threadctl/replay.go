////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package main

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/aquilax/truncate"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/tidwall/gjson"

	"gitlab.com/threadkeeper/threadkeeper-wasm/dom"
	"gitlab.com/threadkeeper/threadkeeper-wasm/events"
	"gitlab.com/threadkeeper/threadkeeper-wasm/model"
	"gitlab.com/threadkeeper/threadkeeper-wasm/records/sqlite"
	"gitlab.com/threadkeeper/threadkeeper-wasm/tracker"
)

// Kinds of captured lines.
const (
	captureHTTP = "http"
	captureWS   = "ws"
	captureNav  = "nav"
)

// maxCaptureLine is the longest capture line accepted.
const maxCaptureLine = 16 << 20

// Replay flag variables.
var (
	replayChannel, replayOrder string
)

var replayCmd = &cobra.Command{
	Use:   "replay <capture.jsonl>",
	Short: "Feeds captured chat traffic through the thread tracker and prints " +
		"the resulting thread list.",
	Long: "Feeds captured chat traffic through the thread tracker and prints " +
		"the resulting thread list. Each line of the capture is one JSON " +
		"object:\n" +
		`  {"kind":"http","method":"GET","url":"…","status":200,"body":…}` + "\n" +
		`  {"kind":"ws","dir":"in","url":"…","frame":"MESG{…}"}` + "\n" +
		`  {"kind":"nav","name":"General"}`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		tr, err := replay(args[0], db, tracker.DefaultParams())
		if err != nil {
			return err
		}
		defer tr.Close()

		channelID := replayChannel
		if channelID == "" {
			channelID = tr.CurrentChannel()
		}
		if channelID == "" {
			pterm.Warning.Println("No channel was selected by the capture.")
			return nil
		}

		threads := tr.ThreadsOf(channelID, model.ParseSortOrder(replayOrder))
		return printThreads(cmd.OutOrStdout(), channelID, threads)
	},
}

func init() {
	replayCmd.Flags().StringVarP(&replayChannel, "channel", "c", "",
		"Channel URL to print. Defaults to the channel selected by the capture.")
	replayCmd.Flags().StringVarP(&replayOrder, "order", "o",
		model.SortLastReplied.String(), "Thread order: "+
			model.SortLastReplied.String()+" or "+model.SortCreated.String()+".")
}

// replay feeds every line of the capture file to a new tracker backed by db
// and waits for the last navigation to settle.
func replay(path string, db *sqlite.DB, p tracker.Params) (*tracker.Tracker, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open capture %s", path)
	}
	defer f.Close()

	page := dom.NewStatic("")
	tr, err := tracker.New(p, tracker.Deps{Page: page, Records: db, Ledger: db})
	if err != nil {
		return nil, err
	}

	// The page follows the chat the API reports so that API navigation
	// passes verification.
	showChannel := func(c model.Channel) {
		if c.Name != "" {
			page.Show(c.Name, c.Name)
		}
	}
	tr.Dispatcher().Register(events.ChannelDetailsKind, func(ev events.Event) {
		showChannel(ev.(events.ChannelDetails).Channel)
	})
	tr.Dispatcher().Register(events.DMCreatedKind, func(ev events.Event) {
		showChannel(ev.(events.DMCreated).Channel)
	})

	ic := tr.Interceptor()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxCaptureLine)
	var n int
	for scanner.Scan() {
		n++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if !gjson.ValidBytes(line) {
			jww.WARN.Printf("[CTL] Skipping invalid capture line %d: %s", n,
				truncate.Truncate(string(line), 64, "...", truncate.PositionMiddle))
			continue
		}

		entry := gjson.ParseBytes(line)
		switch kind := entry.Get("kind").String(); kind {
		case captureHTTP:
			ic.ObserveResponse(entry.Get("method").String(),
				entry.Get("url").String(), int(entry.Get("status").Int()),
				captureBody(entry.Get("body")))
			ic.Wait()
		case captureWS:
			if !ic.IsChatSocket(entry.Get("url").String()) {
				continue
			}
			frame := []byte(entry.Get("frame").String())
			if entry.Get("dir").String() == "out" {
				ic.ObserveOutbound(frame)
			} else {
				ic.ObserveInbound(frame)
			}
		case captureNav:
			name := entry.Get("name").String()
			page.Show(name, name)
			tr.Navigate(model.NavigationSignal{
				ChannelID: entry.Get("channel").String(),
				Name:      name,
				Source:    model.SourceDOM,
			})
		default:
			jww.WARN.Printf("[CTL] Skipping capture line %d of unknown kind %q",
				n, kind)
		}
	}
	if err = scanner.Err(); err != nil {
		tr.Close()
		return nil, errors.Wrapf(err, "failed to read capture %s", path)
	}

	time.Sleep(p.Reconciler.DebounceWindow +
		time.Duration(p.Reconciler.VerifyAttempts+1)*p.Reconciler.VerifyInterval)

	jww.INFO.Printf("[CTL] Replayed %d capture lines", n)
	return tr, nil
}

// captureBody returns the response body of a capture line. The body is either
// a JSON string holding the raw body or the JSON value itself.
func captureBody(body gjson.Result) []byte {
	if body.Type == gjson.String {
		return []byte(body.String())
	}
	return []byte(body.Raw)
}

// printThreads renders the threads as a table to w.
func printThreads(w io.Writer, channelID string, threads []model.Thread) error {
	pterm.DefaultSection.WithWriter(w).Printf(
		"%s (%d threads)", channelID, len(threads))
	if len(threads) == 0 {
		return nil
	}

	rows := pterm.TableData{
		{"Parent", "Text", "Sender", "Replies", "Last reply", "Unread"}}
	for _, t := range threads {
		unread := ""
		if t.Unread {
			unread = pterm.LightRed("●")
		}
		rows = append(rows, []string{
			t.ParentID,
			truncate.Truncate(t.ParentText, 40, "…", truncate.PositionEnd),
			t.Sender.Name,
			strconv.Itoa(t.ReplyCount),
			humanize.Time(time.UnixMilli(t.LastRepliedAt)),
			unread,
		})
	}
	err := pterm.DefaultTable.WithHasHeader().WithWriter(w).WithData(rows).Render()
	return errors.Wrap(err, "failed to render threads")
}
