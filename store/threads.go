////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package store

import (
	"sort"

	"github.com/samber/lo"

	"gitlab.com/threadkeeper/threadkeeper-wasm/model"
	"gitlab.com/threadkeeper/threadkeeper-wasm/records"
)

// ExtractThreads projects the messages of a channel onto its sorted thread
// list. Only messages with at least one reply become threads, and the thread
// of openThread is left out so that a thread the user is reading is never
// counted as unread. The projection does not modify its inputs and returns the
// same list for the same inputs.
func ExtractThreads(messages map[string]model.Message,
	previews map[string][]model.Message, openThread string,
	ledger records.Ledger, order model.SortOrder) []model.Thread {

	threads := lo.FilterMap(lo.Values(messages),
		func(m model.Message, _ int) (model.Thread, bool) {
			if !m.HasThread() || m.ID == openThread {
				return model.Thread{}, false
			}

			var lastRead int64
			if ledger != nil {
				lastRead = ledger.LastRead(m.ID)
			}

			return model.Thread{
				ParentID:      m.ID,
				ParentText:    m.Text,
				ChannelID:     m.ChannelID,
				Sender:        m.Sender,
				ReplyCount:    m.Thread.ReplyCount,
				CreatedAt:     m.CreatedAt,
				LastRepliedAt: m.Thread.LastRepliedAt,
				LastReadAt:    lastRead,
				Unread: model.IsUnread(
					m.Thread.ReplyCount, m.Thread.LastRepliedAt, lastRead),
				Previews: copyMessages(previews[m.ID]),
			}, true
		})

	sortThreads(threads, order)
	return threads
}

// sortThreads orders the threads newest first by the key of the sort order.
// Equal keys are ordered by parent ID so that the result is deterministic.
func sortThreads(threads []model.Thread, order model.SortOrder) {
	key := func(t model.Thread) int64 { return t.LastRepliedAt }
	if order == model.SortCreated {
		key = func(t model.Thread) int64 { return t.CreatedAt }
	}

	sort.Slice(threads, func(i, j int) bool {
		ki, kj := key(threads[i]), key(threads[j])
		if ki != kj {
			return ki > kj
		}
		return threads[i].ParentID > threads[j].ParentID
	})
}

// countUnread returns the number of unread threads.
func countUnread(threads []model.Thread) int {
	return lo.CountBy(threads, func(t model.Thread) bool { return t.Unread })
}

func copyMessages(msgs []model.Message) []model.Message {
	if len(msgs) == 0 {
		return nil
	}
	return append([]model.Message(nil), msgs...)
}

func copyThreads(threads []model.Thread) []model.Thread {
	if threads == nil {
		return nil
	}
	return append([]model.Thread(nil), threads...)
}
