////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package main

import (
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Lists the chat records stored in the database.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		all, err := db.GetAll()
		if err != nil {
			return err
		}
		if len(all) == 0 {
			pterm.Info.Println("No chat records stored.")
			return nil
		}

		rows := pterm.TableData{{"Channel", "Name", "DM", "Members", "Updated"}}
		for _, r := range all {
			rows = append(rows, []string{
				r.ChannelID,
				r.Name,
				strconv.FormatBool(r.Distinct),
				humanize.Comma(int64(r.MemberCount)),
				humanize.Time(time.UnixMilli(r.UpdatedAt)),
			})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	},
}

// Mark-read flag variables.
var markReadAt int64

var markReadCmd = &cobra.Command{
	Use:   "mark-read <messageID>",
	Short: "Marks the thread of the parent message as read.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		at := markReadAt
		if at == 0 {
			at = time.Now().UnixMilli()
		}
		if err = db.SetLastRead(args[0], at); err != nil {
			return errors.WithMessage(err, "failed to mark thread as read")
		}

		pterm.Success.Printf("Marked thread %s as read %s\n", args[0],
			humanize.Time(time.UnixMilli(at)))
		return nil
	},
}

func init() {
	markReadCmd.Flags().Int64Var(&markReadAt, "at", 0,
		"Read time in Unix milliseconds. Defaults to now.")
}
