////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package interceptor

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// Command is the command token of a socket frame.
type Command string

// Socket commands of the chat realtime protocol.
const (
	CmdMessage     Command = "MESG"
	CmdRead        Command = "READ"
	CmdDelivery    Command = "DLVR"
	CmdTypingStart Command = "TPST"
	CmdTypingEnd   Command = "TPEN"
	CmdPing        Command = "PING"
	CmdPong        Command = "PONG"
	CmdBroadcast   Command = "BRDM"
	CmdThreadMeta  Command = "MTHD"
	CmdUpdate      Command = "MEDI"
	CmdSystemEvent Command = "SYEV"
	CmdLogin       Command = "LOGI"
	CmdMessageAck  Command = "MACK"
)

// Frame is a parsed socket frame.
type Frame struct {
	Command Command
	Body    gjson.Result
	Raw     []byte
}

// ParseFrame parses a frame of the form <COMMAND><json>, or a bare JSON object
// whose "category" (or "cat") field is the command.
func ParseFrame(raw []byte) (Frame, error) {
	i := 0
	for i < len(raw) && raw[i] >= 'A' && raw[i] <= 'Z' {
		i++
	}
	body := raw[i:]

	if !gjson.ValidBytes(body) {
		return Frame{}, errors.Errorf("frame body of %d bytes is not JSON",
			len(body))
	}
	r := gjson.ParseBytes(body)
	if !r.IsObject() {
		return Frame{}, errors.New("frame body is not an object")
	}

	cmd := Command(raw[:i])
	if cmd == "" {
		cat := r.Get("category")
		if !cat.Exists() {
			cat = r.Get("cat")
		}
		cmd = Command(strings.ToUpper(cat.String()))
		if cmd == "" {
			return Frame{}, errors.New("bare frame has no category")
		}
	}

	return Frame{Command: cmd, Body: r, Raw: raw}, nil
}

// first returns the string value of the first of the paths that exists.
func first(r gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := r.Get(p); v.Exists() {
			return v.String()
		}
	}
	return ""
}
