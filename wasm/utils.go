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
	"syscall/js"

	"github.com/pkg/errors"

	"gitlab.com/elixxir/wasm-utils/utils"
)

// wrapOptionalCB is like [utils.WrapCB] but returns nil when parent has no
// function m instead of panicking.
func wrapOptionalCB(parent js.Value, m string) func(args ...any) js.Value {
	if parent.IsUndefined() || parent.IsNull() ||
		parent.Get(m).Type() != js.TypeFunction {
		return nil
	}
	return utils.WrapCB(parent, m)
}

// marshalJS marshals v to JSON and parses it into a Javascript value. Unlike
// [utils.JsonToJS], it accepts arrays and scalars.
func marshalJS(v any) (js.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return js.Undefined(), errors.Wrapf(err, "failed to marshal %T", v)
	}
	return utils.JSON.Call("parse", string(data)), nil
}
