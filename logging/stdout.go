////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

//go:build !(js && wasm)

package logging

import (
	jww "github.com/spf13/jwalterweatherman"
)

func setOutput(threshold jww.Threshold) {
	jww.SetStdoutThreshold(threshold)
}
