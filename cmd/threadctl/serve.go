////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package main

import (
	"net/http"
	"path"

	"github.com/pkg/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"
)

const wasmContentType = "application/wasm"

// Serve flag variables.
var (
	serveRoot, servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the compiled WASM module and a test page for development.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pterm.Info.Printf("Starting server on port %s from %s\n",
			servePort, serveRoot)
		pterm.Info.Printf("\thttp://localhost:%s\n", servePort)

		err := http.ListenAndServe(":"+servePort, newFileHandler(serveRoot))
		if err != nil {
			return errors.Wrap(err, "failed to start server")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveRoot, "root", "r", "assets",
		"Directory holding threadkeeper.wasm, wasm_exec.js and the test page.")
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "9090",
		"Port to listen on.")
}

// newFileHandler serves the files under root. WASM modules get the content
// type required for streaming compilation and no file is cached so that a
// rebuilt module is always picked up.
func newFileHandler(root string) http.Handler {
	files := http.FileServer(http.Dir(root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jww.DEBUG.Printf("[CTL] %s %s", r.Method, r.URL.Path)
		if path.Ext(r.URL.Path) == ".wasm" {
			w.Header().Set("Content-Type", wasmContentType)
		}
		w.Header().Set("Cache-Control", "no-store")
		files.ServeHTTP(w, r)
	})
}
