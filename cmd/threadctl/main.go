////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// package main is its own utility that is compiled separate from the WASM
// module. It replays captured chat traffic through the thread tracker and
// inspects the SQLite record database outside the browser.

package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"

	"gitlab.com/threadkeeper/threadkeeper-wasm/logging"
	"gitlab.com/threadkeeper/threadkeeper-wasm/records/sqlite"
)

// Flag variables.
var (
	dbPath, logFile string
	logLevel        int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "threadctl",
	Short: "Replays captured chat traffic and inspects thread tracker storage.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLog(jww.Threshold(logLevel), logFile)
	},
	SilenceUsage: true,
}

// init is the initialization function for Cobra which defines flags.
func init() {
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "threadkeeper.db",
		"SQLite file holding the chat records and the read ledger. Use "+
			sqlite.MemoryPath+" for a throwaway database.")
	rootCmd.PersistentFlags().StringVarP(&logFile, "log", "l", "",
		"Log output path. Use \"-\" to print logs to stdout. By default, "+
			"logging is disabled.")
	rootCmd.PersistentFlags().IntVarP(&logLevel, "logLevel", "v", 2,
		"Verbosity level of logging. 0 = TRACE, 1 = DEBUG, 2 = INFO, "+
			"3 = WARN, 4 = ERROR, 5 = CRITICAL, 6 = FATAL")

	rootCmd.AddCommand(replayCmd, recordsCmd, markReadCmd, serveCmd)
}

// initLog will enable JWW logging to the given log path with the given
// threshold. If log path is empty, then logging is not enabled.
func initLog(threshold jww.Threshold, logPath string) error {
	if threshold < jww.LevelTrace || threshold > jww.LevelFatal {
		return errors.Errorf("invalid log threshold %d", threshold)
	}

	switch logPath {
	case "":
		jww.SetStdoutThreshold(jww.LevelFatal + 1)
		jww.SetLogThreshold(jww.LevelFatal + 1)
		return nil
	case "-":
		return logging.LogLevel(threshold)
	default:
		// Disable stdout output
		jww.SetStdoutOutput(io.Discard)

		logOutput, err :=
			os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return errors.Wrapf(err, "failed to open log file %s", logPath)
		}
		jww.SetLogOutput(logOutput)
	}

	// Display microseconds if the threshold is set to TRACE or DEBUG
	if threshold == jww.LevelTrace || threshold == jww.LevelDebug {
		jww.SetFlags(log.LstdFlags | log.Lmicroseconds)
	}

	jww.SetLogThreshold(threshold)
	jww.INFO.Printf("Log level set to: %s", threshold)
	return nil
}

// openDB opens the database named by the --db flag.
func openDB() (*sqlite.DB, error) {
	db, err := sqlite.Open(dbPath)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to open record database")
	}
	return db, nil
}
