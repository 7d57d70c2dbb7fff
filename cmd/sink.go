// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/packetd/rvpfcore/pipe"
	"github.com/packetd/rvpfcore/store"
	_ "github.com/packetd/rvpfcore/store/sinks/console"
)

var sinkName string

var sinkCmd = &cobra.Command{
	Use:   "sink",
	Short: "Run a PIPE sink against stdin/stdout, writing through a store.Sinker",
	Long: "Runs pipe.RunSinkDriver against stdin/stdout, handing every UPDATE/\n" +
		"DELETE request to the named store.Sinker (spec.md §8 scenario 4\n" +
		"\"Sink delete\"; SPEC_FULL.md §8.6).",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(int(pipe.StatusFatal))
		}
		maybeServeMetrics(cfg)

		create := store.Get(store.Target(sinkName))
		if create == nil {
			fmt.Fprintf(os.Stderr, "unknown sink %q\n", sinkName)
			os.Exit(int(pipe.StatusFatal))
		}
		sinker, err := create(store.ConnectOptions{})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create sink %q: %v\n", sinkName, err)
			os.Exit(int(pipe.StatusFatal))
		}
		defer sinker.Close()

		watchTerminate(int(pipe.StatusOK))
		status := pipe.RunSinkDriver(os.Stdin, os.Stdout, sinkRequestToSinker(sinker))
		os.Exit(int(status))
	},
	Example: "# rvpfcore sink --sink console < requests.pipe",
}

func init() {
	sinkCmd.Flags().StringVar(&sinkName, "sink", "console", "Registered store.Sinker to write through")
	rootCmd.AddCommand(sinkCmd)
}

// sinkRequestToSinker adapts a pipe.SinkRequest to a single sinker.Sink
// call, returning a summary of 1 on success (spec.md §8 scenario 4
// "Driver returns summary 1") or -1 on failure.
func sinkRequestToSinker(sinker store.Sinker) pipe.SinkCallback {
	return func(req *pipe.SinkRequest) (int, error) {
		sv := store.StoreValue{
			Deleted: req.Type == pipe.SinkDelete || req.Value.IsDeleted(),
			Value:   []byte(req.Value.Value),
		}
		if err := sinker.Sink(sv); err != nil {
			return -1, err
		}
		return 1, nil
	}
}
