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
	"strconv"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/packetd/rvpfcore/pipe"
)

var engineCmd = &cobra.Command{
	Use:   "engine",
	Short: "Run a PIPE transform engine against stdin/stdout",
	Long: "Runs pipe.RunEngineDriver against stdin/stdout with a built-in\n" +
		"double-the-last-input transform (spec.md §8 scenario 1 \"Engine echo\").",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(int(pipe.StatusFatal))
		}

		maybeServeMetrics(cfg)
		watchTerminate(int(pipe.StatusOK))
		status := pipe.RunEngineDriver(os.Stdin, os.Stdout, doubleLastInputTransform)
		os.Exit(int(status))
	},
	Example: "# rvpfcore engine < requests.pipe",
}

func init() {
	rootCmd.AddCommand(engineCmd)
}

// doubleLastInputTransform is the demo transform exercised by scenario 1:
// it doubles the value of the last input point (falling back to leaving
// the seed result untouched when there are no inputs).
func doubleLastInputTransform(req *pipe.EngineRequest) error {
	if len(req.Inputs) == 0 {
		return nil
	}

	last := req.Inputs[len(req.Inputs)-1]
	if !last.HasValue() {
		return nil
	}

	f, err := cast.ToFloat64E(last.Value)
	if err != nil {
		return nil
	}
	req.SetResultValue(strconv.FormatFloat(f*2, 'f', -1, 64))
	return nil
}
