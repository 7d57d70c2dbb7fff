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

// Package cmd wires the rvpfcore CLI (cobra, kept from the teacher's own
// cmd package structure): three subcommands (engine, sink, xpvpc) replace
// the teacher's agent/log, per SPEC_FULL.md §8.4.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"

	"github.com/packetd/rvpfcore/common"
	"github.com/packetd/rvpfcore/confengine"
	"github.com/packetd/rvpfcore/internal/sigs"
	"github.com/packetd/rvpfcore/logger"
	"github.com/packetd/rvpfcore/server"
)

var configPath string
var logLevel int

var rootCmd = &cobra.Command{
	Use:     "rvpfcore",
	Short:   "Native-side wire-protocol plumbing for a data-historian framework",
	Version: common.GetBuildInfo().Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetRVPFLevel(logger.ApplyEnvLevel(logLevel))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file path (optional; flags and environment suffice for standalone use)")
	rootCmd.PersistentFlags().IntVar(&logLevel, "log-level", -1, "RVPF log level 0-7 (negative: consult RVPF_LOG_LEVEL, default INFO)")
}

// Execute runs the root command, exiting the process with status 1 on any
// cobra-level error (flag parsing, unknown subcommand).
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads confengine config from configPath if set, applying the
// `logger` section to the global logger per SPEC_FULL.md §8.3. Returns a
// usable empty config when configPath is unset, so subcommands work
// standalone (e.g. wired directly to the framework's stdin/stdout without
// a config file).
func loadConfig() (*confengine.Config, error) {
	if configPath == "" {
		return confengine.LoadContent([]byte("{}"))
	}

	cfg, err := confengine.LoadConfigPath(configPath)
	if err != nil {
		return nil, err
	}

	var logOpt logger.Options
	if cfg.Has("logger") {
		if err := cfg.UnpackChild("logger", &logOpt); err != nil {
			return nil, err
		}
		logger.SetOptions(logOpt)
	}
	return cfg, nil
}

// maybeServeMetrics starts the `/metrics` + `/healthz` HTTP server in the
// background when the loaded config carries a `server` section with
// `enabled: true` (the `server` section of SPEC_FULL.md §8.3). Both
// the engine and sink drivers own stdin/stdout exclusively per spec.md §5,
// so the server runs on its own listener rather than sharing that stream.
func maybeServeMetrics(cfg *confengine.Config) {
	if !cfg.Has("server") {
		return
	}

	svr, err := server.New(cfg)
	if err != nil {
		logger.Errorf("failed to create metrics server: %v", err)
		return
	}
	if svr == nil {
		return
	}

	go func() {
		if err := svr.ListenAndServe(); err != nil {
			logger.Errorf("metrics server exited: %v", err)
		}
	}()
}

// watchTerminate exits the process with status when SIGTERM/SIGINT
// arrives, unblocking a driver loop parked in a blocking stdin read
// (spec.md §6.5's exit-status contract only covers the PIPE-side graceful
// stop; an operator-issued termination needs its own path out).
func watchTerminate(status int) {
	go func() {
		<-sigs.Terminate()
		logger.Infof("received termination signal, exiting")
		os.Exit(status)
	}()
}
