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
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/packetd/rvpfcore/tlsstream"
	"github.com/packetd/rvpfcore/xpvpc"
)

var xpvpcCmd = &cobra.Command{
	Use:   "xpvpc",
	Short: "XPVPC client operations",
}

var (
	xpvpcAddr     string
	xpvpcUser     string
	xpvpcPassword string
	xpvpcFile     string
)

var xpvpcSendCmd = &cobra.Command{
	Use:   "send",
	Short: "Log into an XPVPC server and stream point values read from a file",
	Long: "A demo/test client that logs in and sends one point-value per\n" +
		"non-blank \"point,stamp,value\" line of --file, exercising spec.md §8\n" +
		"scenario 6 \"XPVPC round trip\".",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runXPVPCSend(); err != nil {
			fmt.Fprintf(os.Stderr, "xpvpc send failed: %v\n", err)
			os.Exit(1)
		}
	},
	Example: "# rvpfcore xpvpc send --address 127.0.0.1:9000 --file values.csv",
}

func init() {
	xpvpcSendCmd.Flags().StringVar(&xpvpcAddr, "address", "127.0.0.1:9000", "XPVPC server [host]:port")
	xpvpcSendCmd.Flags().StringVar(&xpvpcUser, "user", "", "Login user")
	xpvpcSendCmd.Flags().StringVar(&xpvpcPassword, "password", "", "Login password")
	xpvpcSendCmd.Flags().StringVar(&xpvpcFile, "file", "", "Path to a \"point,stamp,value\" CSV file")
	xpvpcCmd.AddCommand(xpvpcSendCmd)
	rootCmd.AddCommand(xpvpcCmd)
}

func runXPVPCSend() error {
	addr, err := tlsstream.ParseAddress(xpvpcAddr)
	if err != nil {
		return err
	}

	f, err := os.Open(xpvpcFile)
	if err != nil {
		return err
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c := xpvpc.New(tlsstream.New(addr, tlsstream.TrustConfig{}))
	if err := c.Open(ctx); err != nil {
		return err
	}
	defer c.Dispose()

	if err := c.Login(ctx, xpvpcUser, xpvpcPassword); err != nil {
		return err
	}

	sent := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, ",", 3)
		if len(fields) != 3 {
			continue
		}
		point, stamp, value := fields[0], fields[1], fields[2]
		if err := c.SendValue(ctx, point, stamp, nil, &value); err != nil {
			return err
		}
		sent++
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	if err := c.Flush(ctx); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "sent %d point values\n", sent)
	return c.Close()
}
