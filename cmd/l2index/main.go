// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/luxfi/l2index/cmd/l2index/contractid"
	"github.com/luxfi/l2index/cmd/l2index/run"
	"github.com/luxfi/l2index/cmd/l2index/schedule"
)

func main() {
	cmd := &cobra.Command{
		Use:          "l2index",
		Short:        "Derives L2 chain state from L1 operations",
		SilenceUsage: true,
	}
	cmd.AddCommand(
		run.Command(),
		contractid.Command(),
		schedule.Command(),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := cmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "command failed %v\n", err)
		os.Exit(1)
	}
}
