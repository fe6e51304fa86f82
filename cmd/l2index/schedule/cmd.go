// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package schedule

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/luxfi/database/badgerdb"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"

	"github.com/luxfi/l2index/cmd/l2index/flags"
	"github.com/luxfi/l2index/node"
)

func Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "schedule <height>",
		Short: "Prints the proposer schedule of the window containing an L1 height",
		Args:  cobra.ExactArgs(1),
		RunE:  scheduleFunc,
	}
	flags.AddFlags(c.Flags())
	return c
}

func scheduleFunc(c *cobra.Command, args []string) error {
	height, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid height %q: %w", args[0], err)
	}
	config, err := flags.ParseFlags(c.Flags(), nil)
	if err != nil {
		return err
	}

	db, err := badgerdb.New(config.DBDir, nil, "", nil)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := node.New(log.NewNoOpLogger(), config, db, nil, metric.NewRegistry())
	if err != nil {
		return err
	}
	s, err := n.Committees.ScheduleAt(c.Context(), height)
	if err != nil {
		return err
	}

	c.Printf("window %d-%d epoch %d\n", s.Window.Start, s.Window.End()-1, s.Window.Epoch)
	for _, slot := range s.Slots {
		c.Printf("%d\t%s\n", slot.Height, slot.Account)
	}
	return nil
}
