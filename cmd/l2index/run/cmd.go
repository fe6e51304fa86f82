// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package run

import (
	"github.com/spf13/cobra"

	"github.com/luxfi/database/badgerdb"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"

	"github.com/luxfi/l2index/cmd/l2index/flags"
	"github.com/luxfi/l2index/haf"
	"github.com/luxfi/l2index/node"
)

func Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "run",
		Short: "Imports and indexes L1 operations until interrupted",
		RunE:  runFunc,
	}
	flags.AddFlags(c.Flags())
	return c
}

func runFunc(c *cobra.Command, args []string) error {
	config, err := flags.ParseFlags(c.Flags(), args)
	if err != nil {
		return err
	}

	ctx := c.Context()
	logger := log.NewLogger("l2index")

	db, err := badgerdb.New(config.DBDir, nil, "", nil)
	if err != nil {
		return err
	}
	defer db.Close()

	var source haf.Source
	if config.HAFURL != "" {
		hafDB, err := haf.Open(ctx, config.HAFURL)
		if err != nil {
			return err
		}
		defer hafDB.Close()
		source = hafDB
	}

	n, err := node.New(logger, config, db, source, metric.NewRegistry())
	if err != nil {
		return err
	}
	return n.Run(ctx)
}
