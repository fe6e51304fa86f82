// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package contractid

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/luxfi/l2index/contractid"
)

func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "contract-id <trx-id> <op-index>",
		Short: "Prints the address of the contract created by an L1 operation",
		Args:  cobra.ExactArgs(2),
		RunE:  contractIDFunc,
	}
}

func contractIDFunc(c *cobra.Command, args []string) error {
	opIndex, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid op index %q: %w", args[1], err)
	}
	id, err := contractid.Derive(args[0], uint32(opIndex))
	if err != nil {
		return err
	}
	c.Println(id)
	return nil
}
