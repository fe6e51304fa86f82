// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package haf imports irreversible L1 operations from a HAF database into the
// local operation log.
package haf

import (
	"context"
	"fmt"
	"time"

	"github.com/luxfi/log"

	"github.com/luxfi/l2index/metrics"
	"github.com/luxfi/l2index/state"
)

// Sink is the local operation log.
type Sink interface {
	ImportedHeight() (uint64, error)
	Import(i *state.Import) error
}

type Config struct {
	// StartHeight is the first height whose operations are imported.
	StartHeight uint64
	// SeedHeight is the first height whose block id is imported. Schedules
	// are seeded from block ids below StartHeight.
	SeedHeight uint64

	BatchSize    uint64
	PollInterval time.Duration
}

type Importer struct {
	log     log.Logger
	config  Config
	source  Source
	sink    Sink
	metrics metrics.Metrics
}

func NewImporter(
	logger log.Logger,
	config Config,
	source Source,
	sink Sink,
	metrics metrics.Metrics,
) *Importer {
	return &Importer{
		log:     logger,
		config:  config,
		source:  source,
		sink:    sink,
		metrics: metrics,
	}
}

// Run imports until ctx is done.
func (i *Importer) Run(ctx context.Context) error {
	for {
		imported, err := i.Step(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}
		if imported {
			continue
		}

		timer := time.NewTimer(i.config.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
	}
}

// Step imports the next range of irreversible heights. It returns false if
// the log is caught up.
func (i *Importer) Step(ctx context.Context) (bool, error) {
	imported, err := i.sink.ImportedHeight()
	if err != nil {
		return false, err
	}
	head, err := i.source.Head(ctx)
	if err != nil {
		return false, err
	}

	from := max(imported+1, i.config.StartHeight)
	if from > head {
		return false, nil
	}
	to := min(from+i.config.BatchSize-1, head)

	// The first import carries every account created up to its range and
	// the block ids seeding its first schedules.
	accountsFrom, blocksFrom := from, from
	if imported == 0 {
		accountsFrom = 0
		blocksFrom = min(i.config.SeedHeight, from)
	}

	ops, err := i.source.Operations(ctx, from, to)
	if err != nil {
		return false, err
	}
	blockIDs, err := i.source.BlockIDs(ctx, blocksFrom, to)
	if err != nil {
		return false, err
	}
	accounts, err := i.source.Accounts(ctx, accountsFrom, to)
	if err != nil {
		return false, err
	}
	err = i.sink.Import(&state.Import{
		Height:     to,
		Operations: ops,
		BlockIDs:   blockIDs,
		Accounts:   accounts,
	})
	if err != nil {
		return false, fmt.Errorf("failed to import heights %d-%d: %w", from, to, err)
	}

	i.metrics.SetImportedHeight(to)
	i.log.Debug("imported L1 blocks",
		log.Uint64("from", from),
		log.Uint64("to", to),
		log.Uint64("head", head),
		log.Int("numOperations", len(ops)),
		log.Int("numAccounts", len(accounts)),
	)
	return true, nil
}
