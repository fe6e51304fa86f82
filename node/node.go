// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package node assembles the indexer from its config.
package node

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/luxfi/database"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"

	"github.com/luxfi/l2index/classifier"
	"github.com/luxfi/l2index/committee"
	"github.com/luxfi/l2index/config"
	"github.com/luxfi/l2index/content"
	"github.com/luxfi/l2index/crypto/jws"
	"github.com/luxfi/l2index/haf"
	"github.com/luxfi/l2index/indexer"
	"github.com/luxfi/l2index/metrics"
	"github.com/luxfi/l2index/state"
	"github.com/luxfi/l2index/validators"
)

type Node struct {
	log    log.Logger
	config *config.Config

	L1         *state.L1
	State      *state.State
	Committees *committee.Provider
	Indexer    *indexer.Indexer
	Importer   *haf.Importer
}

// New wires the indexer over db. Operations are imported from source unless
// it is nil.
func New(
	logger log.Logger,
	c *config.Config,
	db database.Database,
	source haf.Source,
	registerer metric.Registerer,
) (*Node, error) {
	genesis, err := c.GenesisCommittee()
	if err != nil {
		return nil, err
	}
	m, err := metrics.New(registerer)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	l1 := state.NewL1(db)
	s, err := state.New(logger, db, l1, genesis)
	if err != nil {
		return nil, err
	}
	committees, err := committee.NewProvider(logger, s, &c.Params, registerer)
	if err != nil {
		return nil, err
	}
	contentStore, err := content.NewCached(
		content.NewKubo(c.ContentURL, c.ContentTimeout),
		c.ContentCacheSize,
	)
	if err != nil {
		return nil, err
	}

	n := &Node{
		log:        logger,
		config:     c,
		L1:         l1,
		State:      s,
		Committees: committees,
		Indexer: indexer.New(
			logger,
			indexer.Config{
				BatchSize:    c.BatchSize,
				PollInterval: c.PollInterval,
			},
			l1,
			classifier.New(logger, &c.Params, s, jws.Verifier{}),
			validators.New(logger, &c.Params, committees, contentStore, s, c.LateProposalRounds),
			s,
			m,
		),
	}
	if source != nil {
		n.Importer = haf.NewImporter(
			logger,
			haf.Config{
				StartHeight:  c.Params.StartHeight,
				SeedHeight:   c.Params.FirstSeedHeight(c.Params.StartHeight),
				BatchSize:    c.ImportBatchSize,
				PollInterval: c.PollInterval,
			},
			source,
			l1,
			m,
		)
	}
	return n, nil
}

// Run imports and indexes until ctx is done or either fails.
func (n *Node) Run(ctx context.Context) error {
	n.log.Info("starting node",
		log.String("networkID", n.config.Params.NetworkID),
		log.Bool("importing", n.Importer != nil),
	)

	g, ctx := errgroup.WithContext(ctx)
	if n.Importer != nil {
		g.Go(func() error {
			return n.Importer.Run(ctx)
		})
	}
	g.Go(func() error {
		return n.Indexer.Run(ctx)
	})
	return g.Wait()
}
