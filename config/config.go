// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/luxfi/l2index/committee"
	"github.com/luxfi/l2index/content"
	"github.com/luxfi/l2index/crypto/blsdid"
	"github.com/luxfi/l2index/protocol"
)

var (
	Default = Config{
		Params:             protocol.Testnet,
		LateProposalRounds: 1,
		BatchSize:          1000,
		PollInterval:       3 * time.Second,
		ContentURL:         "http://127.0.0.1:5001",
		ContentTimeout:     content.DefaultTimeout,
		ContentCacheSize:   4096,
		DBDir:              "l2index-db",
		ImportBatchSize:    1000,
	}

	errInvalidConfig = errors.New("invalid config")
)

// Member is a genesis committee member.
type Member struct {
	Account string `json:"account"`
	DID     string `json:"did"`
	// Weight defaults to 1.
	Weight uint64 `json:"weight"`
}

// Config contains all of the user-configurable parameters of the indexer.
type Config struct {
	Params protocol.Params `json:"params"`
	// LateProposalRounds is the number of rounds a block proposal may trail
	// its slot.
	LateProposalRounds uint64   `json:"late-proposal-rounds"`
	Genesis            []Member `json:"genesis"`

	BatchSize    int           `json:"batch-size"`
	PollInterval time.Duration `json:"poll-interval"`

	ContentURL       string        `json:"content-url"`
	ContentTimeout   time.Duration `json:"content-timeout"`
	ContentCacheSize int           `json:"content-cache-size"`

	DBDir string `json:"db-dir"`

	// HAFURL is the connection string of the HAF database to import L1
	// operations from. The importer is disabled when empty.
	HAFURL          string `json:"haf-url"`
	ImportBatchSize uint64 `json:"import-batch-size"`
}

// GetConfig returns a Config from the provided json encoded bytes. If a
// configuration is not provided in the bytes, the default value is set. If
// empty bytes are provided, the default config is returned.
func GetConfig(b []byte) (*Config, error) {
	c := Default

	// An empty slice is invalid json, so handle that as a special case.
	if len(b) == 0 {
		return &c, nil
	}

	return &c, json.Unmarshal(b, &c)
}

func (c *Config) Verify() error {
	if err := c.Params.Verify(); err != nil {
		return err
	}
	switch {
	case c.BatchSize <= 0:
		return fmt.Errorf("%w: batch size %d", errInvalidConfig, c.BatchSize)
	case c.ContentCacheSize <= 0:
		return fmt.Errorf("%w: content cache size %d", errInvalidConfig, c.ContentCacheSize)
	case c.ImportBatchSize == 0:
		return fmt.Errorf("%w: zero import batch size", errInvalidConfig)
	default:
		return nil
	}
}

// GenesisCommittee parses the genesis committee, or returns nil if none is
// configured.
func (c *Config) GenesisCommittee() (*committee.Committee, error) {
	if len(c.Genesis) == 0 {
		return nil, nil
	}
	gc := &committee.Committee{
		Height:  c.Params.StartHeight,
		Members: make([]committee.Member, len(c.Genesis)),
	}
	for i, m := range c.Genesis {
		key, err := blsdid.Parse(m.DID)
		if err != nil {
			return nil, fmt.Errorf("genesis member %q: %w", m.Account, err)
		}
		weight := m.Weight
		if weight == 0 {
			weight = 1
		}
		gc.Members[i] = committee.Member{
			Account: m.Account,
			DID:     m.DID,
			Key:     key,
			Weight:  weight,
		}
	}
	return gc, nil
}
