// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package flags binds the indexer config to command line flags. Flags that
// are set override the config file.
package flags

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/luxfi/l2index/config"
)

const (
	ConfigFileKey         = "config-file"
	DBDirKey              = "db-dir"
	HAFURLKey             = "haf-url"
	ContentURLKey         = "content-url"
	ContentTimeoutKey     = "content-timeout"
	BatchSizeKey          = "batch-size"
	PollIntervalKey       = "poll-interval"
	LateProposalRoundsKey = "late-proposal-rounds"
)

func AddFlags(flags *pflag.FlagSet) {
	flags.String(ConfigFileKey, "", "JSON config file")
	flags.String(DBDirKey, config.Default.DBDir, "Database directory")
	flags.String(HAFURLKey, "", "HAF database connection string to import L1 operations from")
	flags.String(ContentURLKey, config.Default.ContentURL, "Kubo RPC endpoint of the content store")
	flags.Duration(ContentTimeoutKey, config.Default.ContentTimeout, "Deadline of a content store fetch")
	flags.Int(BatchSizeKey, config.Default.BatchSize, "Number of operations committed per batch")
	flags.Duration(PollIntervalKey, config.Default.PollInterval, "Delay between polls once caught up")
	flags.Uint64(LateProposalRoundsKey, config.Default.LateProposalRounds, "Number of rounds a block proposal may trail its slot")
}

func ParseFlags(flags *pflag.FlagSet, args []string) (*config.Config, error) {
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	configFile, err := flags.GetString(ConfigFileKey)
	if err != nil {
		return nil, err
	}
	var configBytes []byte
	if configFile != "" {
		configBytes, err = os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	c, err := config.GetConfig(configBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := overrideString(flags, DBDirKey, &c.DBDir); err != nil {
		return nil, err
	}
	if err := overrideString(flags, HAFURLKey, &c.HAFURL); err != nil {
		return nil, err
	}
	if err := overrideString(flags, ContentURLKey, &c.ContentURL); err != nil {
		return nil, err
	}
	if err := overrideDuration(flags, ContentTimeoutKey, &c.ContentTimeout); err != nil {
		return nil, err
	}
	if err := overrideDuration(flags, PollIntervalKey, &c.PollInterval); err != nil {
		return nil, err
	}
	if flags.Changed(BatchSizeKey) {
		c.BatchSize, err = flags.GetInt(BatchSizeKey)
		if err != nil {
			return nil, err
		}
	}
	if flags.Changed(LateProposalRoundsKey) {
		c.LateProposalRounds, err = flags.GetUint64(LateProposalRoundsKey)
		if err != nil {
			return nil, err
		}
	}
	return c, c.Verify()
}

func overrideString(flags *pflag.FlagSet, key string, v *string) error {
	if !flags.Changed(key) {
		return nil
	}
	s, err := flags.GetString(key)
	if err != nil {
		return err
	}
	*v = s
	return nil
}

func overrideDuration(flags *pflag.FlagSet, key string, v *time.Duration) error {
	if !flags.Changed(key) {
		return nil
	}
	d, err := flags.GetDuration(key)
	if err != nil {
		return err
	}
	*v = d
	return nil
}
