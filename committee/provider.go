// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package committee resolves the committee governing an L1 height and the
// deterministic proposer schedule of its round window.
package committee

import (
	"context"
	"errors"
	"fmt"

	"github.com/luxfi/cache"
	"github.com/luxfi/cache/lru"
	"github.com/luxfi/database"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"

	"github.com/luxfi/l2index/protocol"
)

const scheduleCacheSize = 8

var (
	ErrNotScheduled = errors.New("proposer does not own the slot")
	// ErrNoSeed is returned when the L1 block seeding a window was never
	// imported.
	ErrNoSeed = errors.New("window seed block unavailable")
)

// State is the read view the provider derives committees and schedules from.
type State interface {
	// CommitteeAt returns the committee of the most recent election activated
	// at or below height, or the genesis committee.
	CommitteeAt(ctx context.Context, height uint64) (*Committee, error)
	// L1BlockID returns the id of the L1 block at height.
	L1BlockID(ctx context.Context, height uint64) (string, error)
}

type windowKey struct {
	start uint64
	epoch uint64
}

type providerMetrics struct {
	hits   metric.Counter
	misses metric.Counter
}

// Provider caches schedules by window start and epoch. It is not safe for
// concurrent use.
type Provider struct {
	log     log.Logger
	state   State
	params  *protocol.Params
	cache   cache.Cacher[windowKey, *Schedule]
	metrics providerMetrics
}

func NewProvider(
	logger log.Logger,
	state State,
	params *protocol.Params,
	registerer metric.Registerer,
) (*Provider, error) {
	p := &Provider{
		log:    logger,
		state:  state,
		params: params,
		cache:  lru.NewCache[windowKey, *Schedule](scheduleCacheSize),
		metrics: providerMetrics{
			hits: metric.NewCounter(metric.CounterOpts{
				Name: "schedule_cache_hits",
				Help: "number of schedule cache hits",
			}),
			misses: metric.NewCounter(metric.CounterOpts{
				Name: "schedule_cache_misses",
				Help: "number of schedule cache misses",
			}),
		},
	}
	if err := registerer.Register(metric.AsCollector(p.metrics.hits)); err != nil {
		return nil, fmt.Errorf("failed to register schedule cache hits metric: %w", err)
	}
	if err := registerer.Register(metric.AsCollector(p.metrics.misses)); err != nil {
		return nil, fmt.Errorf("failed to register schedule cache misses metric: %w", err)
	}
	return p, nil
}

// MembersAt returns the committee governing height.
func (p *Provider) MembersAt(ctx context.Context, height uint64) (*Committee, error) {
	c, err := p.state.CommitteeAt(ctx, height)
	if err != nil {
		return nil, err
	}
	if c == nil || c.Len() == 0 {
		return nil, fmt.Errorf("%w at height %d", ErrNoCommittee, height)
	}
	return c, nil
}

// WindowAt returns the round geometry of the window containing height and
// the committee it schedules.
func (p *Provider) WindowAt(ctx context.Context, height uint64) (Window, *Committee, error) {
	c, err := p.MembersAt(ctx, height)
	if err != nil {
		return Window{}, nil, err
	}
	w, err := p.window(ctx, height, c)
	return w, c, err
}

func (p *Provider) window(ctx context.Context, height uint64, c *Committee) (Window, error) {
	start := p.params.WindowStart(height)
	blockID, err := p.state.L1BlockID(ctx, start)
	if errors.Is(err, database.ErrNotFound) {
		return Window{}, fmt.Errorf("%w: height %d", ErrNoSeed, start)
	}
	if err != nil {
		return Window{}, fmt.Errorf("failed to fetch window seed block %d: %w", start, err)
	}
	return Window{
		RoundLength: p.params.RoundLength,
		TotalRounds: p.params.TotalRounds,
		Start:       start,
		Epoch:       c.Epoch,
		Seed:        SeedFromBlockID(blockID),
	}, nil
}

// ScheduleAt returns the schedule of the window containing height. Schedules
// are recomputed only when the window start or the committee epoch changes.
func (p *Provider) ScheduleAt(ctx context.Context, height uint64) (*Schedule, error) {
	c, err := p.MembersAt(ctx, height)
	if err != nil {
		return nil, err
	}
	key := windowKey{
		start: p.params.WindowStart(height),
		epoch: c.Epoch,
	}
	if s, ok := p.cache.Get(key); ok {
		p.metrics.hits.Inc()
		return s, nil
	}
	p.metrics.misses.Inc()

	w, err := p.window(ctx, height, c)
	if err != nil {
		return nil, err
	}
	s := Shuffle(w, c)
	p.cache.Put(key, s)

	p.log.Debug("computed schedule",
		log.Uint64("windowStart", w.Start),
		log.Uint64("epoch", w.Epoch),
		log.Int("members", c.Len()),
	)
	return s, nil
}

// SlotFor returns the slot account may propose height in.
//
// The slot at the round floor of height is checked first. Then, to tolerate
// late proposals, up to lateRounds preceding rounds are checked. The number of
// rounds the accepted slot lies behind is returned alongside it.
func (p *Provider) SlotFor(
	ctx context.Context,
	height uint64,
	account string,
	lateRounds uint64,
) (Slot, uint64, error) {
	floor := p.params.RoundFloor(height)
	for late := uint64(0); late <= lateRounds; late++ {
		offset := late * p.params.RoundLength
		if offset > floor {
			break
		}
		slotHeight := floor - offset
		s, err := p.ScheduleAt(ctx, slotHeight)
		if err != nil {
			return Slot{}, 0, err
		}
		slot, ok := s.SlotAt(slotHeight)
		if ok && slot.Account == account {
			return slot, late, nil
		}
	}
	return Slot{}, 0, fmt.Errorf("%w: %s at height %d", ErrNotScheduled, account, height)
}
