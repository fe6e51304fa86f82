// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package committee

import (
	"crypto/sha256"
	"math"
	"math/rand/v2"
)

// Window is the round geometry of one schedule.
type Window struct {
	RoundLength uint64
	TotalRounds uint64
	Start       uint64
	Epoch       uint64
	// Seed is derived from the L1 block at Start.
	Seed [32]byte
}

// End returns the first height after the window.
func (w Window) End() uint64 {
	return w.Start + w.RoundLength*w.TotalRounds
}

// SeedFromBlockID derives a schedule seed from an L1 block id.
func SeedFromBlockID(blockID string) [32]byte {
	return sha256.Sum256([]byte(blockID))
}

// Slot assigns the round starting at Height to Account.
type Slot struct {
	Height  uint64
	End     uint64
	Account string
}

// ElapsedAt reports whether the slot's round finished before height.
func (s Slot) ElapsedAt(height uint64) bool {
	return s.End <= height
}

// Schedule is the deterministic slot assignment of a window.
type Schedule struct {
	Window Window
	Slots  []Slot
}

// Shuffle cycles the committee to fill the window's rounds and permutes the
// result with a Fisher-Yates shuffle keyed by the window seed.
//
// Shuffle is pure: the same window and committee always yield the same
// schedule.
func Shuffle(w Window, c *Committee) *Schedule {
	s := &Schedule{Window: w}
	if c.Len() == 0 || w.TotalRounds == 0 {
		return s
	}

	accounts := make([]string, w.TotalRounds)
	for i := range accounts {
		accounts[i] = c.Members[i%c.Len()].Account
	}

	src := rand.NewChaCha8(w.Seed)
	for i := len(accounts) - 1; i > 0; i-- {
		j := uniform(src, uint64(i)+1)
		accounts[i], accounts[j] = accounts[j], accounts[i]
	}

	s.Slots = make([]Slot, len(accounts))
	for i, account := range accounts {
		height := w.Start + uint64(i)*w.RoundLength
		s.Slots[i] = Slot{
			Height:  height,
			End:     height + w.RoundLength,
			Account: account,
		}
	}
	return s
}

// uniform returns a uniformly distributed value in [0, n).
func uniform(src *rand.ChaCha8, n uint64) uint64 {
	limit := math.MaxUint64 - math.MaxUint64%n
	for {
		if v := src.Uint64(); v < limit {
			return v % n
		}
	}
}

// SlotAt returns the slot whose round starts at height.
func (s *Schedule) SlotAt(height uint64) (Slot, bool) {
	w := s.Window
	if w.RoundLength == 0 || height < w.Start || height >= w.End() || (height-w.Start)%w.RoundLength != 0 {
		return Slot{}, false
	}
	i := (height - w.Start) / w.RoundLength
	if i >= uint64(len(s.Slots)) {
		return Slot{}, false
	}
	return s.Slots[i], true
}
