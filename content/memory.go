// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package content

import (
	"context"
	"fmt"
	"sync"

	"github.com/ipfs/go-cid"

	"github.com/luxfi/l2index/codec/dagcbor"
)

var _ Store = (*Memory)(nil)

// Memory is an in-process Store.
type Memory struct {
	lock   sync.RWMutex
	blocks map[cid.Cid][]byte
}

func NewMemory() *Memory {
	return &Memory{
		blocks: make(map[cid.Cid][]byte),
	}
}

// Put stores the canonical encoding of v and returns its address.
func (m *Memory) Put(v any) (cid.Cid, error) {
	b, err := dagcbor.Encode(v)
	if err != nil {
		return cid.Undef, err
	}
	return m.PutBytes(cid.DagCBOR, b)
}

// PutBytes stores b under codec and returns its address.
func (m *Memory) PutBytes(codec uint64, b []byte) (cid.Cid, error) {
	id, err := dagcbor.SumBytes(codec, b)
	if err != nil {
		return cid.Undef, err
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	m.blocks[id] = b
	return id, nil
}

func (m *Memory) Get(_ context.Context, id cid.Cid) ([]byte, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	b, ok := m.blocks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return b, nil
}
