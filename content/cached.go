// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package content

import (
	"context"

	lru "github.com/hashicorp/golang-lru"
	"github.com/ipfs/go-cid"
)

var _ Store = (*Cached)(nil)

// Cached keeps recently fetched blobs in memory. Failed fetches are not
// cached.
type Cached struct {
	store Store
	cache *lru.Cache
}

func NewCached(store Store, size int) (*Cached, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Cached{
		store: store,
		cache: cache,
	}, nil
}

func (c *Cached) Get(ctx context.Context, id cid.Cid) ([]byte, error) {
	if b, ok := c.cache.Get(id); ok {
		return b.([]byte), nil
	}
	b, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.Add(id, b)
	return b, nil
}
