// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package content fetches content-addressed blobs: block bodies, election
// member lists, storage proofs and transaction envelopes.
package content

import (
	"context"
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"

	"github.com/luxfi/l2index/codec/dagcbor"
)

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=contentmock -destination=contentmock/store.go -mock_names=Store=Store . Store

var (
	ErrNotFound     = errors.New("content not found")
	ErrHashMismatch = errors.New("content does not match its address")
	ErrTooLarge     = errors.New("content exceeds size limit")
)

// Store returns the bytes addressed by a content id. Implementations must
// honor the context deadline; the returned bytes are untrusted.
type Store interface {
	Get(ctx context.Context, id cid.Cid) ([]byte, error)
}

// GetValue fetches id and decodes it into v. id must use the dag-cbor codec.
func GetValue(ctx context.Context, s Store, id cid.Cid, v any) error {
	if id.Type() != cid.DagCBOR {
		return fmt.Errorf("%w: 0x%x", dagcbor.ErrWrongCodec, id.Type())
	}
	b, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return dagcbor.Decode(b, v)
}

// Verify returns an error if b is not the content addressed by id.
func Verify(id cid.Cid, b []byte) error {
	sum, err := id.Prefix().Sum(b)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrHashMismatch, err)
	}
	if !sum.Equals(id) {
		return fmt.Errorf("%w: %s", ErrHashMismatch, id)
	}
	return nil
}
