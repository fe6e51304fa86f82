// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/database/versiondb"

	"github.com/luxfi/l2index/classifier"
)

var (
	OperationPrefix  = []byte("operation")
	BlockIDPrefix    = []byte("blockID")
	AccountPrefix    = []byte("account")
	L1MetadataPrefix = []byte("l1Metadata")

	ImportedHeightKey = []byte("imported height")
	LastOperationKey  = []byte("last operation")

	errNonMonotonicOperation = errors.New("operation ids must increase")
	errInvalidKey            = errors.New("invalid key")
)

// L1 is the imported L1 operation log, with the block ids and account names
// of the imported range. It is written by the importer and read by the
// indexer; both may use it concurrently.
type L1 struct {
	db database.Database

	operationDB database.Database
	blockIDDB   database.Database
	accountDB   database.Database
	metadataDB  database.Database
}

func NewL1(db database.Database) *L1 {
	return &L1{
		db:          db,
		operationDB: prefixdb.New(OperationPrefix, db),
		blockIDDB:   prefixdb.New(BlockIDPrefix, db),
		accountDB:   prefixdb.New(AccountPrefix, db),
		metadataDB:  prefixdb.New(L1MetadataPrefix, db),
	}
}

// Import is a range of L1 blocks to append to the log.
type Import struct {
	// Height is the last L1 height the import covers.
	Height     uint64
	Operations []classifier.RawOperation
	BlockIDs   map[uint64]string
	Accounts   []string
}

// Import atomically appends i and advances the imported height.
func (l *L1) Import(i *Import) error {
	vdb := versiondb.New(l.db)
	defer vdb.Abort()

	var (
		operationDB = prefixdb.New(OperationPrefix, vdb)
		blockIDDB   = prefixdb.New(BlockIDPrefix, vdb)
		accountDB   = prefixdb.New(AccountPrefix, vdb)
		metadataDB  = prefixdb.New(L1MetadataPrefix, vdb)
	)
	last, err := getUInt64(metadataDB, LastOperationKey)
	if err != nil {
		return err
	}
	for _, op := range i.Operations {
		if op.ID <= last {
			return fmt.Errorf("%w: %d after %d", errNonMonotonicOperation, op.ID, last)
		}
		last = op.ID
		bytes, err := Codec.Marshal(CodecVersion, newOperationRecord(op))
		if err != nil {
			return fmt.Errorf("failed to marshal operation %d: %w", op.ID, err)
		}
		if err := operationDB.Put(database.PackUInt64(op.ID), bytes); err != nil {
			return fmt.Errorf("failed to write operation %d: %w", op.ID, err)
		}
	}
	for height, id := range i.BlockIDs {
		if err := blockIDDB.Put(database.PackUInt64(height), []byte(id)); err != nil {
			return fmt.Errorf("failed to write block id %d: %w", height, err)
		}
	}
	for _, name := range i.Accounts {
		if err := accountDB.Put([]byte(name), nil); err != nil {
			return fmt.Errorf("failed to write account %q: %w", name, err)
		}
	}
	if err := database.PutUInt64(metadataDB, LastOperationKey, last); err != nil {
		return err
	}
	if err := database.PutUInt64(metadataDB, ImportedHeightKey, i.Height); err != nil {
		return err
	}
	return vdb.Commit()
}

// ImportedHeight returns the last imported L1 height, or 0.
func (l *L1) ImportedHeight() (uint64, error) {
	return getUInt64(l.metadataDB, ImportedHeightKey)
}

// LastOperation returns the id of the last imported operation, or 0.
func (l *L1) LastOperation() (uint64, error) {
	return getUInt64(l.metadataDB, LastOperationKey)
}

func (l *L1) AccountExists(_ context.Context, name string) (bool, error) {
	return l.accountDB.Has([]byte(name))
}

func (l *L1) L1BlockID(_ context.Context, height uint64) (string, error) {
	id, err := l.blockIDDB.Get(database.PackUInt64(height))
	if err != nil {
		return "", fmt.Errorf("failed to get L1 block id %d: %w", height, err)
	}
	return string(id), nil
}

// NextBatch returns the id range of at most limit operations following after.
func (l *L1) NextBatch(ctx context.Context, after uint64, limit int) (uint64, uint64, bool, error) {
	var (
		first, last uint64
		count       int
	)
	err := l.iterate(ctx, after+1, func(id uint64, _ []byte) bool {
		if count == 0 {
			first = id
		}
		last = id
		count++
		return count < limit
	})
	if err != nil {
		return 0, 0, false, err
	}
	return first, last, count > 0, nil
}

// Operations returns the operations with ids in [first, last], ascending.
func (l *L1) Operations(ctx context.Context, first, last uint64) ([]classifier.RawOperation, error) {
	var (
		ops       []classifier.RawOperation
		decodeErr error
	)
	err := l.iterate(ctx, first, func(id uint64, value []byte) bool {
		if id > last {
			return false
		}
		var r operationRecord
		if _, decodeErr = Codec.Unmarshal(value, &r); decodeErr != nil {
			decodeErr = fmt.Errorf("failed to parse operation %d: %w", id, decodeErr)
			return false
		}
		ops = append(ops, r.operation(id))
		return true
	})
	if err != nil {
		return nil, err
	}
	return ops, decodeErr
}

// iterate visits operations from id start on until f returns false.
func (l *L1) iterate(ctx context.Context, start uint64, f func(uint64, []byte) bool) error {
	it := l.operationDB.NewIteratorWithStart(database.PackUInt64(start))
	defer it.Release()

	for it.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := it.Key()
		if len(key) != database.Uint64Size {
			return fmt.Errorf("%w: operation key length %d", errInvalidKey, len(key))
		}
		if !f(binary.BigEndian.Uint64(key), it.Value()) {
			break
		}
	}
	return it.Error()
}

func getUInt64(db database.KeyValueReader, key []byte) (uint64, error) {
	v, err := database.GetUInt64(db, key)
	if errors.Is(err, database.ErrNotFound) {
		return 0, nil
	}
	return v, err
}
