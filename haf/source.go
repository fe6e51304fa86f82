// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package haf

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/luxfi/l2index/classifier"
)

// OperationTypes are the HAF operation types the classifier recognizes.
var OperationTypes = []string{
	"hive::protocol::custom_json_operation",
	"hive::protocol::account_update_operation",
	"hive::protocol::transfer_operation",
	"hive::protocol::transfer_to_savings_operation",
	"hive::protocol::transfer_from_savings_operation",
	"hive::protocol::fill_transfer_from_savings_operation",
	"hive::protocol::interest_operation",
}

const (
	operationTypesQuery = `SELECT id FROM hive.operation_types WHERE name = ANY($1)`

	headQuery = `SELECT hive.app_get_irreversible_block()`

	operationsQuery = `
SELECT o.id, o.block_num, o.trx_in_block, o.op_pos, COALESCE(encode(t.trx_hash, 'hex'), ''), b.created_at, o.body::text
FROM hive.operations_view o
JOIN hive.blocks_view b ON b.num = o.block_num
LEFT JOIN hive.transactions_view t ON t.block_num = o.block_num AND t.trx_in_block = o.trx_in_block
WHERE o.block_num BETWEEN $1 AND $2 AND o.op_type_id = ANY($3)
ORDER BY o.id`

	blockIDsQuery = `SELECT num, encode(hash, 'hex') FROM hive.blocks_view WHERE num BETWEEN $1 AND $2`

	accountsQuery = `SELECT name FROM hive.accounts_view WHERE COALESCE(block_num, 0) BETWEEN $1 AND $2`
)

var (
	_ Source = (*DB)(nil)

	errUnknownOperationType = errors.New("unknown operation type")
)

// Source is the L1 block log.
type Source interface {
	// Head returns the last irreversible L1 height.
	Head(ctx context.Context) (uint64, error)
	// Operations returns the recognized operations of heights [from, to] in
	// ascending id order.
	Operations(ctx context.Context, from, to uint64) ([]classifier.RawOperation, error)
	BlockIDs(ctx context.Context, from, to uint64) (map[uint64]string, error)
	// Accounts returns the accounts created at heights [from, to].
	Accounts(ctx context.Context, from, to uint64) ([]string, error)
}

// DB reads a HAF PostgreSQL database.
type DB struct {
	db      *sql.DB
	opTypes []int64
}

// Open connects to the HAF database at url.
func Open(ctx context.Context, url string) (*DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, err
	}
	h := &DB{db: db}
	if err := h.loadOperationTypes(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return h, nil
}

func (h *DB) loadOperationTypes(ctx context.Context) error {
	rows, err := h.db.QueryContext(ctx, operationTypesQuery, pq.Array(OperationTypes))
	if err != nil {
		return fmt.Errorf("failed to query operation types: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return err
		}
		h.opTypes = append(h.opTypes, id)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(h.opTypes) == 0 {
		return fmt.Errorf("%w: none of %d recognized", errUnknownOperationType, len(OperationTypes))
	}
	return nil
}

func (h *DB) Close() error {
	return h.db.Close()
}

func (h *DB) Head(ctx context.Context) (uint64, error) {
	var head sql.NullInt64
	if err := h.db.QueryRowContext(ctx, headQuery).Scan(&head); err != nil {
		return 0, fmt.Errorf("failed to query irreversible block: %w", err)
	}
	return uint64(head.Int64), nil
}

func (h *DB) Operations(ctx context.Context, from, to uint64) ([]classifier.RawOperation, error) {
	rows, err := h.db.QueryContext(ctx, operationsQuery, int64(from), int64(to), pq.Array(h.opTypes))
	if err != nil {
		return nil, fmt.Errorf("failed to query operations %d-%d: %w", from, to, err)
	}
	defer rows.Close()

	var ops []classifier.RawOperation
	for rows.Next() {
		var (
			op        classifier.RawOperation
			timestamp time.Time
			body      string
		)
		err := rows.Scan(&op.ID, &op.L1Height, &op.TrxIndex, &op.OpIndex, &op.TrxID, &timestamp, &body)
		if err != nil {
			return nil, err
		}
		op.Timestamp = timestamp.UTC()
		op.Body = []byte(body)
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

func (h *DB) BlockIDs(ctx context.Context, from, to uint64) (map[uint64]string, error) {
	rows, err := h.db.QueryContext(ctx, blockIDsQuery, int64(from), int64(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query block ids %d-%d: %w", from, to, err)
	}
	defer rows.Close()

	ids := make(map[uint64]string)
	for rows.Next() {
		var (
			height uint64
			id     string
		)
		if err := rows.Scan(&height, &id); err != nil {
			return nil, err
		}
		ids[height] = id
	}
	return ids, rows.Err()
}

func (h *DB) Accounts(ctx context.Context, from, to uint64) ([]string, error) {
	rows, err := h.db.QueryContext(ctx, accountsQuery, int64(from), int64(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts %d-%d: %w", from, to, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
