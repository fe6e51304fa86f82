// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package classifier decodes raw L1 operations into typed intents.
//
// Classification is deterministic: it depends only on the operation, the
// protocol parameters and the account index. Operations failing any check are
// returned with Valid unset; only account index failures are returned as
// errors.
package classifier

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/luxfi/log"

	"github.com/luxfi/l2index/crypto/jws"
	"github.com/luxfi/l2index/protocol"
)

const (
	customJSONOp   = "custom_json_operation"
	accountUpdate  = "account_update_operation"
	transferOp     = "transfer_operation"
	toSavingsOp    = "transfer_to_savings_operation"
	fromSavingsOp  = "transfer_from_savings_operation"
	fillSavingsOp  = "fill_transfer_from_savings_operation"
	interestOp     = "interest_operation"
	maxAccountName = 16
)

var (
	errMalformed    = errors.New("malformed payload")
	errUnauthorized = errors.New("missing authority")
	errWrongNetwork = errors.New("wrong network id")
	errUnknownOp    = errors.New("unknown operation")
)

// Accounts is the L1 account index.
type Accounts interface {
	AccountExists(ctx context.Context, name string) (bool, error)
}

// ProofVerifier verifies node announcement proofs.
type ProofVerifier interface {
	Verify(proof jws.General) (map[string]any, string, error)
}

type Classifier struct {
	log      log.Logger
	params   *protocol.Params
	accounts Accounts
	proofs   ProofVerifier
}

func New(
	logger log.Logger,
	params *protocol.Params,
	accounts Accounts,
	proofs ProofVerifier,
) *Classifier {
	return &Classifier{
		log:      logger,
		params:   params,
		accounts: accounts,
		proofs:   proofs,
	}
}

type body struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// Classify decodes raw under the dialect in effect at its height.
func (c *Classifier) Classify(ctx context.Context, raw RawOperation) (*Operation, error) {
	version := c.params.VersionAt(raw.L1Height)
	op := &Operation{
		Raw:     raw,
		Version: version,
	}

	var b body
	if err := decode(raw.Body, &b); err != nil || len(b.Value) == 0 || string(b.Value) == "null" {
		c.reject(op, errMalformed)
		return op, nil
	}

	var err error
	switch b.Type {
	case customJSONOp:
		err = c.classifyCustomJSON(op, DialectFor(version), b.Value)
	case accountUpdate:
		err = c.classifyAccountUpdate(op, b.Value)
	case transferOp:
		err = c.classifyTransfer(ctx, op, b.Value)
	case toSavingsOp, fromSavingsOp, fillSavingsOp, interestOp:
		err = c.classifySavings(op, b.Type, b.Value)
	default:
		err = errUnknownOp
	}

	var storeErr *accountsError
	if errors.As(err, &storeErr) {
		return nil, storeErr.err
	}
	if err != nil {
		c.reject(op, err)
		return op, nil
	}
	op.Valid = true
	return op, nil
}

func (c *Classifier) reject(op *Operation, reason error) {
	op.Valid = false
	op.Actor = ""
	op.Kind = Unknown
	op.Payload = nil
	c.log.Debug("rejected operation",
		log.Uint64("id", op.Raw.ID),
		log.Uint64("height", op.Raw.L1Height),
		log.Err(reason),
	)
}

// accountsError marks failures of the account index, which abort the batch.
type accountsError struct {
	err error
}

func (e *accountsError) Error() string {
	return e.err.Error()
}

func (e *accountsError) Unwrap() error {
	return e.err
}
