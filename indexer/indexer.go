// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package indexer drives imported L1 operations through classification and
// validation and commits their effects in batches.
//
// A batch commits its effects together with the cursor. A batch interrupted
// before its commit is replayed from the last committed cursor.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/luxfi/log"

	"github.com/luxfi/l2index/classifier"
	"github.com/luxfi/l2index/metrics"
	"github.com/luxfi/l2index/validators"
)

const progressLogInterval = 15 * time.Second

var errUnexpectedPayload = errors.New("unexpected payload")

// Log is the ordered L1 operation stream.
type Log interface {
	// NextBatch returns the id range of at most limit operations following
	// after. ok is false when none are available.
	NextBatch(ctx context.Context, after uint64, limit int) (first, last uint64, ok bool, err error)
	Operations(ctx context.Context, first, last uint64) ([]classifier.RawOperation, error)
}

type Classifier interface {
	Classify(ctx context.Context, raw classifier.RawOperation) (*classifier.Operation, error)
}

type Validator interface {
	ValidateBlock(ctx context.Context, op *classifier.Operation) (*validators.Block, error)
	ValidateElection(ctx context.Context, op *classifier.Operation) (*validators.Election, error)
	ValidateContract(ctx context.Context, op *classifier.Operation) (*validators.Contract, error)
	ResolveBridgeRef(ctx context.Context, op *classifier.Operation) (*validators.BridgeResolution, error)
}

// Effects is the transactional effect store. Writes are visible to later
// reads of the same batch and become durable on Commit.
type Effects interface {
	Cursor() (uint64, error)
	SetCursor(id uint64) error
	Commit() error
	Abort()

	PutOutcome(op *classifier.Operation) error
	PutBlock(b *validators.Block) error
	PutElection(e *validators.Election) error
	PutContract(c *validators.Contract) error
	PutWitness(op *classifier.Operation, a *classifier.NodeAnnouncement) error
	ToggleWitness(op *classifier.Operation) error
	PutTransfer(op *classifier.Operation, t *classifier.Transfer) error
	PutSavings(op *classifier.Operation, m *classifier.SavingsMovement) error
	CompleteWithdrawals(opIDs []uint64, height uint64) error
}

type Config struct {
	BatchSize    int
	PollInterval time.Duration
}

type Indexer struct {
	log        log.Logger
	config     Config
	l1         Log
	classifier Classifier
	validator  Validator
	effects    Effects
	metrics    metrics.Metrics

	lastLogTime time.Time
}

func New(
	logger log.Logger,
	config Config,
	l1 Log,
	classifier Classifier,
	validator Validator,
	effects Effects,
	metrics metrics.Metrics,
) *Indexer {
	return &Indexer{
		log:        logger,
		config:     config,
		l1:         l1,
		classifier: classifier,
		validator:  validator,
		effects:    effects,
		metrics:    metrics,
	}
}

// Run processes batches until ctx is done. Cancellation is observed between
// batches only. It returns nil once canceled and the first store failure
// otherwise.
func (ix *Indexer) Run(ctx context.Context) error {
	ix.log.Info("starting indexer",
		log.Int("batchSize", ix.config.BatchSize),
		log.Duration("pollInterval", ix.config.PollInterval),
	)
	for {
		if ctx.Err() != nil {
			ix.log.Info("stopping indexer")
			return nil
		}
		processed, err := ix.Step(ctx)
		if err != nil {
			return err
		}
		if processed > 0 {
			continue
		}

		timer := time.NewTimer(ix.config.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
	}
}

// Step processes and commits the next batch, returning the number of
// operations it held.
func (ix *Indexer) Step(ctx context.Context) (int, error) {
	// A started batch runs to completion.
	ctx = context.WithoutCancel(ctx)

	cursor, err := ix.effects.Cursor()
	if err != nil {
		return 0, fmt.Errorf("failed to read cursor: %w", err)
	}
	first, last, ok, err := ix.l1.NextBatch(ctx, cursor, ix.config.BatchSize)
	if err != nil || !ok {
		return 0, err
	}
	ops, err := ix.l1.Operations(ctx, first, last)
	if err != nil {
		return 0, fmt.Errorf("failed to read operations %d-%d: %w", first, last, err)
	}

	start := time.Now()
	if err := ix.apply(ctx, ops, last); err != nil {
		ix.effects.Abort()
		ix.log.Error("batch failed",
			log.Uint64("first", first),
			log.Uint64("last", last),
			log.Err(err),
		)
		return 0, err
	}
	duration := time.Since(start)

	ix.metrics.MarkBatch(duration, last)
	ix.log.Debug("committed batch",
		log.Uint64("first", first),
		log.Uint64("last", last),
		log.Int("numOperations", len(ops)),
		log.Duration("duration", duration),
	)

	// Periodically log progress
	if now := time.Now(); len(ops) > 0 && now.Sub(ix.lastLogTime) > progressLogInterval {
		ix.lastLogTime = now
		ix.log.Info("indexed operations",
			log.Uint64("lastOperation", last),
			log.Uint64("l1Height", ops[len(ops)-1].L1Height),
		)
	}
	return len(ops), nil
}

func (ix *Indexer) apply(ctx context.Context, ops []classifier.RawOperation, last uint64) error {
	for _, raw := range ops {
		if err := ix.process(ctx, raw); err != nil {
			return fmt.Errorf("operation %d: %w", raw.ID, err)
		}
	}
	if err := ix.effects.SetCursor(last); err != nil {
		return fmt.Errorf("failed to advance cursor: %w", err)
	}
	return ix.effects.Commit()
}

func (ix *Indexer) process(ctx context.Context, raw classifier.RawOperation) error {
	op, err := ix.classifier.Classify(ctx, raw)
	if err != nil {
		return err
	}
	outcome := metrics.Invalid
	if op.Valid {
		err := ix.dispatch(ctx, op)
		switch {
		case validators.IsRejected(err):
			ix.log.Debug("rejected operation",
				log.Uint64("id", raw.ID),
				log.Stringer("kind", op.Kind),
				log.String("actor", op.Actor),
				log.Err(err),
			)
			op.Valid = false
			outcome = metrics.Rejected
		case err != nil:
			return err
		default:
			outcome = metrics.Accepted
		}
	}
	ix.metrics.MarkOperation(op, outcome)
	return ix.effects.PutOutcome(op)
}

// dispatch validates op and records its effects. Rejections are returned
// before any effect is written.
func (ix *Indexer) dispatch(ctx context.Context, op *classifier.Operation) error {
	switch op.Kind {
	case classifier.ProposeBlock:
		b, err := ix.validator.ValidateBlock(ctx, op)
		if err != nil {
			return err
		}
		ix.log.Info("accepted block",
			log.Stringer("blockID", b.ID),
			log.String("proposer", b.Proposer),
			log.Uint64("l1Height", b.L1Height),
			log.Int("numTxs", len(b.Txs)),
		)
		return ix.effects.PutBlock(b)
	case classifier.ElectionResult:
		e, err := ix.validator.ValidateElection(ctx, op)
		if err != nil {
			return err
		}
		return ix.effects.PutElection(e)
	case classifier.CreateContract:
		c, err := ix.validator.ValidateContract(ctx, op)
		if err != nil {
			return err
		}
		return ix.effects.PutContract(c)
	case classifier.BridgeRef:
		r, err := ix.validator.ResolveBridgeRef(ctx, op)
		if err != nil {
			return err
		}
		return ix.effects.CompleteWithdrawals(r.Completed, op.L1Height())
	case classifier.AnnounceNode:
		a, ok := op.Payload.(*classifier.NodeAnnouncement)
		if !ok {
			return fmt.Errorf("%w: %T", errUnexpectedPayload, op.Payload)
		}
		return ix.effects.PutWitness(op, a)
	case classifier.EnableWitness, classifier.DisableWitness, classifier.AllowWitness, classifier.DisallowWitness:
		return ix.effects.ToggleWitness(op)
	case classifier.Deposit, classifier.Withdrawal, classifier.WithdrawRequest:
		t, ok := op.Payload.(*classifier.Transfer)
		if !ok {
			return fmt.Errorf("%w: %T", errUnexpectedPayload, op.Payload)
		}
		return ix.effects.PutTransfer(op, t)
	case classifier.Savings:
		m, ok := op.Payload.(*classifier.SavingsMovement)
		if !ok {
			return fmt.Errorf("%w: %T", errUnexpectedPayload, op.Payload)
		}
		return ix.effects.PutSavings(op, m)
	default:
		// Recorded through the outcome only.
		return nil
	}
}
