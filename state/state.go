// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package state stores the effects of validated operations and the indexer
// cursor over a luxfi database.
//
// Effects are written to a version layer and reach the underlying database
// only on Commit, together with the cursor. Abort discards them.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/database/versiondb"
	"github.com/luxfi/log"

	"github.com/luxfi/l2index/classifier"
	"github.com/luxfi/l2index/committee"
	"github.com/luxfi/l2index/validators"
)

var (
	_ committee.State     = (*State)(nil)
	_ classifier.Accounts = (*State)(nil)
	_ validators.Store    = (*State)(nil)

	ElectionPrefix      = []byte("election")
	ContractPrefix      = []byte("contract")
	WitnessPrefix       = []byte("witness")
	BlockPrefix         = []byte("block")
	TransferPrefix      = []byte("transfer")
	WithdrawIndexPrefix = []byte("withdrawIndex")
	OutcomePrefix       = []byte("outcome")
	SingletonPrefix     = []byte("singleton")

	LastProcessedKey = []byte("last processed")

	errUnknownToggle = errors.New("unknown witness toggle")
)

type State struct {
	log     log.Logger
	l1      *L1
	genesis *committee.Committee

	baseDB *versiondb.Database

	electionDB      database.Database
	contractDB      database.Database
	witnessDB       database.Database
	blockDB         database.Database
	transferDB      database.Database
	withdrawIndexDB database.Database
	outcomeDB       database.Database
	singletonDB     database.Database

	// elections are ordered by activation height. The first committed
	// entries are durable; the rest were added in the current batch.
	elections []*committee.Committee
	committed int
}

// New opens the effect store over db. genesis governs heights below the first
// election and may be nil.
func New(
	logger log.Logger,
	db database.Database,
	l1 *L1,
	genesis *committee.Committee,
) (*State, error) {
	baseDB := versiondb.New(db)
	s := &State{
		log:             logger,
		l1:              l1,
		genesis:         genesis,
		baseDB:          baseDB,
		electionDB:      prefixdb.New(ElectionPrefix, baseDB),
		contractDB:      prefixdb.New(ContractPrefix, baseDB),
		witnessDB:       prefixdb.New(WitnessPrefix, baseDB),
		blockDB:         prefixdb.New(BlockPrefix, baseDB),
		transferDB:      prefixdb.New(TransferPrefix, baseDB),
		withdrawIndexDB: prefixdb.New(WithdrawIndexPrefix, baseDB),
		outcomeDB:       prefixdb.New(OutcomePrefix, baseDB),
		singletonDB:     prefixdb.New(SingletonPrefix, baseDB),
	}
	if err := s.loadElections(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *State) loadElections() error {
	it := s.electionDB.NewIterator()
	defer it.Release()

	for it.Next() {
		var r ElectionRecord
		if _, err := Codec.Unmarshal(it.Value(), &r); err != nil {
			return fmt.Errorf("failed to parse election: %w", err)
		}
		c, err := r.Committee()
		if err != nil {
			return err
		}
		s.elections = append(s.elections, c)
	}
	if err := it.Error(); err != nil {
		return fmt.Errorf("failed to load elections: %w", err)
	}
	s.committed = len(s.elections)
	s.log.Info("loaded elections",
		log.Int("numElections", len(s.elections)),
	)
	return nil
}

func electionKey(height, epoch uint64) []byte {
	return append(database.PackUInt64(height), database.PackUInt64(epoch)...)
}

// CommitteeAt returns the committee of the last election activated at or
// below height, or the genesis committee.
func (s *State) CommitteeAt(_ context.Context, height uint64) (*committee.Committee, error) {
	i := sort.Search(len(s.elections), func(i int) bool {
		return s.elections[i].Height > height
	})
	if i == 0 {
		return s.genesis, nil
	}
	return s.elections[i-1], nil
}

func (s *State) LastElectionBefore(_ context.Context, height uint64) (*committee.Committee, error) {
	i := sort.Search(len(s.elections), func(i int) bool {
		return s.elections[i].Height >= height
	})
	if i == 0 {
		return nil, nil
	}
	return s.elections[i-1], nil
}

// LastElectionAt returns the most recent election activated at or below
// height, or nil.
func (s *State) LastElectionAt(_ context.Context, height uint64) (*committee.Committee, error) {
	i := sort.Search(len(s.elections), func(i int) bool {
		return s.elections[i].Height > height
	})
	if i == 0 {
		return nil, nil
	}
	return s.elections[i-1], nil
}

func (s *State) L1BlockID(ctx context.Context, height uint64) (string, error) {
	return s.l1.L1BlockID(ctx, height)
}

func (s *State) AccountExists(ctx context.Context, name string) (bool, error) {
	return s.l1.AccountExists(ctx, name)
}

func (s *State) ContractExists(_ context.Context, id string) (bool, error) {
	return s.contractDB.Has([]byte(id))
}

func withdrawKey(trxID string, opIndex uint32) []byte {
	return fmt.Appendf(nil, "%s-%d", trxID, opIndex)
}

func (s *State) WithdrawRequest(_ context.Context, trxID string, opIndex uint32) (uint64, bool, error) {
	id, err := database.GetUInt64(s.withdrawIndexDB, withdrawKey(trxID, opIndex))
	if errors.Is(err, database.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// Cursor returns the id of the last processed operation, or 0.
func (s *State) Cursor() (uint64, error) {
	return getUInt64(s.singletonDB, LastProcessedKey)
}

func (s *State) SetCursor(id uint64) error {
	return database.PutUInt64(s.singletonDB, LastProcessedKey, id)
}

// PutOutcome records the classification of op.
func (s *State) PutOutcome(op *classifier.Operation) error {
	return s.put(s.outcomeDB, database.PackUInt64(op.Raw.ID), &OperationRecord{
		Valid: op.Valid,
		Kind:  uint8(op.Kind),
		Actor: op.Actor,
	})
}

func (s *State) GetOutcome(id uint64) (*OperationRecord, error) {
	r := &OperationRecord{}
	return r, s.get(s.outcomeDB, database.PackUInt64(id), r)
}

func (s *State) PutBlock(b *validators.Block) error {
	r := &BlockRecord{
		ID:          b.ID.String(),
		Proposer:    b.Proposer,
		L1Height:    b.L1Height,
		StartHeight: b.Range[0],
		EndHeight:   b.Range[1],
		Previous:    b.Previous,
		MerkleRoot:  b.MerkleRoot,
		Signature:   b.Signature.Sig,
		Signers:     b.Signature.Signers.Bytes(),
		VotedWeight: b.VotedWeight,
		TotalWeight: b.TotalWeight,
		Late:        b.Late,
		Txs:         make([]TxRecord, len(b.Txs)),
	}
	for i, tx := range b.Txs {
		detail, err := json.Marshal(tx.Payload)
		if err != nil {
			return fmt.Errorf("failed to encode block %s tx %d: %w", b.ID, tx.Index, err)
		}
		r.Txs[i] = TxRecord{
			Index:  uint32(tx.Index),
			ID:     tx.ID.String(),
			Type:   uint8(tx.Type),
			Detail: detail,
		}
	}
	return s.put(s.blockDB, []byte(r.ID), r)
}

func (s *State) GetBlock(id string) (*BlockRecord, error) {
	r := &BlockRecord{}
	return r, s.get(s.blockDB, []byte(id), r)
}

// PutElection records e and activates its committee.
func (s *State) PutElection(e *validators.Election) error {
	c := e.Committee
	r := &ElectionRecord{
		Epoch:       c.Epoch,
		Height:      c.Height,
		Data:        e.Data.String(),
		Proposer:    e.Proposer,
		VotedWeight: e.VotedWeight,
		TotalWeight: e.TotalWeight,
		Members:     membersOf(c),
	}
	if err := s.put(s.electionDB, electionKey(c.Height, c.Epoch), r); err != nil {
		return err
	}
	s.elections = append(s.elections, c)
	return nil
}

func (s *State) GetElection(height, epoch uint64) (*ElectionRecord, error) {
	r := &ElectionRecord{}
	return r, s.get(s.electionDB, electionKey(height, epoch), r)
}

func (s *State) PutContract(c *validators.Contract) error {
	return s.put(s.contractDB, []byte(c.ID), &ContractRecord{
		ID:          c.ID,
		Code:        c.Code.String(),
		Name:        c.Name,
		Description: c.Description,
		Creator:     c.Creator,
		L1Height:    c.L1Height,
		TrxID:       c.TrxID,
		ProofWeight: c.ProofWeight,
	})
}

func (s *State) GetContract(id string) (*ContractRecord, error) {
	r := &ContractRecord{}
	return r, s.get(s.contractDB, []byte(id), r)
}

// PutWitness records a node announcement.
func (s *State) PutWitness(op *classifier.Operation, a *classifier.NodeAnnouncement) error {
	r, err := s.witness(op.Actor)
	if err != nil {
		return err
	}
	r.DID = a.DID
	r.ConsensusDID = a.ConsensusDID
	r.Enabled = a.WitnessEnabled
	r.GitCommit = a.GitCommit
	r.PostingKey = a.SigningKeys.Posting
	r.ActiveKey = a.SigningKeys.Active
	r.OwnerKey = a.SigningKeys.Owner
	r.LastUpdateOpID = op.Raw.ID
	r.LastUpdate = op.L1Height()
	return s.put(s.witnessDB, []byte(r.Account), r)
}

// ToggleWitness applies a legacy witness flag operation.
func (s *State) ToggleWitness(op *classifier.Operation) error {
	r, err := s.witness(op.Actor)
	if err != nil {
		return err
	}
	switch op.Kind {
	case classifier.EnableWitness:
		r.Enabled = true
	case classifier.DisableWitness:
		r.Enabled = false
	case classifier.AllowWitness:
		r.Allowed = true
	case classifier.DisallowWitness:
		r.Allowed = false
	default:
		return fmt.Errorf("%w: %s", errUnknownToggle, op.Kind)
	}
	r.LastUpdateOpID = op.Raw.ID
	r.LastUpdate = op.L1Height()
	return s.put(s.witnessDB, []byte(r.Account), r)
}

// witness returns the record of account, or a new one.
func (s *State) witness(account string) (*WitnessRecord, error) {
	r, err := s.GetWitness(account)
	if errors.Is(err, database.ErrNotFound) {
		return &WitnessRecord{Account: account}, nil
	}
	return r, err
}

func (s *State) GetWitness(account string) (*WitnessRecord, error) {
	r := &WitnessRecord{}
	if err := s.get(s.witnessDB, []byte(account), r); err != nil {
		return nil, err
	}
	return r, nil
}

// PutTransfer records a gateway transfer. Withdraw requests are indexed by
// their L1 operation for bridge references.
func (s *State) PutTransfer(op *classifier.Operation, t *classifier.Transfer) error {
	r := &TransferRecord{
		Kind:      uint8(op.Kind),
		L1Height:  op.L1Height(),
		TrxID:     op.Raw.TrxID,
		OpIndex:   op.Raw.OpIndex,
		Owner:     t.Owner,
		OwnerType: uint8(t.OwnerType),
		Amount:    t.Amount,
		Asset:     uint8(t.Asset),
		Requested: t.Requested,
	}
	switch op.Kind {
	case classifier.Deposit, classifier.WithdrawRequest:
		r.From = op.Actor
	case classifier.Withdrawal:
		r.To = op.Actor
	}
	if err := s.put(s.transferDB, database.PackUInt64(op.Raw.ID), r); err != nil {
		return err
	}
	if op.Kind != classifier.WithdrawRequest {
		return nil
	}
	return database.PutUInt64(s.withdrawIndexDB, withdrawKey(op.Raw.TrxID, op.Raw.OpIndex), op.Raw.ID)
}

// PutSavings records a savings movement of the gateway.
func (s *State) PutSavings(op *classifier.Operation, m *classifier.SavingsMovement) error {
	return s.put(s.transferDB, database.PackUInt64(op.Raw.ID), &TransferRecord{
		Kind:     uint8(op.Kind),
		L1Height: op.L1Height(),
		TrxID:    op.Raw.TrxID,
		OpIndex:  op.Raw.OpIndex,
		From:     m.From,
		To:       m.To,
		Amount:   m.Amount,
		Asset:    uint8(m.Asset),
	})
}

func (s *State) GetTransfer(opID uint64) (*TransferRecord, error) {
	r := &TransferRecord{}
	return r, s.get(s.transferDB, database.PackUInt64(opID), r)
}

// CompleteWithdrawals marks the withdraw requests issued by opIDs completed.
func (s *State) CompleteWithdrawals(opIDs []uint64, height uint64) error {
	for _, id := range opIDs {
		r, err := s.GetTransfer(id)
		if err != nil {
			return fmt.Errorf("failed to get withdraw request %d: %w", id, err)
		}
		r.Status = Completed
		r.CompletedAt = height
		if err := s.put(s.transferDB, database.PackUInt64(id), r); err != nil {
			return err
		}
	}
	return nil
}

// Commit writes the effects of the current batch.
func (s *State) Commit() error {
	defer s.Abort()
	if err := s.baseDB.Commit(); err != nil {
		return err
	}
	s.committed = len(s.elections)
	return nil
}

// Abort discards the effects of the current batch.
func (s *State) Abort() {
	s.baseDB.Abort()
	s.elections = s.elections[:s.committed]
}

func (s *State) put(db database.KeyValueWriter, key []byte, v any) error {
	bytes, err := Codec.Marshal(CodecVersion, v)
	if err != nil {
		return fmt.Errorf("failed to marshal %T: %w", v, err)
	}
	return db.Put(key, bytes)
}

func (*State) get(db database.KeyValueReader, key []byte, v any) error {
	bytes, err := db.Get(key)
	if err != nil {
		return err
	}
	_, err = Codec.Unmarshal(bytes, v)
	return err
}
