// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	ujson "github.com/luxfi/utils/json"

	"github.com/luxfi/l2index/crypto/blsdid"
	"github.com/luxfi/l2index/protocol"
)

const withdrawAction = "withdraw"

type l1Amount struct {
	Amount ujson.Uint64 `json:"amount"`
	NAI    string       `json:"nai"`
}

func (a l1Amount) asset() (protocol.Asset, error) {
	asset, ok := protocol.AssetFromNAI(a.NAI)
	if !ok {
		return 0, fmt.Errorf("%w: unknown asset %q", errMalformed, a.NAI)
	}
	return asset, nil
}

func (c *Classifier) classifyTransfer(ctx context.Context, op *Operation, value json.RawMessage) error {
	var t struct {
		From   string   `json:"from"`
		To     string   `json:"to"`
		Amount l1Amount `json:"amount"`
		Memo   string   `json:"memo"`
	}
	if err := decode(value, &t); err != nil {
		return err
	}
	asset, err := t.Amount.asset()
	if err != nil {
		return err
	}

	multisig := c.params.MultisigAt(op.Raw.L1Height)
	switch {
	case t.To == multisig:
		memo := parseMemo(t.Memo)
		if action, _ := memo["action"].(string); action == withdrawAction {
			requested, err := parseRequestedAmount(memo["amount"])
			if err != nil {
				return err
			}
			op.Actor = t.From
			op.Kind = WithdrawRequest
			op.Payload = &Transfer{
				Amount:    uint64(t.Amount.Amount),
				Asset:     asset,
				Owner:     t.From,
				Requested: requested,
			}
			return nil
		}

		owner, ownerType, err := c.depositOwner(ctx, t.From, memo["to"])
		if err != nil {
			return err
		}
		op.Actor = t.From
		op.Kind = Deposit
		op.Payload = &Transfer{
			Amount:    uint64(t.Amount.Amount),
			Asset:     asset,
			Owner:     owner,
			OwnerType: ownerType,
		}
		return nil
	case t.From == multisig:
		op.Actor = t.To
		op.Kind = Withdrawal
		op.Payload = &Transfer{
			Amount: uint64(t.Amount.Amount),
			Asset:  asset,
			Owner:  t.To,
		}
		return nil
	default:
		return fmt.Errorf("%w: transfer does not touch the gateway", errUnknownOp)
	}
}

// parseMemo reads a JSON object memo, falling back to a query string.
func parseMemo(memo string) map[string]any {
	fields := make(map[string]any)
	if err := decode([]byte(memo), &fields); err == nil {
		return fields
	}
	values, _ := url.ParseQuery(memo)
	fields = make(map[string]any, len(values))
	for k, v := range values {
		fields[k] = v[len(v)-1]
	}
	return fields
}

// parseRequestedAmount converts a decimal amount to thousandths.
func parseRequestedAmount(v any) (uint64, error) {
	var f float64
	switch amount := v.(type) {
	case float64:
		f = amount
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(amount), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: withdrawal amount %q", errMalformed, amount)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("%w: missing withdrawal amount", errMalformed)
	}
	milli := math.Round(f * 1000)
	if math.IsNaN(f) || milli <= 0 || milli >= math.MaxUint64 {
		return 0, fmt.Errorf("%w: withdrawal amount %v", errMalformed, f)
	}
	return uint64(milli), nil
}

// depositOwner resolves the L2 owner a deposit memo names, defaulting to the
// sender.
func (c *Classifier) depositOwner(ctx context.Context, from string, to any) (string, OwnerType, error) {
	dest, ok := to.(string)
	if !ok {
		return from, OwnerAccount, nil
	}
	if blsdid.IsDID(dest) {
		return dest, OwnerDID, nil
	}
	name, ok := strings.CutPrefix(dest, "@")
	if !ok || name == "" || len(name) > maxAccountName {
		return from, OwnerAccount, nil
	}
	exists, err := c.accounts.AccountExists(ctx, name)
	if err != nil {
		return "", 0, &accountsError{err: err}
	}
	if !exists {
		return from, OwnerAccount, nil
	}
	return name, OwnerAccount, nil
}

func (c *Classifier) classifySavings(op *Operation, opType string, value json.RawMessage) error {
	var s struct {
		From     string    `json:"from"`
		To       string    `json:"to"`
		Owner    string    `json:"owner"`
		Amount   *l1Amount `json:"amount"`
		Interest *l1Amount `json:"interest"`
	}
	if err := decode(value, &s); err != nil {
		return err
	}
	if opType == interestOp {
		s.From, s.To, s.Amount = s.Owner, s.Owner, s.Interest
	}
	multisig := c.params.MultisigAt(op.Raw.L1Height)
	if s.From != multisig && s.To != multisig {
		return fmt.Errorf("%w: savings do not touch the gateway", errUnknownOp)
	}
	if s.Amount == nil {
		return fmt.Errorf("%w: missing amount", errMalformed)
	}
	asset, err := s.Amount.asset()
	if err != nil {
		return err
	}
	op.Actor = s.From
	op.Kind = Savings
	op.Payload = &SavingsMovement{
		Op:     opType,
		From:   s.From,
		To:     s.To,
		Amount: uint64(s.Amount.Amount),
		Asset:  asset,
	}
	return nil
}
