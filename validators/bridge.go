// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package validators

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/luxfi/log"

	"github.com/luxfi/l2index/classifier"
	"github.com/luxfi/l2index/codec/dagcbor"
)

const trxIDLen = 40

// BridgeResolution lists the withdraw requests a bridge reference completes.
type BridgeResolution struct {
	RefID cid.Cid
	// Completed are the operation ids of the completed withdraw requests.
	Completed []uint64
}

// ResolveBridgeRef fetches the withdrawals a bridge reference reports and
// resolves them to recorded withdraw requests. Entries that do not resolve
// are ignored.
func (v *Validator) ResolveBridgeRef(ctx context.Context, op *classifier.Operation) (*BridgeResolution, error) {
	ref, err := payloadOf[classifier.Reference](op, classifier.BridgeRef)
	if err != nil {
		return nil, err
	}
	raw, err := v.content.Get(ctx, ref.RefID)
	if err != nil {
		return nil, reject(fmt.Errorf("%w: %w", ErrContentUnavailable, err))
	}
	var fields map[string]any
	if err := dagcbor.Decode(raw, &fields); err != nil {
		return nil, malformed("%v", err)
	}
	withdrawals, ok := fields["withdrawals"].([]any)
	if !ok {
		return nil, malformed("withdrawals is %T", fields["withdrawals"])
	}

	resolution := &BridgeResolution{
		RefID: ref.RefID,
	}
	for _, w := range withdrawals {
		entry, _ := w.(map[string]any)
		id, _ := entry["id"].(string)
		trxID, opIndex, ok := parseWithdrawalID(id)
		if !ok {
			continue
		}
		opID, found, err := v.store.WithdrawRequest(ctx, trxID, opIndex)
		if err != nil {
			return nil, err
		}
		if found {
			resolution.Completed = append(resolution.Completed, opID)
		}
	}
	v.log.Debug("resolved bridge reference",
		log.Stringer("ref", ref.RefID),
		log.Int("withdrawals", len(withdrawals)),
		log.Int("completed", len(resolution.Completed)),
	)
	return resolution, nil
}

// parseWithdrawalID splits "<trx id>-<op position>".
func parseWithdrawalID(id string) (string, uint32, bool) {
	trxID, pos, ok := strings.Cut(id, "-")
	if !ok || len(trxID) != trxIDLen {
		return "", 0, false
	}
	if _, err := hex.DecodeString(trxID); err != nil {
		return "", 0, false
	}
	opIndex, err := strconv.ParseUint(pos, 10, 32)
	if err != nil {
		return "", 0, false
	}
	return strings.ToLower(trxID), uint32(opIndex), true
}
