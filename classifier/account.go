// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package classifier

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/luxfi/l2index/crypto/blsdid"
	"github.com/luxfi/l2index/crypto/jws"
)

const (
	consensusKeyType = "consensus"
	blsKeyCodec      = "DID-BLS"
	maxGitCommitLen  = 40
)

type didKey struct {
	T   string `json:"t"`
	CT  string `json:"ct"`
	Key string `json:"key"`
}

func (c *Classifier) classifyAccountUpdate(op *Operation, value json.RawMessage) error {
	var update struct {
		Account      string `json:"account"`
		JSONMetadata string `json:"json_metadata"`
	}
	if err := decode(value, &update); err != nil {
		return err
	}
	if update.Account == c.params.MultisigAt(op.Raw.L1Height) {
		op.Actor = update.Account
		op.Kind = RotateMultisig
		return nil
	}
	if update.JSONMetadata == "" {
		return fmt.Errorf("%w: empty metadata", errMalformed)
	}

	var meta struct {
		Node *struct {
			SignedProof *jws.General `json:"signed_proof"`
		} `json:"vsc_node"`
		DIDKeys []json.RawMessage `json:"did_keys"`
	}
	if err := decode([]byte(update.JSONMetadata), &meta); err != nil {
		return err
	}
	if meta.Node == nil || meta.Node.SignedProof == nil ||
		meta.Node.SignedProof.Payload == "" || len(meta.Node.SignedProof.Signatures) == 0 {
		return fmt.Errorf("%w: missing node proof", errMalformed)
	}

	claims, did, err := c.proofs.Verify(*meta.Node.SignedProof)
	if err != nil {
		return fmt.Errorf("%w: %w", errUnauthorized, err)
	}
	if netID, _ := claims["net_id"].(string); netID != c.params.NetworkID {
		return fmt.Errorf("%w: %q", errWrongNetwork, netID)
	}

	announcement := &NodeAnnouncement{
		DID:          did,
		ConsensusDID: consensusDID(meta.DIDKeys),
	}
	if commit, ok := claims["git_commit"].(string); ok {
		commit = strings.TrimSpace(commit)
		announcement.GitCommit = commit[:min(len(commit), maxGitCommitLen)]
	}
	if witness, ok := claims["witness"].(map[string]any); ok {
		announcement.WitnessEnabled, _ = witness["enabled"].(bool)
		if keys, ok := witness["signing_keys"].(map[string]any); ok {
			announcement.SigningKeys = SigningKeys{
				Posting: l1Key(keys["posting"]),
				Active:  l1Key(keys["active"]),
				Owner:   l1Key(keys["owner"]),
			}
		}
	}

	op.Actor = update.Account
	op.Kind = AnnounceNode
	op.Payload = announcement
	return nil
}

// consensusDID returns the first consensus BLS key, if it is well formed.
func consensusDID(keys []json.RawMessage) string {
	for _, raw := range keys {
		var k didKey
		if err := decode(raw, &k); err != nil {
			continue
		}
		if k.T != consensusKeyType || k.CT != blsKeyCodec || k.Key == "" {
			continue
		}
		if _, err := blsdid.Parse(k.Key); err != nil {
			return ""
		}
		return k.Key
	}
	return ""
}

func l1Key(v any) string {
	s, ok := v.(string)
	if !ok || !isValidL1PubKey(s) {
		return ""
	}
	return s
}
