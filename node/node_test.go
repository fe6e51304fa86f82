// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package node

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/luxfi/crypto/bls/signer/localsigner"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"

	"github.com/luxfi/l2index/classifier"
	"github.com/luxfi/l2index/config"
	"github.com/luxfi/l2index/crypto/blsdid"
	"github.com/luxfi/l2index/haf/hafmock"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	c := config.Default
	c.Params.StartHeight = 100
	c.Params.BLSHeight = 100
	c.Params.MultisigAccount = "vsc.gateway"
	c.ImportBatchSize = 100
	c.PollInterval = time.Millisecond
	for _, account := range []string{"alice", "bob"} {
		sk, err := localsigner.New()
		require.NoError(t, err)
		c.Genesis = append(c.Genesis, config.Member{
			Account: account,
			DID:     blsdid.Format(sk.PublicKey()),
		})
	}
	return &c
}

func TestNew(t *testing.T) {
	require := require.New(t)

	n, err := New(log.NewNoOpLogger(), testConfig(t), memdb.New(), nil, metric.NewRegistry())
	require.NoError(err)
	require.Nil(n.Importer)

	c, err := n.State.CommitteeAt(context.Background(), 100)
	require.NoError(err)
	require.Len(c.Members, 2)
}

func TestNewInvalidGenesis(t *testing.T) {
	c := testConfig(t)
	c.Genesis[0].DID = "did:key:invalid"

	_, err := New(log.NewNoOpLogger(), c, memdb.New(), nil, metric.NewRegistry())
	require.ErrorIs(t, err, blsdid.ErrInvalidDID)
}

func TestRun(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)

	deposit := []byte(`{"type":"transfer_operation","value":{"from":"alice","to":"vsc.gateway","amount":{"amount":"1000","precision":3,"nai":"@@000000021"},"memo":""}}`)
	source := hafmock.NewSource(ctrl)
	source.EXPECT().Head(gomock.Any()).Return(uint64(150), nil).AnyTimes()
	source.EXPECT().Operations(gomock.Any(), uint64(100), uint64(150)).Return([]classifier.RawOperation{
		{
			ID:        1,
			L1Height:  120,
			TrxID:     fmt.Sprintf("%040x", 1),
			Timestamp: time.Unix(1_700_000_000, 0).UTC(),
			Body:      deposit,
		},
	}, nil)
	source.EXPECT().BlockIDs(gomock.Any(), uint64(100), uint64(150)).Return(nil, nil)
	source.EXPECT().Accounts(gomock.Any(), uint64(0), uint64(150)).Return([]string{"alice"}, nil)

	db := memdb.New()
	n, err := New(log.NewNoOpLogger(), testConfig(t), db, source, metric.NewRegistry())
	require.NoError(err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- n.Run(ctx)
	}()

	require.Eventually(func() bool {
		height, err := n.L1.ImportedHeight()
		return err == nil && height == 150
	}, 5*time.Second, time.Millisecond)
	cancel()
	require.NoError(<-done)
}
