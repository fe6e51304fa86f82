// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/metric"

	"github.com/luxfi/l2index/classifier"
)

func TestNew(t *testing.T) {
	require := require.New(t)

	registry := metric.NewRegistry()
	m, err := New(registry)
	require.NoError(err)
	require.NotNil(m)

	m.MarkOperation(&classifier.Operation{Kind: classifier.ProposeBlock}, Accepted)
	m.MarkOperation(&classifier.Operation{Kind: classifier.ProposeBlock}, Rejected)
	m.MarkBatch(time.Second, 12)
	m.SetImportedHeight(100)
}
