// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package content

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/luxfi/constants"
)

const (
	DefaultTimeout = 10 * time.Second

	// MaxBlockSize is the largest block the network propagates.
	MaxBlockSize = 2 * constants.MiB
)

var _ Store = (*Kubo)(nil)

// Kubo fetches raw blocks from a kubo RPC endpoint and checks them against
// their address.
type Kubo struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
}

func NewKubo(endpoint string, timeout time.Duration) *Kubo {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Kubo{
		endpoint: strings.TrimRight(endpoint, "/"),
		timeout:  timeout,
		client:   &http.Client{},
	}
}

func (k *Kubo) Get(ctx context.Context, id cid.Cid) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	u := k.endpoint + "/api/v0/block/get?arg=" + url.QueryEscape(id.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := k.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotFound, id, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, int64(MaxBlockSize)+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotFound, id, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: status %d: %s", ErrNotFound, id, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if len(b) > MaxBlockSize {
		return nil, fmt.Errorf("%w: %s", ErrTooLarge, id)
	}
	if err := Verify(id, b); err != nil {
		return nil, err
	}
	return b, nil
}
