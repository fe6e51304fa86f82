// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package protocol

import (
	"fmt"
	"strings"
)

// Asset is an L1 token unit bridged to L2.
type Asset uint8

const (
	HIVE Asset = iota
	HBD
)

const (
	hiveNAI = "@@000000021"
	hbdNAI  = "@@000000013"
)

// AssetFromNAI resolves an L1 numeric asset identifier.
func AssetFromNAI(nai string) (Asset, bool) {
	switch nai {
	case hiveNAI:
		return HIVE, true
	case hbdNAI:
		return HBD, true
	default:
		return 0, false
	}
}

// AssetFromSymbol resolves a case insensitive token symbol.
func AssetFromSymbol(symbol string) (Asset, bool) {
	switch strings.ToLower(symbol) {
	case "hive":
		return HIVE, true
	case "hbd":
		return HBD, true
	default:
		return 0, false
	}
}

func (a Asset) String() string {
	switch a {
	case HIVE:
		return "HIVE"
	case HBD:
		return "HBD"
	default:
		return fmt.Sprintf("asset(%d)", uint8(a))
	}
}
