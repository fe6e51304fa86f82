// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package classifier

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

// payloadJSON matches object keys exactly. L1 payloads are consensus input,
// so "Ref_Id" must not satisfy a "ref_id" field.
var payloadJSON = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	CaseSensitive:          true,
}.Froze()

func decode(raw []byte, v any) error {
	if err := payloadJSON.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %w", errMalformed, err)
	}
	return nil
}
