// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package dagcbor implements the deterministic content-addressed encoding used
// for every signed payload and content reference.
//
// Values are encoded as CBOR with map keys sorted length-first, floats kept at
// 64 bits, no indefinite lengths and content links carried as tag 42. The
// content address of a value is a CIDv1 with the dag-cbor codec over the
// sha2-256 digest of its encoding.
package dagcbor

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

const linkTag = 42

var (
	ErrUndefinedLink = errors.New("undefined link")
	ErrInvalidLink   = errors.New("invalid link")
	ErrWrongCodec    = errors.New("unexpected content codec")

	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	encOpts := cbor.CanonicalEncOptions()
	encOpts.ShortestFloat = cbor.ShortestFloatNone

	var err error
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(err)
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		DupMapKey:      cbor.DupMapKeyEnforcedAPF,
		IndefLength:    cbor.IndefLengthForbidden,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// Encode returns the canonical encoding of v.
func Encode(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Decode parses canonical bytes into v.
func Decode(b []byte, v any) error {
	return decMode.Unmarshal(b, v)
}

// Sum returns the content address of v.
func Sum(v any) (cid.Cid, error) {
	b, err := Encode(v)
	if err != nil {
		return cid.Undef, err
	}
	return SumBytes(cid.DagCBOR, b)
}

// SumBytes returns the content address of already encoded bytes under codec.
func SumBytes(codec uint64, b []byte) (cid.Cid, error) {
	mh, err := multihash.Sum(b, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(codec, mh), nil
}

// Hash returns the bytes of the content address of v. These are the bytes
// committee members sign.
func Hash(v any) ([]byte, error) {
	c, err := Sum(v)
	if err != nil {
		return nil, err
	}
	return c.Bytes(), nil
}

// ParseCID parses s and requires its codec to be one of codecs.
func ParseCID(s string, codecs ...uint64) (cid.Cid, error) {
	c, err := cid.Decode(s)
	if err != nil {
		return cid.Undef, fmt.Errorf("%w: %w", ErrInvalidLink, err)
	}
	if len(codecs) == 0 {
		return c, nil
	}
	for _, codec := range codecs {
		if c.Type() == codec {
			return c, nil
		}
	}
	return cid.Undef, fmt.Errorf("%w: 0x%x", ErrWrongCodec, c.Type())
}

// Link is a content reference embedded in an encoded value.
type Link struct {
	cid.Cid
}

// NewLink wraps c.
func NewLink(c cid.Cid) Link {
	return Link{Cid: c}
}

func (l Link) MarshalCBOR() ([]byte, error) {
	if !l.Defined() {
		return nil, ErrUndefinedLink
	}
	content := make([]byte, 1, 1+l.ByteLen())
	content = append(content, l.Bytes()...)
	return encMode.Marshal(cbor.Tag{
		Number:  linkTag,
		Content: content,
	})
}

func (l *Link) UnmarshalCBOR(b []byte) error {
	var tag cbor.RawTag
	if err := decMode.Unmarshal(b, &tag); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidLink, err)
	}
	if tag.Number != linkTag {
		return fmt.Errorf("%w: tag %d", ErrInvalidLink, tag.Number)
	}
	var content []byte
	if err := decMode.Unmarshal(tag.Content, &content); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidLink, err)
	}
	if len(content) < 2 || content[0] != 0 {
		return fmt.Errorf("%w: missing multibase identity prefix", ErrInvalidLink)
	}
	c, err := cid.Cast(content[1:])
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidLink, err)
	}
	l.Cid = c
	return nil
}
