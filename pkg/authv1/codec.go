// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package authv1

import (
	"fmt"
	"unicode/utf8"

	"github.com/samber/oops"
	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
)

// CodecName is the gRPC content-subtype the codec is registered under. It
// replaces the default protobuf codec, so plain application/grpc clients
// speak to the service unchanged.
const CodecName = "proto"

func init() {
	encoding.RegisterCodec(Codec{})
}

// wireMessage is implemented by the authv1 messages, which encode themselves
// with protowire following auth.proto.
type wireMessage interface {
	appendWire(b []byte) []byte
	unmarshalWire(b []byte) error
}

// Codec encodes authv1 messages in the protobuf binary format. Any other
// proto.Message, such as the health service's, goes through the protobuf
// runtime.
type Codec struct{}

// Marshal encodes v.
func (Codec) Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case wireMessage:
		return m.appendWire(nil), nil
	case proto.Message:
		b, err := proto.Marshal(m)
		if err != nil {
			return nil, oops.Code("CODEC_MARSHAL_FAILED").Wrap(err)
		}
		return b, nil
	default:
		return nil, oops.Code("CODEC_UNSUPPORTED_TYPE").
			With("type", fmt.Sprintf("%T", v)).
			Errorf("cannot marshal %T", v)
	}
}

// Unmarshal decodes data into v, resetting it first.
func (Codec) Unmarshal(data []byte, v any) error {
	switch m := v.(type) {
	case wireMessage:
		if err := m.unmarshalWire(data); err != nil {
			return oops.Code("CODEC_UNMARSHAL_FAILED").With("type", fmt.Sprintf("%T", v)).Wrap(err)
		}
		return nil
	case proto.Message:
		if err := proto.Unmarshal(data, m); err != nil {
			return oops.Code("CODEC_UNMARSHAL_FAILED").With("type", fmt.Sprintf("%T", v)).Wrap(err)
		}
		return nil
	default:
		return oops.Code("CODEC_UNSUPPORTED_TYPE").
			With("type", fmt.Sprintf("%T", v)).
			Errorf("cannot unmarshal into %T", v)
	}
}

// Name returns CodecName.
func (Codec) Name() string {
	return CodecName
}

// Zero values are omitted, as proto3 does for implicit-presence fields.
func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendEnum(b []byte, num protowire.Number, v StatusCode) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(int64(v)))
}

// decodeFields fills dst from b. Unknown fields are skipped.
func decodeFields(b []byte, dst fields) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		switch target := dst[num].(type) {
		case *string:
			if typ != protowire.BytesType {
				return wrongWireType(num, typ)
			}
			v, m := protowire.ConsumeString(b)
			if m < 0 {
				return oops.With("field", int32(num)).Wrap(protowire.ParseError(m))
			}
			if !utf8.ValidString(v) {
				return oops.With("field", int32(num)).Errorf("field %d contains invalid UTF-8", num)
			}
			*target = v
			n = m
		case *StatusCode:
			if typ != protowire.VarintType {
				return wrongWireType(num, typ)
			}
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return oops.With("field", int32(num)).Wrap(protowire.ParseError(m))
			}
			*target = StatusCode(int32(v)) //nolint:gosec // enums are int32 on the wire
			n = m
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return oops.With("field", int32(num)).Wrap(protowire.ParseError(n))
			}
		}
		b = b[n:]
	}
	return nil
}

func wrongWireType(num protowire.Number, typ protowire.Type) error {
	return oops.With("field", int32(num)).With("wire_type", int(typ)).
		Errorf("field %d has unexpected wire type %d", num, typ)
}
