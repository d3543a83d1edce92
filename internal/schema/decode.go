package schema

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"tada-pipeline/internal/solana"
)

// ErrShortBuffer is returned when a layout runs past the end of the payload.
var ErrShortBuffer = fmt.Errorf("short buffer")

// DecodeEvent interprets data as [discriminator(8)][payload] and decodes the
// payload against the matching event layout. Returns the event name and the
// decoded field map. Unknown discriminators and truncated payloads are errors;
// callers treat them as per-instruction decode failures and move on.
func (s *Schema) DecodeEvent(data []byte) (string, map[string]any, error) {
	if len(data) < 8 {
		return "", nil, ErrShortBuffer
	}
	var disc [8]byte
	copy(disc[:], data[:8])
	ev, ok := s.events[disc]
	if !ok {
		return "", nil, fmt.Errorf("unknown event discriminator %x", disc)
	}
	fields, err := s.decodeFields(&reader{buf: data[8:]}, ev.Fields)
	if err != nil {
		return "", nil, fmt.Errorf("decode %s: %w", ev.Name, err)
	}
	return ev.Name, fields, nil
}

// DecodeInstructionArgs decodes an instruction's argument payload (the bytes
// after the 8-byte discriminator) against its declared layout.
func (s *Schema) DecodeInstructionArgs(in *Instruction, payload []byte) (map[string]any, error) {
	return s.decodeFields(&reader{buf: payload}, in.Args)
}

type reader struct {
	buf []byte
	off int
}

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.buf) {
		return nil, ErrShortBuffer
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (s *Schema) decodeFields(r *reader, fields []Field) (map[string]any, error) {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		v, err := s.decodeValue(r, f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		out[f.Name] = v
	}
	return out, nil
}

// decodeValue reads one value. Integers up to 32 bits surface as float64,
// 64-bit and wider as decimal strings; pubkeys and byte blobs as base58.
func (s *Schema) decodeValue(r *reader, t Type) (any, error) {
	switch t.Kind {
	case KindU8:
		b, err := r.take(1)
		if err != nil {
			return nil, err
		}
		return float64(b[0]), nil
	case KindI8:
		b, err := r.take(1)
		if err != nil {
			return nil, err
		}
		return float64(int8(b[0])), nil
	case KindU16:
		b, err := r.take(2)
		if err != nil {
			return nil, err
		}
		return float64(binary.LittleEndian.Uint16(b)), nil
	case KindI16:
		b, err := r.take(2)
		if err != nil {
			return nil, err
		}
		return float64(int16(binary.LittleEndian.Uint16(b))), nil
	case KindU32:
		b, err := r.take(4)
		if err != nil {
			return nil, err
		}
		return float64(binary.LittleEndian.Uint32(b)), nil
	case KindI32:
		b, err := r.take(4)
		if err != nil {
			return nil, err
		}
		return float64(int32(binary.LittleEndian.Uint32(b))), nil
	case KindU64:
		b, err := r.take(8)
		if err != nil {
			return nil, err
		}
		return new(big.Int).SetUint64(binary.LittleEndian.Uint64(b)).String(), nil
	case KindI64:
		b, err := r.take(8)
		if err != nil {
			return nil, err
		}
		return big.NewInt(int64(binary.LittleEndian.Uint64(b))).String(), nil
	case KindU128:
		b, err := r.take(16)
		if err != nil {
			return nil, err
		}
		return leBig(b, false).String(), nil
	case KindI128:
		b, err := r.take(16)
		if err != nil {
			return nil, err
		}
		return leBig(b, true).String(), nil
	case KindBool:
		b, err := r.take(1)
		if err != nil {
			return nil, err
		}
		return b[0] != 0, nil
	case KindPubkey:
		b, err := r.take(32)
		if err != nil {
			return nil, err
		}
		return solana.Base58(b), nil
	case KindString:
		n, err := r.takeLen()
		if err != nil {
			return nil, err
		}
		b, err := r.take(n)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	case KindBytes:
		n, err := r.takeLen()
		if err != nil {
			return nil, err
		}
		b, err := r.take(n)
		if err != nil {
			return nil, err
		}
		return solana.Base58(b), nil
	case KindVec:
		n, err := r.takeLen()
		if err != nil {
			return nil, err
		}
		vals := make([]any, 0, n)
		for i := 0; i < n; i++ {
			v, err := s.decodeValue(r, *t.Elem)
			if err != nil {
				return nil, err
			}
			vals = append(vals, v)
		}
		return vals, nil
	case KindOption:
		tag, err := r.take(1)
		if err != nil {
			return nil, err
		}
		if tag[0] == 0 {
			return nil, nil
		}
		return s.decodeValue(r, *t.Elem)
	case KindArray:
		vals := make([]any, 0, t.Len)
		for i := 0; i < t.Len; i++ {
			v, err := s.decodeValue(r, *t.Elem)
			if err != nil {
				return nil, err
			}
			vals = append(vals, v)
		}
		return vals, nil
	case KindDefined:
		def, ok := s.types[t.Defined]
		if !ok {
			return nil, fmt.Errorf("undefined type %s", t.Defined)
		}
		return s.decodeFields(r, def.Fields)
	default:
		return nil, fmt.Errorf("unsupported kind %d", t.Kind)
	}
}

func (r *reader) takeLen() (int, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	n := binary.LittleEndian.Uint32(b)
	if int(n) > len(r.buf)-r.off {
		return 0, ErrShortBuffer
	}
	return int(n), nil
}

// leBig interprets little-endian bytes as a big integer, two's complement
// when signed.
func leBig(b []byte, signed bool) *big.Int {
	be := make([]byte, len(b))
	for i := range b {
		be[len(b)-1-i] = b[i]
	}
	v := new(big.Int).SetBytes(be)
	if signed && len(b) > 0 && b[len(b)-1]&0x80 != 0 {
		max := new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8))
		v.Sub(v, max)
	}
	return v
}
