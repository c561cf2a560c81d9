package shardres

import (
	"encoding/binary"
	"fmt"

	"github.com/go-faster/city"
	"github.com/spaolacci/murmur3"
)

type HashFunctionType int

/* Pre-defined hash functions */
const (
	HashFunctionMurmur = HashFunctionType(0)
	HashFunctionCity   = HashFunctionType(1)
)

// HashFunctionByName returns the corresponding HashFunctionType based on
// the given hash function name.
func HashFunctionByName(hfn string) (HashFunctionType, error) {
	switch hfn {
	case "murmur", "":
		return HashFunctionMurmur, nil
	case "city":
		return HashFunctionCity, nil
	default:
		return 0, fmt.Errorf("unknown hash function type: %s", hfn)
	}
}

func (hf HashFunctionType) String() string {
	switch hf {
	case HashFunctionMurmur:
		return "murmur"
	case HashFunctionCity:
		return "city"
	}
	return ""
}

func EncodeUInt64(input uint64) []byte {
	const ENCODING_BYTES_BIG = binary.MaxVarintLen64
	const ENCODING_BYTES = 8
	const BOUND = 1 << 56 /* 72057594037927936 */

	sz := ENCODING_BYTES
	if input >= BOUND {
		sz = ENCODING_BYTES_BIG
	}

	buf := make([]byte, sz)
	binary.PutUvarint(buf, input)
	return buf
}

// encodeKey produces the canonical byte form of a routing key. Equal
// keys always encode identically, which makes the resolver stable
// across calls and process restarts.
func encodeKey(key any) ([]byte, error) {
	switch v := key.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	case int:
		return EncodeUInt64(uint64(v)), nil
	case int32:
		return EncodeUInt64(uint64(v)), nil
	case int64:
		return EncodeUInt64(uint64(v)), nil
	case uint32:
		return EncodeUInt64(uint64(v)), nil
	case uint64:
		return EncodeUInt64(v), nil
	case fmt.Stringer:
		return []byte(v.String()), nil
	default:
		return nil, fmt.Errorf("unknown type of value that the hash will be calculated from: %T", key)
	}
}

func applyHashFunction(buf []byte, hf HashFunctionType) (uint32, error) {
	switch hf {
	case HashFunctionMurmur:
		return murmur3.Sum32(buf), nil
	case HashFunctionCity:
		return city.Hash32(buf), nil
	default:
		return 0, fmt.Errorf("unknown hash function type: %d", hf)
	}
}
