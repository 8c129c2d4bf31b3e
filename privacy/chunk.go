package privacy

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ChunkLength is the width of a private args chunk in hex characters.
const ChunkLength = 64

// privateSetOffset is the reserved first word written by EncodePrivateSet.
const privateSetOffset = 0x20

// HexChunks splits s into n-character chunks. The last chunk is shorter when
// len(s) is not a multiple of n.
func HexChunks(s string, n int) []string {
	chunks := make([]string, 0, (len(s)+n-1)/n)
	for i := 0; i < len(s); i += n {
		end := i + n
		if end > len(s) {
			end = len(s)
		}
		chunks = append(chunks, s[i:end])
	}
	return chunks
}

// DecodePrivateSet extracts the private set from a private args blob.
//
// The blob is read as a sequence of 64 hex character chunks. Chunk 0 is
// ignored, chunk 1 holds the number N of set chunks written as decimal digits
// and chunks 2..2+N are the set itself.
func DecodePrivateSet(args []byte) ([]byte, error) {
	chunks := HexChunks(strings.TrimPrefix(hexutil.Encode(args), "0x"), ChunkLength)
	if len(chunks) < 2 {
		return nil, fmt.Errorf("%w: %d chunks, want at least 2", ErrMalformedPrivateArgs, len(chunks))
	}
	n, err := strconv.ParseUint(chunks[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid set length %q", ErrMalformedPrivateArgs, chunks[1])
	}
	if uint64(len(chunks)-2) < n {
		return nil, fmt.Errorf("%w: set length %d exceeds %d available chunks", ErrMalformedPrivateArgs, n, len(chunks)-2)
	}
	set, err := hexutil.Decode("0x" + strings.Join(chunks[2:2+n], ""))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPrivateArgs, err)
	}
	return set, nil
}

// EncodePrivateSet builds a private args blob that DecodePrivateSet maps back
// to set.
func EncodePrivateSet(set []byte) []byte {
	n := (len(set) + ChunkLength/2 - 1) / (ChunkLength / 2)
	count := fmt.Sprintf("%0*d", ChunkLength, n)

	out := make([]byte, 0, ChunkLength+len(set))
	out = append(out, make([]byte, ChunkLength/2-1)...)
	out = append(out, privateSetOffset)
	out = append(out, decimalWord(count)...)
	return append(out, set...)
}

// decimalWord reinterprets a string of decimal digits as hex text.
func decimalWord(digits string) []byte {
	b, err := hex.DecodeString(digits)
	if err != nil {
		panic(fmt.Sprintf("decimal count %q is not valid hex: %v", digits, err))
	}
	return b
}

// Blind returns an all-zero byte string of the same length as args.
func Blind(args []byte) []byte {
	return make([]byte, len(args))
}
