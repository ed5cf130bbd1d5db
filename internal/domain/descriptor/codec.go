package descriptor

import (
	"encoding/base64"
	"encoding/binary"

	"github.com/turtacn/molfp/pkg/errors"
)

// FailedToken is the encoded form of a failed descriptor.
const FailedToken = "Failed"

var encoding = base64.RawStdEncoding

// EncodeBitVector renders v as unpadded base64 of its big-endian words. The
// null vector encodes to "" and the failed sentinel to FailedToken.
func EncodeBitVector(v *BitVector) string {
	switch {
	case v == nil:
		return ""
	case v.IsFailed():
		return FailedToken
	}
	words := v.Words()
	raw := make([]byte, 0, 8*len(words))
	for _, w := range words {
		raw = binary.BigEndian.AppendUint64(raw, w)
	}
	return encoding.EncodeToString(raw)
}

// DecodeBitVector is the inverse of EncodeBitVector.
func DecodeBitVector(s string) (*BitVector, error) {
	switch s {
	case "":
		return nil, nil
	case FailedToken:
		return FailedBitVector, nil
	}
	raw, err := encoding.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDescriptorDecodeFailed, "bit vector is not valid base64")
	}
	if len(raw) == 0 || len(raw)%8 != 0 {
		return nil, errors.Newf(errors.ErrCodeDescriptorDecodeFailed, "bit vector payload of %d bytes is not a whole number of words", len(raw))
	}
	words := make([]uint64, len(raw)/8)
	for i := range words {
		words[i] = binary.BigEndian.Uint64(raw[8*i:])
	}
	return BitVectorFromWords(words), nil
}

// EncodeBitVectorBytes is EncodeBitVector as bytes; null stays nil.
func EncodeBitVectorBytes(v *BitVector) []byte {
	if v == nil {
		return nil
	}
	return []byte(EncodeBitVector(v))
}

// DecodeBitVectorBytes is the inverse of EncodeBitVectorBytes.
func DecodeBitVectorBytes(b []byte) (*BitVector, error) {
	return DecodeBitVector(string(b))
}

// EncodeFunctionalGroups renders fg as unpadded base64 of a big-endian int32
// pair count followed by the (label, count) pairs. The count keeps an empty
// list distinct from the null descriptor.
func EncodeFunctionalGroups(fg FunctionalGroups) string {
	switch {
	case fg == nil:
		return ""
	case fg.IsFailed():
		return FailedToken
	}
	raw := make([]byte, 0, 4+8*len(fg))
	raw = binary.BigEndian.AppendUint32(raw, uint32(len(fg)))
	for _, g := range fg {
		raw = binary.BigEndian.AppendUint32(raw, uint32(g.Label))
		raw = binary.BigEndian.AppendUint32(raw, uint32(g.Count))
	}
	return encoding.EncodeToString(raw)
}

// DecodeFunctionalGroups is the inverse of EncodeFunctionalGroups.
func DecodeFunctionalGroups(s string) (FunctionalGroups, error) {
	switch s {
	case "":
		return nil, nil
	case FailedToken:
		return FailedFunctionalGroups, nil
	}
	raw, err := encoding.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDescriptorDecodeFailed, "functional groups are not valid base64")
	}
	if len(raw) < 4 {
		return nil, errors.New(errors.ErrCodeDescriptorDecodeFailed, "functional group payload is truncated")
	}
	n := int(binary.BigEndian.Uint32(raw))
	if len(raw) != 4+8*n {
		return nil, errors.Newf(errors.ErrCodeDescriptorDecodeFailed, "functional group payload of %d bytes does not hold %d pairs", len(raw), n)
	}
	out := make(FunctionalGroups, n)
	for i := range out {
		off := 4 + 8*i
		out[i] = GroupCount{
			Label: int32(binary.BigEndian.Uint32(raw[off:])),
			Count: int32(binary.BigEndian.Uint32(raw[off+4:])),
		}
	}
	return out, nil
}

// EncodeFunctionalGroupsBytes is EncodeFunctionalGroups as bytes; null stays nil.
func EncodeFunctionalGroupsBytes(fg FunctionalGroups) []byte {
	if fg == nil {
		return nil
	}
	return []byte(EncodeFunctionalGroups(fg))
}

// DecodeFunctionalGroupsBytes is the inverse of EncodeFunctionalGroupsBytes.
func DecodeFunctionalGroupsBytes(b []byte) (FunctionalGroups, error) {
	return DecodeFunctionalGroups(string(b))
}

// BitVectorCalculationFailed is true for the null and the failed vector.
func BitVectorCalculationFailed(v *BitVector) bool {
	return v == nil || v.IsFailed()
}

// FunctionalGroupsCalculationFailed is true for the null list and the
// sentinel pair.
func FunctionalGroupsCalculationFailed(fg FunctionalGroups) bool {
	return fg == nil || fg.IsFailed()
}

//Personal.AI order the ending
