package utils

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SixID is a 6-byte identifier rendered as 10 characters of Crockford
// Base32. It is stored in MongoDB as BinData with custom subtype 0x80.
type SixID [6]byte

// sixIDSubtype is the custom BSON binary subtype used for SixID values.
const sixIDSubtype = 0x80

// Crockford Base32 alphabet (uppercase, no I, L, O, U).
const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var crockfordValues map[byte]byte

func init() {
	crockfordValues = make(map[byte]byte, 64)
	for i := 0; i < len(crockford); i++ {
		crockfordValues[crockford[i]] = byte(i)
	}
	lower := strings.ToLower(crockford)
	for i := 10; i < len(lower); i++ {
		crockfordValues[lower[i]] = byte(i)
	}
	// Commonly confused characters decode leniently.
	crockfordValues['o'] = crockfordValues['0']
	crockfordValues['O'] = crockfordValues['0']
	crockfordValues['i'] = crockfordValues['1']
	crockfordValues['l'] = crockfordValues['1']
}

// NewSixID returns a new random SixID.
func NewSixID() SixID {
	var id SixID
	if _, err := rand.Read(id[:]); err != nil {
		// crypto/rand never fails on supported platforms; a zero ID is
		// still a valid (if degenerate) value.
		return SixID{}
	}
	return id
}

// IsZero reports whether the ID is the zero value.
func (u SixID) IsZero() bool {
	return u == SixID{}
}

// String encodes the 48 bits of the ID as 10 Crockford Base32 characters.
func (u SixID) String() string {
	out := make([]byte, 0, 10)
	var acc uint64
	var nbits uint
	for _, b := range u {
		acc |= uint64(b) << nbits
		nbits += 8
		for nbits >= 5 {
			out = append(out, crockford[acc&0x1F])
			acc >>= 5
			nbits -= 5
		}
	}
	if nbits > 0 {
		out = append(out, crockford[acc&0x1F])
	}
	return string(out)
}

// ParseSixID decodes a Crockford Base32 string into a SixID. Hyphens and
// spaces are ignored. The empty string parses to the zero ID.
func ParseSixID(s string) (SixID, error) {
	if s == "" {
		return SixID{}, nil
	}
	s = strings.NewReplacer("-", "", " ", "").Replace(s)
	if len(s) != 10 {
		return SixID{}, errors.New("sixid: encoded form must be 10 characters")
	}

	var id SixID
	var acc uint64
	var nbits uint
	n := 0
	for i := 0; i < len(s); i++ {
		v, ok := crockfordValues[s[i]]
		if !ok {
			return SixID{}, errors.New("sixid: invalid Base32 character")
		}
		acc |= uint64(v) << nbits
		nbits += 5
		for nbits >= 8 && n < len(id) {
			id[n] = byte(acc & 0xFF)
			n++
			acc >>= 8
			nbits -= 8
		}
	}
	if n != len(id) {
		return SixID{}, errors.New("sixid: truncated value")
	}
	return id, nil
}

// MarshalBSONValue implements bson.ValueMarshaler.
func (u SixID) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(primitive.Binary{Subtype: sixIDSubtype, Data: u[:]})
}

// UnmarshalBSONValue implements bson.ValueUnmarshaler.
func (u *SixID) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	if t == bson.TypeNull {
		*u = SixID{}
		return nil
	}
	var bin primitive.Binary
	raw := bson.RawValue{Type: t, Value: data}
	if err := raw.Unmarshal(&bin); err != nil {
		return errors.New("sixid: expected BSON binary value")
	}
	if bin.Subtype != sixIDSubtype || len(bin.Data) != 6 {
		return errors.New("sixid: invalid binary subtype or length")
	}
	copy(u[:], bin.Data)
	return nil
}

// MarshalJSON renders the ID as its Crockford Base32 string.
func (u SixID) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

// UnmarshalJSON parses the ID from its Crockford Base32 string.
func (u *SixID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := ParseSixID(s)
	if err != nil {
		return err
	}
	*u = id
	return nil
}
