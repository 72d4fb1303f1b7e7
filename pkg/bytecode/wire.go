package bytecode

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses canonical mode so equal fragments encode to equal bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalFragment serializes a Fragment to CBOR bytes.
func MarshalFragment(f *Fragment) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("bytecode: marshal fragment: %w", err)
	}
	return cborEncMode.Marshal(f)
}

// UnmarshalFragment deserializes a Fragment from CBOR bytes and validates it,
// so a decoded fragment is always safe to merge.
func UnmarshalFragment(data []byte) (*Fragment, error) {
	var f Fragment
	if err := cbor.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal fragment: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal fragment: %w", err)
	}
	return &f, nil
}
