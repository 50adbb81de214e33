package output

import (
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
)

// Bundle is the whole analysis of one container in a single document.
type Bundle struct {
	File      string           `cbor:"file"`
	Size      int              `cbor:"size"`
	Entries   int              `cbor:"entries"`
	Functions []FuncRecord     `cbor:"functions"`
	Loops     []LoopRecord     `cbor:"loops"`
	Calls     []CallEdgeRecord `cbor:"calls"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("output: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// WriteCBOR writes b to path with canonical encoding, so identical analyses
// produce identical files.
func WriteCBOR(path string, b *Bundle) error {
	data, err := cborEncMode.Marshal(b)
	if err != nil {
		return fmt.Errorf("output: marshal %s: %w", path, err)
	}
	return os.WriteFile(path, data, 0644)
}

// ReadCBOR loads a bundle written by WriteCBOR.
func ReadCBOR(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("output: read %s: %w", path, err)
	}
	var b Bundle
	if err := cbor.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("output: unmarshal %s: %w", path, err)
	}
	return &b, nil
}
