package message

import (
	"fmt"

	"github.com/h5kit/hdf5/internal/binary"
)

// SymbolTable is the symbol table message (type 0x0011) found in
// version 1 group headers. It points at the B-tree and local heap that
// together hold the group's members.
type SymbolTable struct {
	BTreeAddress     uint64
	LocalHeapAddress uint64
}

func (m *SymbolTable) Type() Type { return TypeSymbolTable }

func parseSymbolTable(data []byte, r *binary.Reader) (*SymbolTable, error) {
	offsetSize := r.OffsetSize()
	if len(data) < 2*offsetSize {
		return nil, fmt.Errorf("symbol table message too short")
	}

	return &SymbolTable{
		BTreeAddress:     binary.DecodeUint(data[:offsetSize]),
		LocalHeapAddress: binary.DecodeUint(data[offsetSize : 2*offsetSize]),
	}, nil
}
