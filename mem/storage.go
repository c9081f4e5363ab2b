// Package mem provides the byte-addressable backing store that holds the
// data behind a memory controller. The controller models timing only; all
// data lives here.
package mem

import "errors"

// Common capacity units in bytes.
const (
	KB uint64 = 1 << 10
	MB uint64 = 1 << 20
	GB uint64 = 1 << 30
)

// A Storage keeps the data of the simulated memory.
//
// The storage is managed in units. Units that are never touched by Read or
// Write are not allocated, so a large storage can be created cheaply.
type Storage struct {
	unitSize uint64
	capacity uint64
	data     map[uint64][]byte
}

// NewStorage creates a storage object with the specified capacity.
func NewStorage(capacity uint64) *Storage {
	storage := new(Storage)

	storage.unitSize = 4096
	storage.capacity = capacity
	storage.data = make(map[uint64][]byte)

	return storage
}

// Capacity returns the number of bytes that the storage can hold.
func (s *Storage) Capacity() uint64 {
	return s.capacity
}

func (s *Storage) unit(address uint64) ([]byte, error) {
	if address >= s.capacity {
		return nil, errors.New("accessing address beyond storage capacity")
	}

	baseAddr := address - address%s.unitSize
	unit, ok := s.data[baseAddr]
	if !ok {
		unit = make([]byte, s.unitSize)
		s.data[baseAddr] = unit
	}

	return unit, nil
}

// Read returns n bytes starting at the given address.
func (s *Storage) Read(address, n uint64) ([]byte, error) {
	res := make([]byte, n)
	currAddr := address
	offset := uint64(0)

	for currAddr < address+n {
		unit, err := s.unit(currAddr)
		if err != nil {
			return nil, err
		}

		inUnitAddr := currAddr % s.unitSize
		toRead := s.unitSize - inUnitAddr
		if n-offset < toRead {
			toRead = n - offset
		}

		copy(res[offset:offset+toRead], unit[inUnitAddr:inUnitAddr+toRead])
		offset += toRead
		currAddr += toRead
	}

	return res, nil
}

// Write stores the given bytes starting at the given address.
func (s *Storage) Write(address uint64, data []byte) error {
	currAddr := address
	offset := uint64(0)

	for offset < uint64(len(data)) {
		unit, err := s.unit(currAddr)
		if err != nil {
			return err
		}

		inUnitAddr := currAddr % s.unitSize
		toWrite := s.unitSize - inUnitAddr
		if uint64(len(data))-offset < toWrite {
			toWrite = uint64(len(data)) - offset
		}

		copy(unit[inUnitAddr:inUnitAddr+toWrite],
			data[offset:offset+toWrite])
		offset += toWrite
		currAddr += toWrite
	}

	return nil
}
