// Package addrmap decodes linear byte addresses into DRAM locations.
package addrmap

import "fmt"

// AddrMap selects the order in which the location fields are packed into an
// address, from MSB to LSB. Ro, Ra, Ba, Ch and Co denote row, rank, bank,
// channel and column. RoRaBaChCo and RoRaBaCoCh suit open-page policies,
// keeping sequential accesses in the same row. RoCoRaBaCh maximizes bank
// parallelism and suits closed-page policies.
type AddrMap int

// Supported address mapping orders.
const (
	RoRaBaChCo AddrMap = iota
	RoRaBaCoCh
	RoCoRaBaCh
)

func (m AddrMap) String() string {
	switch m {
	case RoRaBaChCo:
		return "RoRaBaChCo"
	case RoRaBaCoCh:
		return "RoRaBaCoCh"
	case RoCoRaBaCh:
		return "RoCoRaBaCh"
	}

	return "unknown"
}

// A Location is the DRAM coordinate that an address decodes to.
type Location struct {
	Channel   uint64
	Rank      uint64
	BankGroup uint64
	Bank      uint64
	Row       uint64
	Column    uint64
}

// SameBank returns true if the two locations name the same bank.
func (l Location) SameBank(o Location) bool {
	return l.Rank == o.Rank && l.BankGroup == o.BankGroup && l.Bank == o.Bank
}

// InvalidAddressError reports an address that does not decode to the channel
// owned by this controller instance. It indicates a configuration or routing
// bug in the system composing multiple channels, not a recoverable condition.
type InvalidAddressError struct {
	Address uint64
	Decoded uint64
	Owned   uint64
}

func (e *InvalidAddressError) Error() string {
	return fmt.Sprintf(
		"address 0x%x decodes to channel %d, controller owns channel %d",
		e.Address, e.Decoded, e.Owned)
}

// OutOfRangeError reports an address beyond the capacity that the configured
// geometry can decode.
type OutOfRangeError struct {
	Address  uint64
	Capacity uint64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf(
		"address 0x%x is beyond the 0x%x-byte device capacity",
		e.Address, e.Capacity)
}

// A Mapper converts between addresses and locations.
type Mapper interface {
	// Map decodes an address. It fails with *OutOfRangeError if the address
	// does not fit the geometry, and with *InvalidAddressError if it belongs
	// to a different channel.
	Map(addr uint64) (Location, error)

	// Reconstruct is the inverse of Map. Addresses within the same burst
	// reconstruct to the burst-aligned address.
	Reconstruct(loc Location) uint64
}

// MapperImpl decodes addresses by extracting contiguous bit fields in the
// configured order. All field widths must be powers of two.
type MapperImpl struct {
	Order AddrMap

	BurstBits   uint64
	ChannelBits uint64
	RankBits    uint64
	BankBits    uint64
	RowBits     uint64
	ColBits     uint64

	NumBankGroup uint64
	OwnedChannel uint64
}

// Map decodes an address into a Location.
func (m *MapperImpl) Map(addr uint64) (Location, error) {
	if addr>>m.totalBits() != 0 {
		return Location{}, &OutOfRangeError{
			Address:  addr,
			Capacity: 1 << m.totalBits(),
		}
	}

	bits := addr >> m.BurstBits
	loc := Location{}

	// Fields are packed MSB to LSB, so extraction walks the order in
	// reverse.
	for _, f := range m.lsbOrder() {
		switch f {
		case 'C':
			loc.Column = bits & mask(m.ColBits)
			bits >>= m.ColBits
		case 'H':
			loc.Channel = bits & mask(m.ChannelBits)
			bits >>= m.ChannelBits
		case 'B':
			loc.Bank = bits & mask(m.BankBits)
			bits >>= m.BankBits
		case 'A':
			loc.Rank = bits & mask(m.RankBits)
			bits >>= m.RankBits
		case 'R':
			loc.Row = bits & mask(m.RowBits)
			bits >>= m.RowBits
		}
	}

	if loc.Channel != m.OwnedChannel {
		return Location{}, &InvalidAddressError{
			Address: addr,
			Decoded: loc.Channel,
			Owned:   m.OwnedChannel,
		}
	}

	m.splitBankGroup(&loc)

	return loc, nil
}

// Reconstruct packs a Location back into a burst-aligned address.
func (m *MapperImpl) Reconstruct(loc Location) uint64 {
	bank := loc.Bank
	if m.NumBankGroup > 0 {
		bank = loc.BankGroup*(numBanks(m.BankBits)/m.NumBankGroup) + loc.Bank
	}

	addr := uint64(0)
	fields := m.lsbOrder()

	for i := len(fields) - 1; i >= 0; i-- {
		switch fields[i] {
		case 'C':
			addr = addr<<m.ColBits | loc.Column
		case 'H':
			addr = addr<<m.ChannelBits | loc.Channel
		case 'B':
			addr = addr<<m.BankBits | bank
		case 'A':
			addr = addr<<m.RankBits | loc.Rank
		case 'R':
			addr = addr<<m.RowBits | loc.Row
		}
	}

	return addr << m.BurstBits
}

// lsbOrder returns the field order from LSB to MSB. 'C' is column, 'H' is
// channel, 'B' is bank, 'A' is rank, 'R' is row.
func (m *MapperImpl) lsbOrder() string {
	switch m.Order {
	case RoRaBaChCo:
		return "CHBAR"
	case RoRaBaCoCh:
		return "HCBAR"
	case RoCoRaBaCh:
		return "HBACR"
	}

	panic("unknown address mapping order")
}

// splitBankGroup carves the bank group out of the high bits of the bank
// field. With no bank group architecture the group is always 0.
func (m *MapperImpl) splitBankGroup(loc *Location) {
	if m.NumBankGroup == 0 {
		loc.BankGroup = 0
		return
	}

	banksPerGroup := numBanks(m.BankBits) / m.NumBankGroup
	loc.BankGroup = loc.Bank / banksPerGroup
	loc.Bank = loc.Bank % banksPerGroup
}

// totalBits is the number of address bits the geometry decodes. Any higher
// bit set means the address is past the end of the device.
func (m *MapperImpl) totalBits() uint64 {
	return m.BurstBits + m.ChannelBits + m.RankBits +
		m.BankBits + m.RowBits + m.ColBits
}

func mask(bits uint64) uint64 {
	return (1 << bits) - 1
}

func numBanks(bankBits uint64) uint64 {
	return 1 << bankBits
}
