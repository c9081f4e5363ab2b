package addrmap

import "fmt"

// Builder can build address mappers.
type Builder struct {
	order        AddrMap
	busWidth     int
	burstLength  int
	numChannel   int
	channelID    int
	numRank      int
	numBankGroup int
	numBank      int
	numRow       int
	numCol       int
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		order:       RoRaBaChCo,
		busWidth:    64,
		burstLength: 8,
		numChannel:  1,
		numRank:     2,
		numBank:     8,
		numRow:      32768,
		numCol:      1024,
	}
}

// WithOrder sets the address mapping order.
func (b Builder) WithOrder(order AddrMap) Builder {
	b.order = order
	return b
}

// WithBusWidth sets the data bus width in bits.
func (b Builder) WithBusWidth(n int) Builder {
	b.busWidth = n
	return b
}

// WithBurstLength sets the burst length in beats.
func (b Builder) WithBurstLength(n int) Builder {
	b.burstLength = n
	return b
}

// WithNumChannel sets the total number of channels in the system.
func (b Builder) WithNumChannel(n int) Builder {
	b.numChannel = n
	return b
}

// WithChannelID sets the channel that this controller instance owns.
func (b Builder) WithChannelID(n int) Builder {
	b.channelID = n
	return b
}

// WithNumRank sets the number of ranks per channel.
func (b Builder) WithNumRank(n int) Builder {
	b.numRank = n
	return b
}

// WithNumBankGroup sets the number of bank groups per rank. Zero disables
// the bank group architecture.
func (b Builder) WithNumBankGroup(n int) Builder {
	b.numBankGroup = n
	return b
}

// WithNumBank sets the total number of banks per rank.
func (b Builder) WithNumBank(n int) Builder {
	b.numBank = n
	return b
}

// WithNumRow sets the number of rows per bank.
func (b Builder) WithNumRow(n int) Builder {
	b.numRow = n
	return b
}

// WithNumCol sets the number of columns per row.
func (b Builder) WithNumCol(n int) Builder {
	b.numCol = n
	return b
}

// Build creates the mapper.
func (b Builder) Build() *MapperImpl {
	burstBytes := b.busWidth / 8 * b.burstLength

	m := &MapperImpl{
		Order:        b.order,
		BurstBits:    mustLog2("burst size", uint64(burstBytes)),
		ChannelBits:  mustLog2("channel count", uint64(b.numChannel)),
		RankBits:     mustLog2("rank count", uint64(b.numRank)),
		BankBits:     mustLog2("bank count", uint64(b.numBank)),
		RowBits:      mustLog2("row count", uint64(b.numRow)),
		NumBankGroup: uint64(b.numBankGroup),
		OwnedChannel: uint64(b.channelID),
	}

	// The low-order column bits address beats within one burst and are
	// covered by the burst offset.
	colBits := mustLog2("column count", uint64(b.numCol))
	burstCols := mustLog2("burst length", uint64(b.burstLength))
	if colBits < burstCols {
		panic("row buffer smaller than one burst")
	}
	m.ColBits = colBits - burstCols

	return m
}

func mustLog2(what string, n uint64) uint64 {
	if n == 0 {
		panic(what + " cannot be 0")
	}

	pos := uint64(0)
	count := 0
	for i := uint64(0); i < 64; i++ {
		if n&(1<<i) > 0 {
			pos = i
			count++
		}
	}

	if count != 1 {
		panic(fmt.Sprintf("%s must be a power of 2, got %d", what, n))
	}

	return pos
}
