package signal

import "github.com/sarchlab/dramctrl/dram/internal/addrmap"

// Transaction is the state associated with the processing of one read or
// write request, from submission to the completion callback.
type Transaction struct {
	ID      string
	Address uint64
	Size    uint64
	IsWrite bool

	// Data carries the bytes to write. It is nil for reads until the
	// transaction completes.
	Data []byte

	ArrivalCycle    uint64
	CompletionCycle uint64

	SubTransactions []*SubTransaction
}

// IsCompleted returns true if all the bursts of the transaction have
// finished.
func (t *Transaction) IsCompleted() bool {
	for _, st := range t.SubTransactions {
		if !st.Completed {
			return false
		}
	}

	return true
}

// A SubTransaction is a single-burst share of a transaction. Requests wider
// than one burst are split into several sub-transactions targeting the same
// bank at sequential columns.
type SubTransaction struct {
	ID          string
	Transaction *Transaction
	Location    addrmap.Location
	Address     uint64

	Issued    bool
	Completed bool
}

// IsWrite returns true if the parent transaction is a write.
func (st *SubTransaction) IsWrite() bool {
	return st.Transaction.IsWrite
}

// ArrivalCycle returns the cycle at which the parent transaction arrived.
func (st *SubTransaction) ArrivalCycle() uint64 {
	return st.Transaction.ArrivalCycle
}
