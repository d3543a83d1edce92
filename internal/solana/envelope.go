package solana

// TransactionEnvelope is the normalized view of a streamed transaction update.
// It mirrors the shape of the upstream subscription payload: the stream client
// (an external collaborator) fills it and hands it to the decoder registry.
// Decoders only ever read from it.
type TransactionEnvelope struct {
	Signature []byte
	Slot      uint64
	BlockTime int64

	// AccountKeys is the fee-payer-first static key list from the message.
	AccountKeys [][]byte
	// LoadedWritable and LoadedReadonly are addresses resolved from address
	// lookup tables, in resolution order.
	LoadedWritable [][]byte
	LoadedReadonly [][]byte

	Instructions      []CompiledInstruction
	InnerInstructions []InnerInstructionGroup

	LogMessages []string

	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
}

// CompiledInstruction is one instruction as carried in the transaction message,
// with account references compiled to indices into the full key list.
type CompiledInstruction struct {
	ProgramIDIndex uint32
	Accounts       []byte
	Data           []byte
}

// InnerInstructionGroup holds the inner instructions emitted while executing
// the outer instruction at Index.
type InnerInstructionGroup struct {
	Index        uint32
	Instructions []CompiledInstruction
}

// TokenBalance is a pre/post token balance entry from transaction meta.
type TokenBalance struct {
	AccountIndex uint32
	Mint         string
	Owner        string
	Amount       string
	Decimals     uint32
}

// AllAccountKeys returns the full account key list in canonical order:
// static keys, then lookup-table writable, then lookup-table readonly.
func (e *TransactionEnvelope) AllAccountKeys() [][]byte {
	keys := make([][]byte, 0, len(e.AccountKeys)+len(e.LoadedWritable)+len(e.LoadedReadonly))
	keys = append(keys, e.AccountKeys...)
	keys = append(keys, e.LoadedWritable...)
	keys = append(keys, e.LoadedReadonly...)
	return keys
}

// AccountKeyAt returns the base58 address at index i of the full key list,
// or "" if out of range.
func (e *TransactionEnvelope) AccountKeyAt(i int) string {
	keys := e.AllAccountKeys()
	if i < 0 || i >= len(keys) {
		return ""
	}
	return Base58(keys[i])
}

// FeePayer returns the base58 address of the first account key (the fee payer).
func (e *TransactionEnvelope) FeePayer() string {
	if len(e.AccountKeys) == 0 {
		return ""
	}
	return Base58(e.AccountKeys[0])
}
