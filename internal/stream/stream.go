package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"

	"tada-pipeline/internal/solana"
)

// Handler receives each streamed transaction envelope.
type Handler func(*solana.TransactionEnvelope)

// Source is the upstream transaction feed. The production source is the
// external gRPC subscription client, which adapts its update type into
// TransactionEnvelope and invokes the handler; this package only defines the
// boundary and a reader-backed source for development.
type Source interface {
	Run(ctx context.Context, handle Handler) error
}

// envelopeJSON is the wire shape accepted by the reader source, one JSON
// object per line. Byte fields are base58 strings.
type envelopeJSON struct {
	Signature      string   `json:"signature"`
	Slot           uint64   `json:"slot"`
	BlockTime      int64    `json:"blockTime"`
	AccountKeys    []string `json:"accountKeys"`
	LoadedWritable []string `json:"loadedWritable,omitempty"`
	LoadedReadonly []string `json:"loadedReadonly,omitempty"`

	Instructions []instructionJSON `json:"instructions"`
	Inner        []innerGroupJSON  `json:"innerInstructions,omitempty"`
	LogMessages  []string          `json:"logMessages,omitempty"`

	PostTokenBalances []tokenBalanceJSON `json:"postTokenBalances,omitempty"`
	PreTokenBalances  []tokenBalanceJSON `json:"preTokenBalances,omitempty"`
}

type instructionJSON struct {
	ProgramIDIndex uint32 `json:"programIdIndex"`
	Accounts       []int  `json:"accounts"`
	Data           string `json:"data"` // base58
}

type innerGroupJSON struct {
	Index        uint32            `json:"index"`
	Instructions []instructionJSON `json:"instructions"`
}

type tokenBalanceJSON struct {
	AccountIndex uint32 `json:"accountIndex"`
	Mint         string `json:"mint"`
	Owner        string `json:"owner"`
	Amount       string `json:"amount"`
	Decimals     uint32 `json:"decimals"`
}

// ReaderSource feeds line-delimited envelope JSON from an io.Reader. Used to
// drive the runtime from a file or a pipe during development.
type ReaderSource struct {
	r io.Reader
}

func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{r: r}
}

func (s *ReaderSource) Run(ctx context.Context, handle Handler) error {
	scanner := bufio.NewScanner(s.r)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		env, err := parseEnvelope(line)
		if err != nil {
			log.Printf("[stream] skipping malformed envelope: %v", err)
			continue
		}
		handle(env)
	}
	return scanner.Err()
}

func parseEnvelope(line []byte) (*solana.TransactionEnvelope, error) {
	var raw envelopeJSON
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}

	env := &solana.TransactionEnvelope{
		Slot:        raw.Slot,
		BlockTime:   raw.BlockTime,
		LogMessages: raw.LogMessages,
	}

	var err error
	if env.Signature, err = solana.DecodeBase58(raw.Signature); err != nil {
		return nil, fmt.Errorf("signature: %w", err)
	}
	if env.AccountKeys, err = decodeKeys(raw.AccountKeys); err != nil {
		return nil, fmt.Errorf("accountKeys: %w", err)
	}
	if env.LoadedWritable, err = decodeKeys(raw.LoadedWritable); err != nil {
		return nil, fmt.Errorf("loadedWritable: %w", err)
	}
	if env.LoadedReadonly, err = decodeKeys(raw.LoadedReadonly); err != nil {
		return nil, fmt.Errorf("loadedReadonly: %w", err)
	}

	if env.Instructions, err = decodeInstructions(raw.Instructions); err != nil {
		return nil, err
	}
	for _, g := range raw.Inner {
		ins, err := decodeInstructions(g.Instructions)
		if err != nil {
			return nil, err
		}
		env.InnerInstructions = append(env.InnerInstructions, solana.InnerInstructionGroup{
			Index:        g.Index,
			Instructions: ins,
		})
	}

	env.PreTokenBalances = decodeBalances(raw.PreTokenBalances)
	env.PostTokenBalances = decodeBalances(raw.PostTokenBalances)
	return env, nil
}

func decodeKeys(keys []string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	out := make([][]byte, len(keys))
	for i, k := range keys {
		b, err := solana.DecodeBase58(k)
		if err != nil {
			return nil, fmt.Errorf("key %d: %w", i, err)
		}
		out[i] = b
	}
	return out, nil
}

func decodeInstructions(list []instructionJSON) ([]solana.CompiledInstruction, error) {
	if len(list) == 0 {
		return nil, nil
	}
	out := make([]solana.CompiledInstruction, len(list))
	for i, in := range list {
		data, err := solana.DecodeBase58(in.Data)
		if err != nil {
			return nil, fmt.Errorf("instruction %d data: %w", i, err)
		}
		accounts := make([]byte, len(in.Accounts))
		for j, a := range in.Accounts {
			accounts[j] = byte(a)
		}
		out[i] = solana.CompiledInstruction{
			ProgramIDIndex: in.ProgramIDIndex,
			Accounts:       accounts,
			Data:           data,
		}
	}
	return out, nil
}

func decodeBalances(list []tokenBalanceJSON) []solana.TokenBalance {
	if len(list) == 0 {
		return nil
	}
	out := make([]solana.TokenBalance, len(list))
	for i, tb := range list {
		out[i] = solana.TokenBalance{
			AccountIndex: tb.AccountIndex,
			Mint:         tb.Mint,
			Owner:        tb.Owner,
			Amount:       tb.Amount,
			Decimals:     tb.Decimals,
		}
	}
	return out
}
