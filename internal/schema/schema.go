package schema

import (
	"crypto/sha256"
)

// Kind enumerates the primitive and composite layouts the binary decoder
// understands. All multi-byte primitives are little-endian.
type Kind int

const (
	KindU8 Kind = iota
	KindU16
	KindU32
	KindU64
	KindI8
	KindI16
	KindI32
	KindI64
	KindU128
	KindI128
	KindBool
	KindPubkey
	KindString // u32 length prefix, then UTF-8 bytes
	KindBytes  // u32 length prefix, then raw bytes
	KindVec    // u32 length prefix, then Elem repeated
	KindOption // u8 tag, then Elem when tag == 1
	KindArray  // Len repetitions of Elem
	KindDefined
)

// Type is one field layout. Elem is set for vec/option/array, Len for array,
// and Defined names a struct in the schema's type table.
type Type struct {
	Kind    Kind
	Elem    *Type
	Len     int
	Defined string
}

func T(k Kind) Type               { return Type{Kind: k} }
func Vec(elem Type) Type          { return Type{Kind: KindVec, Elem: &elem} }
func Option(elem Type) Type       { return Type{Kind: KindOption, Elem: &elem} }
func Array(elem Type, n int) Type { return Type{Kind: KindArray, Elem: &elem, Len: n} }
func Defined(name string) Type    { return Type{Kind: KindDefined, Defined: name} }

// Field is a named layout entry. Names keep the snake_case of the program IDL.
type Field struct {
	Name string
	Type Type
}

func F(name string, t Type) Field { return Field{Name: name, Type: t} }

// StructDef is a composite type referenced by Defined fields.
type StructDef struct {
	Name   string
	Fields []Field
}

// Event is a schema event: name, 8-byte discriminator, ordered field layout.
type Event struct {
	Name          string
	Discriminator [8]byte
	Fields        []Field
}

// Instruction is a schema instruction: discriminator, account-role order, and
// argument layout. Account roles are positional.
type Instruction struct {
	Name          string
	Discriminator [8]byte
	Accounts      []string
	Args          []Field
}

// Schema is one program's full static schema. Built once at startup and
// immutable afterwards.
type Schema struct {
	ProgramAddress string

	events       map[[8]byte]*Event
	eventsByName map[string]*Event
	instructions map[[8]byte]*Instruction
	types        map[string]StructDef
}

// New assembles a Schema from its parts and indexes events and instructions
// by discriminator.
func New(programAddress string, evs []Event, ins []Instruction, types []StructDef) *Schema {
	s := &Schema{
		ProgramAddress: programAddress,
		events:         make(map[[8]byte]*Event, len(evs)),
		eventsByName:   make(map[string]*Event, len(evs)),
		instructions:   make(map[[8]byte]*Instruction, len(ins)),
		types:          make(map[string]StructDef, len(types)),
	}
	for i := range evs {
		ev := evs[i]
		s.events[ev.Discriminator] = &evs[i]
		s.eventsByName[ev.Name] = &evs[i]
	}
	for i := range ins {
		s.instructions[ins[i].Discriminator] = &ins[i]
	}
	for _, t := range types {
		s.types[t.Name] = t
	}
	return s
}

// EventByDiscriminator returns the event whose discriminator equals disc.
func (s *Schema) EventByDiscriminator(disc [8]byte) (*Event, bool) {
	ev, ok := s.events[disc]
	return ev, ok
}

// EventByName looks an event up by schema name.
func (s *Schema) EventByName(name string) (*Event, bool) {
	ev, ok := s.eventsByName[name]
	return ev, ok
}

// InstructionByDiscriminator resolves an instruction discriminator.
func (s *Schema) InstructionByDiscriminator(disc [8]byte) (*Instruction, bool) {
	in, ok := s.instructions[disc]
	return in, ok
}

// TypeDef resolves a Defined type name.
func (s *Schema) TypeDef(name string) (StructDef, bool) {
	t, ok := s.types[name]
	return t, ok
}

// EventDiscriminator derives the Anchor event discriminator:
// sha256("event:<Name>")[0:8].
func EventDiscriminator(name string) [8]byte {
	return discriminator("event:" + name)
}

// InstructionDiscriminator derives the Anchor instruction discriminator:
// sha256("global:<name>")[0:8].
func InstructionDiscriminator(name string) [8]byte {
	return discriminator("global:" + name)
}

func discriminator(preimage string) [8]byte {
	sum := sha256.Sum256([]byte(preimage))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}
