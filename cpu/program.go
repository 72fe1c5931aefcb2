package cpu

import (
	"iter"

	"github.com/ezrec/sim16/internal"
)

// Opcode represents a line of assembled code with its source location and generated word.
type Opcode struct {
	LineNo    int
	Addr      uint16 // Byte address of the word.
	Words     []string
	Code      Code
	LinkLabel string // Branch target resolved at link time.
}

// Program is an assembled program listing.
type Program struct {
	Opcodes []Opcode
	Data    map[uint16]uint16 // Initial data memory, by index.
}

// Debug locates the source of a program address.
type Debug struct {
	*Opcode
}

// Debug returns the opcode assembled at the byte address addr.
func (prog *Program) Debug(addr uint16) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if op.Addr/2 == addr/2 {
			dbg = Debug{Opcode: &prog.Opcodes[n]}
			break
		}
	}

	return
}

// Words iterates over the (byte address, word) pairs of the program.
func (prog *Program) Words() iter.Seq2[uint16, uint16] {
	return func(yield func(addr uint16, word uint16) bool) {
		for _, op := range prog.Opcodes {
			if !yield(op.Addr, uint16(op.Code)) {
				return
			}
		}
	}
}

// DataWords iterates over the initial data memory, in index order.
func (prog *Program) DataWords() iter.Seq2[uint16, uint16] {
	return internal.IterSeq2Sorted(prog.Data)
}
