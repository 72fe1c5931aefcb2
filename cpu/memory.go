package cpu

import (
	"slices"
)

// Memory is a word addressed memory with bounds checking.
type Memory []uint16

// NewMemory allocates a memory of the given number of words.
func NewMemory(words int) Memory {
	return make(Memory, words)
}

// Read returns the word at index addr.
func (mem Memory) Read(addr uint16) (value uint16, err error) {
	if int(addr) >= len(mem) {
		err = ErrDataRange
		return
	}

	value = mem[addr]
	return
}

// Write sets the word at index addr.
func (mem Memory) Write(addr uint16, value uint16) (err error) {
	if int(addr) >= len(mem) {
		err = ErrDataRange
		return
	}

	mem[addr] = value
	return
}

// Fill sets every word to value.
func (mem Memory) Fill(value uint16) {
	for n := range mem {
		mem[n] = value
	}
}

// IndexOf returns the index of the first word equal to value, or the
// length of the memory if there is none.
func (mem Memory) IndexOf(value uint16) int {
	index := slices.Index(mem, value)
	if index < 0 {
		index = len(mem)
	}
	return index
}
