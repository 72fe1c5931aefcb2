package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDoAlu(t *testing.T) {
	table := [...]struct {
		op     Op
		a, b   uint16
		output uint16
		flags  Flags
	}{
		{OP_ADD, 2, 3, 5, Flags{}},
		{OP_ADD, 0xffff, 1, 0, Flags{Zero: true, Carry: true}},
		{OP_ADD, 0x7fff, 1, 0x8000, Flags{Negative: true, Overflow: true}},
		{OP_ADD, 0x8000, 0x8000, 0, Flags{Zero: true, Carry: true, Overflow: true}},
		{OP_SUB, 5, 3, 2, Flags{Carry: true}},
		{OP_SUB, 3, 5, 0xfffe, Flags{Negative: true}},
		{OP_SUB, 0x8000, 1, 0x7fff, Flags{Carry: true, Overflow: true}},
		{OP_CMP, 5, 5, 0, Flags{Zero: true, Carry: true}},
		{OP_CMP, 0, 1, 0xffff, Flags{Negative: true}},
		{OP_MUL, 3, 4, 12, Flags{}},
		{OP_MUL, 0x100, 0x100, 0, Flags{Zero: true, Carry: true, Overflow: true}},
		{OP_MUL, 0x8000, 2, 0, Flags{Zero: true, Carry: true, Overflow: true}},
		{OP_AND, 0xf0f0, 0xff00, 0xf000, Flags{Negative: true}},
		{OP_AND, 0x00f0, 0x0f00, 0, Flags{Zero: true}},
		{OP_OR, 0x00f0, 0x0f00, 0x0ff0, Flags{}},
		{OP_XOR, 0xffff, 0xffff, 0, Flags{Zero: true}},
		{OP_NOT, 0, 0x1234, 0xffff, Flags{Negative: true}},
		{OP_NOT, 0xffff, 0, 0, Flags{Zero: true}},
		{OP_SHR, 0x0003, 0, 0x0001, Flags{Carry: true}},
		{OP_SHR, 0x8000, 0, 0x4000, Flags{}},
		{OP_SHL, 0x8001, 0, 0x0002, Flags{Carry: true}},
		{OP_SHL, 0x4000, 0, 0x8000, Flags{Negative: true}},
		{OP_ROR, 0x0001, 0, 0x8000, Flags{Carry: true, Negative: true}},
		{OP_ROR, 0x0002, 0, 0x0001, Flags{}},
		{OP_ROL, 0x8000, 0, 0x0001, Flags{Carry: true}},
		{OP_ROL, 0x4000, 0, 0x8000, Flags{Negative: true}},
	}

	for _, entry := range table {
		assert := assert.New(t)

		output, flags := DoAlu(entry.op, entry.a, entry.b)
		assert.Equal(entry.output, output, "%v 0x%04x 0x%04x", entry.op, entry.a, entry.b)
		assert.Equal(entry.flags, flags, "%v 0x%04x 0x%04x", entry.op, entry.a, entry.b)
	}
}

func TestDoAlu_Panic(t *testing.T) {
	assert := assert.New(t)

	for _, op := range []Op{OP_NOP, OP_JMP, OP_PUSH, OP_MOV, OP_LDR, OP_HALT} {
		assert.Panics(func() { DoAlu(op, 1, 2) }, op.String())
	}
}

func TestFlags_Compare(t *testing.T) {
	table := [...]struct {
		a, b    uint16
		less    bool
		greater bool
	}{
		{3, 5, true, false},
		{5, 3, false, true},
		{5, 5, false, false},
		{0, 0xffff, true, false},
		{0xffff, 0, false, true},
	}

	for _, entry := range table {
		assert := assert.New(t)

		_, flags := DoAlu(OP_CMP, entry.a, entry.b)
		assert.Equal(entry.less, flags.Less(), "%d < %d", entry.a, entry.b)
		assert.Equal(entry.greater, flags.Greater(), "%d > %d", entry.a, entry.b)
	}
}

func TestFlags_String(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("Z=0 N=0 C=0 V=0", Flags{}.String())
	assert.Equal("Z=1 N=0 C=1 V=0", Flags{Zero: true, Carry: true}.String())
	assert.Equal("Z=0 N=1 C=0 V=1", Flags{Negative: true, Overflow: true}.String())
}

func FuzzDoAlu_Add(f *testing.F) {
	f.Add(uint16(0), uint16(0))
	f.Add(uint16(0xffff), uint16(1))
	f.Add(uint16(0x7fff), uint16(0x7fff))

	f.Fuzz(func(t *testing.T, a uint16, b uint16) {
		assert := assert.New(t)

		output, flags := DoAlu(OP_ADD, a, b)
		sum := uint32(a) + uint32(b)
		signed := int32(int16(a)) + int32(int16(b))

		assert.Equal(uint16(sum), output)
		assert.Equal(sum > 0xffff, flags.Carry)
		assert.Equal(uint16(sum) == 0, flags.Zero)
		assert.Equal(signed > 0x7fff || signed < -0x8000, flags.Overflow)
	})
}

func FuzzDoAlu_Sub(f *testing.F) {
	f.Add(uint16(0), uint16(0))
	f.Add(uint16(0), uint16(1))
	f.Add(uint16(0x8000), uint16(1))

	f.Fuzz(func(t *testing.T, a uint16, b uint16) {
		assert := assert.New(t)

		for _, op := range []Op{OP_SUB, OP_CMP} {
			output, flags := DoAlu(op, a, b)
			signed := int32(int16(a)) - int32(int16(b))

			assert.Equal(a-b, output)
			assert.Equal(a >= b, flags.Carry)
			assert.Equal((a-b)&0x8000 != 0, flags.Negative)
			assert.Equal(a == b, flags.Zero)
			assert.Equal(signed > 0x7fff || signed < -0x8000, flags.Overflow)
		}
	})
}

func FuzzDoAlu_Rotate(f *testing.F) {
	f.Add(uint16(0))
	f.Add(uint16(0x8001))

	f.Fuzz(func(t *testing.T, x uint16) {
		assert := assert.New(t)

		left, _ := DoAlu(OP_ROL, x, 0)
		right, _ := DoAlu(OP_ROR, left, 0)
		assert.Equal(x, right)

		right, _ = DoAlu(OP_ROR, x, 0)
		left, _ = DoAlu(OP_ROL, right, 0)
		assert.Equal(x, left)
	})
}
