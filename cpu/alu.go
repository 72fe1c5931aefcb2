package cpu

import (
	"fmt"
	"math/bits"
)

// Flags are the condition flags of the last ALU or compare operation.
type Flags struct {
	Zero     bool // Result was zero.
	Carry    bool // Carry out, or no borrow for subtraction.
	Negative bool // Bit 15 of the result.
	Overflow bool // Signed overflow.
}

// Less is the JLT condition: an unsigned borrow from the last compare.
// With carry as borrow, JLT is C && !Z and JGT is !C && !Z; Carry here is
// no borrow, so both tests invert C.
func (fl Flags) Less() bool {
	return !fl.Carry && !fl.Zero
}

// Greater is the JGT condition: no borrow, and not equal.
func (fl Flags) Greater() bool {
	return fl.Carry && !fl.Zero
}

func (fl Flags) String() string {
	b := func(v bool) int {
		if v {
			return 1
		}
		return 0
	}
	return fmt.Sprintf("Z=%d N=%d C=%d V=%d", b(fl.Zero), b(fl.Negative), b(fl.Carry), b(fl.Overflow))
}

// DoAlu performs the ALU operation on a and b, returning the result and
// the recomputed flags. Unary operations ignore b. OP_CMP computes the
// same result and flags as OP_SUB.
func DoAlu(op Op, a uint16, b uint16) (output uint16, flags Flags) {
	var carry, overflow bool

	switch op {
	case OP_ADD:
		sum := uint32(a) + uint32(b)
		output = uint16(sum)
		carry = sum > 0xffff
		overflow = ((a^output)&(b^output))&0x8000 != 0
	case OP_SUB, OP_CMP:
		output = a - b
		carry = a >= b
		overflow = ((a^b)&(a^output))&0x8000 != 0
	case OP_MUL:
		product := uint32(a) * uint32(b)
		output = uint16(product)
		carry = product > 0xffff
		overflow = carry
	case OP_AND:
		output = a & b
	case OP_OR:
		output = a | b
	case OP_XOR:
		output = a ^ b
	case OP_NOT:
		output = ^a
	case OP_SHR:
		output = a >> 1
		carry = (a & 1) != 0
	case OP_SHL:
		output = a << 1
		carry = (a & 0x8000) != 0
	case OP_ROR:
		output = bits.RotateLeft16(a, -1)
		carry = (a & 1) != 0
	case OP_ROL:
		output = bits.RotateLeft16(a, 1)
		carry = (a & 0x8000) != 0
	default:
		panic(fmt.Sprintf("%v is not an alu operation", op))
	}

	flags = Flags{
		Zero:     output == 0,
		Carry:    carry,
		Negative: (output & 0x8000) != 0,
		Overflow: overflow,
	}

	return
}
