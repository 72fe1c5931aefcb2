package cpu

import (
	"fmt"
	"strings"
)

// Code is a single 16-bit instruction word.
//
//	15..12  opcode
//	11      immediate select
//	10..8   rd
//	 7..5   rm
//	 4..2   rn
//	 1..0   sub-operation (opcode 0x0 only)
//
// The immediate forms of MOV and STR use bits 7..0 as an 8-bit literal, and
// the branches use bits 10..2 as a signed displacement.
type Code uint16

// HALT is the halt sentinel. It is never executed.
const HALT = Code(0xffff)

// Opcode classes, the top nibble of an instruction word.
const (
	CLASS_MISC = uint16(0x0) // Branches, stack, compare and nop.
	CLASS_MOV  = uint16(0x1)
	CLASS_STR  = uint16(0x2)
	CLASS_LDR  = uint16(0x3)
	CLASS_ADD  = uint16(0x4)
	CLASS_SUB  = uint16(0x5)
	CLASS_MUL  = uint16(0x6)
	CLASS_AND  = uint16(0x7)
	CLASS_OR   = uint16(0x8)
	CLASS_NOT  = uint16(0x9)
	CLASS_XOR  = uint16(0xa)
	CLASS_SHR  = uint16(0xb)
	CLASS_SHL  = uint16(0xc)
	CLASS_ROR  = uint16(0xd)
	CLASS_ROL  = uint16(0xe)
	CLASS_NONE = uint16(0xf) // Unimplemented, except for HALT.
)

// Branch displacement limits, in bytes.
const (
	DISP_MIN = -256
	DISP_MAX = 255
)

// Register is a general purpose register index.
type Register uint8

// REGISTER_COUNT is the size of the register file.
const REGISTER_COUNT = 8

// Valid returns true if the register exists in the register file.
func (r Register) Valid() bool {
	return r < REGISTER_COUNT
}

func (r Register) String() string {
	return fmt.Sprintf("r%d", uint8(r))
}

// Op is a decoded operation.
type Op int

//go:generate go tool stringer -linecomment -type=Op
const (
	OP_NOP           = Op(0)  // nop
	OP_JMP           = Op(1)  // jmp
	OP_JEQ           = Op(2)  // jeq
	OP_JLT           = Op(3)  // jlt
	OP_JGT           = Op(4)  // jgt
	OP_PUSH          = Op(5)  // push
	OP_POP           = Op(6)  // pop
	OP_CMP           = Op(7)  // cmp
	OP_MOV_IMM       = Op(8)  // mov
	OP_MOV           = Op(9)  // mov
	OP_STR_IMM       = Op(10) // str
	OP_STR           = Op(11) // str
	OP_LDR           = Op(12) // ldr
	OP_ADD           = Op(13) // add
	OP_SUB           = Op(14) // sub
	OP_MUL           = Op(15) // mul
	OP_AND           = Op(16) // and
	OP_OR            = Op(17) // or
	OP_NOT           = Op(18) // not
	OP_XOR           = Op(19) // xor
	OP_SHR           = Op(20) // shr
	OP_SHL           = Op(21) // shl
	OP_ROR           = Op(22) // ror
	OP_ROL           = Op(23) // rol
	OP_HALT          = Op(24) // halt
	OP_UNIMPLEMENTED = Op(25) // unimplemented
)

// opForm is the encoding of an Op.
//
// Operand letters: 'd' rd, 'm' rm, 'n' rn, 'i' immediate8, 'j' displacement.
type opForm struct {
	class    uint16
	imm      bool
	low2     uint16
	operands string
}

var opForms = [...]opForm{
	OP_NOP:           {CLASS_MISC, false, 0b00, ""},
	OP_JMP:           {CLASS_MISC, true, 0b00, "j"},
	OP_JEQ:           {CLASS_MISC, true, 0b01, "j"},
	OP_JLT:           {CLASS_MISC, true, 0b10, "j"},
	OP_JGT:           {CLASS_MISC, true, 0b11, "j"},
	OP_PUSH:          {CLASS_MISC, false, 0b01, "n"},
	OP_POP:           {CLASS_MISC, false, 0b10, "d"},
	OP_CMP:           {CLASS_MISC, false, 0b11, "mn"},
	OP_MOV_IMM:       {CLASS_MOV, true, 0, "di"},
	OP_MOV:           {CLASS_MOV, false, 0, "dm"},
	OP_STR_IMM:       {CLASS_STR, true, 0, "di"},
	OP_STR:           {CLASS_STR, false, 0, "dm"},
	OP_LDR:           {CLASS_LDR, false, 0, "dm"},
	OP_ADD:           {CLASS_ADD, false, 0, "dmn"},
	OP_SUB:           {CLASS_SUB, false, 0, "dmn"},
	OP_MUL:           {CLASS_MUL, false, 0, "dmn"},
	OP_AND:           {CLASS_AND, false, 0, "dmn"},
	OP_OR:            {CLASS_OR, false, 0, "dmn"},
	OP_NOT:           {CLASS_NOT, false, 0, "dm"},
	OP_XOR:           {CLASS_XOR, false, 0, "dmn"},
	OP_SHR:           {CLASS_SHR, false, 0, "dm"},
	OP_SHL:           {CLASS_SHL, false, 0, "dm"},
	OP_ROR:           {CLASS_ROR, false, 0, "dm"},
	OP_ROL:           {CLASS_ROL, false, 0, "dm"},
	OP_HALT:          {CLASS_NONE, true, 0b11, ""},
	OP_UNIMPLEMENTED: {CLASS_NONE, false, 0, ""},
}

// classOps maps the opcode classes that do not depend on the
// immediate select or sub-operation bits.
var classOps = [16]Op{
	CLASS_LDR:  OP_LDR,
	CLASS_ADD:  OP_ADD,
	CLASS_SUB:  OP_SUB,
	CLASS_MUL:  OP_MUL,
	CLASS_AND:  OP_AND,
	CLASS_OR:   OP_OR,
	CLASS_NOT:  OP_NOT,
	CLASS_XOR:  OP_XOR,
	CLASS_SHR:  OP_SHR,
	CLASS_SHL:  OP_SHL,
	CLASS_ROR:  OP_ROR,
	CLASS_ROL:  OP_ROL,
	CLASS_NONE: OP_UNIMPLEMENTED,
}

var branchOps = [4]Op{OP_JMP, OP_JEQ, OP_JLT, OP_JGT}

var miscOps = [4]Op{OP_NOP, OP_PUSH, OP_POP, OP_CMP}

// Class returns the opcode, bits 15..12.
func (code Code) Class() uint16 {
	return (uint16(code) >> 12) & 0xf
}

// Immediate returns the immediate select, bit 11.
func (code Code) Immediate() bool {
	return ((uint16(code) >> 11) & 1) == 1
}

// Rd returns the register field in bits 10..8.
func (code Code) Rd() Register {
	return Register((uint16(code) >> 8) & 0x7)
}

// Rm returns the register field in bits 7..5.
func (code Code) Rm() Register {
	return Register((uint16(code) >> 5) & 0x7)
}

// Rn returns the register field in bits 4..2.
func (code Code) Rn() Register {
	return Register((uint16(code) >> 2) & 0x7)
}

// Low2 returns the sub-operation selector in bits 1..0.
func (code Code) Low2() uint16 {
	return uint16(code) & 0x3
}

// Imm8 returns bits 7..0 as an unsigned literal.
func (code Code) Imm8() uint16 {
	return uint16(code) & 0xff
}

// Disp returns bits 10..2 sign extended to 16 bits.
func (code Code) Disp() int16 {
	return int16(uint16(code)<<5) >> 7
}

// String returns the word and its disassembly.
func (code Code) String() string {
	return fmt.Sprintf("0x%04x (%v)", uint16(code), Decode(code).String())
}

// Instruction is a decoded instruction word.
type Instruction struct {
	Op   Op
	Rd   Register
	Rm   Register
	Rn   Register
	Imm  uint16
	Disp int16
}

// Decode extracts the operation and operand fields from an instruction word.
// Decoding never fails. Register fields are validated when dispatched.
func Decode(code Code) (inst Instruction) {
	inst = Instruction{
		Rd: code.Rd(),
		Rm: code.Rm(),
		Rn: code.Rn(),
	}

	if code == HALT {
		inst.Op = OP_HALT
		return
	}

	class := code.Class()
	switch class {
	case CLASS_MISC:
		if code.Immediate() {
			inst.Op = branchOps[code.Low2()]
			inst.Disp = code.Disp()
		} else {
			inst.Op = miscOps[code.Low2()]
		}
	case CLASS_MOV:
		inst.Op = OP_MOV
		if code.Immediate() {
			inst.Op = OP_MOV_IMM
			inst.Imm = code.Imm8()
		}
	case CLASS_STR:
		inst.Op = OP_STR
		if code.Immediate() {
			inst.Op = OP_STR_IMM
			inst.Imm = code.Imm8()
		}
	default:
		inst.Op = classOps[class]
	}

	return
}

// Registers returns the register fields read or written by the instruction.
func (inst Instruction) Registers() (regs []Register) {
	if int(inst.Op) < 0 || int(inst.Op) >= len(opForms) {
		return
	}

	for _, operand := range opForms[inst.Op].operands {
		switch operand {
		case 'd':
			regs = append(regs, inst.Rd)
		case 'm':
			regs = append(regs, inst.Rm)
		case 'n':
			regs = append(regs, inst.Rn)
		}
	}

	return
}

// Code encodes the instruction, validating its operands.
func (inst Instruction) Code() (code Code, err error) {
	if int(inst.Op) < 0 || int(inst.Op) >= len(opForms) {
		err = ErrOpcodeInvalid
		return
	}

	if inst.Op == OP_HALT {
		code = HALT
		return
	}

	form := opForms[inst.Op]
	word := (form.class << 12) | form.low2
	if form.imm {
		word |= 1 << 11
	}

	for _, operand := range form.operands {
		switch operand {
		case 'd':
			if !inst.Rd.Valid() {
				err = ErrRegisterInvalid
				return
			}
			word |= uint16(inst.Rd) << 8
		case 'm':
			if !inst.Rm.Valid() {
				err = ErrRegisterInvalid
				return
			}
			word |= uint16(inst.Rm) << 5
		case 'n':
			if !inst.Rn.Valid() {
				err = ErrRegisterInvalid
				return
			}
			word |= uint16(inst.Rn) << 2
		case 'i':
			if inst.Imm > 0xff {
				err = ErrImmediateRange
				return
			}
			word |= inst.Imm
		case 'j':
			if inst.Disp < DISP_MIN || inst.Disp > DISP_MAX {
				err = ErrBranchRange
				return
			}
			word |= (uint16(inst.Disp) & 0x1ff) << 2
		}
	}

	code = Code(word)

	return
}

// String returns the assembly language representation of the instruction.
func (inst Instruction) String() string {
	if int(inst.Op) < 0 || int(inst.Op) >= len(opForms) {
		return inst.Op.String()
	}

	var args []string
	for _, operand := range opForms[inst.Op].operands {
		switch operand {
		case 'd':
			args = append(args, inst.Rd.String())
		case 'm':
			args = append(args, inst.Rm.String())
		case 'n':
			args = append(args, inst.Rn.String())
		case 'i':
			args = append(args, fmt.Sprintf("#%d", inst.Imm))
		case 'j':
			args = append(args, fmt.Sprintf("%d", inst.Disp))
		}
	}

	switch inst.Op {
	case OP_STR, OP_STR_IMM:
		args[0] = "[" + args[0] + "]"
	case OP_LDR:
		args[1] = "[" + args[1] + "]"
	}

	if len(args) == 0 {
		return inst.Op.String()
	}

	return inst.Op.String() + " " + strings.Join(args, ", ")
}
