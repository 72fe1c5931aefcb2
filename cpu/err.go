package cpu

import (
	"errors"

	"github.com/ezrec/sim16/translate"
)

var f = translate.From

var (
	// Cpu conditions
	ErrHalt     = errors.New(f("halt"))
	ErrBoundary = errors.New(f("pc outside program memory"))
	ErrConfig   = errors.New(f("configuration invalid"))
	ErrLoad     = errors.New(f("image address outside memory"))

	// Instruction faults. None of these stop execution.
	ErrRegisterInvalid = errors.New(f("register invalid"))
	ErrDataRange       = errors.New(f("data address out of range"))
	ErrStackFull       = errors.New(f("stack overflow"))
	ErrStackEmpty      = errors.New(f("stack underflow"))
	ErrUnimplemented   = errors.New(f("instruction not implemented"))

	// Instruction encode errors
	ErrImmediateRange = errors.New(f("immediate out of range"))
	ErrBranchRange    = errors.New(f("branch displacement out of range"))

	// Assembler errors
	ErrEquateSyntax       = errors.New(f(".equ syntax"))
	ErrEquateDuplicate    = errors.New(f(".equ duplicated"))
	ErrLabelDuplicate     = errors.New(f("label duplicated"))
	ErrMacroSyntax        = errors.New(f(".macro syntax"))
	ErrMacroNesting       = errors.New(f(".macro in .macro prohibited"))
	ErrMacroDuplicate     = errors.New(f(".macro duplicated"))
	ErrMacroLonely        = errors.New(f(".macro without .endm"))
	ErrMacroLonelyEndm    = errors.New(f(".endm without .macro"))
	ErrOpcodeExtraArgs    = errors.New(f("excessive arguments"))
	ErrOpcodeValueMissing = errors.New(f("value missing"))
	ErrOpcodeInvalid      = errors.New(f("opcode invalid"))
	ErrAddressRange       = errors.New(f("address out of range"))
)

// ErrOpcode reports the instruction word that raised a fault.
type ErrOpcode Code

func (eo ErrOpcode) Error() string {
	return f("opcode 0x%04x %v", uint16(eo), Decode(Code(eo)).String())
}

func (eo ErrOpcode) Is(err error) (ok bool) {
	_, ok = err.(ErrOpcode)
	return
}

// ErrLoadAddress is an image word that does not fit in memory.
type ErrLoadAddress uint16

func (el ErrLoadAddress) Error() string {
	return f("image address 0x%04x outside memory", uint16(el))
}

func (el ErrLoadAddress) Unwrap() error {
	return ErrLoad
}

type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseCharacter string

func (err ErrParseCharacter) Error() string {
	return f("'%v' is not a character", string(err))
}

type ErrParseRegister string

func (err ErrParseRegister) Error() string {
	return f("'%v' is not a register", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

type ErrMacro struct {
	Macro string
	Line  int
	Err   error
}

func (err ErrMacro) Error() string {
	return f("macro %v line %v %v", err.Macro, err.Line, err.Err.Error())
}

func (err ErrMacro) Unwrap() error {
	return err.Err
}
