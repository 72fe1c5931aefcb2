// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO": "0",
	"HALT":   fmt.Sprintf("%#v", uint16(HALT)),
}

// Assembler is a single pass macro assembler for the sim16 system.
//
// Source lines hold one instruction or directive each. Commas, brackets
// and a leading '#' on immediates are optional:
//
//	loop:   add r0, r0, r1      ; comment
//	        str [r2], #$(COUNT * 2)
//	        jlt loop
type Assembler struct {
	Verbose bool              // If set, verbosely logs the assembler actions.
	Logger  *slog.Logger      // Logger for verbose records; nil uses slog.Default().
	Opcode  []Opcode          // List of generated opcodes.
	Data    map[uint16]uint16 // Initial data memory from .data directives.

	predefine  map[string]string
	Label      map[string]int      // Map of labels to byte addresses.
	Equate     map[string]string   // Map of equates.
	Macro      map[string](*Macro) // Map of macros.
	addr       uint16              // Address of the next word.
	expansions int                 // Macro expansion counter, for local labels.
}

func (asm *Assembler) logger() *slog.Logger {
	if asm.Logger == nil {
		return slog.Default()
	}
	return asm.Logger
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// PredefineAll predefines every equate in defs.
func (asm *Assembler) PredefineAll(defs iter.Seq2[string, string]) {
	for equ, value := range defs {
		asm.Predefine(equ, value)
	}
}

// regMap is a map of register names.
var regMap = map[string]Register{
	"r0": 0,
	"r1": 1,
	"r2": 2,
	"r3": 3,
	"r4": 4,
	"r5": 5,
	"r6": 6,
	"r7": 7,
}

// aluMap maps the three and two register ALU mnemonics.
var aluMap = map[string]Op{
	"add": OP_ADD,
	"sub": OP_SUB,
	"mul": OP_MUL,
	"and": OP_AND,
	"or":  OP_OR,
	"xor": OP_XOR,
	"not": OP_NOT,
	"shr": OP_SHR,
	"shl": OP_SHL,
	"ror": OP_ROR,
	"rol": OP_ROL,
}

// branchMap maps the branch mnemonics.
var branchMap = map[string]Op{
	"jmp": OP_JMP,
	"jeq": OP_JEQ,
	"jlt": OP_JLT,
	"jgt": OP_JGT,
}

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value uint16, err error) {
	invert := false
	if strings.HasPrefix(word, "~") {
		invert = true
		word = word[1:]
	}
	if len(word) == 0 {
		err = ErrParseNumber(word)
		return
	}
	if word[0] == '\'' {
		// Character quotes should have been expanded into
		// values in parseLine()
		err = ErrParseCharacter(word)
		return
	}
	v64, err := strconv.ParseInt(word, 0, 32)
	if err != nil || v64 > 0xffff || v64 < -0x8000 {
		err = ErrParseNumber(word)
		return
	}

	value = uint16(v64)
	if invert {
		value = ^value
	}

	return
}

// register returns the register named by word.
func (asm *Assembler) register(word string) (reg Register, err error) {
	reg, ok := regMap[strings.ToLower(word)]
	if !ok {
		err = ErrParseRegister(word)
	}
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value uint16, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var v uint16
		v, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			continue
		}
		pred[key] = starlark.MakeInt(int(v))
	}
	for key, addr := range asm.Label {
		pred[key] = starlark.MakeInt(addr)
	}
	err = nil

	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok || st_int64 > 0xffff || st_int64 < -0x8000 {
		err = ErrParseExpression(expr)
		return
	}
	value = uint16(st_int64)
	return
}

var (
	reCharacter  = regexp.MustCompile(`'\\?[^']'`)
	reExpression = regexp.MustCompile(`\$\([^\$]*\)`)
)

// parseLine parses a single line into words, handling equates, labels
// and macro expansion.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do 'x' evaluations
	line = reCharacter.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			str = str[1:]
			switch str {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "t":
				str = "\t"
			case "0":
				str = "\000"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%v", str[0])
	})

	// Do $() evaluations
	line = reExpression.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%#v", value)
	})
	if err != nil {
		return
	}

	line = strings.NewReplacer(",", " ", "[", " ", "]", " ").Replace(line)
	words = strings.Fields(line)
	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		word = strings.TrimPrefix(word, "#")
		equate, ok := asm.Equate[word]
		if ok {
			word = equate
		}
		words[n] = word
	}

	for strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}
		asm.Label[label] = int(asm.addr)
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	macro, ok := asm.Macro[words[0]]
	if ok {
		err = asm.expand(words[0], macro, words[1:])
		words = nil
		return
	}

	return
}

// expand assembles the lines of a macro, with its arguments as equates.
// An '@' in the macro text is replaced by a prefix unique to the
// expansion, for local labels.
func (asm *Assembler) expand(name string, macro *Macro, args []string) (err error) {
	if len(args) != len(macro.Args) {
		err = ErrMacroSyntax
		return
	}

	saved := maps.Clone(asm.Equate)
	defer func() { asm.Equate = saved }()
	for n, arg := range macro.Args {
		asm.Equate[arg] = args[n]
	}

	local := fmt.Sprintf("%v_%v_", name, asm.expansions)
	asm.expansions++

	for n, line := range macro.Lines {
		lineno := macro.LineNo + n
		line = strings.ReplaceAll(line, "@", local)

		var words []string
		words, err = asm.parseLine(line, lineno)
		if err == nil {
			err = asm.parseWords(words, lineno)
		}
		if err != nil {
			err = ErrMacro{Macro: name, Line: lineno, Err: err}
			return
		}
	}

	return
}

// Parse parses an input stream into a Program containing opcodes.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		var located ErrSyntax
		if err != nil && !errors.As(err, &located) {
			err = ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	asm.Opcode = asm.Opcode[:0]
	asm.Label = make(map[string]int, 16)
	asm.Macro = make(map[string](*Macro))
	asm.Data = make(map[uint16]uint16)
	asm.Equate = maps.Clone(sysEquate)
	maps.Copy(asm.Equate, asm.predefine)
	asm.addr = 0
	asm.expansions = 0

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			asm.logger().Debug("assemble", "line", lineno, "text", text)
		}

		line = strings.TrimSpace(strings.SplitN(text, ";", 2)[0])
		words := strings.Fields(line)

		// .macro NAME arg...
		if len(words) > 0 && words[0] == ".macro" {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 {
				err = ErrMacroSyntax
				return
			}
			_, ok := asm.Macro[words[1]]
			if ok {
				err = ErrMacroDuplicate
				return
			}
			macro = &Macro{
				LineNo: lineno + 1,
				Args:   words[2:],
			}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && words[0] == ".endm" {
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	err = asm.link()
	if err != nil {
		return
	}

	prog = &Program{
		Opcodes: slices.Clone(asm.Opcode),
		Data:    maps.Clone(asm.Data),
	}

	return
}

// link resolves the branch labels into displacements.
func (asm *Assembler) link() (err error) {
	for n := range asm.Opcode {
		op := &asm.Opcode[n]

		if len(op.LinkLabel) == 0 {
			continue
		}

		target, ok := asm.Label[op.LinkLabel]
		if !ok {
			err = ErrLabelMissing(op.LinkLabel)
		} else {
			// The displacement is applied before the PC advances past the branch.
			disp := target - int(op.Addr) - 2
			inst := Decode(op.Code)
			if disp < DISP_MIN || disp > DISP_MAX {
				err = ErrBranchRange
			} else {
				inst.Disp = int16(disp)
				op.Code, err = inst.Code()
			}
		}

		if err != nil {
			err = ErrSyntax{LineNo: op.LineNo, Line: strings.Join(op.Words, " "), Err: err}
			return
		}
	}

	return
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	// no-op
	if len(words) == 0 {
		return
	}

	mnemonic := strings.ToLower(words[0])
	args := words[1:]

	want := func(count int) error {
		switch {
		case len(args) < count:
			return ErrOpcodeValueMissing
		case len(args) > count:
			return ErrOpcodeExtraArgs
		}
		return nil
	}

	emit := func(code Code, label string) {
		opcode := Opcode{LineNo: lineno, Addr: asm.addr, Words: words, Code: code, LinkLabel: label}
		asm.Opcode = append(asm.Opcode, opcode)
		asm.addr += 2
	}

	// Directives
	switch mnemonic {
	case ".org":
		err = want(1)
		if err != nil {
			return
		}
		var addr uint16
		addr, err = asm.valueOf(args[0])
		if err != nil {
			return
		}
		if addr&1 != 0 {
			err = ErrAddressRange
			return
		}
		asm.addr = addr
		return
	case ".word":
		err = want(1)
		if err != nil {
			return
		}
		var value uint16
		value, err = asm.valueOf(args[0])
		if err != nil {
			return
		}
		emit(Code(value), "")
		return
	case ".data":
		err = want(2)
		if err != nil {
			return
		}
		var index, value uint16
		index, err = asm.valueOf(args[0])
		if err != nil {
			return
		}
		value, err = asm.valueOf(args[1])
		if err != nil {
			return
		}
		asm.Data[index] = value
		return
	}

	var inst Instruction
	var label string

	if op, ok := branchMap[mnemonic]; ok {
		err = want(1)
		if err != nil {
			return
		}
		inst.Op = op
		disp, perr := asm.valueOf(args[0])
		if perr == nil {
			inst.Disp = int16(disp)
		} else {
			label = args[0]
		}
	} else if op, ok := aluMap[mnemonic]; ok {
		inst.Op = op
		switch op {
		case OP_NOT, OP_SHR, OP_SHL, OP_ROR, OP_ROL:
			err = want(2)
		default:
			err = want(3)
		}
		if err != nil {
			return
		}
		inst.Rd, err = asm.register(args[0])
		if err != nil {
			return
		}
		inst.Rm, err = asm.register(args[1])
		if err != nil {
			return
		}
		if len(args) == 3 {
			inst.Rn, err = asm.register(args[2])
			if err != nil {
				return
			}
		}
	} else {
		switch mnemonic {
		case "nop":
			err = want(0)
			inst.Op = OP_NOP
		case "halt":
			err = want(0)
			inst.Op = OP_HALT
		case "push":
			err = want(1)
			if err != nil {
				return
			}
			inst.Op = OP_PUSH
			inst.Rn, err = asm.register(args[0])
		case "pop":
			err = want(1)
			if err != nil {
				return
			}
			inst.Op = OP_POP
			inst.Rd, err = asm.register(args[0])
		case "cmp":
			err = want(2)
			if err != nil {
				return
			}
			inst.Op = OP_CMP
			inst.Rm, err = asm.register(args[0])
			if err != nil {
				return
			}
			inst.Rn, err = asm.register(args[1])
		case "ldr":
			err = want(2)
			if err != nil {
				return
			}
			inst.Op = OP_LDR
			inst.Rd, err = asm.register(args[0])
			if err != nil {
				return
			}
			inst.Rm, err = asm.register(args[1])
		case "mov", "str":
			err = want(2)
			if err != nil {
				return
			}
			inst.Rd, err = asm.register(args[0])
			if err != nil {
				return
			}
			src, is_reg := regMap[strings.ToLower(args[1])]
			switch {
			case is_reg && mnemonic == "mov":
				inst.Op = OP_MOV
				inst.Rm = src
			case is_reg:
				inst.Op = OP_STR
				inst.Rm = src
			case mnemonic == "mov":
				inst.Op = OP_MOV_IMM
				inst.Imm, err = asm.valueOf(args[1])
			default:
				inst.Op = OP_STR_IMM
				inst.Imm, err = asm.valueOf(args[1])
			}
		default:
			err = ErrOpcodeInvalid
		}
		if err != nil {
			return
		}
	}

	code, err := inst.Code()
	if err != nil {
		return
	}

	emit(code, label)

	return
}
