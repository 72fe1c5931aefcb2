package cpu

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func assemble(t *testing.T, asm *Assembler, program ...string) (prog *Program) {
	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	if err != nil {
		t.Fatal(err)
	}

	return
}

func opEqual(t *testing.T, expected, opcodes []Opcode) {
	assert := assert.New(t)

	assert.Equal(len(expected), len(opcodes))
	if len(expected) == len(opcodes) {
		for n := range len(expected) {
			assert.Equal(expected[n], opcodes[n])
		}
	}
}

func TestAssembler(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	prog, err := asm.Parse(strings.NewReader(""))
	assert.NoError(err)
	assert.Equal(0, len(prog.Opcodes))
	assert.Equal(0, len(prog.Data))

	assert.Equal("0", asm.Equate["LINENO"])
	assert.Equal("0xffff", asm.Equate["HALT"])
}

func TestAssemblerInstructions(t *testing.T) {
	asm := &Assembler{}

	prog := assemble(t, asm,
		"mov r2, #3",
		"MOV r1, 5",
		"add r3, r1, r2",
		"str [r1], #7",
		"str [r1], r3",
		"ldr r4, [r1]",
		"push r4",
		"pop r5",
		"cmp r5, r3",
		"not r6, r5",
		"halt",
	)

	expected := []Opcode{
		{1, 0x00, []string{"mov", "r2", "3"}, 0x1a03, ""},
		{2, 0x02, []string{"MOV", "r1", "5"}, 0x1905, ""},
		{3, 0x04, []string{"add", "r3", "r1", "r2"}, 0x4328, ""},
		{4, 0x06, []string{"str", "r1", "7"}, 0x2907, ""},
		{5, 0x08, []string{"str", "r1", "r3"}, 0x2160, ""},
		{6, 0x0a, []string{"ldr", "r4", "r1"}, 0x3420, ""},
		{7, 0x0c, []string{"push", "r4"}, 0x0011, ""},
		{8, 0x0e, []string{"pop", "r5"}, 0x0502, ""},
		{9, 0x10, []string{"cmp", "r5", "r3"}, 0x00af, ""},
		{10, 0x12, []string{"not", "r6", "r5"}, 0x96a0, ""},
		{11, 0x14, []string{"halt"}, HALT, ""},
	}

	opEqual(t, expected, prog.Opcodes)
}

func TestAssemblerAlu(t *testing.T) {
	asm := &Assembler{}

	prog := assemble(t, asm,
		"add r0 r1 r2",
		"sub r0 r1 r2",
		"mul r0 r1 r2",
		"and r0 r1 r2",
		"or r0 r1 r2",
		"xor r0 r1 r2",
		"not r0 r1",
		"shr r0 r1",
		"shl r0 r1",
		"ror r0 r1",
		"rol r0 r1",
	)

	expected := []Code{
		0x4028, 0x5028, 0x6028, 0x7028, 0x8028, 0xa028,
		0x9020, 0xb020, 0xc020, 0xd020, 0xe020,
	}

	assert := assert.New(t)
	assert.Equal(len(expected), len(prog.Opcodes))
	for n, op := range prog.Opcodes {
		assert.Equal(expected[n], op.Code, "line %d", op.LineNo)
		assert.Equal(uint16(n*2), op.Addr)
	}
}

func TestAssemblerLabels(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	prog := assemble(t, asm,
		"        mov r0, 0       ; count",
		"        mov r1, 1",
		"        mov r2, 5",
		"loop:   add r0, r0, r1",
		"        cmp r0, r2",
		"        jlt loop",
		"        jmp done",
		"        nop",
		"done:",
		"        halt",
		"        jeq -4",
	)

	assert.Equal(6, asm.Label["loop"])
	assert.Equal(16, asm.Label["done"])
	assert.Equal(10, len(prog.Opcodes))

	jlt := prog.Opcodes[5]
	assert.Equal("loop", jlt.LinkLabel)
	assert.Equal(uint16(10), jlt.Addr)
	assert.Equal(OP_JLT, Decode(jlt.Code).Op)
	assert.Equal(int16(-6), Decode(jlt.Code).Disp)

	jmp := prog.Opcodes[6]
	assert.Equal("done", jmp.LinkLabel)
	assert.Equal(Code(0x0808), jmp.Code)

	jeq := prog.Opcodes[9]
	assert.Equal("", jeq.LinkLabel)
	assert.Equal(int16(-4), Decode(jeq.Code).Disp)
}

func TestAssemblerEquates(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	asm.Predefine("LIMIT", "7")

	prog := assemble(t, asm,
		".equ COUNT 4",
		".equ DST r3",
		"mov DST, COUNT",
		"mov r1, $(COUNT * 2 + 1)",
		"mov r2, 'A'",
		"mov r4, '\\n'",
		"mov r5, LIMIT",
		"mov r6, $(LINENO)",
		".word 0x1234",
		".word ~0",
	)

	codes := []Code{0x1b04, 0x1909, 0x1a41, 0x1c0a, 0x1d07, 0x1e08, 0x1234, 0xffff}
	assert.Equal(len(codes), len(prog.Opcodes))
	for n, op := range prog.Opcodes {
		assert.Equal(codes[n], op.Code, "line %d", op.LineNo)
	}
	assert.Equal("4", asm.Equate["COUNT"])
	assert.Equal("7", asm.Equate["LIMIT"])
}

func TestAssemblerDirectives(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	prog := assemble(t, asm,
		".data 5 0x1234",
		".data 0 $(0x10 + 2)",
		".org 0x10",
		"start: nop",
		".org 0x40",
		"jmp start",
	)

	assert.Equal(map[uint16]uint16{5: 0x1234, 0: 0x12}, prog.Data)
	assert.Equal(2, len(prog.Opcodes))
	assert.Equal(uint16(0x10), prog.Opcodes[0].Addr)
	assert.Equal(uint16(0x40), prog.Opcodes[1].Addr)
	assert.Equal(int16(0x10-0x40-2), Decode(prog.Opcodes[1].Code).Disp)
}

func TestAssemblerMacro(t *testing.T) {
	asm := &Assembler{}

	prog := assemble(t, asm,
		".macro inc REG",
		"add REG, REG, r7",
		".endm",
		".macro spin",
		"@loop: nop",
		"       jmp @loop",
		".endm",
		"mov r7, 1",
		"inc r0",
		"inc r1",
		"spin",
		"spin",
	)

	expected := []Opcode{
		{8, 0x00, []string{"mov", "r7", "1"}, 0x1f01, ""},
		{2, 0x02, []string{"add", "r0", "r0", "r7"}, 0x401c, ""},
		{2, 0x04, []string{"add", "r1", "r1", "r7"}, 0x413c, ""},
		{5, 0x06, []string{"nop"}, 0x0000, ""},
		{6, 0x08, []string{"jmp", "spin_2_loop"}, 0x0ff0, "spin_2_loop"},
		{5, 0x0a, []string{"nop"}, 0x0000, ""},
		{6, 0x0c, []string{"jmp", "spin_3_loop"}, 0x0ff0, "spin_3_loop"},
	}

	opEqual(t, expected, prog.Opcodes)
}

func TestAssemblerErrors(t *testing.T) {
	table := [...]struct {
		program []string
		lineno  int
		err     error
	}{
		{[]string{"bogus r0"}, 1, ErrOpcodeInvalid},
		{[]string{"nop", "add r0, r1"}, 2, ErrOpcodeValueMissing},
		{[]string{"nop r0"}, 1, ErrOpcodeExtraArgs},
		{[]string{"mov r0, 256"}, 1, ErrImmediateRange},
		{[]string{"mov r9, 1"}, 1, ErrParseRegister("r9")},
		{[]string{"mov r0, 0x10000"}, 1, ErrParseNumber("0x10000")},
		{[]string{"nop", "jmp nowhere"}, 2, ErrLabelMissing("nowhere")},
		{[]string{"x: nop", "x: nop"}, 2, ErrLabelDuplicate},
		{[]string{".equ A"}, 1, ErrEquateSyntax},
		{[]string{".equ A 1", ".equ A 2"}, 2, ErrEquateDuplicate},
		{[]string{".macro"}, 1, ErrMacroSyntax},
		{[]string{".macro m", "nop"}, 2, ErrMacroLonely},
		{[]string{".macro m", ".macro n"}, 2, ErrMacroNesting},
		{[]string{".macro m", ".endm", ".macro m", ".endm"}, 3, ErrMacroDuplicate},
		{[]string{".endm"}, 1, ErrMacroLonelyEndm},
		{[]string{".macro m A", ".endm", "m"}, 3, ErrMacroSyntax},
		{[]string{".macro m", "bogus", ".endm", "m"}, 4, ErrOpcodeInvalid},
		{[]string{".org 3"}, 1, ErrAddressRange},
		{[]string{"jmp far", ".org 0x200", "far: nop"}, 1, ErrBranchRange},
		{[]string{"jmp 256"}, 1, ErrBranchRange},
	}

	for _, entry := range table {
		t.Run(strings.Join(entry.program, "|"), func(t *testing.T) {
			assert := assert.New(t)

			asm := &Assembler{}
			_, err := asm.Parse(strings.NewReader(strings.Join(entry.program, "\n")))
			assert.ErrorIs(err, entry.err)

			var syntax ErrSyntax
			if assert.True(errors.As(err, &syntax)) {
				assert.Equal(entry.lineno, syntax.LineNo)
			}
		})
	}
}

func TestAssemblerExpressionError(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	_, err := asm.Parse(strings.NewReader("mov r0, $(1 +)"))
	assert.Error(err)

	_, err = asm.Parse(strings.NewReader("mov r0, $(\"text\")"))
	assert.ErrorIs(err, ErrParseExpression("\"text\""))
}

func TestAssemblerRun(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	prog := assemble(t, asm,
		"        mov r0, 0",
		"        mov r1, 1",
		"        mov r2, 10",
		"        mov r3, 0",
		"loop:   add r0, r0, r1",
		"        str [r3], r0",
		"        add r3, r3, r1",
		"        cmp r3, r2",
		"        jlt loop",
		"        push r0",
		"        halt",
	)

	cpu, err := NewCpu(DefaultConfig())
	assert.NoError(err)
	assert.NoError(cpu.Load(prog.Words()))
	assert.NoError(cpu.LoadData(prog.DataWords()))

	faults := run(t, cpu)
	assert.Empty(faults)
	assert.Equal(uint16(10), cpu.Register[0])
	for n := range 10 {
		assert.Equal(uint16(n+1), cpu.Data[n])
	}

	top, ok := cpu.Stack.Peek()
	assert.True(ok)
	assert.Equal(uint16(10), top)
	assert.Equal(uint16(0x14), cpu.Pc)
}

func TestAssembler_Logger(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	asm := &Assembler{
		Verbose: true,
		Logger:  slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: LevelTrace})),
	}
	assemble(t, asm,
		"        mov r0, 1",
		"        halt",
	)

	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var record map[string]any
		assert.NoError(json.Unmarshal([]byte(line), &record))
		assert.Equal("assemble", record["msg"])
		lines = append(lines, record["text"].(string))
	}
	assert.Equal([]string{"        mov r0, 1", "        halt"}, lines)

	buf.Reset()
	asm = &Assembler{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}
	assemble(t, asm, "nop")
	assert.Zero(buf.Len())
}
