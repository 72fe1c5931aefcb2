package cpu

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"maps"
	"slices"
	"strings"
)

// Cpu is the simulation context for the sim16 processor.
//
// A Cpu is owned by a single goroutine for the duration of a run.
type Cpu struct {
	Verbose bool         // Set to enable verbose logging.
	Logger  *slog.Logger // Logger for verbose records; nil uses slog.Default().

	Config Config // Memory geometry.

	Pc       uint16                 // Program counter, a byte address.
	Ir       Code                   // Last fetched instruction.
	Register [REGISTER_COUNT]uint16 // Register bank.
	Flags    Flags                  // Condition flags.
	Program  Memory                 // Program memory, indexed by Pc/2.
	Data     Memory                 // Data memory, indexed by register value.
	Stack    Stack                  // Stack window.
	Halted   bool                   // Set once the fetch loop has stopped.
	Ticks    int                    // Instructions executed since reset.
	Trace    *Trace                 // Event trace; nil disables it.
}

// State is a read-only snapshot of the Cpu, for reporting.
type State struct {
	Register    [REGISTER_COUNT]uint16
	Flags       Flags
	Pc          uint16
	Ir          Code
	Sp          uint16
	Stack       []uint16 // Top of the window down to Sp.
	Data        []uint16
	ProgramSize int // Address of the first halt sentinel.
	Ticks       int
	Halted      bool
}

// NewCpu creates a new CPU with the given memory geometry.
func NewCpu(config Config) (cpu *Cpu, err error) {
	err = config.Validate()
	if err != nil {
		return
	}

	cpu = &Cpu{
		Config:  config,
		Program: NewMemory(config.ProgramWords),
		Data:    NewMemory(config.DataWords),
		Stack:   NewStack(config.StackBase, config.StackTop, config.StackWords),
	}

	cpu.Reset()

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(map[string]string{
		"HALT":          fmt.Sprintf("0x%04x", uint16(HALT)),
		"PROGRAM_WORDS": fmt.Sprintf("%d", cpu.Config.ProgramWords),
		"DATA_WORDS":    fmt.Sprintf("%d", cpu.Config.DataWords),
		"STACK_BASE":    fmt.Sprintf("0x%04x", cpu.Config.StackBase),
		"STACK_TOP":     fmt.Sprintf("0x%04x", cpu.Config.StackTop),
	})
}

// Reset the CPU state.
// - Clears the registers, flags, data memory and stack.
// - Fills program memory with the halt sentinel.
// - Zeros the tick counter and the trace.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		cpu.logger().Info("cpu: reset")
	}

	clear(cpu.Register[:])
	cpu.Flags = Flags{}
	cpu.Pc = 0
	cpu.Ir = 0
	cpu.Program.Fill(uint16(HALT))
	cpu.Data.Fill(0)
	cpu.Stack.Reset()
	cpu.Halted = false
	cpu.Ticks = 0

	if cpu.Trace != nil {
		cpu.Trace.Reset()
	}
}

func (cpu *Cpu) logger() *slog.Logger {
	if cpu.Logger == nil {
		return slog.Default()
	}
	return cpu.Logger
}

// Load fills program memory with the halt sentinel, then stores each
// (byte address, word) pair at index address/2.
//
// Words that do not fit are skipped; the rest of the image is loaded and
// the skipped addresses are reported as a joined error.
func (cpu *Cpu) Load(words iter.Seq2[uint16, uint16]) (err error) {
	cpu.Program.Fill(uint16(HALT))

	var errs []error
	for addr, value := range words {
		index := int(addr / 2)
		if index >= len(cpu.Program) {
			errs = append(errs, ErrLoadAddress(addr))
			continue
		}
		cpu.Program[index] = value
	}

	err = errors.Join(errs...)
	return
}

// LoadData stores each (index, word) pair into data memory.
func (cpu *Cpu) LoadData(words iter.Seq2[uint16, uint16]) (err error) {
	var errs []error
	for addr, value := range words {
		if cpu.Data.Write(addr, value) != nil {
			errs = append(errs, ErrLoadAddress(addr))
		}
	}

	err = errors.Join(errs...)
	return
}

// ProgramSize returns the address of the first halt sentinel in program
// memory. It is informational only; the fetch loop never uses it.
func (cpu *Cpu) ProgramSize() int {
	return cpu.Program.IndexOf(uint16(HALT)) * 2
}

// Snapshot returns a copy of the architectural state.
func (cpu *Cpu) Snapshot() (state State) {
	state = State{
		Register:    cpu.Register,
		Flags:       cpu.Flags,
		Pc:          cpu.Pc,
		Ir:          cpu.Ir,
		Sp:          cpu.Stack.Sp,
		Stack:       cpu.Stack.Entries(),
		Data:        slices.Clone(cpu.Data),
		ProgramSize: cpu.ProgramSize(),
		Ticks:       cpu.Ticks,
		Halted:      cpu.Halted,
	}

	return
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	var sb strings.Builder

	for n, val := range cpu.Register {
		fmt.Fprintf(&sb, "r%d: 0x%04x ", n, val)
	}
	fmt.Fprintf(&sb, "\npc: 0x%04x ir: 0x%04x %v\n", cpu.Pc, uint16(cpu.Ir), cpu.Flags)

	top, ok := cpu.Stack.Peek()
	if ok {
		fmt.Fprintf(&sb, "sp: 0x%04x top: 0x%04x\n", cpu.Stack.Sp, top)
	} else {
		fmt.Fprintf(&sb, "sp: 0x%04x top: ------\n", cpu.Stack.Sp)
	}

	text = sb.String()
	return
}

// FetchCode fetches the instruction word at the program counter.
func (cpu *Cpu) FetchCode() (code Code, err error) {
	index := int(cpu.Pc / 2)
	if index >= len(cpu.Program) {
		err = ErrBoundary
		return
	}

	code = Code(cpu.Program[index])
	return
}

// Tick executes a single fetch-decode-execute cycle.
//
// On the halt sentinel, or when the program counter leaves program memory,
// the Cpu halts without advancing the program counter and ErrHalt or
// ErrBoundary is returned. Any other error is an instruction fault: the
// instruction has been skipped, the program counter has advanced, and
// execution may continue.
func (cpu *Cpu) Tick() (err error) {
	code, err := cpu.FetchCode()
	if err != nil {
		cpu.Halted = true
		return
	}

	pc := cpu.Pc

	err = cpu.Execute(code)
	if errors.Is(err, ErrHalt) {
		cpu.Halted = true
		return
	}

	cpu.trace(Event{Tick: cpu.Ticks, Pc: pc, Code: code, Err: err, Dump: Decode(code).Op == OP_NOP})

	cpu.Pc += 2
	cpu.Ticks++

	return
}

// Execute executes a single instruction word.
func (cpu *Cpu) Execute(code Code) (err error) {
	cpu.Ir = code

	if code == HALT {
		err = ErrHalt
		return
	}

	err = cpu.Dispatch(Decode(code))
	if err != nil {
		err = errors.Join(ErrOpcode(code), err)
	}

	return
}

// Dispatch executes a decoded instruction.
//
// If any register field used by the instruction is out of range, nothing is
// changed and ErrRegisterInvalid is returned.
func (cpu *Cpu) Dispatch(inst Instruction) (err error) {
	for _, reg := range inst.Registers() {
		if !reg.Valid() {
			err = ErrRegisterInvalid
			return
		}
	}

	reg := &cpu.Register

	switch inst.Op {
	case OP_NOP:
		// pass
	case OP_JMP:
		cpu.Pc += uint16(inst.Disp)
	case OP_JEQ:
		if cpu.Flags.Zero {
			cpu.Pc += uint16(inst.Disp)
		}
	case OP_JLT:
		if cpu.Flags.Less() {
			cpu.Pc += uint16(inst.Disp)
		}
	case OP_JGT:
		if cpu.Flags.Greater() {
			cpu.Pc += uint16(inst.Disp)
		}
	case OP_PUSH:
		err = cpu.Stack.Push(reg[inst.Rn])
	case OP_POP:
		var value uint16
		value, err = cpu.Stack.Pop()
		if err == nil {
			reg[inst.Rd] = value
		}
	case OP_CMP:
		_, cpu.Flags = DoAlu(OP_CMP, reg[inst.Rm], reg[inst.Rn])
	case OP_MOV_IMM:
		reg[inst.Rd] = inst.Imm
	case OP_MOV:
		reg[inst.Rd] = reg[inst.Rm]
	case OP_STR_IMM:
		// imm8 overlaps rm, so the address is always in rd.
		err = cpu.Data.Write(reg[inst.Rd], inst.Imm)
	case OP_STR:
		err = cpu.Data.Write(reg[inst.Rd], reg[inst.Rm])
	case OP_LDR:
		var value uint16
		value, err = cpu.Data.Read(reg[inst.Rm])
		if err == nil {
			reg[inst.Rd] = value
		}
	case OP_ADD, OP_SUB, OP_MUL, OP_AND, OP_OR, OP_XOR:
		reg[inst.Rd], cpu.Flags = DoAlu(inst.Op, reg[inst.Rm], reg[inst.Rn])
	case OP_NOT, OP_SHR, OP_SHL, OP_ROR, OP_ROL:
		reg[inst.Rd], cpu.Flags = DoAlu(inst.Op, reg[inst.Rm], 0)
	case OP_HALT:
		err = ErrHalt
	default:
		err = ErrUnimplemented
	}

	return
}
