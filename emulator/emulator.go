// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"maps"

	"github.com/ezrec/sim16/cpu"
	"github.com/ezrec/sim16/internal"
	"github.com/ezrec/sim16/rom"
)

var _emulator_defines = map[string]string{
	"REGISTER_COUNT": fmt.Sprintf("%v", cpu.REGISTER_COUNT),
	"DISP_MIN":       fmt.Sprintf("%v", cpu.DISP_MIN),
	"DISP_MAX":       fmt.Sprintf("%v", cpu.DISP_MAX),
}

// Emulator state. CPU + program image + source listing.
type Emulator struct {
	Verbose    bool         // If set, enables verbose logging.
	*cpu.Cpu                // Reference to the CPU simulation.
	Program    *cpu.Program // Source listing of the image, if it was assembled.
	Image      *rom.Image   // Image loaded on reset.
	MaxTicks   int          // Tick limit for Run; 0 is unlimited.
	TraceLimit int          // Events kept in the CPU trace; 0 disables the trace.
	Faults     []error      // Runtime faults since the last reset.
}

// NewEmulator creates a new emulator.
func NewEmulator(config cpu.Config) (emu *Emulator, err error) {
	cp, err := cpu.NewCpu(config)
	if err != nil {
		return
	}

	emu = &Emulator{
		Cpu:   cp,
		Image: rom.NewImage(nil, nil),
	}

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		emu.Cpu.Defines(),
	)
}

// Assembler returns an assembler with the emulator defines predefined.
func (emu *Emulator) Assembler() (asm *cpu.Assembler) {
	asm = &cpu.Assembler{Verbose: emu.Verbose, Logger: emu.Cpu.Logger}
	asm.PredefineAll(emu.Defines())
	return
}

// Assemble parses assembly source, replacing the program image.
func (emu *Emulator) Assemble(input io.Reader) (err error) {
	prog, err := emu.Assembler().Parse(input)
	if err != nil {
		return
	}

	emu.Program = prog
	emu.Image = rom.NewImage(prog.Words(), prog.DataWords())

	return
}

// Reset the CPU and load the program image.
// Image words outside of memory are reported, and the rest of the image
// is loaded.
func (emu *Emulator) Reset() (err error) {
	emu.Cpu.Verbose = emu.Verbose

	emu.Cpu.Trace = nil
	if emu.TraceLimit > 0 {
		emu.Cpu.Trace = &cpu.Trace{Limit: emu.TraceLimit}
	}

	emu.Cpu.Reset()
	emu.Faults = nil

	err = errors.Join(
		emu.Cpu.Load(emu.Image.ProgramWords()),
		emu.Cpu.LoadData(emu.Image.DataWords()),
	)

	return
}

// Ticks returns the total ticks since a reset.
func (emu *Emulator) Ticks() int {
	return emu.Cpu.Ticks
}

// LineNo returns the source line number for the executing opcode, or 0
// if there is no source listing.
func (emu *Emulator) LineNo() int {
	if emu.Program == nil {
		return 0
	}

	dbg := emu.Program.Debug(emu.Cpu.Pc)
	if dbg.Opcode == nil {
		return 0
	}

	return dbg.LineNo
}

// Tick performs a single tick of the emulator.
// Instruction faults and the program memory boundary are returned as
// ErrRuntime; the halt sentinel is not an error.
func (emu *Emulator) Tick() (done bool, err error) {
	if emu.Cpu.Halted {
		done = true
		return
	}

	if emu.MaxTicks > 0 && emu.Cpu.Ticks >= emu.MaxTicks {
		done = true
		err = ErrTickLimit
		return
	}

	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	pc := emu.Cpu.Pc
	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{Pc: pc, LineNo: lineno, Err: err}
		}
	}()

	err = emu.Cpu.Tick()
	if errors.Is(err, cpu.ErrHalt) {
		err = nil
	}
	done = emu.Cpu.Halted

	return
}

// Run ticks the emulator until it halts, collecting the runtime faults.
// Only the tick limit stops a run early.
func (emu *Emulator) Run() (err error) {
	for {
		var done bool
		done, err = emu.Tick()
		if errors.Is(err, ErrTickLimit) {
			return
		}
		if err != nil {
			emu.Faults = append(emu.Faults, err)
			err = nil
		}
		if done {
			return
		}
	}
}
