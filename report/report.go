// Package report formats the final state of a sim16 run.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ezrec/sim16/cpu"
	"github.com/ezrec/sim16/emulator"
)

// Report is the final state of a run, and what happened on the way there.
type Report struct {
	State  cpu.State   // Architectural state when the run stopped.
	Events []cpu.Event // Most recent executed instructions.
	Faults []error     // Runtime faults.
	Data   bool        // If set, include the non-zero data memory.
}

var _ io.WriterTo = (*Report)(nil)

// FromEmulator collects the report of an emulator run.
func FromEmulator(emu *emulator.Emulator) (rep *Report) {
	rep = &Report{
		State:  emu.Cpu.Snapshot(),
		Faults: emu.Faults,
	}

	if emu.Cpu.Trace != nil {
		rep.Events = emu.Cpu.Trace.Events
	}

	return
}

func newTable(title string) table.Writer {
	tw := table.NewWriter()
	tw.SetTitle(title)
	tw.SetStyle(table.StyleLight)
	return tw
}

// Registers renders the register bank, in hex and signed decimal.
func (rep *Report) Registers() string {
	tw := newTable("Registers")

	header := table.Row{""}
	hex := table.Row{"hex"}
	dec := table.Row{"dec"}
	for n, value := range rep.State.Register {
		header = append(header, cpu.Register(n).String())
		hex = append(hex, fmt.Sprintf("0x%04x", value))
		dec = append(dec, int16(value))
	}
	tw.AppendHeader(header)
	tw.AppendRow(hex)
	tw.AppendRow(dec)

	return tw.Render()
}

// Control renders the control state: pc, ir, sp, flags and counters.
func (rep *Report) Control() string {
	state := &rep.State
	tw := newTable("Control")

	tw.AppendRow(table.Row{"pc", fmt.Sprintf("0x%04x", state.Pc)})
	tw.AppendRow(table.Row{"ir", state.Ir.String()})
	tw.AppendRow(table.Row{"sp", fmt.Sprintf("0x%04x", state.Sp)})
	tw.AppendRow(table.Row{"flags", state.Flags.String()})
	tw.AppendRow(table.Row{"ticks", state.Ticks})
	tw.AppendRow(table.Row{"program size", fmt.Sprintf("%d bytes", state.ProgramSize)})
	tw.AppendRow(table.Row{"halted", state.Halted})

	return tw.Render()
}

// Stack renders the stack, from the top of the window down to sp.
func (rep *Report) Stack() string {
	state := &rep.State
	tw := newTable(fmt.Sprintf("Stack (%d)", len(state.Stack)))
	tw.AppendHeader(table.Row{"addr", "value"})

	if len(state.Stack) == 0 {
		tw.AppendRow(table.Row{"-", "empty"})
	}

	// Entries were pushed from the top of the window downward.
	top := state.Sp + uint16(2*len(state.Stack))
	for n, value := range state.Stack {
		addr := top - uint16(2*n)
		tw.AppendRow(table.Row{fmt.Sprintf("0x%04x", addr), fmt.Sprintf("0x%04x", value)})
	}

	return tw.Render()
}

// Memory renders the non-zero words of data memory.
func (rep *Report) Memory() string {
	tw := newTable("Data")
	tw.AppendHeader(table.Row{"index", "hex", "dec"})

	count := 0
	for index, value := range rep.State.Data {
		if value == 0 {
			continue
		}
		tw.AppendRow(table.Row{index, fmt.Sprintf("0x%04x", value), value})
		count++
	}

	if count == 0 {
		tw.AppendRow(table.Row{"-", "all zero", ""})
	}

	return tw.Render()
}

// FaultTable renders the runtime faults.
func (rep *Report) FaultTable() string {
	tw := newTable(fmt.Sprintf("Faults (%d)", len(rep.Faults)))
	tw.AppendHeader(table.Row{"#", "pc", "line", "fault"})

	for n, err := range rep.Faults {
		row := table.Row{n + 1, "", "", err.Error()}
		var runtime *emulator.ErrRuntime
		if errors.As(err, &runtime) {
			row[1] = fmt.Sprintf("0x%04x", runtime.Pc)
			if runtime.LineNo != 0 {
				row[2] = runtime.LineNo
			}
			row[3] = runtime.Err.Error()
		}
		tw.AppendRow(row)
	}

	return tw.Render()
}

// TraceTable renders the most recent executed instructions.
func (rep *Report) TraceTable() string {
	tw := newTable("Trace")
	tw.AppendHeader(table.Row{"tick", "pc", "code", "instruction", "fault"})

	for _, ev := range rep.Events {
		fault := ""
		if ev.Err != nil {
			fault = ev.Err.Error()
		}
		tw.AppendRow(table.Row{
			ev.Tick,
			fmt.Sprintf("0x%04x", ev.Pc),
			fmt.Sprintf("0x%04x", uint16(ev.Code)),
			cpu.Decode(ev.Code).String(),
			fault,
		})
	}

	return tw.Render()
}

// String renders the complete report.
func (rep *Report) String() string {
	sections := []string{
		rep.Registers(),
		rep.Control(),
		rep.Stack(),
	}

	if rep.Data {
		sections = append(sections, rep.Memory())
	}

	if len(rep.Events) != 0 {
		sections = append(sections, rep.TraceTable())
	}

	if len(rep.Faults) != 0 {
		sections = append(sections, rep.FaultTable())
	}

	return strings.Join(sections, "\n\n") + "\n"
}

// WriteTo writes the complete report.
func (rep *Report) WriteTo(w io.Writer) (n int64, err error) {
	count, err := io.WriteString(w, rep.String())
	n = int64(count)
	return
}
