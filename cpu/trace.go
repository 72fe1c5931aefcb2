package cpu

import (
	"context"
	"iter"
	"log/slog"
)

// LevelTrace is the slog level of per-instruction records.
const LevelTrace slog.Level = slog.LevelDebug - 4

// Event is one executed instruction.
type Event struct {
	Tick int    // Cpu tick count when executed.
	Pc   uint16 // Address the instruction was fetched from.
	Code Code   // Instruction word.
	Err  error  // Fault raised, if any.
	Dump bool   // Set by NOP, a request for a state dump.
}

// Trace is a bounded log of executed instructions.
type Trace struct {
	Limit  int // Maximum number of events kept; 0 keeps all of them.
	Events []Event
}

// Append records an event, dropping the oldest if the trace is full.
func (tr *Trace) Append(ev Event) {
	if tr.Limit > 0 && len(tr.Events) >= tr.Limit {
		tr.Events = append(tr.Events[:0], tr.Events[len(tr.Events)-tr.Limit+1:]...)
	}
	tr.Events = append(tr.Events, ev)
}

// Faults iterates over the events that raised a fault.
func (tr *Trace) Faults() iter.Seq[Event] {
	return func(yield func(Event) bool) {
		for _, ev := range tr.Events {
			if ev.Err == nil {
				continue
			}
			if !yield(ev) {
				return
			}
		}
	}
}

func (tr *Trace) Reset() {
	tr.Events = tr.Events[:0]
}

// trace logs and records an executed instruction.
func (cpu *Cpu) trace(ev Event) {
	if cpu.Verbose {
		logger := cpu.logger()
		attrs := []any{
			"tick", ev.Tick,
			"pc", ev.Pc,
			"code", ev.Code.String(),
		}
		switch {
		case ev.Err != nil:
			logger.Warn("fault", append(attrs, "err", ev.Err.Error())...)
		case ev.Dump:
			logger.Log(context.Background(), LevelTrace, "dump", append(attrs, "state", cpu.String())...)
		default:
			logger.Log(context.Background(), LevelTrace, "exec", attrs...)
		}
	}

	if cpu.Trace != nil {
		cpu.Trace.Append(ev)
	}
}
