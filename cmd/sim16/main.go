// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tebeka/atexit"

	"github.com/ezrec/sim16/cpu"
	"github.com/ezrec/sim16/emulator"
	"github.com/ezrec/sim16/report"
	"github.com/ezrec/sim16/rom"
)

const TRACE_EVENTS = 16 // Instructions shown in the report trace.

func main() {
	var compile string
	var image string
	var save bool
	var verbose bool
	var ticks int
	var trace string
	var data bool
	var quiet bool

	flag.StringVar(&compile, "c", "", ".s file to assemble and run")
	flag.StringVar(&image, "i", "program.txt", "Program image to run")
	flag.BoolVar(&save, "s", false, "Write the program image to stdout, do not execute")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.IntVar(&ticks, "n", 0, "Tick limit, 0 for none")
	flag.StringVar(&trace, "t", "", "JSON instruction trace file (implies -v)")
	flag.BoolVar(&data, "d", false, "Report non-zero data memory")
	flag.BoolVar(&quiet, "q", false, "Quiet mode, no report")

	flag.Parse()

	if flag.NArg() != 0 {
		atexit.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	level := slog.LevelInfo
	if verbose {
		level = cpu.LevelTrace
	}

	var handler slog.Handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	if len(trace) != 0 {
		ouf, err := os.Create(trace)
		if err != nil {
			atexit.Fatalf("%v: %v", trace, err)
		}
		atexit.Register(func() { ouf.Close() })
		handler = slog.NewJSONHandler(ouf, &slog.HandlerOptions{Level: cpu.LevelTrace})
		verbose = true
	}

	emu, err := emulator.NewEmulator(cpu.DefaultConfig())
	if err != nil {
		atexit.Fatalf("%v", err)
	}
	emu.Verbose = verbose
	emu.Cpu.Logger = slog.New(handler)
	emu.MaxTicks = ticks
	if !quiet {
		emu.TraceLimit = TRACE_EVENTS
	}

	// Assemble a new program, or load an image.
	if len(compile) != 0 {
		inf, err := os.Open(compile)
		if err != nil {
			atexit.Fatalf("%v: %v", compile, err)
		}
		atexit.Register(func() { inf.Close() })

		err = emu.Assemble(inf)
		if err != nil {
			atexit.Fatalf("%v: %v", compile, err)
		}
	} else {
		img, err := rom.Load(os.DirFS(filepath.Dir(image)), filepath.Base(image))
		if err != nil {
			atexit.Fatalf("%v: %v", image, err)
		}
		if verbose && len(img.Skipped) != 0 {
			log.Printf("%v: skipped malformed lines %v", image, img.Skipped)
		}
		emu.Image = img
	}

	if save {
		_, err = emu.Image.WriteTo(os.Stdout)
		if err != nil {
			atexit.Fatalf("%v", err)
		}
		atexit.Exit(0)
	}

	err = emu.Reset()
	if err != nil {
		log.Printf("%v", err)
	}

	code := 0
	err = emu.Run()
	if errors.Is(err, emulator.ErrTickLimit) {
		log.Printf("%v: %v", emulator.ErrTickLimit, ticks)
		code = 1
	}

	if !quiet {
		rep := report.FromEmulator(emu)
		rep.Data = data
		_, err = rep.WriteTo(os.Stdout)
		if err != nil {
			atexit.Fatalf("%v", err)
		}
	}

	atexit.Exit(code)
}
