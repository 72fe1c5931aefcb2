package cpu

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func FuzzCpu(f *testing.F) {
	for _, word := range []uint16{0x0000, 0x0001, 0x0202, 0x0ff0, 0x1905, 0x2907, 0x3140, 0x4028, 0xf000, 0xffff} {
		f.Add(word, uint16(0x1234), false)
		f.Add(word, uint16(0x0100), true)
	}

	f.Fuzz(func(t *testing.T, word uint16, value uint16, stacked bool) {
		assert := assert.New(t)

		cpu, err := NewCpu(DefaultConfig())
		assert.NoError(err)

		for n := range cpu.Register {
			cpu.Register[n] = value + uint16(n)
		}
		if stacked {
			assert.NoError(cpu.Stack.Push(value))
		}

		code := Code(word)
		inst := Decode(code)
		before := cpu.Register

		err = cpu.Execute(code)
		assert.Equal(code, cpu.Ir)

		switch {
		case code == HALT:
			assert.ErrorIs(err, ErrHalt)
			assert.Equal(before, cpu.Register)
		case err != nil:
			assert.ErrorIs(err, ErrOpcode(0))
			var opcode ErrOpcode
			if errors.As(err, &opcode) {
				assert.Equal(code, Code(opcode))
			}
		}

		assert.True(cpu.Stack.Sp >= cpu.Stack.Base)
		assert.True(cpu.Stack.Sp <= cpu.Stack.Top)

		switch inst.Op {
		case OP_NOP, OP_JMP, OP_JEQ, OP_JLT, OP_JGT, OP_PUSH, OP_CMP, OP_STR, OP_STR_IMM, OP_UNIMPLEMENTED:
			assert.Equal(before, cpu.Register)
		}
	})
}

func FuzzCpu_Run(f *testing.F) {
	f.Add([]byte{0x19, 0x05, 0x40, 0x28, 0x0f, 0xf0})
	f.Add([]byte{0x00, 0x01, 0x00, 0x01, 0x05, 0x02})

	f.Fuzz(func(t *testing.T, image []byte) {
		assert := assert.New(t)

		config := DefaultConfig()
		config.ProgramWords = 64
		cpu, err := NewCpu(config)
		assert.NoError(err)

		for n := 0; n+1 < len(image) && n/2 < config.ProgramWords; n += 2 {
			cpu.Program[n/2] = uint16(image[n])<<8 | uint16(image[n+1])
		}

		// Every run ends at the halt sentinel, the program memory boundary,
		// or in a loop that the tick limit catches.
		for range 4096 {
			err = cpu.Tick()
			if cpu.Halted {
				break
			}
		}

		if cpu.Halted {
			assert.True(errors.Is(err, ErrHalt) || errors.Is(err, ErrBoundary))
		}
	})
}
