// Package cpu implements the processor and assembler for the sim16 system.
//
// The CPU consists of a program counter (PC), an instruction register (IR),
// eight 16-bit general-purpose registers (r0-r7), an ALU maintaining four
// condition flags (zero, carry, negative, overflow), a stack held in a
// bounded address window, and split program and data memories.
//
// Instructions are single 16-bit words. The word 0xFFFF is the halt
// sentinel; program memory is filled with it before an image is loaded.
//
// The assembler provides a small assembly language for the sim16
// instruction set, supporting macros, labels, equates, and compile-time
// expression evaluation.
package cpu
