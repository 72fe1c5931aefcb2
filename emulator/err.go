package emulator

import (
	"errors"

	"github.com/ezrec/sim16/translate"
)

var f = translate.From

var ErrTickLimit = errors.New(f("tick limit exceeded"))

// ErrRuntime indicates the location of a runtime error.
type ErrRuntime struct {
	Pc     uint16
	LineNo int
	Err    error
}

func (err *ErrRuntime) Error() string {
	if err.LineNo == 0 {
		return f("pc 0x%04x %v", err.Pc, err.Err)
	}
	return f("pc 0x%04x line %d %v", err.Pc, err.LineNo, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}
