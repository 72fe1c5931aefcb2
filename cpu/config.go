package cpu

// Config is the memory geometry of the simulated machine.
type Config struct {
	ProgramWords int    // Program memory capacity, in words.
	DataWords    int    // Data memory capacity, in words.
	StackBase    uint16 // Lowest address of the stack window.
	StackTop     uint16 // Highest address of the stack window; the empty stack pointer.
	StackWords   int    // Backing store size; at least StackTop-StackBase.
}

// Canonical machine geometry.
const (
	PROGRAM_WORDS = 1024
	DATA_WORDS    = 256
	STACK_BASE    = 0x8100
	STACK_TOP     = 0x8200
	STACK_WORDS   = 256
)

// DefaultConfig returns the canonical machine geometry.
func DefaultConfig() Config {
	return Config{
		ProgramWords: PROGRAM_WORDS,
		DataWords:    DATA_WORDS,
		StackBase:    STACK_BASE,
		StackTop:     STACK_TOP,
		StackWords:   STACK_WORDS,
	}
}

// Validate checks that the geometry is usable.
func (config Config) Validate() (err error) {
	switch {
	case config.ProgramWords <= 0 || config.ProgramWords > 0x8000:
		err = ErrConfig
	case config.DataWords <= 0 || config.DataWords > 0x10000:
		err = ErrConfig
	case config.StackBase >= config.StackTop:
		err = ErrConfig
	case (config.StackTop-config.StackBase)%2 != 0:
		err = ErrConfig
	case config.StackWords < int(config.StackTop-config.StackBase):
		// Backing index is the byte offset into the window.
		err = ErrConfig
	}

	return
}
