package cpu

// Stack is a downward growing stack held in a bounded address window.
//
// Sp is an address, not an index. Push writes at Sp and then moves Sp down
// one word; Pop moves Sp up one word and then reads. Sp never leaves
// [Base, Top]: Top is the empty stack, Base the full one.
type Stack struct {
	Base uint16
	Top  uint16
	Sp   uint16
	Data []uint16
}

// NewStack creates an empty stack over the window [base, top].
func NewStack(base, top uint16, words int) (s Stack) {
	s = Stack{
		Base: base,
		Top:  top,
		Sp:   top,
		Data: make([]uint16, words),
	}

	return
}

// index maps a window address to the backing store.
func (s *Stack) index(addr uint16) int {
	return int(addr-s.Base) % len(s.Data)
}

// Push stores value at the stack pointer, then decrements it.
func (s *Stack) Push(value uint16) (err error) {
	if s.Full() {
		err = ErrStackFull
		return
	}

	s.Data[s.index(s.Sp)] = value
	s.Sp -= 2
	return
}

// Pop increments the stack pointer, then loads the value there.
func (s *Stack) Pop() (value uint16, err error) {
	if s.Empty() {
		err = ErrStackEmpty
		return
	}

	s.Sp += 2
	value = s.Data[s.index(s.Sp)]
	return
}

// Peek returns the most recently pushed value.
func (s *Stack) Peek() (value uint16, ok bool) {
	if s.Empty() {
		return
	}

	return s.Data[s.index(s.Sp+2)], true
}

func (s *Stack) Empty() bool {
	return s.Sp >= s.Top
}

func (s *Stack) Full() bool {
	return s.Sp < s.Base+2
}

// Depth returns the number of words on the stack.
func (s *Stack) Depth() int {
	return int(s.Top-s.Sp) / 2
}

// Entries returns the stack contents from the top of the window down to
// the stack pointer; the most recently pushed value is last.
func (s *Stack) Entries() (values []uint16) {
	for addr := s.Top; addr > s.Sp; addr -= 2 {
		values = append(values, s.Data[s.index(addr)])
	}
	return
}

func (s *Stack) Reset() {
	s.Sp = s.Top
	clear(s.Data)
}
