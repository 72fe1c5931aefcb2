// Package rom reads and writes sim16 program images.
//
// An image is a text file of `<hex-address>: <hex-value>` lines. Program
// addresses are byte addresses; a `[data]` line switches the following lines
// to data memory, addressed by word index, and `[program]` switches back.
// Comments start with ';' or '#'. Malformed lines are skipped.
package rom

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"maps"
	"strconv"
	"strings"

	"github.com/ezrec/sim16/internal"
)

const (
	SECTION_PROGRAM = "[program]"
	SECTION_DATA    = "[data]"
)

// Image is a loadable program image.
type Image struct {
	Program map[uint16]uint16 // Program words, by byte address.
	Data    map[uint16]uint16 // Data words, by index.
	Skipped []int             // Line numbers of malformed lines.
}

var _ io.WriterTo = (*Image)(nil)

// NewImage creates an image from program and data word iterators.
// Either may be nil.
func NewImage(program, data iter.Seq2[uint16, uint16]) (img *Image) {
	img = &Image{
		Program: map[uint16]uint16{},
		Data:    map[uint16]uint16{},
	}

	if program != nil {
		maps.Insert(img.Program, program)
	}
	if data != nil {
		maps.Insert(img.Data, data)
	}

	return
}

// Load reads the named image from a file system.
func Load(fsys fs.FS, name string) (img *Image, err error) {
	inf, err := fsys.Open(name)
	if err != nil {
		return
	}
	defer inf.Close()

	img = NewImage(nil, nil)
	err = img.Parse(inf)
	if err != nil {
		img = nil
		return
	}

	return
}

// parseHex parses a 16 bit hexadecimal word, with an optional 0x prefix.
func parseHex(word string) (value uint16, ok bool) {
	word = strings.TrimSpace(word)
	word = strings.TrimPrefix(strings.ToLower(word), "0x")
	v64, err := strconv.ParseUint(word, 16, 16)
	if err != nil {
		return
	}

	value = uint16(v64)
	ok = true
	return
}

// Parse adds the words of an image to img. Only read errors are returned.
func (img *Image) Parse(input io.Reader) (err error) {
	scanner := bufio.NewScanner(input)

	if img.Program == nil {
		img.Program = map[uint16]uint16{}
	}
	if img.Data == nil {
		img.Data = map[uint16]uint16{}
	}

	section := img.Program
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := scanner.Text()
		line, _, _ = strings.Cut(line, ";")
		line, _, _ = strings.Cut(line, "#")
		line = strings.TrimSpace(line)

		switch strings.ToLower(line) {
		case "":
			continue
		case SECTION_PROGRAM:
			section = img.Program
			continue
		case SECTION_DATA:
			section = img.Data
			continue
		}

		left, right, found := strings.Cut(line, ":")
		addr, addr_ok := parseHex(left)
		value, value_ok := parseHex(right)
		if !found || !addr_ok || !value_ok {
			img.Skipped = append(img.Skipped, lineno)
			continue
		}

		section[addr] = value
	}

	err = scanner.Err()
	return
}

// ProgramWords iterates over the program words in address order.
func (img *Image) ProgramWords() iter.Seq2[uint16, uint16] {
	return internal.IterSeq2Sorted(img.Program)
}

// DataWords iterates over the data words in index order.
func (img *Image) DataWords() iter.Seq2[uint16, uint16] {
	return internal.IterSeq2Sorted(img.Data)
}

// WriteTo writes the image in its text form.
func (img *Image) WriteTo(w io.Writer) (n int64, err error) {
	bw := bufio.NewWriter(w)

	emit := func(format string, args ...any) {
		if err != nil {
			return
		}
		var count int
		count, err = fmt.Fprintf(bw, format, args...)
		n += int64(count)
	}

	for addr, value := range img.ProgramWords() {
		emit("0x%04x: 0x%04x\n", addr, value)
	}

	if len(img.Data) != 0 {
		emit("%v\n", SECTION_DATA)
		for index, value := range img.DataWords() {
			emit("0x%04x: 0x%04x\n", index, value)
		}
	}

	if err != nil {
		return
	}

	err = bw.Flush()
	return
}
