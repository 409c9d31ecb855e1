// Package npy reads and writes NumPy .npy files (format version 1.0) for
// the two array kinds the converter persists: uint8 volumes and float64
// vectors. The format is a 6-byte magic, a 2-byte version, a little-endian
// uint16 header length, a Python dict literal padded to a 64-byte boundary,
// and the raw array body.
package npy

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
)

var magic = []byte("\x93NUMPY")

// Header is the parsed .npy header dict.
type Header struct {
	// Descr is the dtype string, e.g. "|u1" or "<f8"
	Descr string

	// FortranOrder reports column-major layout; this package only writes
	// and accepts row-major (false)
	FortranOrder bool

	// Shape is the array dimensions
	Shape []int
}

// NumElements returns the product of the header's dimensions.
func (h Header) NumElements() int {
	n := 1
	for _, d := range h.Shape {
		n *= d
	}
	return n
}

func writeHeader(w io.Writer, descr string, shape []int) error {
	dims := make([]string, len(shape))
	for i, d := range shape {
		dims[i] = strconv.Itoa(d)
	}
	tuple := strings.Join(dims, ", ")
	if len(shape) == 1 {
		tuple += ","
	}
	dict := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': (%s), }", descr, tuple)

	// Pad so magic+version+length+dict+newline lands on a 64-byte boundary.
	total := len(magic) + 2 + 2 + len(dict) + 1
	pad := (64 - total%64) % 64
	dict += strings.Repeat(" ", pad) + "\n"

	if _, err := w.Write(magic); err != nil {
		return err
	}
	if _, err := w.Write([]byte{1, 0}); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(dict))); err != nil {
		return err
	}
	_, err := w.Write([]byte(dict))
	return err
}

// WriteUint8 writes a uint8 array of the given shape to path.
func WriteUint8(path string, data []uint8, shape []int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if err := writeHeader(bw, "|u1", shape); err != nil {
		return err
	}
	if _, err := bw.Write(data); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return f.Close()
}

// WriteFloat64 writes a 1-D float64 vector to path.
func WriteFloat64(path string, data []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if err := writeHeader(bw, "<f8", []int{len(data)}); err != nil {
		return err
	}
	buf := make([]byte, 8)
	for _, v := range data {
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return f.Close()
}

var (
	descrRe   = regexp.MustCompile(`'descr'\s*:\s*'([^']+)'`)
	fortranRe = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	shapeRe   = regexp.MustCompile(`'shape'\s*:\s*\(([^)]*)\)`)
)

// ReadHeader parses the header from r, leaving r positioned at the array
// body.
func ReadHeader(r io.Reader) (Header, error) {
	preamble := make([]byte, 10)
	if _, err := io.ReadFull(r, preamble); err != nil {
		return Header{}, fmt.Errorf("read preamble: %w", err)
	}
	if string(preamble[:6]) != string(magic) {
		return Header{}, fmt.Errorf("bad magic %q", preamble[:6])
	}
	if preamble[6] != 1 {
		return Header{}, fmt.Errorf("unsupported npy version %d.%d", preamble[6], preamble[7])
	}
	headerLen := binary.LittleEndian.Uint16(preamble[8:10])
	raw := make([]byte, headerLen)
	if _, err := io.ReadFull(r, raw); err != nil {
		return Header{}, fmt.Errorf("read header: %w", err)
	}
	dict := string(raw)

	var h Header
	m := descrRe.FindStringSubmatch(dict)
	if m == nil {
		return Header{}, fmt.Errorf("header missing descr: %q", dict)
	}
	h.Descr = m[1]

	m = fortranRe.FindStringSubmatch(dict)
	if m == nil {
		return Header{}, fmt.Errorf("header missing fortran_order: %q", dict)
	}
	h.FortranOrder = m[1] == "True"

	m = shapeRe.FindStringSubmatch(dict)
	if m == nil {
		return Header{}, fmt.Errorf("header missing shape: %q", dict)
	}
	for _, part := range strings.Split(m[1], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := strconv.Atoi(part)
		if err != nil {
			return Header{}, fmt.Errorf("shape dimension %q: %w", part, err)
		}
		h.Shape = append(h.Shape, d)
	}
	return h, nil
}

// ReadUint8 reads a uint8 array and its shape from path.
func ReadUint8(path string) ([]uint8, []int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	h, err := ReadHeader(br)
	if err != nil {
		return nil, nil, err
	}
	if h.Descr != "|u1" || h.FortranOrder {
		return nil, nil, fmt.Errorf("%s: want row-major |u1, got %s", path, h.Descr)
	}
	data := make([]uint8, h.NumElements())
	if _, err := io.ReadFull(br, data); err != nil {
		return nil, nil, fmt.Errorf("read body: %w", err)
	}
	return data, h.Shape, nil
}

// ReadFloat64 reads a 1-D float64 vector from path.
func ReadFloat64(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	h, err := ReadHeader(br)
	if err != nil {
		return nil, err
	}
	if h.Descr != "<f8" || h.FortranOrder {
		return nil, fmt.Errorf("%s: want row-major <f8, got %s", path, h.Descr)
	}
	data := make([]float64, h.NumElements())
	buf := make([]byte, 8)
	for i := range data {
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		data[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf))
	}
	return data, nil
}
