package quad

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/bodgit/pixelquad/runs"
)

const (
	// Extension is the expected file extension used when writing to disk
	Extension = ".pxqd"

	magic   = "PXQD"
	version = 1

	maxDimension = math.MaxUint16
	maxRuns      = math.MaxUint32
	maxName      = math.MaxUint16
)

var (
	errBadMagic   = errors.New("quad: invalid signature")
	errBadVersion = errors.New("quad: unsupported version")
	errTooMuch    = errors.New("quad: trailing data")
	errBadRun     = errors.New("quad: run outside model")
)

type header struct {
	Version uint8
	Width   uint16
	Height  uint16
	NameLen uint16
}

type record struct {
	Start  uint16
	Row    uint16
	Length uint16
	R      uint16
	G      uint16
	B      uint16
	A      uint16
}

// MarshalBinary encodes the model into binary form and returns the result.
func (m *Model) MarshalBinary() ([]byte, error) {
	switch {
	case m.Width <= 0 || m.Height <= 0 || m.Width > maxDimension || m.Height > maxDimension:
		return nil, fmt.Errorf("quad: bad dimensions %dx%d", m.Width, m.Height)
	case len(m.Name) > maxName:
		return nil, fmt.Errorf("quad: name longer than %d bytes", maxName)
	case uint64(len(m.Runs)) > maxRuns:
		return nil, fmt.Errorf("quad: more than %d runs", uint64(maxRuns))
	}

	b := new(bytes.Buffer)
	b.WriteString(magic)

	h := header{
		Version: version,
		Width:   uint16(m.Width),
		Height:  uint16(m.Height),
		NameLen: uint16(len(m.Name)),
	}
	if err := binary.Write(b, binary.LittleEndian, &h); err != nil {
		return nil, err
	}
	b.WriteString(m.Name)

	if err := binary.Write(b, binary.LittleEndian, uint32(len(m.Runs))); err != nil {
		return nil, err
	}

	for _, r := range m.Runs {
		if r.Start < 0 || r.Length < 1 || r.End() > m.Width || r.Row < 0 || r.Row >= m.Height {
			return nil, errBadRun
		}
		c := r.Color.NRGBA64()
		rec := record{
			Start:  uint16(r.Start),
			Row:    uint16(r.Row),
			Length: uint16(r.Length),
			R:      c.R,
			G:      c.G,
			B:      c.B,
			A:      c.A,
		}
		if err := binary.Write(b, binary.LittleEndian, &rec); err != nil {
			return nil, err
		}
	}

	return b.Bytes(), nil
}

func readFull(r io.Reader, b []byte) error {
	_, err := io.ReadFull(r, b)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

// UnmarshalBinary decodes a model previously encoded with MarshalBinary.
func (m *Model) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)

	var sig [len(magic)]byte
	if err := readFull(r, sig[:]); err != nil {
		return err
	}
	if string(sig[:]) != magic {
		return errBadMagic
	}

	var h header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return err
	}
	if h.Version != version {
		return errBadVersion
	}

	name := make([]byte, h.NameLen)
	if err := readFull(r, name); err != nil {
		return err
	}

	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return err
	}

	// Don't trust the count to size the allocation
	if int64(n)*int64(binary.Size(record{})) > int64(r.Len()) {
		return io.ErrUnexpectedEOF
	}

	out := Model{
		Name:   string(name),
		Width:  int(h.Width),
		Height: int(h.Height),
	}
	if n > 0 {
		out.Runs = make([]runs.Run, 0, n)
	}
	for i := uint32(0); i < n; i++ {
		var rec record
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return err
		}
		run := runs.Run{
			Row:    int(rec.Row),
			Start:  int(rec.Start),
			Length: int(rec.Length),
			Color: runs.Color{
				R: float64(rec.R) / 0xffff,
				G: float64(rec.G) / 0xffff,
				B: float64(rec.B) / 0xffff,
				A: float64(rec.A) / 0xffff,
			},
		}
		if run.Length < 1 || run.End() > out.Width || run.Row >= out.Height {
			return errBadRun
		}
		out.Runs = append(out.Runs, run)
	}

	if r.Len() > 0 {
		return errTooMuch
	}

	*m = out
	return nil
}
