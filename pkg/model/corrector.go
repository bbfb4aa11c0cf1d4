package model

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"rmimodels/pkg/dataset"
)

// Corrector is a single-hidden-layer ReLU network that reproduces the
// piecewise-linear function through a list of breakpoints.
//
// Hidden unit i starts contributing at breakpoint i and adds the change of
// slope there, so the running sum of kinks follows every segment exactly.
type Corrector struct {
	Weights1 []float64
	Weights2 []float64
	Biases1  []float64
	Bias2    float64
}

// NewCorrector trains a corrector on breakpoints (see Train).
func NewCorrector(breakpoints dataset.View) (*Corrector, error) {
	c := &Corrector{}
	if err := c.Train(breakpoints); err != nil {
		return nil, err
	}
	return c, nil
}

// ConstantCorrector always predicts pos.
func ConstantCorrector(pos float64) *Corrector {
	return &Corrector{Bias2: pos}
}

// Train replaces the state with the interpolant of the given breakpoints.
// A single breakpoint yields a constant function.
func (c *Corrector) Train(breakpoints dataset.View) error {
	n := breakpoints.Len()
	if n == 0 {
		return ErrEmptyData
	}

	units := n - 1
	w1 := make([]float64, 0, units)
	w2 := make([]float64, 0, units)
	b1 := make([]float64, 0, units)

	prevSlope := 0.0
	for i := 0; i < units; i++ {
		p, q := breakpoints.Get(i), breakpoints.Get(i+1)
		x1, y1 := p.Key.AsFloat(), float64(p.Pos)
		x2, y2 := q.Key.AsFloat(), float64(q.Pos)
		if x2 == x1 {
			return fmt.Errorf("%w: breakpoints %d and %d at key %d", ErrZeroKeyDelta, i, i+1, p.Key)
		}

		slope := (y2 - y1) / (x2 - x1)
		w := math.Abs(slope - prevSlope)
		w1 = append(w1, w)
		b1 = append(b1, -(x1 * w))
		if slope > prevSlope {
			w2 = append(w2, 1)
		} else {
			w2 = append(w2, -1)
		}
		prevSlope = slope
	}

	c.Weights1, c.Weights2, c.Biases1 = w1, w2, b1
	c.Bias2 = float64(breakpoints.Get(0).Pos)
	return nil
}

// Units is the number of hidden units.
func (c *Corrector) Units() int {
	return len(c.Weights1)
}

func (c *Corrector) Predict(x float64) float64 {
	sum := 0.0
	for i, w := range c.Weights1 {
		sum += relu(math.FMA(x, w, c.Biases1[i])) * c.Weights2[i]
	}
	return sum + c.Bias2
}

func relu(v float64) float64 {
	if v > 0 {
		return v
	}
	return 0
}

// Records returns the serialized layout [w1][w2][b1][bias2].
func (c *Corrector) Records() []float64 {
	out := make([]float64, 0, 3*len(c.Weights1)+1)
	out = append(out, c.Weights1...)
	out = append(out, c.Weights2...)
	out = append(out, c.Biases1...)
	return append(out, c.Bias2)
}

// CorrectorFromRecords splits a flat record list back into a corrector.
func CorrectorFromRecords(records []float64) (*Corrector, error) {
	n := len(records)
	if n == 0 || (n-1)%3 != 0 {
		return nil, &ParamCountError{Count: n}
	}
	k := (n - 1) / 3
	return &Corrector{
		Weights1: append([]float64(nil), records[:k]...),
		Weights2: append([]float64(nil), records[k:2*k]...),
		Biases1:  append([]float64(nil), records[2*k:3*k]...),
		Bias2:    records[n-1],
	}, nil
}

// WriteTo writes the records as little-endian float64 values.
func (c *Corrector) WriteTo(w io.Writer) (int64, error) {
	records := c.Records()
	if err := binary.Write(w, binary.LittleEndian, records); err != nil {
		return 0, err
	}
	return int64(8 * len(records)), nil
}

// ReadFrom replaces the state with records read from r until EOF.
func (c *Corrector) ReadFrom(r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return int64(len(data)), err
	}
	if len(data)%8 != 0 {
		return int64(len(data)), fmt.Errorf("%w: %d bytes is not a whole number of float64 records", ErrCorruptParams, len(data))
	}

	records := make([]float64, len(data)/8)
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, records); err != nil {
		return int64(len(data)), err
	}
	loaded, err := CorrectorFromRecords(records)
	if err != nil {
		return int64(len(data)), err
	}
	*c = *loaded
	return int64(len(data)), nil
}

// Save writes the corrector to path, replacing any existing file.
func (c *Corrector) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if _, err := c.WriteTo(w); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadCorrector reads a corrector written by Save.
func LoadCorrector(path string) (*Corrector, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c := &Corrector{}
	if _, err := c.ReadFrom(bufio.NewReader(f)); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return c, nil
}
