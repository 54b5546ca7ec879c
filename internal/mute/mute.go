// Package mute estimates the early-time mute window for a B-scan: the
// interval that blanks the direct Tx→Rx wave before any reflections arrive.
// The recommendation is derived from the simulation input file alone.
package mute

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
)

const speedOfLight = 299792458.0

var commandRE = regexp.MustCompile(`^\s*#\s*([a-zA-Z_]+)\s*:\s*(.*)$`)

// Point is a position in model space, in metres.
type Point struct {
	X, Y, Z float64
}

// Box is an axis-aligned material region with normalized corner order.
type Box struct {
	Lo, Hi   Point
	Material string
}

// Contains reports whether p lies in the box, boundary inclusive.
func (b Box) Contains(p Point) bool {
	return b.Lo.X <= p.X && p.X <= b.Hi.X &&
		b.Lo.Y <= p.Y && p.Y <= b.Hi.Y &&
		b.Lo.Z <= p.Z && p.Z <= b.Hi.Z
}

// Waveform is the source excitation declared in the input file.
type Waveform struct {
	Type      string
	Amplitude float64
	Frequency float64 // centre frequency, Hz
	Name      string
}

// Model is the subset of a simulation input file the estimator needs.
type Model struct {
	Materials map[string]float64 // name -> relative permittivity
	Boxes     []Box
	Waveform  *Waveform
	Tx, Rx    *Point
}

// ParseFile reads and parses a simulation input file.
func ParseFile(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open infile: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse extracts materials, boxes, the waveform and the Tx/Rx positions
// from input file text. Unknown commands and malformed lines are skipped;
// only the directives the estimator consumes are interpreted.
func Parse(r io.Reader) (*Model, error) {
	m := &Model{Materials: make(map[string]float64)}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		match := commandRE.FindStringSubmatch(scanner.Text())
		if match == nil {
			continue
		}
		key := strings.ToLower(match[1])
		toks := strings.Fields(match[2])

		switch key {
		case "material":
			// #material: epsr sigma mur sigma* name
			if len(toks) < 5 {
				continue
			}
			epsr, err := strconv.ParseFloat(toks[0], 64)
			if err != nil {
				continue
			}
			m.Materials[toks[len(toks)-1]] = epsr

		case "box":
			// #box: x1 y1 z1 x2 y2 z2 material
			if len(toks) < 7 {
				continue
			}
			coords := make([]float64, 6)
			ok := true
			for i := range coords {
				v, err := strconv.ParseFloat(toks[i], 64)
				if err != nil {
					ok = false
					break
				}
				coords[i] = v
			}
			if !ok {
				continue
			}
			m.Boxes = append(m.Boxes, Box{
				Lo: Point{
					X: math.Min(coords[0], coords[3]),
					Y: math.Min(coords[1], coords[4]),
					Z: math.Min(coords[2], coords[5]),
				},
				Hi: Point{
					X: math.Max(coords[0], coords[3]),
					Y: math.Max(coords[1], coords[4]),
					Z: math.Max(coords[2], coords[5]),
				},
				Material: toks[6],
			})

		case "waveform":
			// #waveform: type amplitude fc name
			// Only ricker pulses have a centre frequency the main-lobe
			// estimate applies to; other types need an explicit override.
			if len(toks) < 4 || !strings.EqualFold(toks[0], "ricker") {
				continue
			}
			amp, err1 := strconv.ParseFloat(toks[1], 64)
			fc, err2 := strconv.ParseFloat(toks[2], 64)
			if err1 != nil || err2 != nil {
				continue
			}
			m.Waveform = &Waveform{
				Type:      strings.ToLower(toks[0]),
				Amplitude: amp,
				Frequency: fc,
				Name:      toks[3],
			}

		case "hertzian_dipole":
			// #hertzian_dipole: polarisation x y z [waveform]
			if p, ok := parsePoint(toks, 1); ok {
				m.Tx = &p
			}

		case "rx":
			// #rx: x y z
			if p, ok := parsePoint(toks, 0); ok {
				m.Rx = &p
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read infile: %w", err)
	}
	return m, nil
}

func parsePoint(toks []string, offset int) (Point, bool) {
	if len(toks) < offset+3 {
		return Point{}, false
	}
	vals := make([]float64, 3)
	for i := range vals {
		v, err := strconv.ParseFloat(toks[offset+i], 64)
		if err != nil {
			return Point{}, false
		}
		vals[i] = v
	}
	return Point{X: vals[0], Y: vals[1], Z: vals[2]}, true
}

// InferPermittivity returns the relative permittivity of the medium between
// Tx and Rx. When both fall inside the same material box the box material
// wins ("air"/"vacuum" map to 1.0 even without a material directive);
// otherwise the default applies. Later boxes shadow earlier ones, matching
// how the engine paints geometry.
func (m *Model) InferPermittivity(def float64) float64 {
	if m.Tx == nil || m.Rx == nil {
		return def
	}

	var txBox, rxBox *Box
	for i := range m.Boxes {
		if m.Boxes[i].Contains(*m.Tx) {
			txBox = &m.Boxes[i]
		}
		if m.Boxes[i].Contains(*m.Rx) {
			rxBox = &m.Boxes[i]
		}
	}
	if txBox == nil || rxBox == nil || txBox != rxBox {
		return def
	}

	if epsr, ok := m.Materials[txBox.Material]; ok {
		return epsr
	}
	switch strings.ToLower(txBox.Material) {
	case "air", "vacuum":
		return 1.0
	}
	return def
}

// Options tunes the recommendation. Nil pointers mean "derive from the
// model".
type Options struct {
	Epsilon     *float64 // override inferred permittivity
	Fc          *float64 // override centre frequency, Hz
	K           float64  // mute tail multiplier on the main lobe
	PulseFactor float64  // main lobe ~ PulseFactor/fc
	Dt          *float64 // sampling interval, s; enables sample count
}

// DefaultOptions matches the historical recommendation: window end at
// t_direct + 0.8/fc.
func DefaultOptions() Options {
	return Options{K: 0.8, PulseFactor: 1.0}
}

// Result is a computed mute recommendation. All times are in seconds.
type Result struct {
	Distance   float64 // Tx→Rx separation, m
	Epsilon    float64 // permittivity used
	Velocity   float64 // wave speed, m/s
	Fc         float64 // centre frequency used, Hz
	DirectTime float64 // direct-wave arrival
	MainLobe   float64 // pulse main lobe estimate
	WindowEnd  float64 // recommended mute end
	Samples    int     // mute samples given Dt, -1 when Dt absent
}

// WindowEndNS returns the recommended window end in nanoseconds, the unit
// the plot collaborator takes.
func (r Result) WindowEndNS() float64 {
	return r.WindowEnd * 1e9
}

// Recommend computes the mute window for a parsed model.
func Recommend(m *Model, opts Options) (Result, error) {
	if m.Tx == nil || m.Rx == nil {
		return Result{}, fmt.Errorf("infile has no Tx (#hertzian_dipole) or Rx (#rx)")
	}

	var fc float64
	switch {
	case opts.Fc != nil:
		fc = *opts.Fc
	case m.Waveform != nil:
		fc = m.Waveform.Frequency
	default:
		return Result{}, fmt.Errorf("infile has no ricker waveform; pass an explicit centre frequency")
	}
	if fc <= 0 {
		return Result{}, fmt.Errorf("centre frequency must be positive, got %g", fc)
	}

	epsr := m.InferPermittivity(1.0)
	if opts.Epsilon != nil {
		epsr = *opts.Epsilon
	}

	dx := m.Rx.X - m.Tx.X
	dy := m.Rx.Y - m.Tx.Y
	dz := m.Rx.Z - m.Tx.Z
	d := math.Sqrt(dx*dx + dy*dy + dz*dz)

	v := speedOfLight / math.Sqrt(math.Max(epsr, 1e-9))
	directTime := d / v
	mainLobe := opts.PulseFactor / fc
	windowEnd := directTime + opts.K*mainLobe

	samples := -1
	if opts.Dt != nil && *opts.Dt > 0 {
		samples = int(math.Round(windowEnd / *opts.Dt))
	}

	return Result{
		Distance:   d,
		Epsilon:    epsr,
		Velocity:   v,
		Fc:         fc,
		DirectTime: directTime,
		MainLobe:   mainLobe,
		WindowEnd:  windowEnd,
		Samples:    samples,
	}, nil
}
