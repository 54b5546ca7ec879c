package mute

import (
	"math"
	"strings"
	"testing"
)

const sampleInfile = `
#title: B-scan test model
#domain: 1.0 1.0 0.002
#dx_dy_dz: 0.002 0.002 0.002

#material: 4.0 0.005 1 0 soil
#material: 1.0 0.0 1 0 freespace

#box: 0 0 0 1.0 0.7 0.002 soil
#box: 0 0.7 0 1.0 1.0 0.002 freespace

#waveform: ricker 1 1.5e9 my_ricker
#hertzian_dipole: z 0.1 0.5 0 my_ricker
#rx: 0.3 0.5 0

#src_steps: 0.01 0 0
#rx_steps: 0.01 0 0
`

func approx(got, want, tol float64) bool {
	return math.Abs(got-want) <= tol*math.Abs(want)
}

func TestParse(t *testing.T) {
	m, err := Parse(strings.NewReader(sampleInfile))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if got := m.Materials["soil"]; got != 4.0 {
		t.Errorf("soil epsr = %g, want 4.0", got)
	}
	if len(m.Boxes) != 2 {
		t.Fatalf("boxes = %d, want 2", len(m.Boxes))
	}
	if m.Waveform == nil || m.Waveform.Type != "ricker" || m.Waveform.Frequency != 1.5e9 {
		t.Errorf("waveform = %+v", m.Waveform)
	}
	if m.Tx == nil || m.Tx.X != 0.1 || m.Tx.Y != 0.5 {
		t.Errorf("tx = %+v", m.Tx)
	}
	if m.Rx == nil || m.Rx.X != 0.3 {
		t.Errorf("rx = %+v", m.Rx)
	}
}

func TestParse_NormalizesBoxCorners(t *testing.T) {
	m, err := Parse(strings.NewReader("#box: 1.0 0.7 0.002 0 0 0 soil\n"))
	if err != nil {
		t.Fatal(err)
	}
	b := m.Boxes[0]
	if b.Lo.X != 0 || b.Hi.X != 1.0 || b.Lo.Y != 0 || b.Hi.Y != 0.7 {
		t.Errorf("box not normalized: %+v", b)
	}
}

func TestInferPermittivity(t *testing.T) {
	m, err := Parse(strings.NewReader(sampleInfile))
	if err != nil {
		t.Fatal(err)
	}

	// Both antennas sit in the soil box.
	if got := m.InferPermittivity(1.0); got != 4.0 {
		t.Errorf("epsr = %g, want 4.0 (soil)", got)
	}

	// Antennas in different boxes fall back to the default.
	m.Rx = &Point{X: 0.3, Y: 0.9, Z: 0}
	if got := m.InferPermittivity(1.0); got != 1.0 {
		t.Errorf("epsr = %g, want default 1.0", got)
	}
}

func TestInferPermittivity_NamedAir(t *testing.T) {
	m, err := Parse(strings.NewReader(`
#box: 0 0 0 1 1 1 air
#hertzian_dipole: z 0.2 0.2 0.2 w
#rx: 0.4 0.2 0.2
`))
	if err != nil {
		t.Fatal(err)
	}
	if got := m.InferPermittivity(9.9); got != 1.0 {
		t.Errorf("epsr = %g, want 1.0 for literal air", got)
	}
}

func TestRecommend(t *testing.T) {
	m, err := Parse(strings.NewReader(sampleInfile))
	if err != nil {
		t.Fatal(err)
	}

	res, err := Recommend(m, DefaultOptions())
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}

	if !approx(res.Distance, 0.2, 1e-9) {
		t.Errorf("distance = %g, want 0.2", res.Distance)
	}
	// v = c/sqrt(4) = c/2.
	if !approx(res.Velocity, 1.49896229e8, 1e-6) {
		t.Errorf("velocity = %g", res.Velocity)
	}
	// t_direct = 0.2 / (c/2) ≈ 1.33426e-9 s.
	if !approx(res.DirectTime, 1.33426e-9, 1e-4) {
		t.Errorf("direct time = %g", res.DirectTime)
	}
	// window end = t_direct + 0.8/fc ≈ 1.86759e-9 s.
	if !approx(res.WindowEnd, 1.86759e-9, 1e-4) {
		t.Errorf("window end = %g", res.WindowEnd)
	}
	if !approx(res.WindowEndNS(), 1.86759, 1e-4) {
		t.Errorf("window end ns = %g", res.WindowEndNS())
	}
	if res.Samples != -1 {
		t.Errorf("samples = %d, want -1 without dt", res.Samples)
	}
}

func TestRecommend_Overrides(t *testing.T) {
	m, err := Parse(strings.NewReader(sampleInfile))
	if err != nil {
		t.Fatal(err)
	}

	eps := 1.0
	fc := 1.0e9
	dt := 1e-11
	opts := DefaultOptions()
	opts.Epsilon = &eps
	opts.Fc = &fc
	opts.Dt = &dt

	res, err := Recommend(m, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !approx(res.Velocity, speedOfLight, 1e-9) {
		t.Errorf("velocity = %g, want c", res.Velocity)
	}
	if res.Fc != 1.0e9 {
		t.Errorf("fc = %g, want 1e9", res.Fc)
	}
	wantSamples := int(math.Round(res.WindowEnd / dt))
	if res.Samples != wantSamples {
		t.Errorf("samples = %d, want %d", res.Samples, wantSamples)
	}
}

func TestRecommend_MissingAntennas(t *testing.T) {
	m, err := Parse(strings.NewReader("#waveform: ricker 1 1.5e9 w\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Recommend(m, DefaultOptions()); err == nil {
		t.Error("expected error without Tx/Rx")
	}
}

func TestParse_IgnoresNonRickerWaveform(t *testing.T) {
	m, err := Parse(strings.NewReader(
		"#waveform: gaussian 1 1.5e9 w\n#hertzian_dipole: z 0 0 0 w\n#rx: 0.1 0 0\n"))
	if err != nil {
		t.Fatal(err)
	}
	if m.Waveform != nil {
		t.Errorf("non-ricker waveform should not be recorded, got %+v", m.Waveform)
	}
	if _, err := Recommend(m, DefaultOptions()); err == nil {
		t.Error("expected error: non-ricker waveform needs an explicit fc")
	}

	fc := 1.5e9
	opts := DefaultOptions()
	opts.Fc = &fc
	if _, err := Recommend(m, opts); err != nil {
		t.Errorf("fc override should satisfy Recommend: %v", err)
	}
}

func TestRecommend_MissingWaveform(t *testing.T) {
	m, err := Parse(strings.NewReader("#hertzian_dipole: z 0 0 0 w\n#rx: 0.1 0 0\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Recommend(m, DefaultOptions()); err == nil {
		t.Error("expected error without waveform or fc override")
	}

	fc := 1.5e9
	opts := DefaultOptions()
	opts.Fc = &fc
	if _, err := Recommend(m, opts); err != nil {
		t.Errorf("fc override should satisfy Recommend: %v", err)
	}
}
