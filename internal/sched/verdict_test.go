package sched

import "testing"

func TestVerdict(t *testing.T) {
	var v Verdict
	if !v.OK() || v.Code() != 0 {
		t.Fatal("zero verdict must be OK")
	}

	v.Absorb(0)
	if !v.OK() {
		t.Error("absorbing success must keep verdict OK")
	}

	v.Absorb(2)
	v.Absorb(0)
	v.Absorb(1)
	if v.OK() {
		t.Error("verdict with failures must not be OK")
	}
	if v.Code() != 3 {
		t.Errorf("Code() = %d, want 3 (2|1)", v.Code())
	}
}
