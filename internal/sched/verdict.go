package sched

// Verdict accumulates chunk exit statuses into one sweep-level outcome by
// bitwise OR: zero only when every chunk exited zero. A failure taints the
// verdict but never stops sibling chunks from running.
type Verdict int

// Absorb folds one chunk exit status into the verdict.
func (v *Verdict) Absorb(exitCode int) {
	*v |= Verdict(exitCode)
}

// Code returns the verdict as a process exit code.
func (v Verdict) Code() int {
	return int(v)
}

// OK reports whether every absorbed status was zero.
func (v Verdict) OK() bool {
	return v == 0
}
