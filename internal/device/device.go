// Package device resolves the GPU slots a sweep may schedule onto.
package device

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// ErrNoDevices is returned when neither the flags nor autodetection yield
// any usable device slot.
var ErrNoDevices = fmt.Errorf("no GPU devices available")

// ParseList splits a comma-separated device list ("0,1,2") into slot ids,
// dropping empty entries.
func ParseList(s string) []string {
	var ids []string
	for _, part := range strings.Split(s, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Detect returns the device slots for a sweep: the explicit list when given,
// otherwise the GPUs visible to nvidia-smi. Returns ErrNoDevices when the
// result would be empty.
func Detect(ctx context.Context, explicit string) ([]string, error) {
	if ids := ParseList(explicit); len(ids) > 0 {
		return ids, nil
	}

	out, err := exec.CommandContext(ctx, "nvidia-smi", "--query-gpu=index", "--format=csv,noheader").Output()
	if err != nil {
		return nil, fmt.Errorf("%w: nvidia-smi: %v", ErrNoDevices, err)
	}

	ids := parseSMIOutput(out)
	if len(ids) == 0 {
		return nil, ErrNoDevices
	}
	return ids, nil
}

// parseSMIOutput extracts one device index per non-blank line of
// nvidia-smi's csv,noheader output.
func parseSMIOutput(out []byte) []string {
	var ids []string
	for _, line := range strings.Split(string(out), "\n") {
		if id := strings.TrimSpace(line); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
