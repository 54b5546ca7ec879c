package device

import (
	"context"
	"errors"
	"testing"
)

func TestParseList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"0,1", []string{"0", "1"}},
		{" 0 , 1 ,2", []string{"0", "1", "2"}},
		{"0,,1,", []string{"0", "1"}},
		{"", nil},
		{" , ", nil},
	}
	for _, tt := range tests {
		got := ParseList(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("ParseList(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ParseList(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}

func TestParseSMIOutput(t *testing.T) {
	out := []byte("0\n1\n2\n")
	ids := parseSMIOutput(out)
	if len(ids) != 3 || ids[0] != "0" || ids[2] != "2" {
		t.Errorf("parseSMIOutput = %v, want [0 1 2]", ids)
	}

	if ids := parseSMIOutput([]byte("\n  \n")); len(ids) != 0 {
		t.Errorf("blank output parsed to %v, want none", ids)
	}
}

func TestDetect_ExplicitListWins(t *testing.T) {
	ids, err := Detect(context.Background(), "3,5")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(ids) != 2 || ids[0] != "3" || ids[1] != "5" {
		t.Errorf("Detect = %v, want [3 5]", ids)
	}
}

func TestDetect_NoDevicesError(t *testing.T) {
	// No explicit list and (almost certainly) no nvidia-smi on the test host.
	_, err := Detect(context.Background(), "")
	if err == nil {
		t.Skip("host has GPUs; nothing to assert")
	}
	if !errors.Is(err, ErrNoDevices) {
		t.Errorf("error = %v, want ErrNoDevices", err)
	}
}
