package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSimulate_CommandLine(t *testing.T) {
	tc := New([]string{"python", "-m", "gprMax"}, nil, nil, discard())

	var got []string
	tc.SetRunFunc(func(_ context.Context, argv []string) (int, error) {
		got = append([]string{}, argv...)
		return 0, nil
	})

	code, err := tc.Simulate(context.Background(), "model/test.in", 60, 7, "1")
	if err != nil || code != 0 {
		t.Fatalf("Simulate: code=%d err=%v", code, err)
	}

	want := []string{"python", "-m", "gprMax", "model/test.in", "-n", "60", "-task", "7", "-gpu", "1"}
	if len(got) != len(want) {
		t.Fatalf("argv = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("argv[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMerge_RemoveFilesFlag(t *testing.T) {
	tc := New(nil, []string{"merge-tool"}, nil, discard())

	var got []string
	tc.SetRunFunc(func(_ context.Context, argv []string) (int, error) {
		got = argv
		return 0, nil
	})

	if _, err := tc.Merge(context.Background(), "model/test", true); err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[2] != "--remove-files" {
		t.Errorf("argv = %v, want [merge-tool model/test --remove-files]", got)
	}

	if _, err := tc.Merge(context.Background(), "model/test", false); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("argv = %v, want no --remove-files", got)
	}
}

func TestPlot_MutePassthrough(t *testing.T) {
	tc := New(nil, nil, []string{"plot-tool"}, discard())

	var got []string
	tc.SetRunFunc(func(_ context.Context, argv []string) (int, error) {
		got = argv
		return 0, nil
	})

	mute := 12.3456
	if _, err := tc.Plot(context.Background(), "test_merged.out", "Ez", &mute); err != nil {
		t.Fatal(err)
	}
	want := []string{"plot-tool", "test_merged.out", "Ez", "--mute_ns", "12.346"}
	if len(got) != len(want) {
		t.Fatalf("argv = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("argv[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if _, err := tc.Plot(context.Background(), "test_merged.out", "Ez", nil); err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Errorf("argv = %v, want no mute flag", got)
	}
}

func TestExecRun_ExitCodes(t *testing.T) {
	if code, err := execRun(context.Background(), []string{"true"}); err != nil || code != 0 {
		t.Errorf("true: code=%d err=%v", code, err)
	}
	if code, err := execRun(context.Background(), []string{"sh", "-c", "exit 3"}); err != nil || code != 3 {
		t.Errorf("exit 3: code=%d err=%v", code, err)
	}
	if _, err := execRun(context.Background(), []string{"definitely-not-a-binary-xyz"}); err == nil {
		t.Error("missing binary: expected error")
	}
}

func TestArtifactNaming(t *testing.T) {
	if got := ArtifactPrefix("waterwood/test.in"); got != "waterwood/test" {
		t.Errorf("ArtifactPrefix = %q", got)
	}
	if got := ArtifactPrefix("noext"); got != "noext" {
		t.Errorf("ArtifactPrefix(noext) = %q", got)
	}
	if got := MergedArtifact("waterwood/test"); got != "waterwood/test_merged.out" {
		t.Errorf("MergedArtifact = %q", got)
	}
}
