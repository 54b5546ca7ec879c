package stage

import (
	"context"
	"testing"
)

func TestLocal_StageOut(t *testing.T) {
	loc, err := Local{}.StageOut(context.Background(), "/data/test_merged.out")
	if err != nil {
		t.Fatal(err)
	}
	if loc != "/data/test_merged.out" {
		t.Errorf("location = %q, want local path unchanged", loc)
	}
}

func TestFromURL(t *testing.T) {
	if s, err := FromURL(context.Background(), ""); err != nil {
		t.Errorf("empty destination: %v", err)
	} else if _, ok := s.(Local); !ok {
		t.Errorf("empty destination gave %T, want Local", s)
	}

	if _, err := FromURL(context.Background(), "ftp://host/x"); err == nil {
		t.Error("ftp scheme: expected error")
	}
	if _, err := FromURL(context.Background(), "s3:///nobucket"); err == nil {
		t.Error("bucketless s3 URL: expected error")
	}
}
