// Package stage moves the merged sweep artifact to its final location.
// Staging is optional and strictly post-handoff; a sweep is complete once
// the plot collaborator succeeds, staged or not.
package stage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Stager publishes a local artifact and returns its final location.
type Stager interface {
	StageOut(ctx context.Context, localPath string) (string, error)
}

// Local leaves the artifact where the merge collaborator wrote it.
type Local struct{}

// StageOut returns the local path unchanged.
func (Local) StageOut(_ context.Context, localPath string) (string, error) {
	return localPath, nil
}

// FromURL builds a Stager for an upload destination. Empty means local;
// s3://bucket[/prefix] uploads to S3.
func FromURL(ctx context.Context, raw string) (Stager, error) {
	if raw == "" {
		return Local{}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse upload destination %q: %w", raw, err)
	}
	switch u.Scheme {
	case "s3":
		return NewS3(ctx, u.Host, strings.TrimPrefix(u.Path, "/"))
	default:
		return nil, fmt.Errorf("unsupported upload scheme %q (want s3://)", u.Scheme)
	}
}
