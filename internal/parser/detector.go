package parser

import (
	"context"
	"fmt"
	"io"

	"github.com/kurochkinivan/table_import/internal/domain"
)

// Detector composes parser resolution and schema detection, guaranteeing the
// source is rewound to the start so the streaming parse can re-consume it.
type Detector struct {
	registry *Registry
}

func NewDetector(registry *Registry) *Detector {
	return &Detector{registry: registry}
}

func (d *Detector) Detect(
	ctx context.Context,
	filename string,
	src io.ReadSeeker,
	opts domain.ParserOptions,
) (*Detection, error) {
	p, err := d.registry.Resolve(filename)
	if err != nil {
		return nil, err
	}

	detection, err := p.DetectSchema(ctx, src, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to detect schema: %w", err)
	}

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind source: %w", err)
	}

	return detection, nil
}
