package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyInput        = errors.New("input file is empty")
	ErrJobNotFound       = errors.New("job not found")
	ErrJobProcessing     = errors.New("job is currently processing")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// UnsupportedFormatError is returned when no parser accepts a filename's
// extension. It names the extensions that are accepted.
type UnsupportedFormatError struct {
	Extension string
	Supported []string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format %q, supported formats: %s",
		e.Extension, strings.Join(e.Supported, ", "))
}
