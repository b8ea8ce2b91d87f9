// Package artifact reads the immutable files the service needs at startup.
package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// MissingError reports a required startup artifact that does not exist.
type MissingError struct {
	Name string
	Path string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("required artifact %q was not found at %s", e.Name, e.Path)
}

// ReadFile reads the artifact at path. A missing file is reported as
// *MissingError so callers can treat it as fatal.
func ReadFile(name, path string) ([]byte, error) {
	if path == "" {
		return nil, &MissingError{Name: name, Path: "<unset>"}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &MissingError{Name: name, Path: path}
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// IsMissing reports whether err is, or wraps, a *MissingError.
func IsMissing(err error) bool {
	var missing *MissingError
	return errors.As(err, &missing)
}
