package inference

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	apperrors "github.com/ZanzyTHEbar/heartrisk/internal/errors"
)

// ErrTruncatedArtifact is the cause of a load failure where fewer bytes were
// read than the asset reports.
var ErrTruncatedArtifact = errors.New("model artifact truncated")

// ReadArtifact reads a serialized model from an asset filesystem, checking
// the byte count against the size the asset reports.
func ReadArtifact(assets fs.FS, name string) ([]byte, error) {
	f, err := assets.Open(name)
	if err != nil {
		return nil, apperrors.NewModelLoadError("failed to open model artifact "+name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, apperrors.NewModelLoadError("failed to stat model artifact "+name, err)
	}
	if info.IsDir() {
		return nil, apperrors.NewModelLoadError(name+" is a directory, not a model artifact", nil)
	}

	size := info.Size()
	if size <= 0 {
		return nil, apperrors.NewModelLoadError("model artifact "+name+" is empty", ErrTruncatedArtifact)
	}

	data := make([]byte, size)
	n, err := io.ReadFull(f, data)
	if err != nil {
		return nil, apperrors.NewModelLoadError(
			fmt.Sprintf("failed to read complete model file: read %d of %d bytes", n, size),
			fmt.Errorf("%w: %w", ErrTruncatedArtifact, err))
	}

	return data, nil
}
