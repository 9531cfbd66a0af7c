package suite

import (
	"errors"
	"io/fs"
)

// Overlay returns a filesystem that serves files from primary and falls
// back to fallback for files primary does not have. It lets a fixture
// directory supply only the ROMs that are not embedded.
func Overlay(primary, fallback fs.FS) fs.FS {
	return overlay{primary: primary, fallback: fallback}
}

type overlay struct {
	primary  fs.FS
	fallback fs.FS
}

func (o overlay) Open(name string) (fs.File, error) {
	f, err := o.primary.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return o.fallback.Open(name)
	}
	return f, err
}
