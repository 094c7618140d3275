package util

import (
	"io"
	"os"
	"path/filepath"

	"github.com/mongodb/grip"
	"github.com/pkg/errors"
)

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// NopWriteCloser returns an io.WriteCloser whose Close method does nothing,
// for handing a shared writer to something that closes its output.
func NopWriteCloser(w io.Writer) io.WriteCloser {
	return nopWriteCloser{Writer: w}
}

// MoveFile moves the file at src to dst, creating dst's parent directory. When
// the two paths are on different filesystems the file is copied and src is
// removed.
func MoveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return errors.Wrapf(err, "creating directory for '%s'", dst)
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "opening '%s'", src)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return errors.Wrapf(err, "getting file info for '%s'", src)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return errors.Wrapf(err, "creating '%s'", dst)
	}

	catcher := grip.NewBasicCatcher()
	_, err = io.Copy(out, in)
	catcher.Wrapf(err, "copying '%s' to '%s'", src, dst)
	catcher.Wrapf(out.Close(), "closing '%s'", dst)
	if catcher.HasErrors() {
		catcher.Wrap(os.Remove(dst), "removing partial copy")
		return catcher.Resolve()
	}

	return errors.Wrapf(os.Remove(src), "removing '%s'", src)
}
