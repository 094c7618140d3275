package util

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/pgzip"
	"github.com/mholt/archiver/v3"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
)

// Archive formats recognized from a file name.
const (
	ArchiveFormatTarGz  = "tar.gz"
	ArchiveFormatTarBz2 = "tar.bz2"
	ArchiveFormatTarXz  = "tar.xz"
	ArchiveFormatTar    = "tar"
	ArchiveFormatZip    = "zip"
)

// ErrUnsupportedArchive is returned when the archive format cannot be
// determined from its name.
var ErrUnsupportedArchive = errors.New("unsupported archive format")

var archiveSuffixes = []struct {
	suffix string
	format string
}{
	{".tar.gz", ArchiveFormatTarGz},
	{".tgz", ArchiveFormatTarGz},
	{".tar.bz2", ArchiveFormatTarBz2},
	{".tbz2", ArchiveFormatTarBz2},
	{".tar.xz", ArchiveFormatTarXz},
	{".txz", ArchiveFormatTarXz},
	{".tar", ArchiveFormatTar},
	{".zip", ArchiveFormatZip},
}

// DetectArchiveFormat returns the archive format for the file name based on
// its extension.
func DetectArchiveFormat(name string) (string, error) {
	lower := strings.ToLower(name)
	for _, s := range archiveSuffixes {
		if strings.HasSuffix(lower, s.suffix) {
			return s.format, nil
		}
	}
	return "", errors.Wrapf(ErrUnsupportedArchive, "cannot determine format of '%s'", name)
}

// ArchiveSuffix returns the archive extension of name, such as ".tar.gz",
// or the plain file extension if it is not a recognized archive.
func ArchiveSuffix(name string) string {
	lower := strings.ToLower(name)
	for _, s := range archiveSuffixes {
		if strings.HasSuffix(lower, s.suffix) {
			return name[len(name)-len(s.suffix):]
		}
	}
	return filepath.Ext(name)
}

// SniffArchiveFormat returns the archive format of the file at path based on
// its leading bytes. It is used when the file name carries no recognized
// extension.
func SniffArchiveFormat(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "opening archive '%s'", path)
	}
	defer f.Close()

	header := make([]byte, len(xzMagic))
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", errors.Wrapf(err, "reading header of '%s'", path)
	}
	header = header[:n]

	switch {
	case bytes.HasPrefix(header, gzipMagic):
		return ArchiveFormatTarGz, nil
	case bytes.HasPrefix(header, bzip2Magic):
		return ArchiveFormatTarBz2, nil
	case bytes.HasPrefix(header, xzMagic):
		return ArchiveFormatTarXz, nil
	}

	unarchiver, err := archiver.ByHeader(f)
	if err != nil {
		return "", errors.Wrapf(ErrUnsupportedArchive, "cannot determine format of '%s' from its contents", path)
	}
	switch unarchiver.(type) {
	case *archiver.Tar:
		return ArchiveFormatTar, nil
	case *archiver.Zip:
		return ArchiveFormatZip, nil
	default:
		return "", errors.Wrapf(ErrUnsupportedArchive, "format '%s' of '%s' cannot be extracted", unarchiver, path)
	}
}

var (
	gzipMagic  = []byte{0x1f, 0x8b}
	bzip2Magic = []byte("BZh")
	xzMagic    = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
)

// ExtractArchive unpacks the archive at archivePath into rootPath, which must
// already exist. The format is determined from archivePath's extension, or
// from the file's contents if the extension is not recognized.
func ExtractArchive(ctx context.Context, archivePath, rootPath string) error {
	format, err := DetectArchiveFormat(archivePath)
	if err != nil {
		if format, err = SniffArchiveFormat(archivePath); err != nil {
			return err
		}
	}

	if format == ArchiveFormatTarGz {
		f, gz, tarReader, err := TarGzReader(archivePath)
		if err != nil {
			return errors.Wrapf(err, "opening archive '%s'", archivePath)
		}
		defer f.Close()
		defer gz.Close()

		return errors.Wrapf(extractTarArchive(ctx, tarReader, rootPath), "extracting '%s'", archivePath)
	}

	// The remaining formats are handled by archiver, which does not take a
	// context, so only check for cancellation before starting.
	if ctx.Err() != nil {
		return errors.New("extraction operation canceled")
	}

	var unarchiver archiver.Unarchiver
	switch format {
	case ArchiveFormatTarBz2:
		unarchiver = archiver.NewTarBz2()
	case ArchiveFormatTarXz:
		unarchiver = archiver.NewTarXz()
	case ArchiveFormatTar:
		unarchiver = archiver.NewTar()
	case ArchiveFormatZip:
		unarchiver = archiver.NewZip()
	default:
		return errors.Wrapf(ErrUnsupportedArchive, "format '%s' cannot be extracted", format)
	}

	return errors.Wrapf(unarchiver.Unarchive(archivePath, rootPath), "extracting '%s'", archivePath)
}

// extractTarArchive unpacks the tar.Reader into rootPath. Entries that would
// be written outside of rootPath are rejected.
func extractTarArchive(ctx context.Context, tarReader *tar.Reader, rootPath string) error {
	for {
		hdr, err := tarReader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.WithStack(err)
		}
		if ctx.Err() != nil {
			return errors.New("extraction operation canceled")
		}

		localPath, err := archiveEntryPath(rootPath, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err = os.MkdirAll(localPath, 0755); err != nil {
				return errors.WithStack(err)
			}
		case tar.TypeReg, tar.TypeRegA:
			if err = os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
				return errors.WithStack(err)
			}

			// Not deferring the close since this is in a loop.
			f, err := os.OpenFile(localPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.FileMode(hdr.Mode).Perm())
			if err != nil {
				return errors.WithStack(err)
			}

			if _, err = io.Copy(f, tarReader); err != nil {
				grip.Error(f.Close())
				return errors.Wrapf(err, "writing '%s'", hdr.Name)
			}
			if err = f.Close(); err != nil {
				return errors.WithStack(err)
			}
		case tar.TypeSymlink:
			target := hdr.Linkname
			if !filepath.IsAbs(target) {
				target = filepath.Join(filepath.Dir(localPath), target)
			}
			if !withinDirectory(rootPath, target) {
				return errors.Errorf("symlink '%s' points outside of the extraction directory", hdr.Name)
			}
			if err = os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
				return errors.WithStack(err)
			}
			if err = os.Symlink(hdr.Linkname, localPath); err != nil {
				return errors.WithStack(err)
			}
		case tar.TypeXGlobalHeader:
			continue
		default:
			return errors.Errorf("unknown file type %q for '%s' in archive", hdr.Typeflag, hdr.Name)
		}
	}
}

func archiveEntryPath(rootPath, name string) (string, error) {
	localPath := filepath.Join(rootPath, filepath.FromSlash(name))
	if !withinDirectory(rootPath, localPath) {
		return "", errors.Errorf("archive entry '%s' is outside of the extraction directory", name)
	}
	return localPath, nil
}

func withinDirectory(root, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// TarGzReader returns a file, gzip reader, and tar reader for the given path.
// The tar reader wraps the gzip reader, which wraps the file.
func TarGzReader(path string) (f, gz io.ReadCloser, tarReader *tar.Reader, err error) {
	f, err = os.Open(path)
	if err != nil {
		return nil, nil, nil, errors.WithStack(err)
	}
	gz, err = pgzip.NewReader(f)
	if err != nil {
		defer f.Close()
		return nil, nil, nil, errors.WithStack(err)
	}
	tarReader = tar.NewReader(gz)
	return f, gz, tarReader, nil
}

// TarGzWriter returns a file, gzip writer, and tarWriter for the path.
// The tar writer wraps the gzip writer, which wraps the file.
func TarGzWriter(path string) (f, gz io.WriteCloser, tarWriter *tar.Writer, err error) {
	f, err = os.Create(path)
	if err != nil {
		return nil, nil, nil, errors.WithStack(err)
	}
	gz = pgzip.NewWriter(f)
	tarWriter = tar.NewWriter(gz)
	return f, gz, tarWriter, nil
}

// SingleTopLevelDirectory returns the only entry of dir if that entry is a
// directory. Source archives conventionally unpack into one such directory.
func SingleTopLevelDirectory(dir string) (string, bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false, errors.Wrapf(err, "reading directory '%s'", dir)
	}
	if len(entries) != 1 || !entries[0].IsDir() {
		return "", false, nil
	}
	return filepath.Join(dir, entries[0].Name()), true, nil
}
