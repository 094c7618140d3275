package testutil

import (
	"archive/tar"
	"fmt"
	"testing"

	"github.com/evergreen-ci/pkgsetup/util"
	"github.com/stretchr/testify/require"
)

// ArchiveFile is an entry in a generated archive. Entries whose name ends in
// a slash are directories.
type ArchiveFile struct {
	Name string
	Body string
	Mode int64
}

// WriteTarGz writes a gzipped tarball holding files to path.
func WriteTarGz(t *testing.T, path string, files []ArchiveFile) {
	f, gz, tw, err := util.TarGzWriter(path)
	require.NoError(t, err)

	for _, file := range files {
		hdr := &tar.Header{
			Name:     file.Name,
			Mode:     file.Mode,
			Typeflag: tar.TypeReg,
			Size:     int64(len(file.Body)),
		}
		if len(file.Name) > 0 && file.Name[len(file.Name)-1] == '/' {
			hdr.Typeflag = tar.TypeDir
			hdr.Size = 0
		}
		if hdr.Mode == 0 {
			hdr.Mode = 0644
			if hdr.Typeflag == tar.TypeDir {
				hdr.Mode = 0755
			}
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if hdr.Size > 0 {
			_, err = tw.Write([]byte(file.Body))
			require.NoError(t, err)
		}
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
}

// The fake source tree's configure script accepts only the flags the
// configure step passes and fails with exit code 2 on anything else, the
// way real configuration tools reject unknown options.
const fakeConfigureScript = `#!/bin/sh
: > configure.log
for arg in "$@"; do
  case "$arg" in
    --confirm-license|--disable=*|--sip-incdir=*)
      echo "$arg" >> configure.log
      ;;
    *)
      echo "configure: unrecognized option '$arg'" >&2
      exit 2
      ;;
  esac
done
echo "configured"
`

const fakeBuildScript = `#!/bin/sh
test -f configure.log || { echo "not configured" >&2; exit 3; }
echo "built" > artifact.txt
echo "build finished"
`

const fakeInstallScript = `#!/bin/sh
test -f artifact.txt || { echo "not built" >&2; exit 4; }
mkdir -p "$DESTDIR" && cp artifact.txt "$DESTDIR/"
echo "installed"
`

// FakeSourceTree returns the entries of a source distribution for pkg. It
// unpacks into a single directory named pkg that holds configure, build.sh
// and install.sh shell scripts standing in for the real tools.
func FakeSourceTree(pkg string) []ArchiveFile {
	return []ArchiveFile{
		{Name: fmt.Sprintf("%s/", pkg)},
		{Name: fmt.Sprintf("%s/configure", pkg), Body: fakeConfigureScript, Mode: 0755},
		{Name: fmt.Sprintf("%s/build.sh", pkg), Body: fakeBuildScript, Mode: 0755},
		{Name: fmt.Sprintf("%s/install.sh", pkg), Body: fakeInstallScript, Mode: 0755},
		{Name: fmt.Sprintf("%s/README", pkg), Body: "fake source distribution\n"},
	}
}
