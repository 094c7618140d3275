package operations

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/evergreen-ci/pkgsetup"
	"github.com/kardianos/osext"
	"github.com/urfave/cli"
)

func Version() cli.Command {
	return cli.Command{
		Name:  "version",
		Usage: "prints the version of this binary",
		Action: func(c *cli.Context) error {
			printVersion(os.Stdout)
			return nil
		},
	}
}

func printVersion(out io.Writer) {
	fmt.Fprintf(out, "%s version %s\n", pkgsetup.PackageName, pkgsetup.ClientVersion)
	if pkgsetup.BuildRevision != "" {
		fmt.Fprintf(out, "build revision: %s\n", pkgsetup.BuildRevision)
	}
	fmt.Fprintf(out, "go: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	if path, err := osext.Executable(); err == nil {
		fmt.Fprintf(out, "binary: %s\n", path)
	}
}
