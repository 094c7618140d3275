package util

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/disk"
)

// ErrInsufficientSpace is returned when a volume has less free space than
// required.
var ErrInsufficientSpace = errors.New("insufficient free disk space")

// FreeSpace returns the number of bytes available on the volume containing
// path.
func FreeSpace(ctx context.Context, path string) (uint64, error) {
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return 0, errors.Wrapf(err, "getting disk usage for '%s'", path)
	}
	return usage.Free, nil
}

// CheckFreeSpace returns ErrInsufficientSpace if the volume containing path
// has fewer than minBytes available. A zero minimum always passes.
func CheckFreeSpace(ctx context.Context, path string, minBytes uint64) error {
	if minBytes == 0 {
		return nil
	}
	free, err := FreeSpace(ctx, path)
	if err != nil {
		return err
	}
	if free < minBytes {
		return errors.Wrapf(ErrInsufficientSpace, "'%s' has %s free but %s is required",
			path, humanize.Bytes(free), humanize.Bytes(minBytes))
	}
	return nil
}
