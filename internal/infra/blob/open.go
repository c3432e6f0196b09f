// Package blob opens artifact store backends by driver name.
package blob

import (
	"context"
	"fmt"

	"labsynth/internal/blob/core"
	"labsynth/internal/infra/blob/fs"
	"labsynth/internal/infra/blob/memory"
	"labsynth/internal/infra/blob/s3"
)

// Open constructs the artifact store for the given driver. fsRoot only
// applies to the filesystem driver; the s3 driver reads its bucket and
// credentials from LABSYNTH_BLOB_S3_* environment variables.
func Open(ctx context.Context, driver core.Driver, fsRoot string) (core.Store, error) {
	switch driver {
	case core.DriverFilesystem, "":
		return fs.New(fsRoot)
	case core.DriverS3:
		return s3.OpenFromEnv(ctx)
	case core.DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown artifact store driver %q", driver)
	}
}
