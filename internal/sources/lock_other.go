//go:build !unix

package sources

import "context"

// lockFile is a no-op where flock is unavailable; the Registry mutex still
// serializes writers inside one process.
func lockFile(ctx context.Context, _ string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return func() {}, nil
}
