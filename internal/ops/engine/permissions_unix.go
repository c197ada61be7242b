//go:build !windows

package engine

import (
	"io/fs"
)

// permissionString renders a POSIX rwx permission string, matching the
// original service's behavior on non-Windows hosts.
func permissionString(_ string, info fs.FileInfo) string {
	return info.Mode().Perm().String()
}
