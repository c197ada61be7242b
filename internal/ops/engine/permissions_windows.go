//go:build windows

package engine

import (
	"io/fs"
	"os"
)

// permissionString renders a coarse r/w/x triple on Windows, where POSIX
// mode bits aren't meaningful: writable is probed by attempting to open
// the file for writing, and executable is inferred from extension.
func permissionString(path string, info fs.FileInfo) string {
	readable := "r"
	writable := "-"
	if info.Mode().Perm()&0o200 != 0 {
		writable = "w"
	}
	if f, err := os.OpenFile(path, os.O_WRONLY, 0); err == nil {
		f.Close()
		writable = "w"
	}
	executable := "-"
	switch ext := fileExt(path); ext {
	case ".exe", ".bat", ".cmd", ".com":
		executable = "x"
	}
	return readable + writable + executable
}

func fileExt(path string) string {
	for i := len(path) - 1; i >= 0 && path[i] != '/' && path[i] != '\\'; i-- {
		if path[i] == '.' {
			return path[i:]
		}
	}
	return ""
}
