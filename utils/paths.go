package utils

import (
	"path/filepath"
	"runtime"
)

// ProjectRoot returns the absolute path to the project root directory
func ProjectRoot() string {
	_, b, _, _ := runtime.Caller(0)
	return filepath.Dir(filepath.Dir(b))
}

// SQLPath returns the absolute path to a DDL file in the sql directory.
// Used so packages and their tests resolve schema files independently of
// the working directory they run from.
func SQLPath(filename string) string {
	return filepath.Join(ProjectRoot(), "sql", filename)
}
