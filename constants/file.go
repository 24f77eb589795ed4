package constants

import (
	"path"
	"strings"
)

// MaxFileSize caps downloaded documents at 10MB, matching the upload limit
// enforced by the intake UI.
const MaxFileSize = 10 * 1024 * 1024

// SupportedExtensions holds the file extensions the pipeline will process.
// Anything else arriving on the queue is dropped without processing.
var SupportedExtensions = map[string]struct{}{
	"png":  {},
	"pdf":  {},
	"jpeg": {},
	"jpg":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// FileExt returns the normalized extension of a file name or object key.
func FileExt(name string) string {
	return NormalizeExt(path.Ext(name))
}

// SupportedExt reports whether a file name or key ends in a processable extension.
func SupportedExt(name string) bool {
	_, ok := SupportedExtensions[FileExt(name)]
	return ok
}
