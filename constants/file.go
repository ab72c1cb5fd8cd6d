package constants

import "strings"

// AllowedExtensions holds every upload extension the extraction engine can
// read: the OpenCV-decodable image formats plus PDF.
var AllowedExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"bmp":  {},
	"tif":  {},
	"tiff": {},
	"webp": {},
	"jp2":  {},
	"pbm":  {},
	"pgm":  {},
	"ppm":  {},
	"sr":   {},
	"ras":  {},
	"pdf":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsAllowedExt reports whether a file extension is in the allow-list.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}
