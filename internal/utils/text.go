package utils

import (
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// blockedFileExtensions lists extensions that never hold prompt-worthy text.
var blockedFileExtensions = map[string]struct{}{
	// images
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".bmp": {}, ".tiff": {}, ".webp": {}, ".ico": {}, ".svg": {},
	// audio
	".mp3": {}, ".wav": {}, ".ogg": {}, ".m4a": {}, ".flac": {}, ".aac": {},
	// video
	".mp4": {}, ".avi": {}, ".mkv": {}, ".mov": {}, ".wmv": {}, ".flv": {}, ".webm": {},
	// archives
	".zip": {}, ".rar": {}, ".7z": {}, ".tar": {}, ".gz": {}, ".bz2": {},
	// documents
	".pdf": {}, ".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {}, ".ppt": {}, ".pptx": {},
	// executables
	".exe": {}, ".dll": {}, ".so": {}, ".dylib": {}, ".bin": {}, ".dat": {},
	// databases
	".db": {}, ".sqlite": {}, ".mdb": {},
	// fonts
	".ttf": {}, ".otf": {}, ".woff": {}, ".woff2": {},
	// compiled objects
	".class": {}, ".pyc": {}, ".pyo": {}, ".o": {}, ".obj": {},
}

// IsTextFileName reports whether fileName carries no blocked extension.
// Names without an extension are treated as text.
func IsTextFileName(fileName string) bool {
	extension := strings.ToLower(filepath.Ext(fileName))
	if extension == "" {
		return true
	}
	_, blocked := blockedFileExtensions[extension]
	return !blocked
}

// IsValidText reports whether data decodes as UTF-8. NUL bytes are allowed.
func IsValidText(data []byte) bool {
	return utf8.Valid(data)
}
