package entities

import (
	"path/filepath"
	"strings"
	"time"
)

// AppType identifies the presentation application that handles a file
type AppType string

const (
	AppTypeKeynote    AppType = "keynote"
	AppTypePowerPoint AppType = "powerpoint"
)

// supportedExtensions maps lower-case file extensions to the application that opens them.
// Files with any other extension are never listed.
var supportedExtensions = map[string]AppType{
	".key":  AppTypeKeynote,
	".ppt":  AppTypePowerPoint,
	".pptx": AppTypePowerPoint,
	".pptm": AppTypePowerPoint,
	".pps":  AppTypePowerPoint,
	".ppsx": AppTypePowerPoint,
}

// AppTypeForPath classifies a path by its extension
func AppTypeForPath(path string) (AppType, bool) {
	t, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]
	return t, ok
}

// IsPresentationPath reports whether a path names a visible file with a supported extension
func IsPresentationPath(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	_, ok := AppTypeForPath(path)
	return ok
}

// IsPackageDocument reports whether path names a format that may be saved as a
// directory bundle rather than a flat file. Keynote writes .key as either.
func IsPackageDocument(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".key")
}

// SupportedExtensions returns the extension allow-list
func SupportedExtensions() []string {
	exts := make([]string, 0, len(supportedExtensions))
	for ext := range supportedExtensions {
		exts = append(exts, ext)
	}
	return exts
}

// PresentationFile is a discovered presentation in the watched folder
type PresentationFile struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Extension string    `json:"extension"`
	Size      int64     `json:"size"`
	Modified  time.Time `json:"modified"`
	Type      AppType   `json:"type"`
}
