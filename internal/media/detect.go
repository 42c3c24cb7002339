// Package media recognizes supported clip formats and reads clip lists.
package media

import (
	"path/filepath"
	"sort"
	"strings"
)

// audioExts are the formats the decoders in the player package can read.
var audioExts = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".flac": true,
	".ogg":  true,
}

var listExts = map[string]bool{
	".m3u":  true,
	".m3u8": true,
	".pls":  true,
}

// IsSupportedExt reports whether ext names a clip format that can be analyzed.
func IsSupportedExt(ext string) bool {
	return audioExts[strings.ToLower(ext)]
}

// IsSupportedPath is IsSupportedExt applied to the extension of path.
func IsSupportedPath(path string) bool {
	return IsSupportedExt(filepath.Ext(path))
}

// IsClipListExt reports whether ext names a playlist file listing clips.
func IsClipListExt(ext string) bool {
	return listExts[strings.ToLower(ext)]
}

// SupportedExtsList returns the supported clip formats, comma separated.
func SupportedExtsList() string {
	exts := make([]string, 0, len(audioExts))
	for ext := range audioExts {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return strings.Join(exts, ", ")
}
