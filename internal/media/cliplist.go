package media

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ReadClipList parses a local .m3u/.m3u8/.pls file and returns the clip paths
// it names. Relative entries resolve against the list's directory; remote
// entries are skipped.
func ReadClipList(path string) ([]string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !IsClipListExt(ext) {
		return nil, fmt.Errorf("unsupported clip list format %s", ext)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("reading clip list: %w", err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("clip list is not valid UTF-8")
	}
	data = bytes.TrimPrefix(data, []byte("\uFEFF"))

	entry := m3uEntry
	if ext == ".pls" {
		entry = plsEntry
	}
	dir := filepath.Dir(abs)
	var out []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		raw, ok := entry(strings.TrimSpace(sc.Text()))
		if !ok || isRemote(raw) {
			continue
		}
		out = append(out, resolve(raw, dir))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scanning clip list: %w", err)
	}
	return out, nil
}

// PlayableClips keeps existing regular files with a supported extension, as
// absolute paths.
func PlayableClips(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || info.IsDir() || !IsSupportedPath(p) {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		out = append(out, p)
	}
	return out
}

func m3uEntry(line string) (string, bool) {
	if line == "" || strings.HasPrefix(line, "#") {
		return "", false
	}
	return strings.Trim(line, `"`), true
}

func plsEntry(line string) (string, bool) {
	key, val, ok := strings.Cut(line, "=")
	if !ok {
		return "", false
	}
	key, val = strings.TrimSpace(key), strings.TrimSpace(val)
	if val == "" || !strings.HasPrefix(strings.ToLower(key), "file") {
		return "", false
	}
	num := key[len("file"):]
	if num == "" || strings.Trim(num, "0123456789") != "" {
		return "", false
	}
	return val, true
}

func isRemote(s string) bool {
	return strings.Contains(s, "://")
}

func resolve(raw, dir string) string {
	p := filepath.Clean(raw)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
