package source

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/deckhandhq/deckhand/internal/domain/entities"
)

// driveLetterPattern matches Windows-style paths (C:\ or C:/) so decks
// generated from pasted Windows paths fail with a path error instead of
// a nonsense URL fetch.
var driveLetterPattern = regexp.MustCompile(`^[A-Za-z]:[\\/]`)

// markdownExts route straight to the markdown sanitizer.
var markdownExts = map[string]bool{
	".md":       true,
	".markdown": true,
	".mdown":    true,
	".txt":      true,
}

// IsFilePath reports whether raw names a local file rather than a web
// URL: absolute paths, explicit relative paths, home paths, file:// and
// drive-letter forms.
func IsFilePath(raw string) bool {
	switch {
	case strings.HasPrefix(raw, "/"),
		strings.HasPrefix(raw, "./"),
		strings.HasPrefix(raw, "../"),
		strings.HasPrefix(raw, "~"),
		strings.HasPrefix(strings.ToLower(raw), "file://"):
		return true
	}
	return driveLetterPattern.MatchString(raw)
}

// normalizeFilePath turns the accepted path spellings into one absolute
// path: file:// URLs are unwrapped and ~ expands to the home directory.
func normalizeFilePath(raw string) (string, error) {
	path := raw

	if strings.HasPrefix(strings.ToLower(path), "file://") {
		u, err := url.Parse(path)
		if err != nil || u.Path == "" {
			return "", entities.NewPipelineError(entities.CodeInvalidFileURL,
				"file:// url does not name a path")
		}
		if u.Host != "" && u.Host != "localhost" {
			return "", entities.NewPipelineError(entities.CodeInvalidFileURL,
				"file:// urls cannot name a remote host")
		}
		path = u.Path
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", entities.WrapPipelineError(entities.CodeFileNotFound,
				"could not resolve home directory", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", entities.WrapPipelineError(entities.CodeInvalidFileURL, "invalid file path", err)
	}
	return abs, nil
}

// checkAllowedPath enforces the allow-list twice: once on the path as
// given and again after symlinks resolve, so a link inside an allowed
// root cannot point the read outside it. Returns the canonical path.
func checkAllowedPath(abs string, roots []string) (string, error) {
	if !underAnyRoot(abs, roots) {
		return "", entities.NewPipelineError(entities.CodeFilePathNotAllowed,
			fmt.Sprintf("path %s is outside the allowed directories", abs))
	}

	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", entities.NewPipelineError(entities.CodeFileNotFound,
				fmt.Sprintf("file %s does not exist", abs))
		}
		return "", entities.WrapPipelineError(entities.CodeFileNotFound,
			fmt.Sprintf("could not resolve %s", abs), err)
	}

	if !underAnyRoot(canonical, canonicalRoots(roots)) {
		return "", entities.NewPipelineError(entities.CodeFilePathNotAllowed,
			fmt.Sprintf("path %s links outside the allowed directories", abs))
	}
	return canonical, nil
}

func underAnyRoot(path string, roots []string) bool {
	path = filepath.Clean(path)
	for _, root := range roots {
		root = filepath.Clean(root)
		if path == root || strings.HasPrefix(path, root+string(os.PathSeparator)) {
			return true
		}
	}
	return false
}

// canonicalRoots resolves symlinks in the roots themselves so the
// post-resolution check compares like with like (macOS /tmp, /home
// automounts).
func canonicalRoots(roots []string) []string {
	out := make([]string, 0, len(roots))
	for _, root := range roots {
		if resolved, err := filepath.EvalSymlinks(root); err == nil {
			out = append(out, resolved)
		} else {
			out = append(out, root)
		}
	}
	return out
}

// readSourceFile validates and reads one local file: must exist, be a
// regular non-empty file, and fit under maxBytes.
func readSourceFile(canonical string, maxBytes int64) ([]byte, error) {
	info, err := os.Stat(canonical)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, entities.NewPipelineError(entities.CodeFileNotFound,
				fmt.Sprintf("file %s does not exist", canonical))
		}
		return nil, entities.WrapPipelineError(entities.CodeFileNotFound,
			fmt.Sprintf("could not stat %s", canonical), err)
	}

	if !info.Mode().IsRegular() {
		return nil, entities.NewPipelineError(entities.CodeNotAFile,
			fmt.Sprintf("%s is not a regular file", canonical))
	}
	if info.Size() == 0 {
		return nil, entities.NewPipelineError(entities.CodeNotAFile,
			fmt.Sprintf("%s is empty", canonical))
	}
	if info.Size() > maxBytes {
		return nil, entities.NewPipelineError(entities.CodeFileTooLarge,
			fmt.Sprintf("%s is %d bytes, limit is %d", canonical, info.Size(), maxBytes))
	}

	data, err := os.ReadFile(canonical)
	if err != nil {
		return nil, entities.WrapPipelineError(entities.CodeFileNotFound,
			fmt.Sprintf("could not read %s", canonical), err)
	}
	return data, nil
}
