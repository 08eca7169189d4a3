package project

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"ember/internal/source"
)

// ImportMeta is one normalized import edge of a module.
type ImportMeta struct {
	Path string
	Span source.Span
}

// ModuleMeta is what the project layer knows about one compilation unit
// before any checking happens: its canonical path, its import edges, and
// the content digest used for cache keys.
type ModuleMeta struct {
	Name        string
	Path        string // canonical module path, "a/b"
	Span        source.Span
	Imports     []ImportMeta
	ContentHash Digest // digest of the unit file
	ModuleHash  Digest // content digest combined with dependency digests
}

// IsValidModuleIdent reports whether name is a legal module identifier:
// ASCII, letter or underscore first, letters/digits/underscores after.
func IsValidModuleIdent(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if r > unicode.MaxASCII {
			return false
		}
		if i == 0 && r != '_' && !unicode.IsLetter(r) {
			return false
		}
		if i > 0 && r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// NormalizeModulePath canonicalizes a module path to "a/b" form: strips a
// trailing .em or .emt extension, converts backslashes, and rejects empty
// segments, "." and "..".
func NormalizeModulePath(path string) (string, error) {
	for _, ext := range []string{".emt", ".em"} {
		if strings.HasSuffix(path, ext) {
			path = path[:len(path)-len(ext)]
			break
		}
	}
	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.TrimLeft(path, "/")
	if path == "" {
		return "", errors.New("invalid module path")
	}
	segs := strings.Split(path, "/")
	for _, seg := range segs {
		if seg == "" || seg == "." || seg == ".." {
			return "", errors.New("invalid module path")
		}
	}
	return strings.Join(segs, "/"), nil
}

// ResolveImportPath normalizes an import written inside modulePath.
// Relative segments ("." and "..") resolve against the importing module's
// directory; anything else is taken from the project root.
func ResolveImportPath(modulePath string, segments []string) (string, error) {
	if len(segments) == 0 {
		return "", errors.New("empty import path")
	}

	relative := segments[0] == "." || segments[0] == ".."
	var target []string
	if relative {
		if dir := moduleDir(modulePath); dir != "" {
			target = strings.Split(dir, "/")
		}
	}
	for _, seg := range segments {
		switch seg {
		case "":
			return "", errors.New("empty import segment")
		case ".":
			continue
		case "..":
			if len(target) == 0 {
				return "", errors.New("import path escapes project root")
			}
			target = target[:len(target)-1]
		default:
			if strings.Contains(seg, "/") {
				return "", fmt.Errorf("import segment %q contains '/'", seg)
			}
			target = append(target, seg)
		}
	}
	if len(target) == 0 {
		return "", errors.New("import resolves to empty path")
	}
	return NormalizeModulePath(strings.Join(target, "/"))
}

func moduleDir(modulePath string) string {
	if i := strings.LastIndexByte(modulePath, '/'); i >= 0 {
		return modulePath[:i]
	}
	return ""
}
