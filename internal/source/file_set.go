package source

import (
	"crypto/sha256"
	"fmt"
	"os"
	"sort"

	"fortio.org/safecast"
)

// FileID uniquely identifies a source file within a FileSet.
type FileID uint32

// FileFlags encodes metadata about a source file.
type FileFlags uint8

// FileVirtual marks files added from memory (tests, stdin) rather than disk.
const FileVirtual FileFlags = 1 << iota

// File captures metadata and content for a single source file.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	LineIdx []uint32 // byte offset of the start of each line
	Hash    [32]byte
	Flags   FileFlags
}

// LineCol is a human-readable position, both 1-based.
type LineCol struct {
	Line uint32
	Col  uint32
}

// FileSet manages a collection of source files and resolves spans to
// line/column positions.
type FileSet struct {
	files []File
	index map[string]FileID
}

func NewFileSet() *FileSet {
	return &FileSet{index: make(map[string]FileID)}
}

// Add stores content under path and returns a fresh FileID.
func (fs *FileSet) Add(path string, content []byte, flags FileFlags) FileID {
	n, err := safecast.Conv[uint32](len(fs.files))
	if err != nil {
		panic(fmt.Errorf("fileset overflow: %w", err))
	}
	id := FileID(n)
	fs.files = append(fs.files, File{
		ID:      id,
		Path:    path,
		Content: content,
		LineIdx: buildLineIndex(content),
		Hash:    sha256.Sum256(content),
		Flags:   flags,
	})
	fs.index[path] = id
	return id
}

// Load reads a file from disk and adds it.
func (fs *FileSet) Load(path string) (FileID, error) {
	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return fs.Add(path, content, 0), nil
}

// AddVirtual adds an in-memory file (tests, stdin).
func (fs *FileSet) AddVirtual(name string, content []byte) FileID {
	return fs.Add(name, content, FileVirtual)
}

// Get returns the file for id, or nil when id is out of range.
func (fs *FileSet) Get(id FileID) *File {
	if int(id) >= len(fs.files) {
		return nil
	}
	return &fs.files[id]
}

// ByPath returns the latest file registered under path.
func (fs *FileSet) ByPath(path string) (*File, bool) {
	id, ok := fs.index[path]
	if !ok {
		return nil, false
	}
	return &fs.files[id], true
}

func (fs *FileSet) Len() int {
	return len(fs.files)
}

// Position resolves a byte offset inside file id to a line/column pair.
func (fs *FileSet) Position(id FileID, offset uint32) LineCol {
	f := fs.Get(id)
	if f == nil || len(f.LineIdx) == 0 {
		return LineCol{Line: 1, Col: 1}
	}
	line := sort.Search(len(f.LineIdx), func(i int) bool {
		return f.LineIdx[i] > offset
	})
	start := f.LineIdx[line-1]
	ln, err := safecast.Conv[uint32](line)
	if err != nil {
		panic(fmt.Errorf("line overflow: %w", err))
	}
	return LineCol{Line: ln, Col: offset - start + 1}
}

// Line returns the raw text of the 1-based line number.
func (fs *FileSet) Line(id FileID, line uint32) []byte {
	f := fs.Get(id)
	if f == nil || line == 0 || int(line) > len(f.LineIdx) {
		return nil
	}
	start := f.LineIdx[line-1]
	end := uint32(len(f.Content))
	if int(line) < len(f.LineIdx) {
		end = f.LineIdx[line]
	}
	text := f.Content[start:end]
	for len(text) > 0 && (text[len(text)-1] == '\n' || text[len(text)-1] == '\r') {
		text = text[:len(text)-1]
	}
	return text
}

func buildLineIndex(content []byte) []uint32 {
	idx := make([]uint32, 1, 16)
	idx[0] = 0
	for i, b := range content {
		if b == '\n' {
			off, err := safecast.Conv[uint32](i + 1)
			if err != nil {
				panic(fmt.Errorf("line index overflow: %w", err))
			}
			idx = append(idx, off)
		}
	}
	return idx
}
