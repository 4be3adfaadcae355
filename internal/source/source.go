// Package source implements the Source Manager (spec.md §4.1, C1): it owns
// source buffers, maps (file, line, column) to byte offsets, and records
// attached comment tokens.
package source

import (
	"hash/fnv"
	"path/filepath"
	"unicode/utf8"

	"github.com/jade-lang/jadec/internal/token"
)

// File holds one registered source buffer plus its derived line table.
type File struct {
	ID          int
	Path        string
	Package     string
	Buffer      string
	lineOffsets []int // byte offset of the start of each line; line 1 is lineOffsets[0]
	// comments maps a byte offset to the comment token beginning there.
	comments map[int]token.Token
}

// Manager is the Source Manager. file_id == 0 is reserved for "synthesized".
type Manager struct {
	files   []*File       // index 0 reserved/unused
	byHash  map[uint64]int // canonical-path hash -> slot index
}

// NewManager returns an empty Source Manager with slot 0 reserved.
func NewManager() *Manager {
	m := &Manager{byHash: make(map[uint64]int)}
	m.files = append(m.files, &File{ID: 0, Path: "<synthesized>"})
	return m
}

func canonicalize(path string) string {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

func pathHash(path string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(path))
	return h.Sum64()
}

func buildLineOffsets(buf string) []int {
	offsets := []int{0}
	i := 0
	for i < len(buf) {
		switch buf[i] {
		case '\n':
			offsets = append(offsets, i+1)
			i++
		case '\r':
			if i+1 < len(buf) && buf[i+1] == '\n' {
				offsets = append(offsets, i+2)
				i += 2
			} else {
				offsets = append(offsets, i+1)
				i++
			}
		default:
			i++
		}
	}
	return offsets
}

// AddSource canonicalises path, hashes it, and reuses the slot if the same
// path was registered before (replacing its buffer); otherwise it appends a
// new slot. Returns the slot's file_id.
func (m *Manager) AddSource(path string, buffer string, packageName string) int {
	canon := canonicalize(path)
	h := pathHash(canon)
	if idx, ok := m.byHash[h]; ok {
		f := m.files[idx]
		f.Buffer = buffer
		f.lineOffsets = buildLineOffsets(buffer)
		f.comments = nil
		if packageName != "" {
			f.Package = packageName
		}
		return idx
	}
	idx := len(m.files)
	m.files = append(m.files, &File{
		ID: idx, Path: canon, Package: packageName, Buffer: buffer,
		lineOffsets: buildLineOffsets(buffer),
	})
	m.byHash[h] = idx
	return idx
}

// AppendSource concatenates buffer onto an existing slot's buffer (or
// registers a fresh slot if the path is new) and rebuilds the line table.
func (m *Manager) AppendSource(path string, buffer string) int {
	canon := canonicalize(path)
	h := pathHash(canon)
	if idx, ok := m.byHash[h]; ok {
		f := m.files[idx]
		f.Buffer += buffer
		f.lineOffsets = buildLineOffsets(f.Buffer)
		f.comments = nil
		return idx
	}
	return m.AddSource(path, buffer, "")
}

// File returns the File for id, or nil if out of range.
func (m *Manager) File(id int) *File {
	if id < 0 || id >= len(m.files) {
		return nil
	}
	return m.files[id]
}

// PosToOffset maps a position to a byte offset, clamping to buffer bounds.
// pos_to_offset((f, 0, 0)) -> 0. pos_to_offset((f, inf, inf)) -> buffer.len().
func (m *Manager) PosToOffset(pos token.Position) int {
	f := m.File(pos.FileID)
	if f == nil {
		return 0
	}
	line := pos.Line
	if line < 0 {
		line = 0
	}
	lineIdx := line - 1
	if lineIdx < 0 {
		lineIdx = 0
	}
	if lineIdx >= len(f.lineOffsets) {
		return len(f.Buffer)
	}
	base := f.lineOffsets[lineIdx]
	// Advance `column` runes from base, clamping at line end or buffer end.
	lineEnd := len(f.Buffer)
	if lineIdx+1 < len(f.lineOffsets) {
		lineEnd = f.lineOffsets[lineIdx+1]
	}
	offset := base
	for c := 0; c < pos.Column && offset < lineEnd; c++ {
		_, w := utf8.DecodeRuneInString(f.Buffer[offset:])
		if w == 0 {
			break
		}
		offset += w
	}
	if offset > len(f.Buffer) {
		offset = len(f.Buffer)
	}
	return offset
}

// LineEnd returns the column of the end of the line containing pos
// (exclusive of the line terminator).
func (m *Manager) LineEnd(pos token.Position) int {
	f := m.File(pos.FileID)
	if f == nil {
		return 0
	}
	lineIdx := pos.Line - 1
	if lineIdx < 0 || lineIdx >= len(f.lineOffsets) {
		return 0
	}
	start := f.lineOffsets[lineIdx]
	end := len(f.Buffer)
	if lineIdx+1 < len(f.lineOffsets) {
		end = f.lineOffsets[lineIdx+1]
	}
	seg := f.Buffer[start:end]
	col := 0
	for i := 0; i < len(seg); {
		if seg[i] == '\n' || seg[i] == '\r' {
			break
		}
		_, w := utf8.DecodeRuneInString(seg[i:])
		i += w
		col++
	}
	return col
}

// ContentBetween returns the source text in [begin, end). If the range is
// out of bounds, fallback is returned instead (when provided).
func (m *Manager) ContentBetween(begin, end token.Position, fallback string) string {
	f := m.File(begin.FileID)
	if f == nil {
		return fallback
	}
	b := m.PosToOffset(begin)
	e := m.PosToOffset(end)
	if b < 0 || e > len(f.Buffer) || b > e {
		return fallback
	}
	return f.Buffer[b:e]
}

// AttachComments stores, per file, a map from byte offset to the comment
// token beginning there, for later queries through CommentAt. The parser
// does not query it.
func (m *Manager) AttachComments(perFile map[int][]token.Token) {
	for fid, toks := range perFile {
		f := m.File(fid)
		if f == nil {
			continue
		}
		if f.comments == nil {
			f.comments = make(map[int]token.Token)
		}
		for _, t := range toks {
			f.comments[m.PosToOffset(t.Begin)] = t
		}
	}
}

// CommentAt returns the comment token registered at the given byte offset
// in file fid, if any.
func (m *Manager) CommentAt(fid, offset int) (token.Token, bool) {
	f := m.File(fid)
	if f == nil || f.comments == nil {
		return token.Token{}, false
	}
	t, ok := f.comments[offset]
	return t, ok
}
