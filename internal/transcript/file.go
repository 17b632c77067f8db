package transcript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/timmy/chanindex/internal/domain"
)

// FileExt is the extension of stored transcript files.
const FileExt = ".json"

// FileName returns the transcript file name for a video.
func FileName(videoID string) string {
	return videoID + FileExt
}

// Encode renders lines as a JSON array of [start, duration, text] triples.
func Encode(lines []domain.Line) ([]byte, error) {
	if lines == nil {
		lines = []domain.Line{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(lines); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// ReadFile loads a stored transcript.
func ReadFile(path string) ([]domain.Line, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lines []domain.Line
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("decode transcript %s: %w", filepath.Base(path), err)
	}
	return lines, nil
}

// WriteFile stores lines at path. The file is renamed into place so a crash
// never leaves a truncated transcript that would later be taken as cached.
func WriteFile(path string, lines []domain.Line) error {
	data, err := Encode(lines)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	return WriteAtomic(path, data)
}

// WriteAtomic writes data to a temp file next to path and renames it.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(data)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp.Name(), path)
}

// Text joins the line texts with spaces, the form indexed for search.
func Text(lines []domain.Line) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		parts = append(parts, l.Text)
	}
	return strings.Join(parts, " ")
}
