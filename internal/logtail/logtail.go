package logtail

import (
	"io"
	"os"
	"strings"
)

// maxTailRead bounds how much of the file is read from the end; service
// logs rotate but a single file can still be large.
const maxTailRead = 64 * 1024

// Tail returns up to n trailing lines of the file at path.
// A missing file yields no lines and no error; callers use the tail for
// diagnostics only.
func Tail(path string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	off := st.Size() - maxTailRead
	if off < 0 {
		off = 0
	}
	if _, err := f.Seek(off, io.SeekStart); err != nil {
		return nil, err
	}
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(strings.TrimRight(string(b), "\n"), "\n")
	// Drop a partial first line when we started mid-file.
	if off > 0 && len(lines) > 0 {
		lines = lines[1:]
	}
	for len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}

// LastLine returns the trailing non-empty line of the file, or "".
func LastLine(path string) string {
	lines, err := Tail(path, 5)
	if err != nil {
		return ""
	}
	for i := len(lines) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(lines[i]); s != "" {
			return s
		}
	}
	return ""
}
