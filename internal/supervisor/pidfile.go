package supervisor

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// WritePIDFile records pid at path, creating parent directories as needed.
func WritePIDFile(path string, pid int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o600)
}

// ReadPIDFile reads a pid record written by WritePIDFile.
func ReadPIDFile(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	first, _, _ := strings.Cut(string(b), "\n")
	return strconv.Atoi(strings.TrimSpace(first))
}

// RemovePIDFile best-effort.
func RemovePIDFile(path string) {
	_ = os.Remove(path)
}
