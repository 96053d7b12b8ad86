package supervisor

import (
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// findByPattern discovers processes whose command line matches pattern,
// excluding the current process. It is a best-effort fallback for services
// that outlived their pid record; pgrep being absent yields no matches.
func findByPattern(pattern string) []int {
	if strings.TrimSpace(pattern) == "" {
		return nil
	}
	// #nosec G204
	out, err := exec.Command("pgrep", "-f", pattern).Output()
	if err != nil {
		// non-zero exit means no match
		return nil
	}
	self := os.Getpid()
	var pids []int
	for _, line := range strings.Fields(string(out)) {
		pid, err := strconv.Atoi(line)
		if err != nil || pid == self {
			continue
		}
		pids = append(pids, pid)
	}
	return pids
}
