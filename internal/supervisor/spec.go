package supervisor

import (
	"os/exec"
	"strings"

	"github.com/devhyun/llmstack/internal/logger"
)

// Spec describes a native service to be supervised.
type Spec struct {
	Name    string        `json:"name"`
	Command string        `json:"command"`  // command to start the service (shell)
	WorkDir string        `json:"work_dir"` // optional working dir
	Env     []string      `json:"env"`      // optional extra env overrides
	PIDFile string        `json:"pid_file"` // pid record path, logs/<name>.pid by convention
	Log     logger.Config `json:"log"`      // rotating stdout/stderr destinations
}

// BuildCommand constructs an *exec.Cmd for the spec's Command.
// It avoids invoking a shell when not necessary, and it respects an
// explicit shell invocation already present in the command string
// (e.g., "sh -c 'echo hi'"), avoiding double-wrapping with another shell.
func (s *Spec) BuildCommand() *exec.Cmd {
	cmdStr := strings.TrimSpace(s.Command)
	if cmdStr == "" {
		// #nosec G204
		return exec.Command("/bin/true")
	}
	if afterC, ok := parseExplicitShell(cmdStr); ok {
		// Always use absolute shell path to avoid PATH dependency when Env is overridden.
		// #nosec G204
		return exec.Command("/bin/sh", "-c", afterC)
	}
	if strings.ContainsAny(cmdStr, "|&;<>*?`$\"'(){}[]~") {
		// #nosec G204
		return exec.Command("/bin/sh", "-c", cmdStr)
	}
	parts := strings.Fields(cmdStr)
	name := parts[0]
	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}
	// #nosec G204
	return exec.Command(name, args...)
}

// parseExplicitShell detects patterns like "sh -c <ARG>" or "/bin/sh -c <ARG>"
// at the beginning of cmdStr and returns the argument after "-c" verbatim so
// quoting inside the script is preserved.
func parseExplicitShell(cmdStr string) (string, bool) {
	trim := strings.TrimLeft(cmdStr, " \t")
	candidates := []string{"sh -c ", "/bin/sh -c ", "/usr/bin/sh -c "}
	for _, p := range candidates {
		if strings.HasPrefix(trim, p) {
			after := trim[len(p):]
			if n := len(after); n >= 2 {
				if (after[0] == '\'' && after[n-1] == '\'') || (after[0] == '"' && after[n-1] == '"') {
					after = after[1 : n-1]
				}
			}
			return after, true
		}
	}
	return "", false
}
