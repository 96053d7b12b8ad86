package supervisor

import (
	"strings"
	"testing"
)

func TestBuildCommandPlain(t *testing.T) {
	s := Spec{Command: "sleep 5"}
	cmd := s.BuildCommand()
	if !strings.HasSuffix(cmd.Path, "sleep") {
		t.Fatalf("path: %s", cmd.Path)
	}
	if len(cmd.Args) != 2 || cmd.Args[1] != "5" {
		t.Fatalf("args: %v", cmd.Args)
	}
}

func TestBuildCommandMetachars(t *testing.T) {
	s := Spec{Command: "echo hi > /dev/null"}
	cmd := s.BuildCommand()
	if cmd.Path != "/bin/sh" {
		t.Fatalf("expected /bin/sh wrapper, got %s", cmd.Path)
	}
	if cmd.Args[1] != "-c" || cmd.Args[2] != "echo hi > /dev/null" {
		t.Fatalf("args: %v", cmd.Args)
	}
}

func TestBuildCommandExplicitShellNotDoubleWrapped(t *testing.T) {
	s := Spec{Command: `sh -c 'trap "" TERM; sleep 30'`}
	cmd := s.BuildCommand()
	if cmd.Path != "/bin/sh" {
		t.Fatalf("expected /bin/sh, got %s", cmd.Path)
	}
	if cmd.Args[2] != `trap "" TERM; sleep 30` {
		t.Fatalf("inner script mangled: %q", cmd.Args[2])
	}
}

func TestBuildCommandEmpty(t *testing.T) {
	s := Spec{}
	cmd := s.BuildCommand()
	if !strings.HasSuffix(cmd.Path, "true") {
		t.Fatalf("empty command should be a no-op: %s", cmd.Path)
	}
}
