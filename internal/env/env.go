package env

import (
	"os"
	"sort"
	"strings"
)

type Var map[string]string

// Env composes the environment passed to supervised services.
// Layering: OS environment as the base, then global overrides set via Set,
// then per-service "K=V" overrides supplied to Merge.
type Env struct {
	Var Var // global overrides (K->V)
	env Var // cached base from OS environment
}

func New() *Env {
	return &Env{Var: make(Var)}
}

// FromOS caches the current process environment as the base.
func (e *Env) FromOS() {
	base := make(Var)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			k := kv[:i]
			v := kv[i+1:]
			if k == "" {
				continue
			}
			base[k] = v
		}
	}
	e.env = base
}

// Set sets a global override K=V.
func (e *Env) Set(k, v string) {
	if e.Var == nil {
		e.Var = make(Var)
	}
	e.Var[k] = v
}

// Merge composes the final environment list for one service.
// perSvc entries are "K=V" and win over global overrides, which win over
// the OS base. ${VAR} references are expanded against the composed map
// (simple expansion, no recursion).
func (e *Env) Merge(perSvc []string) []string {
	if e.env == nil {
		e.FromOS()
	}
	m := make(Var, len(e.env)+len(e.Var)+len(perSvc))
	for k, v := range e.env {
		m[k] = v
	}
	for k, v := range e.Var {
		if k == "" {
			continue
		}
		m[k] = v
	}
	for _, kv := range perSvc {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			k := kv[:i]
			v := kv[i+1:]
			if k == "" {
				continue
			}
			m[k] = v
		}
	}
	expand := func(s string) string {
		return os.Expand(s, func(name string) string { return m[name] })
	}
	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, k+"="+expand(v))
	}
	sort.Strings(out)
	return out
}
