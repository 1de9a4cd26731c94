package vm

import (
	"strings"

	"github.com/sqc-lang/sqcvm/value"
)

// Scope is the linear, insertion-ordered variable frame of a single
// call frame. Local names (leading `_`) compare case-sensitively;
// everything that flows through Scope is a local by construction, since
// non-local reads/writes go straight to a Namespace instead.
type Scope struct {
	names  []string
	values []value.Value
}

// NewScope creates an empty Scope.
func NewScope() *Scope {
	return &Scope{}
}

// Get looks up name (case-sensitive) in this scope only.
func (s *Scope) Get(name string) (value.Value, bool) {
	for i := len(s.names) - 1; i >= 0; i-- {
		if s.names[i] == name {
			return s.values[i], true
		}
	}
	return value.Nothing, false
}

// Define binds name to v in this scope, overwriting any existing binding
// with the same name (ASSIGN_TO_LOCAL's "new/overwritten local binding").
func (s *Scope) Define(name string, v value.Value) {
	for i := len(s.names) - 1; i >= 0; i-- {
		if s.names[i] == name {
			s.values[i] = v
			return
		}
	}
	s.names = append(s.names, name)
	s.values = append(s.values, v)
}

// Set overwrites an existing binding for name, reporting whether one was
// found. It never creates a new binding (ASSIGN_TO's "write to the first
// scope that already binds name").
func (s *Scope) Set(name string, v value.Value) bool {
	for i := len(s.names) - 1; i >= 0; i-- {
		if s.names[i] == name {
			s.values[i] = v
			return true
		}
	}
	return false
}

// Has reports whether name is bound in this scope.
func (s *Scope) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// isLocalName reports whether name follows the local-identifier rule:
// begins with `_`.
func isLocalName(name string) bool {
	return strings.HasPrefix(name, "_")
}
