package vm

import (
	"strings"

	"github.com/sqc-lang/sqcvm/value"
)

// Namespace is a case-insensitive, long-lived variable store for
// non-local names. Unlike a Scope, a Namespace outlives any single
// call frame.
type Namespace struct {
	name string
	vars map[string]value.Value
}

// NewNamespace creates an empty, named Namespace.
func NewNamespace(name string) *Namespace {
	return &Namespace{name: name, vars: make(map[string]value.Value)}
}

// Name returns the namespace's identifying name (e.g. "missionNamespace").
func (n *Namespace) Name() string { return n.name }

// Get looks up name case-insensitively, returning NOTHING if unbound:
// reading an undefined non-local variable is not an error.
func (n *Namespace) Get(name string) value.Value {
	v, ok := n.vars[namespaceKey(name)]
	if !ok {
		return value.Nothing
	}
	return v
}

// Set binds name (case-insensitively) to v, creating the binding if it
// does not already exist.
func (n *Namespace) Set(name string, v value.Value) {
	n.vars[namespaceKey(name)] = v
}

// Has reports whether name is bound.
func (n *Namespace) Has(name string) bool {
	_, ok := n.vars[namespaceKey(name)]
	return ok
}

func namespaceKey(name string) string {
	return strings.ToLower(name)
}

// Namespaces holds the four well-known namespaces:
// missionNamespace (the default target of non-local reads/writes),
// uiNamespace, parsingNamespace and profileNamespace.
type Namespaces struct {
	Mission *Namespace
	UI      *Namespace
	Parsing *Namespace
	Profile *Namespace
}

// NewNamespaces creates the four standard namespaces, empty.
func NewNamespaces() *Namespaces {
	return &Namespaces{
		Mission: NewNamespace("missionNamespace"),
		UI:      NewNamespace("uiNamespace"),
		Parsing: NewNamespace("parsingNamespace"),
		Profile: NewNamespace("profileNamespace"),
	}
}

// ByName resolves one of the four standard namespaces by its
// case-insensitive name, used by the getVariable/setVariable operators
// to resolve a NAMESPACE value to its store.
func (ns *Namespaces) ByName(name string) (*Namespace, bool) {
	switch strings.ToLower(name) {
	case "missionnamespace":
		return ns.Mission, true
	case "uinamespace":
		return ns.UI, true
	case "parsingnamespace":
		return ns.Parsing, true
	case "profilenamespace":
		return ns.Profile, true
	default:
		return nil, false
	}
}
