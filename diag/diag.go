// Package diag implements the diagnostic record and message catalogue:
// a stable, machine-consumable `logmessage::<area>::<code>` key
// attached to every runtime event, plus the source-position record
// every instruction carries for error reporting and pretty-printing.
// Everything is plain structs and plain `fmt`; diagnostics are data,
// not a logging framework.
package diag

import "fmt"

// Info is the source-position record attached to every compiled
// instruction.
type Info struct {
	File    string
	Line    int
	Column  int
	Offset  int
	Snippet string
}

func (i Info) String() string {
	if i.File == "" && i.Line == 0 {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", i.File, i.Line, i.Column)
}

// Severity classifies a Message.
type Severity int

const (
	// Warning is a non-fatal diagnostic: execution continues, typically
	// with a nil value substituted for whatever failed.
	Warning Severity = iota
	// Fatal is a severe diagnostic. Emitting it does not by itself stop
	// anything: the VM unwinds the context for MaxInstructions,
	// ScriptTimedOut and an uncaught throw, while a breakOut whose target
	// scope is missing leaves the context running.
	Fatal
)

// Key enumerates the stable `logmessage::<area>::<code>` identifiers
// used by diagnostics.
type Key string

//nolint:revive
const (
	ParseError                    Key = "logmessage::assembly::ParseError"
	NumberOutOfRange              Key = "logmessage::assembly::NumberOutOfRange"
	UnknownInputTypeCombination   Key = "logmessage::runtime::UnknownInputTypeCombination"
	UndefinedVariable             Key = "logmessage::runtime::UndefinedVariable"
	IndexOutOfRange               Key = "logmessage::runtime::IndexOutOfRange"
	DivisionByZero                Key = "logmessage::runtime::DivisionByZero"
	WrongType                     Key = "logmessage::runtime::WrongType"
	MaxInstructions               Key = "logmessage::runtime::MaxInstructions"
	ScriptTimedOut                Key = "logmessage::runtime::ScriptTimedOut"
	Throw                         Key = "logmessage::runtime::Throw"
	InternalInvariant             Key = "logmessage::runtime::InternalInvariant"
	UndeclaredLocalAssignment     Key = "logmessage::runtime::UndeclaredLocalAssignment"
	BreakOutTargetNotFound        Key = "logmessage::runtime::BreakOutTargetNotFound"
	RegistrationAmbiguousOverload Key = "logmessage::registry::AmbiguousOverload"
)

// Message is one diagnostic emission: a stable key, a severity, a
// human-readable rendering, and the instruction position it attaches to.
type Message struct {
	Key      Key
	Severity Severity
	Text     string
	At       Info
}

func (m Message) String() string {
	return fmt.Sprintf("%s: %s (%s)", m.Key, m.Text, m.At)
}

// Warningf builds a Warning-severity Message.
func Warningf(key Key, at Info, format string, args ...any) Message {
	return Message{Key: key, Severity: Warning, Text: fmt.Sprintf(format, args...), At: at}
}

// Fatalf builds a Fatal-severity Message.
func Fatalf(key Key, at Info, format string, args ...any) Message {
	return Message{Key: key, Severity: Fatal, Text: fmt.Sprintf(format, args...), At: at}
}

// Sink collects diagnostic messages as they are raised. Contexts
// append to it directly rather than returning diagnostics up the call
// stack, since most diagnostics are non-fatal and execution must
// continue regardless.
type Sink struct {
	messages []Message
}

// Emit appends m to the sink.
func (s *Sink) Emit(m Message) { s.messages = append(s.messages, m) }

// Messages returns all messages emitted so far, in emission order.
func (s *Sink) Messages() []Message { return s.messages }

// HasFatal reports whether any Fatal-severity message has been emitted.
func (s *Sink) HasFatal() bool {
	for _, m := range s.messages {
		if m.Severity == Fatal {
			return true
		}
	}
	return false
}
