package vm

import (
	"fmt"
	"time"

	"github.com/sqc-lang/sqcvm/code"
	"github.com/sqc-lang/sqcvm/diag"
	"github.com/sqc-lang/sqcvm/value"
)

// Context is a stack of call frames plus a reference to the owning VM:
// one logical script thread.
type Context struct {
	ID int

	vm        *VM
	frames    []*Frame
	namespace *Namespace

	// Budget is the remaining per-tick instruction allowance, reloaded
	// by the VM's scheduler each round.
	Budget int

	// Total counts every Step call that actually executed or
	// transitioned; the owning VM checks it against the lifetime
	// instruction cap.
	Total int

	Suspended bool
	Cancelled bool

	// wakeAt, when non-zero, is the deadline after which a sleep-induced
	// suspension lifts; the VM's scheduler clears Suspended once its clock
	// passes it.
	wakeAt time.Time

	// deadline, when non-zero, is the wall-clock point past which the VM
	// unwinds this context with ScriptTimedOut.
	deadline time.Time

	// Result is the value the context's final frame produced, retained
	// after the frame stack drains.
	Result value.Value

	// Failed and FailedFrames record a post-mortem snapshot once the
	// context terminates abnormally.
	Failed       bool
	FailedFrames []*Frame
}

// NewContext creates an empty Context owned by vm, targeting
// missionNamespace by default.
func NewContext(id int, vm *VM) *Context {
	return &Context{ID: id, vm: vm, namespace: vm.Namespaces.Mission}
}

// Load installs set as this context's sole initial frame.
func (c *Context) Load(set *code.Set) {
	c.frames = []*Frame{NewFrame(set.Instructions, NewScope(), false)}
}

// Namespace returns the context's current non-local target namespace.
func (c *Context) Namespace() *Namespace { return c.namespace }

// SetNamespace retargets non-local reads/writes to ns.
func (c *Context) SetNamespace(ns *Namespace) { c.namespace = ns }

// Namespaces exposes the VM's four well-known namespaces, for operators
// like getVariable/setVariable that need to select among them by name.
func (c *Context) Namespaces() *Namespaces { return c.vm.Namespaces }

// Empty reports whether the context's frame stack has drained; the
// executor retires contexts in this state.
func (c *Context) Empty() bool { return len(c.frames) == 0 }

// TopFrame returns the active frame, or nil if the stack is empty.
func (c *Context) TopFrame() *Frame {
	if len(c.frames) == 0 {
		return nil
	}
	return c.frames[len(c.frames)-1]
}

// PushFrame pushes f onto the call stack.
func (c *Context) PushFrame(f *Frame) {
	c.frames = append(c.frames, f)
}

// Cancel marks the context cancelled; the next Step call unwinds its
// entire frame stack without firing any operator.
func (c *Context) Cancel() { c.Cancelled = true }

// Suspend marks the context suspended until explicitly resumed by an
// operator.
func (c *Context) Suspend() { c.Suspended = true }

// SuspendUntil suspends the context and enqueues a wake-up time; the VM
// resumes it once its clock passes t (the `sleep` operator's contract).
func (c *Context) SuspendUntil(t time.Time) {
	c.Suspended = true
	c.wakeAt = t
}

// Now reads the owning VM's clock, so operators computing wake-up times
// stay on whatever time source the VM was configured with.
func (c *Context) Now() time.Time { return c.vm.now() }

// Resume clears a suspension set by Suspend or SuspendUntil.
func (c *Context) Resume() {
	c.Suspended = false
	c.wakeAt = time.Time{}
}

func (c *Context) emit(m diag.Message) {
	c.vm.Diag.Emit(m)
}

// Warn emits a Warning-severity diagnostic attached to the currently
// executing instruction's position, for operator callbacks reporting
// non-fatal conditions.
func (c *Context) Warn(key diag.Key, format string, args ...any) {
	c.emit(diag.Warningf(key, c.at(), format, args...))
}

func (c *Context) at() diag.Info {
	if f := c.TopFrame(); f != nil && f.IP > 0 && f.IP <= len(f.Instructions) {
		return f.Instructions[f.IP-1].Diag
	}
	return diag.Info{}
}

// GetVariable implements GET_VARIABLE's resolution order: locals walk
// the frame scopes innermost-out, non-locals hit the current namespace
// with missionNamespace as fallback.
func (c *Context) GetVariable(name string) value.Value {
	if v, ok := c.Lookup(name); ok {
		return v
	}
	if isLocalName(name) {
		c.emit(diag.Warningf(diag.UndefinedVariable, c.at(), "undefined local variable %q", name))
	} else {
		c.emit(diag.Warningf(diag.UndefinedVariable, c.at(), "undefined variable %q", name))
	}
	return value.Nothing
}

// Lookup resolves name with GET_VARIABLE's rules but reports absence
// instead of warning, for operators that probe optional bindings
// (`params` reading _this, `isNil`).
func (c *Context) Lookup(name string) (value.Value, bool) {
	if isLocalName(name) {
		for i := len(c.frames) - 1; i >= 0; i-- {
			if v, ok := c.frames[i].Scope.Get(name); ok {
				return v, true
			}
		}
		return value.Nothing, false
	}
	ns := c.namespace
	if ns == nil {
		ns = c.vm.Namespaces.Mission
	}
	if ns.Has(name) {
		return ns.Get(name), true
	}
	if ns != c.vm.Namespaces.Mission && c.vm.Namespaces.Mission.Has(name) {
		return c.vm.Namespaces.Mission.Get(name), true
	}
	return value.Nothing, false
}

// AssignTo implements ASSIGN_TO: overwrite the nearest
// scope that already binds name, or (for non-locals) the current
// namespace; assigning an undeclared local is a warning, the write is
// dropped.
func (c *Context) AssignTo(name string, v value.Value) {
	if isLocalName(name) {
		for i := len(c.frames) - 1; i >= 0; i-- {
			if c.frames[i].Scope.Set(name, v) {
				return
			}
		}
		c.emit(diag.Warningf(diag.UndeclaredLocalAssignment, c.at(), "assignment to undeclared local %q", name))
		return
	}
	ns := c.namespace
	if ns == nil {
		ns = c.vm.Namespaces.Mission
	}
	ns.Set(name, v)
}

// AssignToLocal implements ASSIGN_TO_LOCAL: always binds
// in the innermost scope, regardless of name prefix.
func (c *Context) AssignToLocal(name string, v value.Value) {
	if f := c.TopFrame(); f != nil {
		f.Scope.Define(name, v)
	}
}

// CurrentSwitch returns the nearest FrameSwitch frame on the stack, for
// the `case`/`:`/`default` builtin operators to mutate.
func (c *Context) CurrentSwitch() (*Frame, bool) {
	for i := len(c.frames) - 1; i >= 0; i-- {
		if c.frames[i].Kind == FrameSwitch {
			return c.frames[i], true
		}
	}
	return nil, false
}

// SetScopeName tags the topmost frame with name, for the scopeName
// operator.
func (c *Context) SetScopeName(name string) {
	if f := c.TopFrame(); f != nil {
		f.ScopeTag = name
	}
}

// BreakOut implements breakOut: unwind frames until one
// tagged name is the top, pop it, and push result (or NOTHING) onto the
// frame below. Returns an error if no such frame exists.
func (c *Context) BreakOut(name string, result value.Value, hasResult bool) error {
	idx := -1
	for i := len(c.frames) - 1; i >= 0; i-- {
		if c.frames[i].ScopeTag == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.emit(diag.Fatalf(diag.BreakOutTargetNotFound, c.at(), "breakOut: no frame tagged %q", name))
		return fmt.Errorf("vm: breakOut target %q not found", name)
	}
	c.frames = c.frames[:idx]
	if !hasResult {
		result = value.Nothing
	}
	if len(c.frames) > 0 {
		c.frames[len(c.frames)-1].push(result)
	}
	return nil
}

// Throw implements throw: search the frame stack for the
// nearest try/catch frame, unwind to it, bind _exception in its scope
// and resume it running the catch handler. If no try/catch frame exists
// the context unwinds entirely and is marked failed.
func (c *Context) Throw(v value.Value) {
	for i := len(c.frames) - 1; i >= 0; i-- {
		if c.frames[i].Kind == FrameTryCatch && c.frames[i].Catch != nil {
			f := c.frames[i]
			c.frames = c.frames[:i+1]
			f.Scope.Define("_exception", v)
			f.Instructions = f.Catch.Instructions
			f.IP = 0
			f.Values = nil
			f.Catch = nil
			return
		}
	}
	c.emit(diag.Fatalf(diag.Throw, c.at(), "uncaught throw: %s", v.ToStringSQF()))
	c.failNow()
}

func (c *Context) failNow() {
	c.Failed = true
	c.FailedFrames = append([]*Frame(nil), c.frames...)
	c.frames = nil
}

// Step executes exactly one opcode of the top frame, or performs exactly
// one frame-stack transition (specialized frame completion, push, or
// pop). It reports whether the context is still runnable.
func (c *Context) Step() bool {
	if c.Cancelled {
		c.frames = nil
		return false
	}
	if c.Suspended || len(c.frames) == 0 {
		return false
	}

	c.Total++

	top := c.frames[len(c.frames)-1]
	if top.exhausted() {
		action := top.onExhausted()
		switch {
		case action.rerun:
			return true
		case action.pushChild != nil:
			c.frames = append(c.frames, action.pushChild)
			return true
		default:
			c.frames = c.frames[:len(c.frames)-1]
			if len(c.frames) == 0 {
				c.Result = action.result
			} else if !top.DiscardResult {
				c.frames[len(c.frames)-1].push(action.result)
			}
			return len(c.frames) > 0
		}
	}

	in := top.Instructions[top.IP]
	top.IP++
	c.execute(top, in)
	return true
}

func (c *Context) execute(f *Frame, in code.Instruction) {
	switch in.Op {
	case code.PUSH:
		f.push(in.Literal)

	case code.MAKE_ARRAY:
		n := in.Count
		if n < 0 {
			n = 0
		}
		if n > len(f.Values) {
			n = len(f.Values)
		}
		args := make([]value.Value, n)
		copy(args, f.Values[len(f.Values)-n:])
		f.Values = f.Values[:len(f.Values)-n]
		f.push(value.Arr(args))

	case code.GET_VARIABLE:
		f.push(c.GetVariable(in.Name))

	case code.ASSIGN_TO:
		c.AssignTo(in.Name, f.pop())

	case code.ASSIGN_TO_LOCAL:
		c.AssignToLocal(in.Name, f.pop())

	case code.CALL_NULAR:
		fn, ok := c.vm.Registry.DispatchNular(in.Name)
		if !ok {
			c.emit(diag.Warningf(diag.UnknownInputTypeCombination, in.Diag, "no nular operator %q", in.Name))
			f.push(value.Nothing)
			return
		}
		c.invoke(f, func() value.Value { return fn(c) })

	case code.CALL_UNARY:
		right := f.pop()
		fn, ok := c.vm.Registry.DispatchUnary(in.Name, right.Tag())
		if !ok {
			c.emit(diag.Warningf(diag.UnknownInputTypeCombination, in.Diag,
				"no unary operator %q for %s", in.Name, right.Tag()))
			f.push(value.Nothing)
			return
		}
		c.invoke(f, func() value.Value { return fn(c, right) })

	case code.CALL_BINARY:
		right := f.pop()
		left := f.pop()
		fn, ok := c.vm.Registry.DispatchBinary(in.Name, left.Tag(), right.Tag())
		if !ok {
			c.emit(diag.Warningf(diag.UnknownInputTypeCombination, in.Diag,
				"no binary operator %q for (%s, %s)", in.Name, left.Tag(), right.Tag()))
			f.push(value.Nothing)
			return
		}
		c.invoke(f, func() value.Value { return fn(c, left, right) })

	case code.END_STATEMENT:
		f.Values = nil
	}
}

// invoke runs an operator callback and pushes its result onto f, unless
// the callback changed the frame stack (queued a child frame, unwound via
// throw/breakOut). A changed stack is the "no value" signal: the real
// result will arrive through frame-pop propagation instead.
func (c *Context) invoke(f *Frame, fn func() value.Value) {
	depth := len(c.frames)
	res := fn()
	if len(c.frames) != depth {
		return
	}
	f.push(res)
}
