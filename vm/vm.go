package vm

import (
	"time"

	"github.com/sqc-lang/sqcvm/code"
	"github.com/sqc-lang/sqcvm/diag"
	"github.com/sqc-lang/sqcvm/registry"
)

// VM owns a set of scheduled contexts, the four standard namespaces,
// and the operator registry they dispatch against. Scheduling is
// single-threaded cooperative round-robin: each top-level step executes
// exactly one opcode on exactly one context, so no observer ever sees a
// partially executed instruction.
type VM struct {
	Namespaces *Namespaces
	Registry   *registry.Registry[*Context]
	Diag       *diag.Sink

	contexts []*Context
	nextID   int
	nextTurn int

	// turnBudget is the per-context, per-scheduling-round fair-share
	// allowance: it only ever
	// triggers a round-robin turn change, never an error.
	turnBudget int

	// maxTotalInstructions bounds a single context's lifetime instruction
	// count, the infinite-loop backstop that fires MaxInstructions and
	// unwinds the offending context.
	maxTotalInstructions int

	// scriptTimeout, when non-zero, is the per-script wall-clock budget
	//; exceeding it fires ScriptTimedOut and unwinds the
	// context.
	scriptTimeout time.Duration

	// now is the scheduler's clock, injectable so tests can drive sleep
	// wake-ups and timeouts deterministically.
	now func() time.Time
}

// DefaultTurnBudget is the default per-round fair-share instruction
// count.
const DefaultTurnBudget = 1_000

// DefaultMaxTotalInstructions is the default per-context lifetime
// instruction cap.
const DefaultMaxTotalInstructions = 10_000_000

// New creates an empty VM with its four standard namespaces and an
// empty operator registry (callers wire builtins in via Registry).
func New() *VM {
	return &VM{
		Namespaces:           NewNamespaces(),
		Registry:             registry.New[*Context](),
		Diag:                 &diag.Sink{},
		turnBudget:           DefaultTurnBudget,
		maxTotalInstructions: DefaultMaxTotalInstructions,
		now:                  time.Now,
	}
}

// SetTurnBudget overrides the per-round fair-share instruction count.
func (vm *VM) SetTurnBudget(n int) { vm.turnBudget = n }

// SetMaxTotalInstructions overrides the per-context lifetime instruction
// cap that triggers MaxInstructions.
func (vm *VM) SetMaxTotalInstructions(n int) { vm.maxTotalInstructions = n }

// SetScriptTimeout sets the per-script wall-clock budget; zero disables
// it. Only contexts created after the call are affected.
func (vm *VM) SetScriptTimeout(d time.Duration) { vm.scriptTimeout = d }

// SetClock overrides the scheduler's time source, for deterministic
// tests of sleep and timeout behavior.
func (vm *VM) SetClock(now func() time.Time) { vm.now = now }

// NewScript loads set into a freshly allocated context and schedules
// it.
func (vm *VM) NewScript(set *code.Set) *Context {
	ctx := NewContext(vm.nextID, vm)
	vm.nextID++
	ctx.Load(set)
	if vm.scriptTimeout > 0 {
		ctx.deadline = vm.now().Add(vm.scriptTimeout)
	}
	vm.contexts = append(vm.contexts, ctx)
	return ctx
}

// Contexts returns every context the VM currently owns, including
// retired (empty) and failed ones, so embedders can query script
// state.
func (vm *VM) Contexts() []*Context {
	return append([]*Context(nil), vm.contexts...)
}

// Step advances exactly one runnable context by one instruction,
// picking contexts round-robin among those that
// are neither empty, cancelled-and-drained, nor suspended. It reports
// whether any context was actually runnable.
func (vm *VM) Step() bool {
	vm.wake()
	n := len(vm.contexts)
	for i := 0; i < n; i++ {
		idx := (vm.nextTurn + i) % n
		ctx := vm.contexts[idx]
		if ctx.Empty() || ctx.Suspended {
			if idx == vm.nextTurn {
				vm.nextTurn = (idx + 1) % n
			}
			continue
		}
		if ctx.Total >= vm.maxTotalInstructions {
			vm.killRunaway(ctx)
			vm.nextTurn = (idx + 1) % n
			return true
		}
		if !ctx.deadline.IsZero() && vm.now().After(ctx.deadline) {
			vm.Diag.Emit(diag.Fatalf(diag.ScriptTimedOut, diag.Info{}, "context %d exceeded its wall-clock budget", ctx.ID))
			ctx.failNow()
			vm.nextTurn = (idx + 1) % n
			return true
		}
		if ctx.Budget <= 0 {
			ctx.Budget = vm.turnBudget
		}
		ctx.Step()
		ctx.Budget--
		if ctx.Budget <= 0 {
			vm.nextTurn = (idx + 1) % n
		} else {
			vm.nextTurn = idx
		}
		return true
	}
	return false
}

// wake lifts sleep-induced suspensions whose enqueued wake-up time has
// passed.
func (vm *VM) wake() {
	var now time.Time
	for _, ctx := range vm.contexts {
		if !ctx.Suspended || ctx.wakeAt.IsZero() {
			continue
		}
		if now.IsZero() {
			now = vm.now()
		}
		if !now.Before(ctx.wakeAt) {
			ctx.Resume()
		}
	}
}

// killRunaway unwinds ctx after it exceeds the VM's lifetime instruction
// cap, firing MaxInstructions.
func (vm *VM) killRunaway(ctx *Context) {
	vm.Diag.Emit(diag.Fatalf(diag.MaxInstructions, diag.Info{}, "context %d exceeded its instruction budget", ctx.ID))
	ctx.failNow()
}

// RunUntilIdle steps the VM until every context is either retired or
// suspended, or maxSteps total steps have run (a caller-side backstop;
// the per-context budget is enforced inside Step).
func (vm *VM) RunUntilIdle(maxSteps int) {
	for i := 0; i < maxSteps; i++ {
		vm.wake()
		if !vm.anyRunnable() {
			return
		}
		vm.Step()
	}
}

func (vm *VM) anyRunnable() bool {
	for _, ctx := range vm.contexts {
		if !ctx.Empty() && !ctx.Suspended {
			return true
		}
	}
	return false
}

// Retire drops every context whose frame stack has drained or which has
// failed, freeing their memory. Callers typically invoke this between
// ticks of a host game loop.
func (vm *VM) Retire() {
	live := vm.contexts[:0]
	for _, ctx := range vm.contexts {
		if ctx.Empty() {
			continue
		}
		live = append(live, ctx)
	}
	vm.contexts = live
}
