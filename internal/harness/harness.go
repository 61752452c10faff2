package harness

import (
	"context"
	"fmt"

	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/prism/internal/compiler"
	"github.com/roach88/prism/internal/engine"
	"github.com/roach88/prism/internal/ir"
	"github.com/roach88/prism/internal/journal"
	"github.com/roach88/prism/internal/testutil"
)

// Harness executes a scenario against a fresh evaluator and journal.
type Harness struct {
	eval     *engine.Evaluator
	journal  *journal.Journal
	bindings map[string]*engine.Handle
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in isolation: a fresh registry, evaluator, and
// in-memory journal, with sequential instance IDs. The same scenario
// therefore always produces the same mutation log.
//
// Execution flow:
//  1. Compile the inline CUE declarations
//  2. Register the compiled types and open an in-memory journal
//  3. Execute steps, checking expected values and error codes
//  4. Evaluate assertions against the journal
//
// Step expectation failures and assertion failures go into the result's
// Errors; infrastructure failures (unparseable decls, journal errors,
// unexpected step errors) abort the run.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithJournal(scenario, ":memory:")
}

// RunWithJournal executes a scenario recording to the journal at the
// given path. The CLI uses this to persist a scenario's mutation log for
// later trace and replay inspection; tests use Run, which stays in
// memory.
func RunWithJournal(scenario *Scenario, journalPath string) (*Result, error) {
	specs, err := compileDecls(scenario.Decls)
	if err != nil {
		return nil, err
	}

	declHash, err := ir.DeclSetHash(specs)
	if err != nil {
		return nil, fmt.Errorf("failed to hash declarations: %w", err)
	}

	reg := engine.NewRegistry()
	if err := reg.RegisterSpecs(specs); err != nil {
		return nil, fmt.Errorf("failed to register types: %w", err)
	}

	j, err := journal.Open(journalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	defer j.Close()

	ctx := context.Background()

	// A durable journal may already hold mutations from earlier runs;
	// resume the clock past them and report only this run's entries.
	startSeq, err := j.LastSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}

	h := &Harness{
		eval: engine.New(reg,
			engine.WithRecorder(j),
			engine.WithClock(engine.NewClockAt(startSeq)),
			engine.WithDeclHash(declHash),
			engine.WithInstanceIDs(testutil.NewSequentialIDGenerator(scenario.IDPrefix)),
		),
		journal:  j,
		bindings: make(map[string]*engine.Handle),
	}

	result := NewResult()

	for i, step := range scenario.Steps {
		if err := h.executeStep(i, step, result); err != nil {
			return nil, err
		}
	}

	all, err := j.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	for _, m := range all {
		if m.Seq > startSeq {
			result.Mutations = append(result.Mutations, m)
		}
	}

	for _, msg := range EvaluateAssertions(ctx, result, scenario.Assertions, j) {
		result.AddError(msg)
	}

	return result, nil
}

// compileDecls runs the full CUE front end over inline declaration source.
func compileDecls(src string) ([]ir.TypeSpec, error) {
	v := cuecontext.New().CompileString(src)
	if v.Err() != nil {
		return nil, fmt.Errorf("failed to parse declarations: %w", v.Err())
	}
	specs, err := compiler.Compile(v)
	if err != nil {
		return nil, fmt.Errorf("failed to compile declarations: %w", err)
	}
	return specs, nil
}

// executeStep runs a single step. Expected errors (step.Error) and value
// mismatches are recorded on the result; anything else is fatal.
func (h *Harness) executeStep(index int, step Step, result *Result) error {
	switch step.Op {
	case OpConstruct:
		return h.executeConstruct(index, step, result)

	case OpSet:
		handle, err := h.binding(index, step.On)
		if err != nil {
			return err
		}
		v, err := ir.FromGo(step.Value)
		if err != nil {
			return fmt.Errorf("steps[%d]: bad value: %w", index, err)
		}
		return h.checkStepError(index, step, result, h.eval.Set(handle, step.Property, v))

	case OpSetType:
		v, err := ir.FromGo(step.Value)
		if err != nil {
			return fmt.Errorf("steps[%d]: bad value: %w", index, err)
		}
		return h.checkStepError(index, step, result, h.eval.SetType(step.Type, step.Property, v))

	case OpGet:
		handle, err := h.binding(index, step.On)
		if err != nil {
			return err
		}
		v, err := h.eval.Get(handle, step.Property)
		if err := h.checkStepError(index, step, result, err); err != nil {
			return err
		}
		if err == nil {
			result.AddRead(handle.ID(), step.Property, v)
			h.checkExpectedValue(index, step, result, v)
		}
		return nil

	case OpGetType:
		v, err := h.eval.GetType(step.Type, step.Property)
		if err := h.checkStepError(index, step, result, err); err != nil {
			return err
		}
		if err == nil {
			result.AddRead(step.Type, step.Property, v)
			h.checkExpectedValue(index, step, result, v)
		}
		return nil

	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, step.Op)
	}
}

// executeConstruct creates an instance and records the binding.
func (h *Harness) executeConstruct(index int, step Step, result *Result) error {
	kind := engine.ReferenceHandle
	if step.Handle == "value" {
		kind = engine.ValueHandle
	}
	mutable := true
	if step.Mutable != nil {
		mutable = *step.Mutable
	}

	initial := make(map[string]ir.Value, len(step.With))
	for name, raw := range step.With {
		v, err := ir.FromGo(raw)
		if err != nil {
			return fmt.Errorf("steps[%d]: with[%q]: %w", index, name, err)
		}
		initial[name] = v
	}

	handle, err := h.eval.Construct(step.Type, initial, kind, mutable)
	if err := h.checkStepError(index, step, result, err); err != nil {
		return err
	}
	if err == nil {
		h.bindings[step.As] = handle
	}
	return nil
}

// binding resolves a handle binding created by an earlier construct.
func (h *Harness) binding(index int, name string) (*engine.Handle, error) {
	handle, ok := h.bindings[name]
	if !ok {
		return nil, fmt.Errorf("steps[%d]: unknown binding %q", index, name)
	}
	return handle, nil
}

// checkStepError reconciles the step outcome with its error expectation.
//
// Expected error that occurred with the right code: pass. Wrong code or
// no error when one was expected: expectation failure on the result.
// Unexpected error: fatal, the scenario cannot meaningfully continue.
func (h *Harness) checkStepError(index int, step Step, result *Result, err error) error {
	if step.Error == "" {
		if err != nil {
			return fmt.Errorf("steps[%d]: %s failed: %w", index, step.Op, err)
		}
		return nil
	}

	if err == nil {
		result.AddError(fmt.Sprintf("steps[%d]: expected error %s, but %s succeeded", index, step.Error, step.Op))
		return nil
	}
	if code := engine.CodeOf(err); string(code) != step.Error {
		result.AddError(fmt.Sprintf("steps[%d]: expected error %s, got %s (%v)", index, step.Error, code, err))
	}
	return nil
}

// checkExpectedValue compares a read result against the step's expect
// clause, if any.
func (h *Harness) checkExpectedValue(index int, step Step, result *Result, actual ir.Value) {
	if step.Expect == nil {
		return
	}
	expected, err := ir.FromGo(step.Expect)
	if err != nil {
		result.AddError(fmt.Sprintf("steps[%d]: bad expect value: %v", index, err))
		return
	}
	if !ir.Equal(actual, expected) {
		result.AddError(fmt.Sprintf("steps[%d]: %s.%s = %v, expected %v",
			index, readTarget(step), step.Property, ir.ToGo(actual), ir.ToGo(expected)))
	}
}

// readTarget names the read target for failure messages.
func readTarget(step Step) string {
	if step.Op == OpGetType {
		return step.Type
	}
	return step.On
}
