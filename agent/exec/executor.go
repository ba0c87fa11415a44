package exec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	contractx "github.com/jirapatw/TAM-Copilot-Orchestrator/agent/contract"
)

const (
	ReasonTimeout   = "timeout"
	ReasonCancelled = "cancelled"
)

type Config struct {
	Workers      int           `envconfig:"WORKERS" split_words:"true" default:"4"`
	MaxRetries   int           `envconfig:"MAX_RETRIES" split_words:"true" default:"2"`
	RetryBackoff time.Duration `envconfig:"RETRY_BACKOFF" split_words:"true" default:"200ms"`
	StepTimeout  time.Duration `envconfig:"STEP_TIMEOUT" split_words:"true" default:"10s"`
	PlanTimeout  time.Duration `envconfig:"PLAN_TIMEOUT" split_words:"true" default:"60s"`
}

type stepState int

const (
	statePending stepState = iota
	stateRunning
	stateSucceeded
	stateFailed
	stateSkipped
)

// Executor walks a plan in dependency order. Steps whose dependencies are all
// satisfied run concurrently in waves; each step owns exactly one result slot
// and writes it exactly once. All failure handling stays inside the result
// slots; Execute itself never fails.
type Executor struct {
	invoker contractx.Invoker
	cfg     Config
	sleep   func(ctx context.Context, d time.Duration) error
}

type Option func(*Executor)

// WithSleep overrides the backoff sleeper; tests use it to avoid real delays.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Executor) {
		if sleep != nil {
			e.sleep = sleep
		}
	}
}

func New(invoker contractx.Invoker, cfg Config, opts ...Option) (*Executor, error) {
	if invoker == nil {
		return nil, errors.New("tool invoker is required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 200 * time.Millisecond
	}
	e := &Executor{
		invoker: invoker,
		cfg:     cfg,
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e, nil
}

func (e *Executor) Execute(ctx context.Context, plan *contractx.Plan) []contractx.StepResult {
	if plan == nil || len(plan.Steps) == 0 {
		return nil
	}

	planCtx := ctx
	cancel := func() {}
	if e.cfg.PlanTimeout > 0 {
		planCtx, cancel = context.WithTimeout(ctx, e.cfg.PlanTimeout)
	}
	defer cancel()

	n := len(plan.Steps)
	results := make([]contractx.StepResult, n)
	states := make([]stepState, n)
	index := make(map[string]int, n)
	for i, s := range plan.Steps {
		index[s.ID] = i
	}

	for {
		// A required step that failed aborts everything not yet started.
		if abortID := e.requiredFailure(plan, states); abortID != "" {
			e.skipRemaining(plan, states, results,
				fmt.Sprintf("aborted: required step %s failed", abortID))
			break
		}

		// Plan deadline or caller cancellation stops scheduling; whatever
		// already ran keeps its results and synthesis proceeds partially.
		if err := planCtx.Err(); err != nil {
			reason := ReasonTimeout
			if errors.Is(err, context.Canceled) {
				reason = ReasonCancelled
			}
			e.skipRemaining(plan, states, results, reason)
			break
		}

		progress := e.skipBlocked(plan, states, results)

		ready := make([]int, 0, n)
		for i := range plan.Steps {
			if states[i] == statePending && e.depsSucceeded(plan.Steps[i], states, index) {
				ready = append(ready, i)
			}
		}
		if len(ready) == 0 {
			if progress {
				continue
			}
			break
		}

		g := new(errgroup.Group)
		g.SetLimit(e.cfg.Workers)
		for _, i := range ready {
			i := i
			states[i] = stateRunning
			g.Go(func() error {
				results[i] = e.runStep(planCtx, plan.Steps[i], results, index)
				return nil
			})
		}
		_ = g.Wait()

		for _, i := range ready {
			states[i] = terminalState(results[i].Outcome)
			if results[i].Outcome != contractx.OutcomeSucceeded {
				log.Debug().
					Str("step", plan.Steps[i].ID).
					Str("outcome", string(results[i].Outcome)).
					Str("reason", stepReason(results[i])).
					Msg("plan step did not succeed")
			}
		}
	}

	return results
}

func (e *Executor) runStep(
	planCtx context.Context,
	step contractx.PlanStep,
	results []contractx.StepResult,
	index map[string]int,
) contractx.StepResult {
	args := resolveArgs(step, results, index)

	retryBudget := e.cfg.MaxRetries
	if se, err := e.invoker.SideEffect(step.Tool); err == nil &&
		se != contractx.SideEffectReadOnly && retryBudget > 1 {
		// Never retry a non-read-only step more than once: a duplicate draft
		// is noise, a duplicate case or notification is an incident.
		retryBudget = 1
	}

	for attempt := 0; ; attempt++ {
		stepCtx := planCtx
		cancel := func() {}
		if e.cfg.StepTimeout > 0 {
			stepCtx, cancel = context.WithTimeout(planCtx, e.cfg.StepTimeout)
		}
		res := e.invoker.Invoke(stepCtx, step.ID, step.Tool, args)
		stepTimedOut := errors.Is(stepCtx.Err(), context.DeadlineExceeded) && planCtx.Err() == nil
		cancel()

		if res.Outcome == contractx.OutcomeSucceeded {
			return res
		}
		if stepTimedOut {
			return skipResult(step, ReasonTimeout, res.Duration)
		}
		if err := planCtx.Err(); err != nil {
			reason := ReasonTimeout
			if errors.Is(err, context.Canceled) {
				reason = ReasonCancelled
			}
			return skipResult(step, reason, res.Duration)
		}
		if res.Error == nil || res.Error.Kind != contractx.FailureTransient || attempt >= retryBudget {
			return res
		}
		if err := e.sleep(planCtx, e.cfg.RetryBackoff<<attempt); err != nil {
			return res
		}
	}
}

// skipBlocked transitions pending steps whose dependencies can no longer
// succeed. Reports whether any state changed.
func (e *Executor) skipBlocked(plan *contractx.Plan, states []stepState, results []contractx.StepResult) bool {
	progress := false
	for i, s := range plan.Steps {
		if states[i] != statePending {
			continue
		}
		for _, dep := range s.DependsOn {
			j, ok := indexOf(plan, dep)
			if !ok {
				continue
			}
			if states[j] == stateFailed || states[j] == stateSkipped {
				states[i] = stateSkipped
				results[i] = skipResult(s, fmt.Sprintf("upstream failure: step %s did not succeed", dep), 0)
				progress = true
				break
			}
		}
	}
	return progress
}

func (e *Executor) requiredFailure(plan *contractx.Plan, states []stepState) string {
	for i, s := range plan.Steps {
		if states[i] == stateFailed && !s.Optional {
			return s.ID
		}
	}
	return ""
}

func (e *Executor) skipRemaining(plan *contractx.Plan, states []stepState, results []contractx.StepResult, reason string) {
	for i, s := range plan.Steps {
		if states[i] == statePending {
			states[i] = stateSkipped
			results[i] = skipResult(s, reason, 0)
		}
	}
}

func (e *Executor) depsSucceeded(step contractx.PlanStep, states []stepState, index map[string]int) bool {
	for _, dep := range step.DependsOn {
		j, ok := index[dep]
		if !ok || states[j] != stateSucceeded {
			return false
		}
	}
	return true
}

func resolveArgs(step contractx.PlanStep, results []contractx.StepResult, index map[string]int) map[string]any {
	args := make(map[string]any, len(step.Args)+len(step.BindFrom))
	for k, v := range step.Args {
		args[k] = v
	}
	for arg, sources := range step.BindFrom {
		parts := make([]string, 0, len(sources))
		for _, src := range sources {
			j, ok := index[src]
			if !ok {
				continue
			}
			if results[j].Outcome != contractx.OutcomeSucceeded {
				continue
			}
			parts = append(parts, renderPayload(results[j].Payload))
		}
		args[arg] = strings.Join(parts, "\n\n")
	}
	return args
}

// renderPayload flattens an upstream payload into argument text. Draft
// envelopes contribute their content; the draft marking itself never leaks
// into downstream arguments.
func renderPayload(payload any) string {
	if env, ok := payload.(contractx.DraftEnvelope); ok {
		payload = env.Content
	}
	switch v := payload.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
		return fmt.Sprintf("%v", v)
	}
}

func skipResult(step contractx.PlanStep, reason string, d time.Duration) contractx.StepResult {
	return contractx.StepResult{
		StepID:   step.ID,
		Tool:     step.Tool,
		Outcome:  contractx.OutcomeSkipped,
		Reason:   reason,
		Duration: d,
	}
}

func stepReason(res contractx.StepResult) string {
	if res.Reason != "" {
		return res.Reason
	}
	if res.Error != nil {
		return res.Error.Message
	}
	return ""
}

func terminalState(outcome contractx.Outcome) stepState {
	switch outcome {
	case contractx.OutcomeSucceeded:
		return stateSucceeded
	case contractx.OutcomeFailed:
		return stateFailed
	default:
		return stateSkipped
	}
}

func indexOf(plan *contractx.Plan, id string) (int, bool) {
	for i, s := range plan.Steps {
		if s.ID == id {
			return i, true
		}
	}
	return 0, false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
