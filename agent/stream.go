package agent

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	errorskg "github.com/sweetpotato0/echoflow/errors"
	"github.com/sweetpotato0/echoflow/llm"
	"github.com/sweetpotato0/echoflow/message"
	"github.com/sweetpotato0/echoflow/middleware"
	"github.com/sweetpotato0/echoflow/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// RunStream sends input and yields the normalized events of every model call
// in the run, tool calls included. A failure is yielded once as an error
// event and ends the sequence. Breaking out of the loop abandons the run and
// leaves the history as it was before the run.
func (a *Agent[W]) RunStream(ctx context.Context, input string) iter.Seq2[llm.StreamEvent, error] {
	return func(yield func(llm.StreamEvent, error) bool) {
		a.mu.Lock()
		defer a.mu.Unlock()

		stopped := false
		_, err := a.runChain(ctx, input, func(ev llm.StreamEvent) bool {
			if stopped || !yield(ev, nil) {
				stopped = true
				return false
			}
			return true
		})
		// Middleware may have mapped the stop error; the flag is authoritative.
		if err != nil && !stopped {
			yield(llm.StreamEvent{Type: llm.EventError, Err: err}, err)
		}
	}
}

// run holds a.mu. A failed or abandoned run restores the history it started with.
func (a *Agent[W]) run(ctx context.Context, input string, emit func(llm.StreamEvent) bool) (res *llm.Result, err error) {
	if strings.TrimSpace(input) == "" {
		return nil, fmt.Errorf("%w: empty input", errorskg.ErrInvalidInput)
	}

	snapshot := a.history.Turns()
	defer func() {
		if err != nil {
			a.restoreHistory(snapshot)
		}
	}()

	ctx, span := telemetry.Start(ctx, "agent.run",
		attribute.String("agent.name", a.name),
		attribute.Int("agent.tools", a.tools.Len()),
	)
	iterations := 0
	defer func() {
		span.SetAttributes(attribute.Int("agent.iterations", iterations))
		if errors.Is(err, middleware.ErrStopped) {
			telemetry.End(span, nil)
			return
		}
		telemetry.End(span, err)
	}()

	if err := a.history.Add(message.NewText(message.RoleUser, input)); err != nil {
		return nil, err
	}

	for iterations < a.maxIterations {
		iterations++
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		stopped := false
		res, err = llm.Fold(func(fold func(llm.StreamEvent, error) bool) {
			for ev, err := range a.client.StreamGenerate(ctx, a.llmContext()) {
				if err == nil && !emit(ev) {
					stopped = true
					return
				}
				if !fold(ev, err) {
					return
				}
			}
		})
		if stopped {
			return res, middleware.ErrStopped
		}
		if err != nil {
			return res, fmt.Errorf("agent %s iteration %d: %w", a.name, iterations, err)
		}
		a.addUsage(res.Metadata)

		if err := a.history.Add(res.Message()); err != nil {
			return res, err
		}
		if res.ToolCall == nil {
			a.logger.Debug("run finished", "iterations", iterations, "stop_reason", res.StopReason)
			return res, nil
		}

		result := a.execute(ctx, *res.ToolCall)
		if err := a.history.Add(message.NewToolResult(res.ToolCall.ID, result)); err != nil {
			return res, err
		}
	}

	a.logger.Warn("max iterations reached", "max", a.maxIterations)
	return res, fmt.Errorf("agent %s: %w (%d)", a.name, ErrMaxIterations, a.maxIterations)
}
