// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cor

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// FirstSuccessChain runs its commands as an ordered list of alternatives.
//
// Every command is attempted against a scoped view of the shared context: data
// reads and writes go through to the parent, errors stay local to the attempt.
// The first command that finishes without errors and leaves a value under its
// output key wins; that value is copied to the chain's output key and nothing
// after it runs. When every alternative fails the chain records no error and
// writes no output, leaving the decision to the caller.
type FirstSuccessChain struct {
	BaseCommand
	commands []Command
}

// WinnerParam is the context key under which the chain stores the name of the
// command that produced its output.
const WinnerParam = "__WINNER__"

func NewFirstSuccessChain(name string) *FirstSuccessChain {
	return &FirstSuccessChain{BaseCommand: *NewBaseCommand(name)}
}

// ContinueOnFailure is accepted for interface compatibility; a first-success
// chain always moves on after a failed alternative.
func (c *FirstSuccessChain) ContinueOnFailure(bool) Chain {
	return c
}

func (c *FirstSuccessChain) AddCommand(command Command) Chain {
	c.commands = append(c.commands, command)
	return c
}

func (c *FirstSuccessChain) IsExecutable(context Context) bool {
	return context != nil && context.GetContext() != nil
}

func (c *FirstSuccessChain) Execute(chCtx Context) {
	parentCtx := chCtx.GetContext()
	outerCtx, chainSpan := c.Tracer.Start(parentCtx, fmt.Sprintf("%s_execute", c.GetName()))
	defer chainSpan.End()

	chCtx.Remove(WinnerParam)

	for i, command := range c.commands {
		commandContext, commandSpan := c.Tracer.Start(outerCtx, command.GetName())
		commandSpan.SetAttributes(attribute.Int("attempt", i+1))

		attempt := newAttemptContext(chCtx, commandContext)
		if !command.IsExecutable(attempt) {
			commandSpan.SetStatus(codes.Error, "command not executable")
			commandSpan.End()
			slog.DebugContext(outerCtx, "alternative skipped", "chain", c.GetName(), "command", command.GetName())
			continue
		}

		chCtx.Remove(command.GetOutputParam())
		command.Execute(attempt)

		output := chCtx.Get(command.GetOutputParam())
		if !attempt.HasErrors() && output != nil {
			commandSpan.SetStatus(codes.Ok, "alternative succeeded")
			commandSpan.End()

			if command.GetOutputParam() != c.GetOutputParam() {
				chCtx.Remove(command.GetOutputParam())
			}
			chCtx.Add(c.GetOutputParam(), output)
			chCtx.Add(WinnerParam, command.GetName())
			c.GetSuccessCounter().Add(outerCtx, 1)
			chainSpan.SetAttributes(attribute.String("winner", command.GetName()))
			chainSpan.SetStatus(codes.Ok, "alternative found")
			return
		}

		for _, err := range attempt.GetErrors() {
			commandSpan.RecordError(err)
			slog.WarnContext(outerCtx, "alternative failed", "chain", c.GetName(), "command", command.GetName(), "error", err)
		}
		commandSpan.SetStatus(codes.Error, "alternative failed")
		commandSpan.End()
		chCtx.Remove(command.GetOutputParam())
	}

	c.GetErrorCounter().Add(outerCtx, 1)
	chainSpan.SetStatus(codes.Error, "all alternatives exhausted")
}

// attemptContext shares data and temp files with the parent context but keeps
// its own errors and Go context.
type attemptContext struct {
	Context
	ctx    context.Context
	errors map[string]error
}

func newAttemptContext(parent Context, ctx context.Context) *attemptContext {
	return &attemptContext{Context: parent, ctx: ctx, errors: make(map[string]error)}
}

func (a *attemptContext) SetContext(ctx context.Context) {
	a.ctx = ctx
}

func (a *attemptContext) GetContext() context.Context {
	return a.ctx
}

func (a *attemptContext) Add(key string, value interface{}) Context {
	a.Context.Add(key, value)
	return a
}

func (a *attemptContext) AddError(key string, err error) {
	a.errors[key] = err
}

func (a *attemptContext) GetErrors() map[string]error {
	return a.errors
}

func (a *attemptContext) HasErrors() bool {
	return len(a.errors) > 0
}
