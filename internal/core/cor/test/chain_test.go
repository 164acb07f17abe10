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

package cor_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jaycherian/gcp-go-media-composer/internal/core/cor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stepCommand struct {
	cor.BaseCommand
	run func(ctx cor.Context)
}

func newStep(name string, run func(ctx cor.Context)) *stepCommand {
	return &stepCommand{BaseCommand: *cor.NewBaseCommand(name), run: run}
}

func (s *stepCommand) IsExecutable(ctx cor.Context) bool {
	return ctx.GetContext() != nil
}

func (s *stepCommand) Execute(ctx cor.Context) {
	s.run(ctx)
}

func newContext() cor.Context {
	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(context.Background())
	return chainCtx
}

func TestBaseChainPipesOutputToInput(t *testing.T) {
	chain := cor.NewBaseChain("pipe")
	chain.AddCommand(newStep("first", func(ctx cor.Context) {
		ctx.Add(cor.CtxOut, 2)
	}))
	chain.AddCommand(newStep("second", func(ctx cor.Context) {
		ctx.Add(cor.CtxOut, ctx.Get(cor.CtxIn).(int)*10)
	}))

	chainCtx := newContext()
	chain.Execute(chainCtx)

	assert.False(t, chainCtx.HasErrors())
	assert.Equal(t, 20, chainCtx.Get(cor.CtxIn))
	assert.Nil(t, chainCtx.Get(cor.CtxOut))
}

func TestBaseChainStopsOnError(t *testing.T) {
	ran := false
	chain := cor.NewBaseChain("halting")
	chain.AddCommand(newStep("broken", func(ctx cor.Context) {
		ctx.AddError("broken", errors.New("boom"))
	}))
	chain.AddCommand(newStep("never", func(ctx cor.Context) {
		ran = true
	}))

	chainCtx := newContext()
	chain.Execute(chainCtx)

	assert.True(t, chainCtx.HasErrors())
	assert.False(t, ran)
}

func TestBaseChainContinueOnFailure(t *testing.T) {
	ran := false
	chain := cor.NewBaseChain("tolerant").ContinueOnFailure(true)
	chain.AddCommand(newStep("broken", func(ctx cor.Context) {
		ctx.AddError("broken", errors.New("boom"))
	}))
	chain.AddCommand(newStep("after", func(ctx cor.Context) {
		ran = true
	}))

	chain.Execute(newContext())
	assert.True(t, ran)
}

func TestFirstSuccessChainReturnsFirstWinner(t *testing.T) {
	var attempted []string
	ladder := cor.NewFirstSuccessChain("ladder")
	ladder.AddCommand(newStep("one", func(ctx cor.Context) {
		attempted = append(attempted, "one")
		ctx.AddError("one", errors.New("unavailable"))
	}))
	ladder.AddCommand(newStep("two", func(ctx cor.Context) {
		attempted = append(attempted, "two")
		ctx.Add(cor.CtxOut, "https://stream.example.com/two")
	}))
	ladder.AddCommand(newStep("three", func(ctx cor.Context) {
		attempted = append(attempted, "three")
		ctx.Add(cor.CtxOut, "https://stream.example.com/three")
	}))

	chainCtx := newContext()
	ladder.Execute(chainCtx)

	assert.Equal(t, []string{"one", "two"}, attempted)
	assert.False(t, chainCtx.HasErrors(), "failed alternatives must not leak errors")
	assert.Equal(t, "https://stream.example.com/two", chainCtx.Get(cor.CtxOut))
	assert.Equal(t, "two", chainCtx.Get(cor.WinnerParam))
}

func TestFirstSuccessChainExhausted(t *testing.T) {
	ladder := cor.NewFirstSuccessChain("ladder")
	ladder.AddCommand(newStep("one", func(ctx cor.Context) {
		ctx.AddError("one", errors.New("unavailable"))
	}))
	ladder.AddCommand(newStep("empty", func(ctx cor.Context) {}))

	chainCtx := newContext()
	ladder.Execute(chainCtx)

	assert.False(t, chainCtx.HasErrors())
	assert.Nil(t, chainCtx.Get(cor.CtxOut))
	assert.Nil(t, chainCtx.Get(cor.WinnerParam))
}

func TestFirstSuccessChainInsideBaseChain(t *testing.T) {
	ladder := cor.NewFirstSuccessChain("ladder")
	ladder.AddCommand(newStep("fails", func(ctx cor.Context) {
		ctx.AddError("fails", errors.New("nope"))
	}))
	ladder.AddCommand(newStep("works", func(ctx cor.Context) {
		ctx.Add(cor.CtxOut, "ok")
	}))

	var seen interface{}
	chain := cor.NewBaseChain("outer")
	chain.AddCommand(ladder)
	chain.AddCommand(newStep("consumer", func(ctx cor.Context) {
		seen = ctx.Get(cor.CtxIn)
	}))

	chainCtx := newContext()
	chain.Execute(chainCtx)

	assert.False(t, chainCtx.HasErrors())
	assert.Equal(t, "ok", seen)
}

func TestCloseRemovesTempFiles(t *testing.T) {
	f, err := os.CreateTemp("", "cor-test-")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	chainCtx := newContext()
	chainCtx.AddTempFile(f.Name())
	chainCtx.AddTempFile(f.Name() + ".missing")
	chainCtx.Close()

	_, err = os.Stat(f.Name())
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Empty(t, chainCtx.GetTempFiles())
}
