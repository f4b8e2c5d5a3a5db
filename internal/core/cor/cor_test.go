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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-asset-agent/internal/core/cor"
)

type step struct {
	cor.BaseCommand
	fn func(in string) (string, error)
}

func newStep(name string, fn func(in string) (string, error)) *step {
	return &step{BaseCommand: *cor.NewBaseCommand(name), fn: fn}
}

func (s *step) Execute(ctx cor.Context) {
	out, err := s.fn(ctx.Get(s.GetInputParam()).(string))
	if err != nil {
		s.Fail(ctx, err)
		return
	}
	s.Succeed(ctx)
	ctx.Add(s.GetOutputParam(), out)
}

func newContext(in string) cor.Context {
	ctx := cor.NewBaseContext()
	ctx.SetContext(context.Background())
	ctx.Add(cor.CtxIn, in)
	return ctx
}

func TestChainPipesOutputToInput(t *testing.T) {
	var seen []string
	chain := cor.NewBaseChain("pipe")
	chain.AddCommand(newStep("a", func(in string) (string, error) { seen = append(seen, in); return in + "a", nil }))
	chain.AddCommand(newStep("b", func(in string) (string, error) { seen = append(seen, in); return in + "b", nil }))

	ctx := newContext("x")
	chain.Execute(ctx)

	require.False(t, ctx.HasErrors())
	assert.Equal(t, []string{"x", "xa"}, seen)
	assert.Equal(t, "xab", ctx.Get(cor.CtxIn))
	assert.Equal(t, []string{"a", "b"}, chain.Commands())
}

func TestChainStopsOnFailure(t *testing.T) {
	boom := errors.New("boom")
	ran := false
	chain := cor.NewBaseChain("stop")
	chain.AddCommand(newStep("fails", func(string) (string, error) { return "", boom }))
	chain.AddCommand(newStep("after", func(in string) (string, error) { ran = true; return in, nil }))

	ctx := newContext("x")
	chain.Execute(ctx)

	assert.False(t, ran)
	assert.ErrorIs(t, ctx.Err(), boom)
	assert.Contains(t, ctx.Err().Error(), "fails: boom")
}

func TestChainContinueOnFailure(t *testing.T) {
	chain := cor.NewBaseChain("continue")
	chain.ContinueOnFailure(true)
	chain.AddCommand(newStep("b_fails", func(string) (string, error) { return "", errors.New("first") }))
	chain.AddCommand(newStep("a_fails", func(string) (string, error) { return "", errors.New("second") }))

	// The second step has no input after the first failed.
	ctx := newContext("x")
	chain.Execute(ctx)

	assert.Len(t, ctx.GetErrors(), 2)
	assert.Equal(t, "a_fails: command not executable: a_fails\nb_fails: first", ctx.Err().Error())
}

func TestCloseRunsCleanupsInReverse(t *testing.T) {
	ctx := newContext("x")
	var order []int
	ctx.AddCleanup(func(context.Context) error { order = append(order, 1); return nil })
	ctx.AddCleanup(func(context.Context) error { order = append(order, 2); return errors.New("ignored") })

	ctx.Close()
	ctx.Close()

	assert.Equal(t, []int{2, 1}, order)
}

func TestCleanupRunsAfterCancel(t *testing.T) {
	ctx := cor.NewBaseContext()
	goCtx, cancel := context.WithCancel(context.Background())
	ctx.SetContext(goCtx)
	cancel()

	var cleanupErr error
	ctx.AddCleanup(func(c context.Context) error { cleanupErr = c.Err(); return nil })
	ctx.Close()

	assert.NoError(t, cleanupErr)
}
