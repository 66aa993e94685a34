package graph

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvokeLinear(t *testing.T) {
	var order []string
	g, err := New("linear").
		AddNode("a", func(_ context.Context, st *State) (string, error) {
			order = append(order, "a")
			return "b", nil
		}).
		AddNode("b", func(_ context.Context, st *State) (string, error) {
			order = append(order, "b")
			st.Reply = "done"
			return End, nil
		}).
		Compile()
	require.NoError(t, err)

	st := &State{}
	require.NoError(t, g.Invoke(context.Background(), st))
	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, "done", st.Reply)
}

func TestInvokeBranching(t *testing.T) {
	g, err := New("branch").
		AddNode("check", func(_ context.Context, st *State) (string, error) {
			if st.UserMessage == "short" {
				return "short_path", nil
			}
			return "long_path", nil
		}).
		AddNode("short_path", func(_ context.Context, st *State) (string, error) {
			st.Reply = "short"
			return End, nil
		}).
		AddNode("long_path", func(_ context.Context, st *State) (string, error) {
			st.Reply = "long"
			return End, nil
		}).
		Compile()
	require.NoError(t, err)

	st := &State{UserMessage: "short"}
	require.NoError(t, g.Invoke(context.Background(), st))
	assert.Equal(t, "short", st.Reply)

	st = &State{UserMessage: "anything else"}
	require.NoError(t, g.Invoke(context.Background(), st))
	assert.Equal(t, "long", st.Reply)
}

func TestInvokeUnknownNode(t *testing.T) {
	g, err := New("bad").
		AddNode("a", func(_ context.Context, _ *State) (string, error) {
			return "missing", nil
		}).
		Compile()
	require.NoError(t, err)

	err = g.Invoke(context.Background(), &State{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown node "missing"`)
}

func TestInvokeNodeError(t *testing.T) {
	g, err := New("failing").
		AddNode("boom", func(_ context.Context, _ *State) (string, error) {
			return "", fmt.Errorf("backend down")
		}).
		Compile()
	require.NoError(t, err)

	err = g.Invoke(context.Background(), &State{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `node "boom"`)
	assert.Contains(t, err.Error(), "backend down")
}

func TestInvokeStepLimit(t *testing.T) {
	g, err := New("loop").
		AddNode("spin", func(_ context.Context, _ *State) (string, error) {
			return "spin", nil
		}).
		Compile()
	require.NoError(t, err)

	err = g.Invoke(context.Background(), &State{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeded")
}

func TestInvokeCancelledContext(t *testing.T) {
	g, err := New("cancel").
		AddNode("a", func(_ context.Context, _ *State) (string, error) {
			return "a", nil
		}).
		Compile()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = g.Invoke(ctx, &State{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestCompileValidation(t *testing.T) {
	_, err := New("empty").Compile()
	require.Error(t, err)

	_, err = New("bad-entry").
		AddNode("a", func(_ context.Context, _ *State) (string, error) { return End, nil }).
		SetEntry("nope").
		Compile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `entry node "nope"`)
}

func TestFactoryRegistry(t *testing.T) {
	RegisterFactory("TestOnlyGraph", func(_ Deps) (*CompiledGraph, error) {
		return New("test").
			AddNode("a", func(_ context.Context, _ *State) (string, error) { return End, nil }).
			Compile()
	})

	f, err := LookupFactory("TestOnlyGraph")
	require.NoError(t, err)
	g, err := f(Deps{})
	require.NoError(t, err)
	assert.Equal(t, "test", g.Name())

	_, err = LookupFactory("NoSuchGraph")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TestOnlyGraph")

	assert.Contains(t, FactoryNames(), "TestOnlyGraph")
}
