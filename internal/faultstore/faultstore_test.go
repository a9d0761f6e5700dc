package faultstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/wah/blobstore"
)

func TestRules(t *testing.T) {
	ctx := context.Background()
	s := New(blobstore.NewMemoryStore())

	require.NoError(t, s.Put(ctx, "a/1", []byte("x")))

	boom := errors.New("boom")
	s.AddRule("a/", Fault{FailOpen: true, Err: boom})
	s.AddRule("b/", Fault{FailPut: true, FailDelete: true})

	_, err := s.Open(ctx, "a/1")
	assert.ErrorIs(t, err, boom)

	assert.ErrorIs(t, s.Put(ctx, "b/1", nil), ErrInjected)
	assert.ErrorIs(t, s.Delete(ctx, "b/1"), ErrInjected)

	// Rules only cover the operations they name.
	require.NoError(t, s.Put(ctx, "a/2", []byte("y")))

	s.Clear()

	b, err := s.Open(ctx, "a/1")
	require.NoError(t, err)
	require.NoError(t, b.Close())

	assert.Equal(t, 2, s.Calls("open"))
	assert.Equal(t, 3, s.Calls("put"))
}

func TestCommitForwards(t *testing.T) {
	ctx := context.Background()
	mem := blobstore.NewMemoryStore()
	s := New(mem)

	require.NoError(t, s.Commit(ctx, 1, "m1"))
	assert.ErrorIs(t, s.Commit(ctx, 1, "m1"), blobstore.ErrConcurrentModification)

	s.AddRule("m2", Fault{FailCommit: true})
	assert.ErrorIs(t, s.Commit(ctx, 2, "m2"), ErrInjected)

	data, err := blobstore.Get(ctx, mem, blobstore.CurrentName)
	require.NoError(t, err)
	assert.Equal(t, "m1", string(data))
}
