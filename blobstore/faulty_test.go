package blobstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFaultyStore(t *testing.T) {
	ctx := context.Background()
	store := NewFaultyStore(NewMemoryStore())
	store.AddFault(Fault{Op: OpPut, Pattern: "version.", Times: 1})

	err := store.Put(ctx, "version.1", []byte("x"))
	require.ErrorIs(t, err, ErrInjected)

	// The rule fired once and is exhausted.
	require.NoError(t, store.Put(ctx, "version.1", []byte("x")))

	store.AddFault(Fault{Op: OpOpen, Pattern: "segment_"})
	_, err = store.Open(ctx, "segment_1_level_0/segment_info")
	assert.ErrorIs(t, err, ErrInjected)

	store.Reset()
	_, err = store.Open(ctx, "segment_1_level_0/segment_info")
	assert.ErrorIs(t, err, ErrNotFound)
}
