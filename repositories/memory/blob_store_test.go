package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/entitybus/repositories"
)

var _ repositories.BlobStore = (*BlobStore)(nil)

func TestBlobStore(t *testing.T) {
	ctx := context.Background()
	store := NewBlobStore()

	_, found, err := store.GetContent(ctx, "b", "k")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.PutContent(ctx, "b", "k", "v"))
	got, found, err := store.GetContent(ctx, "b", "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v", got)

	_, found, _ = store.GetContent(ctx, "other", "k")
	assert.False(t, found)
}

func TestBlobStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := NewBlobStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.PutContent(ctx, "b", string(rune('a'+i%26)), "v")
			_, _, _ = store.GetContent(ctx, "b", "a")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 26, store.Len())
}
