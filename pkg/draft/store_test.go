package draft_test

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/plaenen/bidibip/pkg/draft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorePutTake(t *testing.T) {
	store := draft.NewStore()
	require.NoError(t, store.Put("k1", draft.Entry{Draft: draft.Draft{Destination: "ads"}}))
	assert.Equal(t, 1, store.Len())

	entry, ok := store.Take("k1")
	require.True(t, ok)
	assert.Equal(t, "k1", entry.Key)
	assert.Equal(t, "ads", entry.Draft.Destination)

	_, ok = store.Take("k1")
	assert.False(t, ok)
	assert.Zero(t, store.Len())
}

func TestStoreRejectsSecondEntryForKey(t *testing.T) {
	store := draft.NewStore()
	require.NoError(t, store.Put("k", draft.Entry{}))
	assert.ErrorIs(t, store.Put("k", draft.Entry{}), draft.ErrKeyInUse)
	assert.ErrorIs(t, store.Put("", draft.Entry{}), draft.ErrEmptyKey)
	assert.Equal(t, 1, store.Len())
}

func TestStoreTakeIsExclusiveUnderConcurrency(t *testing.T) {
	store := draft.NewStore()
	const keys = 50
	const takersPerKey = 16

	for i := 0; i < keys; i++ {
		require.NoError(t, store.Put(fmt.Sprintf("k%d", i), draft.Entry{}))
	}

	var wins [keys]atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < keys; i++ {
		for j := 0; j < takersPerKey; j++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				if _, ok := store.Take(fmt.Sprintf("k%d", i)); ok {
					wins[i].Add(1)
				}
			}(i)
		}
	}
	close(start)
	wg.Wait()

	for i := range wins {
		assert.Equal(t, int32(1), wins[i].Load(), "key k%d", i)
	}
	assert.Zero(t, store.Len())
}

func TestStoresAreIndependent(t *testing.T) {
	a, b := draft.NewStore(), draft.NewStore()
	require.NoError(t, a.Put("k", draft.Entry{}))
	_, ok := b.Take("k")
	assert.False(t, ok)
	assert.Equal(t, 1, a.Len())
}

func TestControlID(t *testing.T) {
	id := draft.ControlID(draft.ActionConfirm, "1234")
	assert.Equal(t, "draft::send::1234", id)

	action, key, ok := draft.ParseControlID(id)
	require.True(t, ok)
	assert.Equal(t, draft.ActionConfirm, action)
	assert.Equal(t, "1234", key)

	for _, bad := range []string{"", "draft", "draft::send", "draft::::k", "other::send::k", "draft::send::", "draft::bogus::1234"} {
		_, _, ok := draft.ParseControlID(bad)
		assert.False(t, ok, bad)
	}
}
