package storage

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestStore_PutGetRoundTrip(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	in := doc{Name: "alpha", Count: 3}
	require.NoError(t, s.Put(ctx, []string{"session", "s1"}, in))

	var out doc
	require.NoError(t, s.Get(ctx, []string{"session", "s1"}, &out))
	assert.Equal(t, in, out)
}

func TestStore_GetMissing(t *testing.T) {
	s := New(t.TempDir())

	var out doc
	err := s.Get(context.Background(), []string{"session", "missing"}, &out)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_DeleteIsIdempotent(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, []string{"session", "s1"}, doc{}))
	require.NoError(t, s.Delete(ctx, []string{"session", "s1"}))
	require.NoError(t, s.Delete(ctx, []string{"session", "s1"}))

	assert.False(t, s.Exists(ctx, []string{"session", "s1"}))
}

func TestStore_ListAndScan(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, []string{"session", "a"}, doc{Name: "a"}))
	require.NoError(t, s.Put(ctx, []string{"session", "b"}, doc{Name: "b"}))

	keys, err := s.List(ctx, []string{"session"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, keys)

	seen := map[string]string{}
	err = s.Scan(ctx, []string{"session"}, func(key string, data json.RawMessage) error {
		var d doc
		require.NoError(t, json.Unmarshal(data, &d))
		seen[key] = d.Name
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "a", "b": "b"}, seen)
}

func TestStore_ScanMissingDirIsEmpty(t *testing.T) {
	s := New(t.TempDir())

	err := s.Scan(context.Background(), []string{"nothing"}, func(string, json.RawMessage) error {
		t.Fatal("callback must not run")
		return nil
	})
	assert.NoError(t, err)
}

func TestStore_UpdateReadModifyWrite(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, []string{"counter"}, doc{Count: 0}))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Update(ctx, []string{"counter"}, func(data json.RawMessage) (any, error) {
				var d doc
				if data != nil {
					if err := json.Unmarshal(data, &d); err != nil {
						return nil, err
					}
				}
				d.Count++
				return d, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var out doc
	require.NoError(t, s.Get(ctx, []string{"counter"}, &out))
	assert.Equal(t, 10, out.Count)
}

func TestStore_UpdateCreatesMissingDoc(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	err := s.Update(ctx, []string{"fresh"}, func(data json.RawMessage) (any, error) {
		assert.Nil(t, data)
		return doc{Name: "created"}, nil
	})
	require.NoError(t, err)

	var out doc
	require.NoError(t, s.Get(ctx, []string{"fresh"}, &out))
	assert.Equal(t, "created", out.Name)
}
