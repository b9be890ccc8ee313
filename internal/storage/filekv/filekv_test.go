package filekv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	_, ok, err := s.Get(ctx, "cart")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "cart", `[{"id":"1"}]`))
	v, ok, err := s.Get(ctx, "cart")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"1"}]`, v)

	require.NoError(t, s.Remove(ctx, "cart"))
	require.NoError(t, s.Remove(ctx, "cart"))
	_, ok, err = s.Get(ctx, "cart")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_InvalidKey(t *testing.T) {
	s, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	for _, key := range []string{"", "../escape", "a/b", ".hidden"} {
		require.Error(t, s.Set(context.Background(), key, "x"), key)
	}
}

func TestStore_ChangesFromAnotherHandle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := t.TempDir()
	watcher, err := New(dir, nil)
	require.NoError(t, err)
	writer, err := New(dir, nil)
	require.NoError(t, err)

	changes, err := watcher.Changes(ctx)
	require.NoError(t, err)

	require.NoError(t, writer.Set(ctx, "auth", `{"token":"x"}`))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case key := <-changes:
			if key == "auth" {
				return
			}
		case <-deadline:
			t.Fatal("no change notification for auth")
		}
	}
}

func TestKeyFromPath(t *testing.T) {
	tests := []struct {
		path   string
		want   string
		wantOK bool
	}{
		{path: "/tmp/state/cart.json", want: "cart", wantOK: true},
		{path: "/tmp/state/.cart.123.tmp", wantOK: false},
		{path: "/tmp/state/notes.txt", wantOK: false},
	}
	for _, tt := range tests {
		got, ok := keyFromPath(tt.path)
		assert.Equal(t, tt.wantOK, ok, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}
}
