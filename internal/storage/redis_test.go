package storage

import (
	"bytes"
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/baaskit/internal/logging"
)

func unreachableClient(t *testing.T) *redis.Client {
	t.Helper()
	c := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = c.Close() })
	return mr, c
}

func sizeCounter(t *testing.T, mr *miniredis.Miniredis, prefix string) string {
	t.Helper()
	v, err := mr.Get(prefix + ":size")
	if err == miniredis.ErrKeyNotFound {
		return "0"
	}
	require.NoError(t, err)
	return v
}

func TestRedis_Keys(t *testing.T) {
	r := NewRedis(unreachableClient(t), "")
	assert.Equal(t, "baaskit:i:Parse/app/x", r.itemKey("Parse/app/x"))
	assert.Equal(t, "baaskit:size", r.sizeKey())

	r = NewRedis(unreachableClient(t), "tenant")
	assert.Equal(t, "tenant:i:k", r.itemKey("k"))
}

func TestRedis_FailuresAreSwallowed(t *testing.T) {
	var buf bytes.Buffer
	r := NewRedis(unreachableClient(t), "t",
		WithLogger(logging.NewJSONLogger(&buf, "debug")),
		WithTimeout(time.Second))
	ctx := context.Background()

	v, ok := r.GetItem(ctx, "k")
	assert.False(t, ok)
	assert.Empty(t, v)

	r.SetItem(ctx, "k", "v")
	r.RemoveItem(ctx, "k")
	r.Clear(ctx)

	out := buf.String()
	assert.Contains(t, out, "storage read failed")
	assert.Contains(t, out, "storage write failed")
	assert.Contains(t, out, "storage delete failed")
	assert.Contains(t, out, "storage clear failed")
}

func TestRedis_SetGetRemove(t *testing.T) {
	mr, c := newMiniRedis(t)
	r := NewRedis(c, "p")
	ctx := context.Background()

	_, ok := r.GetItem(ctx, "k")
	assert.False(t, ok)

	r.SetItem(ctx, "k", "v1")
	r.SetItem(ctx, "k", "value2")
	v, ok := r.GetItem(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "value2", v)
	assert.True(t, mr.Exists("p:i:k"))
	assert.Equal(t, "7", sizeCounter(t, mr, "p"))

	r.RemoveItem(ctx, "k")
	r.RemoveItem(ctx, "absent")
	_, ok = r.GetItem(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, "0", sizeCounter(t, mr, "p"))
}

func TestRedis_CapacityDropsWrite(t *testing.T) {
	mr, c := newMiniRedis(t)
	var buf bytes.Buffer
	r := NewRedis(c, "p", WithCapacity(10), WithLogger(logging.NewJSONLogger(&buf, "debug")))
	ctx := context.Background()

	r.SetItem(ctx, "a", "12345")
	r.SetItem(ctx, "b", "123456")

	_, ok := r.GetItem(ctx, "b")
	assert.False(t, ok)
	assert.Contains(t, buf.String(), "write dropped")
	assert.Equal(t, "6", sizeCounter(t, mr, "p"))

	// overwriting with a smaller value frees room
	r.SetItem(ctx, "a", "1")
	r.SetItem(ctx, "b", "1234")
	v, ok := r.GetItem(ctx, "b")
	assert.True(t, ok)
	assert.Equal(t, "1234", v)
	assert.Equal(t, "7", sizeCounter(t, mr, "p"))
}

func TestRedis_ClearStaysInsidePrefix(t *testing.T) {
	mr, c := newMiniRedis(t)
	ctx := context.Background()
	require.NoError(t, mr.Set("unrelated", "keep"))

	a := NewRedis(c, "a")
	b := NewRedis(c, "b")
	for i := 0; i < scanBatch+5; i++ {
		a.SetItem(ctx, "k"+strconv.Itoa(i), "v")
	}
	b.SetItem(ctx, "k0", "v")

	a.Clear(ctx)

	_, ok := a.GetItem(ctx, "k0")
	assert.False(t, ok)
	_, ok = a.GetItem(ctx, "k"+strconv.Itoa(scanBatch+4))
	assert.False(t, ok)
	assert.False(t, mr.Exists("a:size"))

	v, ok := b.GetItem(ctx, "k0")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
	assert.Equal(t, "3", sizeCounter(t, mr, "b"))
	assert.True(t, mr.Exists("unrelated"))
}
