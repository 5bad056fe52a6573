package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelwizard/internal/wizard"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := Connect(context.Background(), Config{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestStore_SetGetRemove(t *testing.T) {
	mr, client := newTestClient(t)
	ctx := context.Background()
	s := New(client, "sid-1", time.Hour)

	_, ok, err := s.Get(ctx, wizard.ContactKey)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, wizard.ContactKey, `{"FirstName":"Ana"}`))
	v, ok, err := s.Get(ctx, wizard.ContactKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"FirstName":"Ana"}`, v)
	assert.True(t, mr.Exists("hotelwizard:session:sid-1:"+wizard.ContactKey))

	require.NoError(t, s.Remove(ctx, wizard.ContactKey))
	_, ok, err = s.Get(ctx, wizard.ContactKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_SessionsAreIsolatedAndExpire(t *testing.T) {
	mr, client := newTestClient(t)
	ctx := context.Background()
	a := New(client, "a", time.Minute)
	b := New(client, "b", time.Minute)

	require.NoError(t, a.Set(ctx, wizard.ContactKey, "x"))
	_, ok, err := b.Get(ctx, wizard.ContactKey)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(2 * time.Minute)
	_, ok, err = a.Get(ctx, wizard.ContactKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_RestoresWizardDrafts(t *testing.T) {
	_, client := newTestClient(t)
	ctx := context.Background()
	store := New(client, "sid-2", time.Hour)

	w := wizard.New(wizard.Deps{Cache: store})
	require.NoError(t, w.MergeContactField(ctx, wizard.ContactFirstName, "Ana"))
	require.NoError(t, w.MergeContactField(ctx, wizard.ContactEmail, "ana@example.com"))

	restored := wizard.New(wizard.Deps{Cache: store})
	require.NoError(t, restored.Mount(ctx))
	assert.Equal(t, wizard.Contact{FirstName: "Ana", Email: "ana@example.com"}, restored.Snapshot().Contact)
}

func TestConnect_RejectsEmptyAddr(t *testing.T) {
	_, err := Connect(context.Background(), Config{})
	assert.Error(t, err)
}
