package contextmarshaller_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/f0mster/xpctoolbox/pkg/interfaces/contextmarshaller"
	"github.com/f0mster/xpctoolbox/pkg/metadata"
)

type parentKey struct{}

func TestDefaultCtxMarshaller(t *testing.T) {
	m := &contextmarshaller.DefaultCtxMarshaller{}
	deadline := time.Now().Add(time.Hour).Truncate(time.Second)
	ctx, cancel := context.WithDeadline(context.Background(), deadline)
	defer cancel()
	ctx = metadata.Set(ctx, "trace", "abc")

	data, err := m.Marshal(ctx)
	require.NoError(t, err)

	parent := context.WithValue(context.Background(), parentKey{}, "queue")
	restored, rcancel, err := m.Unmarshal(parent, data)
	require.NoError(t, err)
	defer rcancel()

	v, ok := metadata.Get(restored, "trace")
	require.True(t, ok)
	require.Equal(t, "abc", v)
	dl, ok := restored.Deadline()
	require.True(t, ok)
	require.True(t, dl.Equal(deadline))
	require.Equal(t, "queue", restored.Value(parentKey{}))
}

func TestDefaultCtxMarshaller_Empty(t *testing.T) {
	m := &contextmarshaller.DefaultCtxMarshaller{}
	ctx, cancel, err := m.Unmarshal(nil, nil)
	require.NoError(t, err)
	defer cancel()
	_, ok := ctx.Deadline()
	require.False(t, ok)

	_, _, err = m.Unmarshal(context.Background(), []byte("{"))
	require.Error(t, err)
}
