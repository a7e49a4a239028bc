package metadata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCtx(t *testing.T) {
	ctx := context.Background()
	ctx1 := Set(ctx, "aaa", "zzz")
	ctx2 := Set(ctx1, "bbb", "ddd")
	ctx3 := Set(ctx2, "bbb", "333")

	v, ok := Get(ctx1, "aaa")
	require.True(t, ok)
	require.Equal(t, "zzz", v)

	_, ok = Get(ctx1, "bbb")
	require.False(t, ok)

	v, _ = Get(ctx2, "bbb")
	require.Equal(t, "ddd", v)
	v, _ = Get(ctx3, "bbb")
	require.Equal(t, "333", v)
	v, _ = Get(ctx3, "aaa")
	require.Equal(t, "zzz", v)

	_, ok = FromContext(ctx)
	require.False(t, ok)
}
