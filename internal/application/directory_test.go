package application

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCursorDirectory_Resolve(t *testing.T) {
	t.Parallel()
	d := NewCursorDirectory()
	require.Equal(t, 7, d.Resolve("Consumer-7"))
	require.Equal(t, DefaultInstance, d.Resolve("Consumer-x"))
	require.Equal(t, DefaultInstance, d.Resolve("Consumer-0"))
	require.Equal(t, DefaultInstance, d.Resolve(""))

	d.Register(&ConsumerHandle{Name: "billing", InstanceID: 4})
	require.Equal(t, 4, d.Resolve("billing"))

	d.Unregister(4)
	require.Equal(t, DefaultInstance, d.Resolve("billing"))
}

func TestCursorDirectory_Lookup(t *testing.T) {
	t.Parallel()
	d := NewCursorDirectory()
	for _, id := range []int{3, 1, 2} {
		d.Register(&ConsumerHandle{Name: ConsumerName(id), InstanceID: id})
	}

	h, ok := d.Lookup("Consumer-2")
	require.True(t, ok)
	require.Equal(t, 2, h.InstanceID)

	// unknown names fall back to the default instance
	h, ok = d.Lookup("nobody")
	require.True(t, ok)
	require.Equal(t, DefaultInstance, h.InstanceID)

	_, ok = d.Lookup("Consumer-9")
	require.False(t, ok)

	handles := d.Handles()
	require.Len(t, handles, 3)
	for i, h := range handles {
		require.Equal(t, i+1, h.InstanceID)
	}
}
