package csync

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersionedMap_MutationsBumpVersion(t *testing.T) {
	t.Parallel()

	vm := NewVersionedMap[string, int]()
	require.Equal(t, uint64(0), vm.Version())

	vm.Set("a", 42)
	require.Equal(t, uint64(1), vm.Version())

	v, ok := vm.Get("a")
	require.True(t, ok)
	require.Equal(t, 42, v)
	// Reads never advance the version.
	require.Equal(t, uint64(1), vm.Version())

	vm.Del("a")
	require.Equal(t, uint64(2), vm.Version())
	_, ok = vm.Get("a")
	require.False(t, ok)
}

func TestVersionedMap_SetIfAbsentStoresOnce(t *testing.T) {
	t.Parallel()

	vm := NewVersionedMap[int, string]()
	require.True(t, vm.SetIfAbsent(1, "first"))
	require.Equal(t, uint64(1), vm.Version())

	// A hit leaves both the value and the version alone.
	require.False(t, vm.SetIfAbsent(1, "second"))
	require.Equal(t, uint64(1), vm.Version())
	v, ok := vm.Get(1)
	require.True(t, ok)
	require.Equal(t, "first", v)
}

func TestVersionedMap_ClearEmptiesAndBumps(t *testing.T) {
	t.Parallel()

	vm := NewVersionedMap[int, int]()
	vm.Set(1, 10)
	vm.Set(2, 20)
	before := vm.Version()

	vm.Clear()
	require.Equal(t, 0, vm.Len())
	require.Equal(t, before+1, vm.Version())

	// Keys marked before the clear are absent again.
	require.True(t, vm.SetIfAbsent(1, 11))
}

func TestVersionedMap_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	vm := NewVersionedMap[int, int]()
	const goroutines = 50
	const ops = 100

	var wg sync.WaitGroup
	for i := range goroutines {
		wg.Go(func() {
			for j := range ops {
				key := i*ops + j
				vm.Set(key, key*2)
				vm.Del(key)
			}
		})
	}
	wg.Wait()

	require.Equal(t, 0, vm.Len())
	require.Equal(t, uint64(goroutines*ops*2), vm.Version())
}
