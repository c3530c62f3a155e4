package locks

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRWMap(t *testing.T) {
	m := &RWMap[uint64, int64]{}

	// get on new map, before any writes
	v, ok := m.Get(123)
	require.False(t, ok)
	require.Equal(t, int64(0), v)

	// set a value
	m.Set(123, 42)
	v, ok = m.Get(123)
	require.True(t, ok)
	require.Equal(t, int64(42), v)

	// overwrite a value
	m.Set(123, -42)
	v, ok = m.Get(123)
	require.True(t, ok)
	require.Equal(t, int64(-42), v)
	require.True(t, m.Has(123))

	// add a few more
	m.Set(10, 100)
	m.Set(20, 200)
	require.Equal(t, 3, m.Len())

	// remove a value
	m.Delete(123)
	require.False(t, m.Has(123))
	require.Equal(t, 2, m.Len())

	// range over remaining entries
	got := make(map[uint64]int64)
	m.Range(func(k uint64, v int64) bool {
		got[k] = v
		return true
	})
	require.Equal(t, map[uint64]int64{10: 100, 20: 200}, got)

	m.Clear()
	require.Equal(t, 0, m.Len())
}

func TestRWValue(t *testing.T) {
	v := &RWValue[string]{}
	require.Equal(t, "", v.Get())
	v.Set("hello")
	require.Equal(t, "hello", v.Get())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v.Set("concurrent")
			_ = v.Get()
		}()
	}
	wg.Wait()
	require.Equal(t, "concurrent", v.Get())
}
