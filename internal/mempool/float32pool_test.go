package mempool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetFloat32_Length(t *testing.T) {
	for _, n := range []int{1, 100, 1024, 1025, 3 * 640 * 640} {
		buf := GetFloat32(n)
		assert.Len(t, buf, n)
		assert.GreaterOrEqual(t, cap(buf), n)
		PutFloat32(buf)
	}
}

func TestPutFloat32_Nil(t *testing.T) {
	assert.NotPanics(t, func() { PutFloat32(nil) })
}

func TestSizeClass(t *testing.T) {
	assert.Equal(t, 1024, sizeClass(1))
	assert.Equal(t, 1024, sizeClass(1024))
	assert.Equal(t, 2048, sizeClass(1025))
	assert.Equal(t, 3072, sizeClass(2049))
}

func TestGetPut_Roundtrip(t *testing.T) {
	buf := GetFloat32(2000)
	for i := range buf {
		buf[i] = float32(i)
	}
	PutFloat32(buf)

	// A fresh buffer of the same class must still have the right length.
	again := GetFloat32(2000)
	assert.Len(t, again, 2000)
	PutFloat32(again)
}

func TestConcurrentAccess(t *testing.T) {
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				buf := GetFloat32(4096)
				buf[0] = 1
				PutFloat32(buf)
			}
		}()
	}
	wg.Wait()
}
