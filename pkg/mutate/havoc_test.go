package mutate

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestByteHavocNeverPanicsOnEmptyBuffer(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	buf := []byte{}
	for i := 0; i < 500; i++ {
		buf, _ = ByteHavoc(rng, buf)
	}
}

func TestByteHavocNeverPanicsOnShortBuffers(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for _, size := range []int{1, 2, 3, 4, 7, 8} {
		buf := make([]byte, size)
		for i := 0; i < 200; i++ {
			buf, _ = ByteHavoc(rng, buf)
		}
	}
}

func TestByteHavocSuiteExcludesCrossover(t *testing.T) {
	assert.Len(t, havocSuite, 24)
}

func TestBytesDeleteShrinksBuffer(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	buf := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	out, ok := bytesDelete(rng, buf)
	assert.True(t, ok)
	assert.Less(t, len(out), len(buf))
}

func TestDwordAddWrapsWithinBuffer(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	buf := []byte{0, 0, 0, 0}
	out, ok := dwordAdd(rng, buf)
	assert.True(t, ok)
	assert.Len(t, out, 4)
}
