package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapIndex(t *testing.T) {
	idx := NewMapIndex(2)

	_, ok := idx.Get("/a")
	assert.False(t, ok)

	idx.Put("/a", 1)
	idx.Put("/b", 2)
	idx.Put("/a", 3)
	assert.Equal(t, 2, idx.Len())

	h, ok := idx.Get("/a")
	assert.True(t, ok)
	assert.Equal(t, Handle(3), h)

	idx.Delete("/a")
	idx.Delete("/missing")
	_, ok = idx.Get("/a")
	assert.False(t, ok)
	assert.Equal(t, 1, idx.Len())

	idx.Clear()
	assert.Equal(t, 0, idx.Len())
	idx.Put("/c", 0)
	assert.Equal(t, 1, idx.Len())
}

func TestMapIndexKeysAreNotNormalized(t *testing.T) {
	idx := NewMapIndex(-5)
	idx.Put("/index.html", 1)
	idx.Put("/./index.html", 2)
	idx.Put("/INDEX.html", 3)
	assert.Equal(t, 3, idx.Len())
}
