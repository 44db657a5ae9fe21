package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quire/internal/core/domain"
)

func TestExtract_SinglePage(t *testing.T) {
	e := New()
	doc := &domain.Document{ID: "d", Name: "notes.txt", Data: []byte("hello world")}

	pages, err := e.Extract(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, 1, pages[0].Number)
	assert.Equal(t, "hello world", pages[0].Text)
}

func TestExtract_FormFeedPages(t *testing.T) {
	e := New()
	doc := &domain.Document{ID: "d", Name: "multi.txt", Data: []byte("one\ftwo")}

	pages, err := e.Extract(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "two", pages[1].Text)
}

func TestExtract_InvalidUTF8(t *testing.T) {
	e := New()
	doc := &domain.Document{ID: "d", Name: "bin.dat", Data: []byte{0xff, 0xfe, 0x00}}

	_, err := e.Extract(context.Background(), doc)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExtraction)
}

func TestExtract_NilDocument(t *testing.T) {
	e := New()
	_, err := e.Extract(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
