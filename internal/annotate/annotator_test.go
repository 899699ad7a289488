package annotate

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := newError(CodeRequestFailed, cause, "annotate request %s", "r1")
	assert.Equal(t, "REQUEST_FAILED: annotate request r1: dial tcp: refused", err.Error())
	assert.ErrorIs(t, err, cause)

	bare := newError(CodeModelUnavailable, nil, "no model")
	assert.Equal(t, "MODEL_UNAVAILABLE: no model", bare.Error())

	wrapped := fmt.Errorf("startup: %w", bare)
	assert.True(t, IsModelUnavailable(wrapped))
	assert.False(t, IsUnknownText(wrapped))
	assert.False(t, IsModelUnavailable(cause))
}

func TestFunc(t *testing.T) {
	var a Annotator = Func(func(_ context.Context, text string) (*Document, error) {
		return &Document{Text: text}, nil
	})
	doc, err := a.Annotate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "hi", doc.Text)
}

func TestSequenceGenerator(t *testing.T) {
	g := NewSequenceGenerator("a", "b")
	assert.Equal(t, "a", g.Generate())
	assert.Equal(t, "b", g.Generate())
	assert.Equal(t, "b", g.Generate(), "last id repeats")

	assert.Equal(t, "request-default", NewSequenceGenerator().Generate())
}

func TestUUIDv7Generator(t *testing.T) {
	id := UUIDv7Generator{}.Generate()
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.NotEqual(t, id, UUIDv7Generator{}.Generate())
}
