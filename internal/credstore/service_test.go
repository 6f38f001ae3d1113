package credstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/serviced/internal/docstore"
)

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, "api_keys", nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(&docstore.Client{}, "", nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(&docstore.Client{}, "   ", nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNew_Collection(t *testing.T) {
	svc, err := New(&docstore.Client{}, "api_keys", nil)
	require.NoError(t, err)
	assert.Equal(t, "api_keys", svc.Collection())
	assert.NoError(t, svc.Close())
}
