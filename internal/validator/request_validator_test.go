package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Name     string `json:"name" validate:"required"`
	Quantity int64  `json:"quantity" validate:"gt=0"`
}

func TestRequestValidator(t *testing.T) {
	v := New()

	require.NoError(t, v.Validate(sampleRequest{Name: "Apple", Quantity: 1}))

	err := v.Validate(sampleRequest{Quantity: 1})
	require.Error(t, err)
	assert.Equal(t, "name: required", Message(err))

	err = v.Validate(sampleRequest{Name: "Apple"})
	require.Error(t, err)
	assert.Equal(t, map[string]string{"quantity": "gt"}, Fields(err))
}

func TestMessage_NonValidationError(t *testing.T) {
	assert.Equal(t, "invalid body", Message(errors.New("boom")))
	assert.Empty(t, Fields(errors.New("boom")))
}
