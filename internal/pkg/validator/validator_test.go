package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Email  string  `json:"email" validate:"required,email"`
	Amount float64 `json:"amount" validate:"gt=0"`
}

func TestValidateUsesJSONNames(t *testing.T) {
	assert.Nil(t, Validate(sample{Email: "a@b.co", Amount: 1}))

	errs := Validate(sample{Email: "nope"})
	assert.Equal(t, "email", errs["email"])
	assert.Equal(t, "gt", errs["amount"])
}
