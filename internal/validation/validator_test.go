package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Amount   int64  `json:"amount" validate:"gt=0"`
	Currency string `json:"currency" validate:"required,len=3"`
}

func TestStruct(t *testing.T) {
	assert.NoError(t, Struct(sample{Amount: 1, Currency: "NGN"}))

	err := Struct(sample{Amount: 0, Currency: "NG"})
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "amount: gt")
		assert.Contains(t, err.Error(), "currency: len")
	}
}
