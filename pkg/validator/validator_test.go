package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusRequest struct {
	Status string `json:"status" validate:"required,application_status"`
	Kind   string `json:"kind" validate:"omitempty,notification_type"`
}

func newValidate(t *testing.T) *validator.Validate {
	t.Helper()
	v := validator.New()
	require.NoError(t, Register(v))
	return v
}

func TestDomainRules(t *testing.T) {
	v := newValidate(t)

	assert.NoError(t, v.Struct(statusRequest{Status: "shortlisted", Kind: "new_message"}))
	assert.Error(t, v.Struct(statusRequest{Status: "archived"}))
	assert.Error(t, v.Struct(statusRequest{Status: "pending", Kind: "fax"}))
}

func TestTranslateUsesJSONNames(t *testing.T) {
	v := newValidate(t)

	err := Translate(v.Struct(statusRequest{Status: "archived", Kind: "fax"}))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Errors, "status")
	assert.Contains(t, verr.Errors, "kind")
	assert.Equal(t, "kind is not a known notification type; status must be one of pending, reviewed, shortlisted, rejected, hired", verr.Error())
}
