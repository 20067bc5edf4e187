package validation

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inner struct {
	Items []string `json:"items" binding:"required"`
}

type sample struct {
	Email string `json:"email" binding:"required,email"`
	Pass  string `json:"password" binding:"required,pwd"`
	Name  string `json:"name" binding:"required,boardname"`
	Mode  string `json:"mode" binding:"omitempty,oneof=light dark auto"`
	Inner inner  `json:"inner"`
}

func TestValidate_FieldMessages(t *testing.T) {
	Init()

	err := Validate(&sample{Email: "nope", Pass: "short", Name: strings.Repeat("x", 256), Mode: "neon"})

	require.Error(t, err)
	assert.Equal(t, map[string]string{
		"email":       "must be a valid email",
		"password":    "min length 8",
		"name":        "must be between 1 and 255 characters",
		"mode":        "must be one of: light, dark, auto",
		"inner.items": "is required",
	}, ToDetails(err))
}

func TestValidate_OK(t *testing.T) {
	Init()
	err := Validate(&sample{Email: "a@b.co", Pass: "longenough", Name: strings.Repeat("é", 255), Inner: inner{Items: []string{}}})
	assert.NoError(t, err)
}

func TestToDetails_JSONErrors(t *testing.T) {
	var v map[string]any
	err := json.Unmarshal([]byte("{bad"), &v)
	assert.Equal(t, map[string]string{"payload": "invalid json"}, ToDetails(err))

	var n struct{ N int }
	err = json.Unmarshal([]byte(`{"N":"x"}`), &n)
	assert.Equal(t, map[string]string{"payload": "invalid json"}, ToDetails(err))

	assert.Nil(t, ToDetails(nil))
}
