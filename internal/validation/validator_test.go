package validation_test

import (
	"testing"

	"github.com/mautops/backoffice-gin/internal/apperr"
	"github.com/mautops/backoffice-gin/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type line struct {
	Name string `json:"name" validate:"required"`
}

type payload struct {
	Title string  `json:"title" validate:"required,min=2,max=10"`
	Mail  string  `json:"mail" validate:"omitempty,email"`
	Count float64 `json:"count" validate:"gte=0"`
	Lines []line  `json:"lines" validate:"required,min=1,dive"`
}

// TestValidate 测试结构体校验
func TestValidate(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		input     payload
		wantField string
	}{
		{"ok", payload{Title: "ok", Lines: []line{{Name: "a"}}}, ""},
		{"missing title", payload{Lines: []line{{Name: "a"}}}, "title"},
		{"title too short", payload{Title: "a", Lines: []line{{Name: "a"}}}, "title"},
		{"bad mail", payload{Title: "ok", Mail: "nope", Lines: []line{{Name: "a"}}}, "mail"},
		{"negative count", payload{Title: "ok", Count: -1, Lines: []line{{Name: "a"}}}, "count"},
		{"empty lines", payload{Title: "ok", Lines: []line{}}, "lines"},
		{"nested field", payload{Title: "ok", Lines: []line{{Name: "a"}, {}}}, "lines[1].name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := tt.input
			err := v.Validate(&input, "payload")
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.KindValidation))

			var appErr *apperr.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantField, appErr.Field)
			assert.Contains(t, appErr.Message, "payload")
		})
	}
}

// TestValidate_InvalidInput 测试非结构体输入
func TestValidate_InvalidInput(t *testing.T) {
	err := validation.New().Validate("not a struct", "payload")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}
