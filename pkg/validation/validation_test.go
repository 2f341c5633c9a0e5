package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		want        string
		wantErr     bool
		errContains string
	}{
		{name: "valid simple name", input: "Pilot1", want: "Pilot1"},
		{name: "valid name with spaces", input: "Red Baron", want: "Red Baron"},
		{name: "valid name with hyphen", input: "bot-3", want: "bot-3"},
		{name: "valid name with underscore", input: "bot_3", want: "bot_3"},
		{name: "valid name with punctuation", input: "Dr. Who (2)", want: "Dr. Who (2)"},
		{name: "name with leading/trailing spaces", input: "  Pilot1  ", want: "Pilot1"},
		{name: "empty name", input: "", wantErr: true, errContains: "cannot be empty"},
		{name: "only whitespace", input: "   ", wantErr: true, errContains: "only whitespace"},
		{name: "too long", input: strings.Repeat("a", MaxNameLen+1), wantErr: true, errContains: "too long"},
		{name: "exactly max length", input: strings.Repeat("a", MaxNameLen), want: strings.Repeat("a", MaxNameLen)},
		{name: "invalid UTF-8", input: "bad\xff", wantErr: true, errContains: "UTF-8"},
		{name: "control character", input: "bad\x07name", wantErr: true, errContains: "control characters"},
		{name: "markup", input: "<script>", wantErr: true, errContains: "invalid characters"},
		{name: "unicode letters", input: "Pilöt", wantErr: true, errContains: "invalid characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateName(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidName)
				assert.Contains(t, err.Error(), tt.errContains)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateScript(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		wantErr bool
	}{
		{"valid", "function decide(s) return {} end", false},
		{"empty", "", true},
		{"blank", " \n\t", true},
		{"too large", strings.Repeat("-", MaxScriptSize+1), true},
		{"invalid UTF-8", "x = '\xff'", true},
		{"NUL byte", "x = 1\x00", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateScript(tt.source)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidScript)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
