package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateGroupSlug(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		slug    string
		wantErr bool
	}{
		{"Valid", "cats", false},
		{"With Hyphen", "cat-lovers", false},
		{"With Underscore", "cat_lovers", false},
		{"Empty", "", true},
		{"Upper Case", "Cats", true},
		{"Space", "cat lovers", true},
		{"Leading Hyphen", "-cats", true},
		{"Trailing Hyphen", "cats-", true},
		{"Reserved", "admin", true},
		{"Max Length", strings.Repeat("a", 100), false},
		{"Too Long", strings.Repeat("a", 101), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGroupSlug(tt.slug)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateGroupTitle(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateGroupTitle("Cats"))
	assert.Error(t, ValidateGroupTitle("   "))
	assert.NoError(t, ValidateGroupTitle(strings.Repeat("я", 200)))
	assert.Error(t, ValidateGroupTitle(strings.Repeat("я", 201)))
}

func TestValidateUsername(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"Valid", "test_user123", false},
		{"With Dot", "leo.tolstoy", false},
		{"Too Short", "tu", true},
		{"Illegal Chars", "user@123", true},
		{"Starts Dash", "-user", true},
		{"Ends Underscore", "user_", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"Valid", "test@example.com", false},
		{"Invalid Format", "not-an-email", true},
		{"Missing Domain", "user@", true},
		{"Display Name", "Bob <bob@example.com>", true},
		{"No TLD", "user@localhost", true},
		{"Trailing Dot In Domain", "user@example.com.", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidatePassword("hunter2hunter"))
	assert.Error(t, ValidatePassword("short1"))
	assert.Error(t, ValidatePassword("onlyletters"))
	assert.Error(t, ValidatePassword("1234567890"))
	assert.Error(t, ValidatePassword(strings.Repeat("a1", 65)))
}

func TestNormalizeText(t *testing.T) {
	t.Parallel()
	got, err := NormalizeText("text", "  hello  ", 10)
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	_, err = NormalizeText("text", " \n\t ", 10)
	assert.EqualError(t, err, "text must not be empty")

	_, err = NormalizeText("text", "abcdefghijk", 10)
	assert.Error(t, err)
}
