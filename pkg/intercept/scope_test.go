package intercept

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScope_Allows(t *testing.T) {
	scope, err := NewScope(nil)
	require.NoError(t, err)

	tests := []struct {
		url  string
		want bool
	}{
		{"https://mail.google.com/mail/u/0/#inbox", true},
		{"https://google.com/search?q=go", true},
		{"http://meet.google.com/abc-defg", true},
		{"https://a.b.google.com/x", true},
		{"https://example.com/", false},
		{"https://google.com.evil.net/", false},
		{"https://notgoogle.com/", false},
		{"https://mail.google.com", false},
		{"chrome://settings/", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, scope.Allows(tt.url))
		})
	}
}

func TestScope_CustomPatterns(t *testing.T) {
	scope, err := NewScope([]string{"https://mail.google.com/**"})
	require.NoError(t, err)

	assert.True(t, scope.Allows("https://mail.google.com/mail/u/1/"))
	assert.False(t, scope.Allows("https://drive.google.com/drive/u/1/"))
	assert.False(t, scope.Allows("http://mail.google.com/mail/u/1/"))
	assert.Equal(t, []string{"https://mail.google.com/**"}, scope.Patterns())
}

func TestScope_PatternOutsideGoogle(t *testing.T) {
	// patterns widen the match, the registrable domain check still applies
	scope, err := NewScope([]string{"**"})
	require.NoError(t, err)

	assert.True(t, scope.Allows("https://photos.google.com/"))
	assert.False(t, scope.Allows("https://photos.example.org/"))
}

func TestNewScope_Invalid(t *testing.T) {
	_, err := NewScope([]string{"*://[google.com/**"})
	assert.Error(t, err)
}

func TestScope_Defaults(t *testing.T) {
	scope, err := NewScope(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultPatterns, scope.Patterns())
}
