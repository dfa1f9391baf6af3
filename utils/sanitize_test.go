package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, "hello", SanitizeText("  <b>hello</b> "))
	assert.Equal(t, "", SanitizeText("<script>alert(1)</script>"))
	assert.Equal(t, "", SanitizeText("   "))
}

func TestSanitizeKeepsSafeMarkup(t *testing.T) {
	assert.Equal(t, "<p>body</p>", Sanitize(" <p>body</p><script>x()</script> "))
	assert.NotContains(t, Sanitize(`<a href="javascript:alert(1)">x</a>`), "javascript:")
}

func TestUniqueStrings(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, UniqueStrings([]string{"a", "b", "a", "c", "b"}))
	assert.Empty(t, UniqueStrings(nil))
}
