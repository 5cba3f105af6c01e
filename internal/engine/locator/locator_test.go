// internal/engine/locator/locator_test.go
package locator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateEmptyTarget(t *testing.T) {
	assert.Nil(t, Generate("", KindClick))
	assert.Nil(t, Generate("   ", KindClick))
}

func TestGenerateExplicitLocators(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		strategy Strategy
		query    string
	}{
		{"xpath prefix", "xpath=//div[@id='x']", XPath, "//div[@id='x']"},
		{"bare xpath", "//button[1]", XPath, "//button[1]"},
		{"css prefix", "css=#login > button", CSS, "#login > button"},
		{"id prefix", "id=submit", CSS, `[id="submit"]`},
		{"link text", "link=Sign In", XPath, `//a[normalize-space(.)='Sign In']`},
		{"href fragment", "href=/settings", CSS, `a[href*="/settings"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Generate(tt.target, KindClick)
			require.Len(t, got, 1, "explicit locators bypass heuristics")
			assert.Equal(t, tt.strategy, got[0].Strategy)
			assert.Equal(t, tt.query, got[0].Query)
		})
	}
}

func TestGenerateTokenTarget(t *testing.T) {
	got := Generate("submit-btn", KindClick)
	require.NotEmpty(t, got)

	// Attribute candidates come before text candidates for token targets.
	assert.Equal(t, `[data-testid="submit-btn"]`, got[0].Query)
	assert.Equal(t, CSS, got[0].Strategy)

	var descs []string
	for _, c := range got {
		descs = append(descs, c.Desc)
	}
	assert.Contains(t, descs, "id exact")
	assert.Contains(t, descs, "name attribute")
	assert.Contains(t, descs, "button text")
	assert.Equal(t, "generic contains-text fallback", got[len(got)-1].Desc)
}

func TestGenerateTokenInputExtras(t *testing.T) {
	click := Generate("email", KindClick)
	input := Generate("email", KindInput)
	assert.Greater(t, len(input), len(click), "input targets get form-control candidates")

	var hasPlaceholder bool
	for _, c := range input {
		if strings.Contains(c.Query, "placeholder") {
			hasPlaceholder = true
		}
	}
	assert.True(t, hasPlaceholder)
}

func TestGenerateFreeTextTarget(t *testing.T) {
	got := Generate("Advanced Settings", KindClick)
	require.NotEmpty(t, got)

	assert.Equal(t, `[data-testid="advanced-settings"]`, got[0].Query, "slugified test id leads")

	var frameScoped, mainScoped int
	for _, c := range got {
		if c.InFrame {
			frameScoped++
		} else {
			mainScoped++
		}
	}
	assert.Greater(t, frameScoped, 0, "affordances are duplicated into frames")
	assert.Greater(t, mainScoped, frameScoped)
}

func TestGenerateAuthTargetsMapToSubmit(t *testing.T) {
	got := Generate("Sign In", KindClick)

	var hasSubmit bool
	for _, c := range got {
		if c.Query == `button[type="submit"]` {
			hasSubmit = true
		}
	}
	assert.True(t, hasSubmit, "auth vocabulary adds submit-button candidates")
}

func TestGenerateInputLabelHop(t *testing.T) {
	got := Generate("Email Address", KindInput)

	var hasLabelHop bool
	for _, c := range got {
		if strings.Contains(c.Query, "following::input") {
			hasLabelHop = true
		}
	}
	assert.True(t, hasLabelHop)
}

func TestGenerateMultilingualFallback(t *testing.T) {
	got := Generate("Jetzt anmelden", KindClick)

	var hasMultilingual bool
	for _, c := range got {
		if strings.HasPrefix(c.Desc, "multilingual:") {
			hasMultilingual = true
		}
	}
	assert.True(t, hasMultilingual)
}

func TestGenerateAlwaysEndsWithGenericFallback(t *testing.T) {
	for _, target := range []string{"token", "Two Words", "With 'quote'", "Sign In"} {
		got := Generate(target, KindVerify)
		require.NotEmpty(t, got, target)
		assert.Equal(t, "generic contains-text fallback", got[len(got)-1].Desc, target)
	}
}

func TestXPathLiteralQuoting(t *testing.T) {
	assert.Equal(t, `'plain'`, xpathLiteral("plain"))
	assert.Equal(t, `'has "double"'`, xpathLiteral(`has "double"`))
	// Mixed quotes require concat().
	assert.True(t, strings.HasPrefix(xpathLiteral(`it's "both"`), "concat("))
}

func TestSlugify(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Advanced Settings", "advanced-settings"},
		{"Sign  In", "sign-in"},
		{"already-slugged", "already-slugged"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, slugify(tt.in), tt.in)
	}
}
