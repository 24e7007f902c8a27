package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlattenHTML(t *testing.T) {
	page := `<!DOCTYPE html><html><head><title>Unauthorized</title><style>body{}</style></head>
<body><h1>401</h1>
<p>Basic   authentication
failed.</p><script>track()</script></body></html>`

	assert.Equal(t, "Unauthorized 401 Basic authentication failed.", FlattenHTML("text/html; charset=utf-8", page))
}

func TestFlattenHTMLLeavesOtherBodies(t *testing.T) {
	body := `{"errorMessages":["Issue does not exist"]}`
	assert.Equal(t, body, FlattenHTML("application/json", body))
	assert.Equal(t, "plain failure", FlattenHTML("", "plain failure"))
}

func TestLooksLikeHTML(t *testing.T) {
	assert.True(t, LooksLikeHTML("", "  <html><body>x</body></html>"))
	assert.True(t, LooksLikeHTML("TEXT/HTML", "x"))
	assert.False(t, LooksLikeHTML("application/json", "{}"))
}
