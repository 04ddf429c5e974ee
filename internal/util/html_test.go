package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTMLToTextBlocksAndLists(t *testing.T) {
	in := `<div>Aftercare notes</div><ul><li>Keep it covered</li><li>No swimming</li></ul>`
	want := "Aftercare notes\n  • Keep it covered\n  • No swimming"
	assert.Equal(t, want, HTMLToText(in, 0))

	// A list hugs the paragraph that introduces it; no blank line between.
	in = `<p>Prep</p><ol><li>Shave the area</li></ol><p>See you then</p>`
	want = "Prep\n  • Shave the area\nSee you then"
	assert.Equal(t, want, HTMLToText(in, 0))
}

func TestHTMLToTextLinks(t *testing.T) {
	in := `<p>Join: <a href="https://meet.example.com/abc">video call</a></p>`
	assert.Equal(t, "Join: video call (https://meet.example.com/abc)", HTMLToText(in, 0))

	// Link text equal to the URL is not duplicated.
	in = `<a href="https://example.com">https://example.com</a>`
	assert.Equal(t, "https://example.com", HTMLToText(in, 0))
}

func TestHTMLToTextUnwrapsRedirects(t *testing.T) {
	in := `<a href="https://www.google.com/url?q=https://example.com/form&sa=D">form</a>`
	assert.Equal(t, "form (https://example.com/form)", HTMLToText(in, 0))

	in = `<a href="https://eur01.safelinks.protection.outlook.com/?url=https%3A%2F%2Fexample.com%2Fdoc">doc</a>`
	assert.Equal(t, "doc (https://example.com/doc)", HTMLToText(in, 0))
}

func TestHTMLToTextEntitiesAndWhitespace(t *testing.T) {
	in := "Touch-up &amp; consult<br><br><br>Bring  reference   images"
	assert.Equal(t, "Touch-up & consult\n\nBring reference images", HTMLToText(in, 0))
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "hello", TruncateText("hello", 10))
	assert.Equal(t, "hell…", TruncateText("hello world", 5))
	assert.Equal(t, "…", TruncateText("hello", 1))
	assert.Equal(t, "hello", TruncateText("hello", 0))
}
