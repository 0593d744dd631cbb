package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceTypeValid(t *testing.T) {
	assert.True(t, SourceTypeURL.Valid())
	assert.True(t, SourceTypeMarkdown.Valid())
	assert.True(t, SourceTypePDF.Valid())
	assert.False(t, SourceType("docx").Valid())
	assert.False(t, SourceType("").Valid())
}

func TestResolvedSourceHasText(t *testing.T) {
	src := ResolvedSource{Text: "some content", Label: "doc.md", Type: SourceTypeMarkdown}
	assert.True(t, src.HasText())

	src.Text = "   \n\t  "
	assert.False(t, src.HasText())

	src.Text = ""
	assert.False(t, src.HasText())
}
