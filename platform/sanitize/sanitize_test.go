package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	cases := map[string]string{
		"  王先生  ":                    "王先生",
		"<b>Acme</b> Trading":          "Acme Trading",
		"&lt;script&gt;x&lt;/script&gt;": "x",
		"line\none\t\ttwo":             "line one two",
		"全角　空格":                   "全角 空格",
		"":                             "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Text(in), "input %q", in)
	}
}

func TestTextPtr(t *testing.T) {
	assert.Nil(t, TextPtr(nil))
	in := " <i>note</i> "
	assert.Equal(t, "note", *TextPtr(&in))
}
