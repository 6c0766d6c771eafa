package html_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/vista"
	"github.com/aretw0/vista/pkg/adapters/html"
	"github.com/aretw0/vista/pkg/adapters/memory"
	"github.com/aretw0/vista/pkg/domain"
	"github.com/aretw0/vista/pkg/ports"
)

func TestHTMLTree_Contract(t *testing.T) {
	ports.RunNodeContract(t, func(t *testing.T) ports.Document {
		return html.NewDocument()
	})
}

func TestParse_ExistingMarkup(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(`<ul id="list"><li id="a">A</li><li id="b">B</li></ul>`))
	require.NoError(t, err)

	children := doc.Root().Children()
	require.Len(t, children, 1)
	assert.Equal(t, "ul", children[0].Tag())
	assert.Len(t, children[0].Children(), 2)

	text, _ := children[0].Property("textContent")
	assert.Equal(t, "AB", text)
}

func TestElement_StyleAttribute(t *testing.T) {
	doc := html.NewDocument()
	el, err := doc.CreateElement("div")
	require.NoError(t, err)

	require.NoError(t, el.SetStyle("color", "red"))
	require.NoError(t, el.SetStyle("opacity", "0.5"))
	require.NoError(t, el.SetStyle("color", "blue"))

	v, _ := el.Attribute("style")
	assert.Equal(t, "color: blue; opacity: 0.5", v)

	require.NoError(t, el.SetStyle("color", ""))
	require.NoError(t, el.SetStyle("opacity", ""))
	_, ok := el.Attribute("style")
	assert.False(t, ok)
}

func TestElement_IdentityAcrossWrappers(t *testing.T) {
	doc := html.NewDocument()
	a := doc.Root()
	b := doc.Root()

	assert.NotSame(t, a, b)
	assert.Equal(t, a.Identity(), b.Identity())
}

func TestElement_ForeignNode(t *testing.T) {
	doc := html.NewDocument()
	_, err := doc.Root().AppendChild(memory.NewDocument().Root())
	assert.ErrorIs(t, err, domain.ErrForeignNode)
}

func TestTransitionOverHTML(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(`<ul id="list"><li id="a">A</li></ul>`))
	require.NoError(t, err)
	platform := memory.NewPlatform()

	tr, err := vista.NewFromDocument(doc, vista.WithPlatform(platform))
	require.NoError(t, err)
	defer tr.Close()

	payload := `[{"id":"b","name":"new-item"}]`
	require.NoError(t, tr.SetAttribute(&payload))

	list := tr.Root().Children()[0]
	li, err := doc.CreateElement("li")
	require.NoError(t, err)
	require.NoError(t, li.SetAttribute("id", "b"))
	require.NoError(t, li.SetProperty("textContent", "B"))

	_, err = list.AppendChild(li)
	require.NoError(t, err)

	assert.Equal(t, `<ul id="list"><li id="a">A</li></ul>`, doc.BodyHTML())
	assert.Contains(t, doc.HTML(), `<style data-vista="transition">#b{view-transition-name:new-item;}</style>`)

	platform.Drain()
	assert.Equal(t, `<ul id="list"><li id="a">A</li><li id="b">B</li></ul>`, doc.BodyHTML())
	assert.Contains(t, doc.HTML(), `<style data-vista="transition"></style>`)
}
