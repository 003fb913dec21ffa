// Package markup renders Markdown replies for the widget and the terminal.
package markup

import (
	"bytes"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

const copyButton = `<button class="copy-code-button" title="复制代码">复制</button>`

// Renderer turns Markdown text into markup
type Renderer interface {
	Render(text string) (string, error)
}

type Option func(*HTMLRenderer)

// WithSanitize strips unsafe html from the output
func WithSanitize(on bool) Option {
	return func(r *HTMLRenderer) {
		if on {
			r.policy = bluemonday.UGCPolicy()
		} else {
			r.policy = nil
		}
	}
}

// HTMLRenderer renders html with linkify and typographer on, raw html passes through.
type HTMLRenderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

var _ Renderer = (*HTMLRenderer)(nil)

func New(opts ...Option) *HTMLRenderer {
	r := &HTMLRenderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Typographer),
			goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
		),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *HTMLRenderer) Render(text string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(text), &buf); err != nil {
		return "", err
	}
	out := buf.String()
	if r.policy != nil {
		out = r.policy.Sanitize(out)
	}
	return DecorateCodeBlocks(out)
}

// DecorateCodeBlocks marks every pre > code block and puts a copy button in it.
func DecorateCodeBlocks(s string) (string, error) {
	if !strings.Contains(s, "<pre") {
		return s, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s, err
	}
	doc.Find("pre > code").Each(func(_ int, code *goquery.Selection) {
		pre := code.Parent()
		if pre.HasClass("code-block") {
			return
		}
		pre.AddClass("code-block")
		pre.PrependHtml(copyButton)
	})
	return doc.Find("body").Html()
}

var converter = md.NewConverter("", true, nil).Remove("button")

// ToMarkdown converts rendered markup back to Markdown, copy buttons are dropped.
func ToMarkdown(html string) (string, error) {
	return converter.ConvertString(html)
}
