package utils

import (
	"bytes"
	stdhtml "html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	mdParser = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)
	policy = bluemonday.UGCPolicy()
)

func init() {
	// Allow images
	policy.AllowImages()
	// Force links to open in new tab
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	policy.RequireNoReferrerOnLinks(true)
}

// RenderMarkdown converts user-written Markdown into sanitized HTML.
func RenderMarkdown(source string) string {
	if strings.TrimSpace(source) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := mdParser.Convert([]byte(source), &buf); err != nil {
		// 转换失败时仍然返回净化后的原文
		return policy.Sanitize(source)
	}
	return strings.TrimSpace(string(policy.SanitizeBytes(buf.Bytes())))
}

var strict = bluemonday.StrictPolicy()

// StripTags removes all markup, for plain-text fields such as report reasons.
// The result is plain text, not HTML: entities are decoded again.
func StripTags(s string) string {
	return strings.TrimSpace(stdhtml.UnescapeString(strict.Sanitize(s)))
}
