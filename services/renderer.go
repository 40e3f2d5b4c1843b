package services

import (
	"fmt"
	"regexp"
	"strings"
)

// Renderer converts a generated draft into email bodies. It understands a
// small markdown subset: #/##/### headings, **bold**/__bold__, and blank-line
// separated paragraphs. Anything else passes through as plain text.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

const (
	FormatHTML = "html"
	FormatText = "text"
	FormatBoth = "both"
)

var (
	boldStars      = regexp.MustCompile(`\*\*(.*?)\*\*`)
	boldUnderlines = regexp.MustCompile(`__(.*?)__`)
)

func (r *Renderer) Render(draft *Draft, format string) string {
	if strings.EqualFold(format, FormatText) {
		return r.RenderText(draft)
	}
	return r.RenderHTML(draft)
}

func (r *Renderer) RenderHTML(draft *Draft) string {
	body := r.markdownToHTML(draft.Content)

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>%s</title>
<style>
body { font-family: Arial, sans-serif; line-height: 1.6; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f4f4f4; }
.container { background-color: white; padding: 30px; border-radius: 5px; box-shadow: 0 2px 5px rgba(0,0,0,0.1); }
h1 { color: #333; border-bottom: 3px solid #007bff; padding-bottom: 10px; }
h2 { color: #555; margin-top: 25px; }
h3 { color: #666; }
a { color: #007bff; text-decoration: none; }
.footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #ddd; color: #777; font-size: 0.9em; }
</style>
</head>
<body>
<div class="container">
<h1>%s</h1>
%s
<div class="footer">
<p>Thank you for reading!</p>
</div>
</div>
</body>
</html>
`, draft.Subject, draft.Subject, body)
}

func (r *Renderer) RenderText(draft *Draft) string {
	content := draft.Content
	for _, marker := range []string{"### ", "## ", "# ", "**", "__"} {
		content = strings.ReplaceAll(content, marker, "")
	}

	banner := strings.Repeat("=", 70)
	var b strings.Builder
	b.WriteString("Subject: " + draft.Subject + "\n")
	b.WriteString(banner + "\n\n")
	b.WriteString(content)
	b.WriteString("\n\n" + banner + "\n")
	return b.String()
}

func (r *Renderer) markdownToHTML(markdown string) string {
	lines := strings.Split(markdown, "\n")
	processed := make([]string, 0, len(lines))

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "### "):
			processed = append(processed, "<h3>"+line[4:]+"</h3>")
		case strings.HasPrefix(line, "## "):
			processed = append(processed, "<h2>"+line[3:]+"</h2>")
		case strings.HasPrefix(line, "# "):
			processed = append(processed, "<h1>"+line[2:]+"</h1>")
		default:
			processed = append(processed, line)
		}
	}

	html := strings.Join(processed, "\n")
	html = boldStars.ReplaceAllString(html, "<strong>$1</strong>")
	html = boldUnderlines.ReplaceAllString(html, "<strong>$1</strong>")

	// Blank-line separated blocks become paragraphs; heading lines stay bare.
	paragraphs := strings.Split(html, "\n\n")
	rendered := make([]string, 0, len(paragraphs))
	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if isHeadingBlock(para) {
			rendered = append(rendered, para)
		} else {
			rendered = append(rendered, "<p>"+para+"</p>")
		}
	}

	return strings.Join(rendered, "\n")
}

func isHeadingBlock(block string) bool {
	for i := 1; i <= 6; i++ {
		if strings.HasPrefix(block, fmt.Sprintf("<h%d>", i)) {
			return true
		}
	}
	return false
}
