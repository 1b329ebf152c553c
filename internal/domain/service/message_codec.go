package service

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

// ContentKind tags how a message body should be rendered. Attachments are
// encoded by the backend as a URL embedded directly in the text content,
// so every surface classifies through here instead of sniffing URLs
// itself.
type ContentKind string

const (
	KindPlainText ContentKind = "plain_text"
	KindImage     ContentKind = "image"
	KindVideo     ContentKind = "video"
	KindFile      ContentKind = "file"
)

// ContentParts is the decoded form of a message body: at most one URL,
// with whatever text surrounded it.
type ContentParts struct {
	Kind       ContentKind `json:"kind"`
	TextBefore string      `json:"text_before,omitempty"`
	URL        string      `json:"url,omitempty"`
	TextAfter  string      `json:"text_after,omitempty"`
}

var urlPattern = regexp.MustCompile(`https?://[^\s]+`)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
	".svg":  true,
}

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".webm": true,
	".mkv":  true,
}

// ClassifyContent splits a raw message body around its first embedded URL
// and tags it for rendering. Malformed or absent URLs degrade to plain
// text; the function never panics and never mutates its input.
func ClassifyContent(content string) ContentParts {
	loc := urlPattern.FindStringIndex(content)
	if loc == nil {
		return ContentParts{Kind: KindPlainText, TextBefore: content}
	}

	rawURL := content[loc[0]:loc[1]]
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return ContentParts{Kind: KindPlainText, TextBefore: content}
	}

	return ContentParts{
		Kind:       classifyURL(parsed),
		TextBefore: strings.TrimRight(content[:loc[0]], " "),
		URL:        rawURL,
		TextAfter:  strings.TrimLeft(content[loc[1]:], " "),
	}
}

func classifyURL(u *url.URL) ContentKind {
	ext := strings.ToLower(path.Ext(u.Path))
	switch {
	case imageExtensions[ext]:
		return KindImage
	case videoExtensions[ext]:
		return KindVideo
	default:
		// Anything else that carries a URL is presented as a generic
		// file reference, matching the storage-path convention for
		// attachments without a recognizable extension.
		return KindFile
	}
}
