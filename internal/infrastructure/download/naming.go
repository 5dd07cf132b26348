package download

import (
	"mime"
	"net/url"
	"path"
	"strings"
)

const (
	defaultBaseName  = "download"
	defaultExtension = ".pdf"
)

// FileName derives a local file name for an attachment. The extension comes from the
// declared content type when it is a PDF or an image, otherwise from the URL path,
// otherwise it defaults to .pdf.
func FileName(rawURL, contentType string) string {
	var urlPath string
	if u, err := url.Parse(rawURL); err == nil {
		urlPath = u.Path
	}

	base := path.Base(urlPath)
	if base == "." || base == "/" || base == "" {
		base = defaultBaseName
	}

	urlExt := path.Ext(base)
	stem := strings.TrimSuffix(base, urlExt)
	if stem == "" {
		stem = defaultBaseName
	}

	return stem + extensionFor(contentType, urlExt)
}

func extensionFor(contentType, urlExt string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}

	switch {
	case strings.Contains(mediaType, "pdf"):
		return ".pdf"
	case strings.HasPrefix(mediaType, "image/"):
		if sub := strings.TrimPrefix(mediaType, "image/"); sub != "" {
			return "." + sub
		}
	}

	if urlExt != "" {
		return urlExt
	}
	return defaultExtension
}
