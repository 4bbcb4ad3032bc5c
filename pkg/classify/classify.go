// Package classify maps a source URL to the content kind that decides which
// extractor handles it. Classification is derived solely from the extension of
// the URL's final path segment and never touches the network.
package classify

import (
	"net/url"
	"strings"
)

// Kind is the classification of a source URL's payload.
type Kind int

const (
	KindUnknown Kind = iota
	KindHTML
	KindPDF
	KindAudio
	KindVideo
)

// String returns the kind name used in artifact metadata.
func (k Kind) String() string {
	switch k {
	case KindHTML:
		return "html"
	case KindPDF:
		return "pdf"
	case KindAudio:
		return "audio"
	case KindVideo:
		return "video"
	default:
		return "unknown"
	}
}

// kindByExtension is the fixed classification table. Extensions not listed
// here classify as HTML.
var kindByExtension = map[string]Kind{
	"pdf":  KindPDF,
	"mp3":  KindAudio,
	"m4a":  KindAudio,
	"flac": KindAudio,
	"wav":  KindAudio,
	"mp4":  KindVideo,
	"mkv":  KindVideo,
	"mov":  KindVideo,
	"wmv":  KindVideo,
	"avi":  KindVideo,
}

// FromURL classifies a URL by the extension of its final path segment.
// Query strings and fragments never participate in detection. A segment
// without a dot, or with an unrecognized extension, classifies as HTML.
// An unparseable URL classifies as Unknown.
func FromURL(rawURL string) Kind {
	ext, ok := pathExtension(rawURL)
	if !ok {
		return KindUnknown
	}
	if ext == "" {
		return KindHTML
	}
	if kind, found := kindByExtension[ext]; found {
		return kind
	}
	return KindHTML
}

// Extension returns the lower-cased extension of the URL's final path
// segment, without the dot. Empty when the segment has no extension or the
// URL does not parse.
func Extension(rawURL string) string {
	ext, _ := pathExtension(rawURL)
	return ext
}

func pathExtension(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}

	p := u.Path
	if loc := strings.LastIndex(p, "/"); loc != -1 {
		p = p[loc+1:]
	}

	loc := strings.LastIndex(p, ".")
	if loc == -1 {
		return "", true
	}
	return strings.ToLower(p[loc+1:]), true
}

// mimeByExtension covers the media extensions the pipeline downloads; the
// stdlib mime table misses several of these on a bare system.
var mimeByExtension = map[string]string{
	"pdf":  "application/pdf",
	"mp3":  "audio/mpeg",
	"m4a":  "audio/mp4",
	"flac": "audio/flac",
	"wav":  "audio/wav",
	"mp4":  "video/mp4",
	"mkv":  "video/x-matroska",
	"mov":  "video/quicktime",
	"wmv":  "video/x-ms-wmv",
	"avi":  "video/x-msvideo",
}

// MIMEType returns the content type for a classified extension, falling back
// to application/octet-stream.
func MIMEType(ext string) string {
	if mt, ok := mimeByExtension[strings.ToLower(ext)]; ok {
		return mt
	}
	return "application/octet-stream"
}
