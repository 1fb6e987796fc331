package vdoc

import (
	"net/url"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/embedls/pkg/embedded"
)

// ContentScheme is the URI scheme of in-memory virtual documents.
const ContentScheme = "embedls-vdoc"

// ContentRef is the decoded form of a content-scheme URI.
type ContentRef struct {
	Language  string
	HostURI   string
	Extension string
	RequestID string
}

// key identifies the stored content. Without a request id every request for
// the same host and language shares one entry.
func (c ContentRef) key() string {
	return c.Language + "\x00" + c.HostURI + "\x00" + c.RequestID
}

// ContentURI renders embedls-vdoc:///<language>/<escaped host uri>.<ext>,
// with ?request=<id> appended when requestID is set.
func ContentURI(lang *embedded.Language, hostURI, requestID string) string {
	var sb strings.Builder
	sb.WriteString(ContentScheme)
	sb.WriteString(":///")
	sb.WriteString(url.PathEscape(lang.ID()))
	sb.WriteString("/")
	sb.WriteString(url.PathEscape(hostURI))
	sb.WriteString(".")
	sb.WriteString(lang.Extension)
	if requestID != "" {
		sb.WriteString("?request=")
		sb.WriteString(url.QueryEscape(requestID))
	}
	return sb.String()
}

func ParseContentURI(raw string) (ContentRef, error) {
	rest, ok := strings.CutPrefix(raw, ContentScheme+":///")
	if !ok {
		return ContentRef{}, errors.Errorf("not a %s uri: %q", ContentScheme, raw)
	}

	var ref ContentRef
	rest, query, _ := strings.Cut(rest, "?")
	if query != "" {
		values, err := url.ParseQuery(query)
		if err != nil {
			return ContentRef{}, errors.Errorf("parsing query of %q: %w", raw, err)
		}
		ref.RequestID = values.Get("request")
	}

	lang, file, ok := strings.Cut(rest, "/")
	if !ok {
		return ContentRef{}, errors.Errorf("missing host in %q", raw)
	}
	dot := strings.LastIndexByte(file, '.')
	if dot < 0 {
		return ContentRef{}, errors.Errorf("missing extension in %q", raw)
	}

	var err error
	if ref.Language, err = url.PathUnescape(lang); err != nil {
		return ContentRef{}, errors.Errorf("decoding language of %q: %w", raw, err)
	}
	if ref.HostURI, err = url.PathUnescape(file[:dot]); err != nil {
		return ContentRef{}, errors.Errorf("decoding host of %q: %w", raw, err)
	}
	ref.Extension = file[dot+1:]
	return ref, nil
}
