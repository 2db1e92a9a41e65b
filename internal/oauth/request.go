package oauth

import (
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/dropDatabas3/passgrant/internal/domain/repository"
)

const formContentType = "application/x-www-form-urlencoded"

// Request is the transport-neutral view of a token request.
type Request struct {
	Method      string
	ContentType string
	Form        url.Values
	Header      http.Header
	IP          string
	UserAgent   string
}

// TokenOptions carries capabilities that only trusted in-process callers
// may set. The HTTP token endpoint always passes the zero value.
type TokenOptions struct {
	// Bypass lets the password grant skip password verification.
	Bypass *repository.Bypass
	// RefreshTokenAuthName overrides the auth name stored on a refreshed record.
	RefreshTokenAuthName string
}

func (r *Request) formValue(key string) string {
	if r.Form == nil {
		return ""
	}
	return r.Form.Get(key)
}

func (r *Request) header(name string) string {
	if r.Header == nil {
		return ""
	}
	return r.Header.Get(name)
}

func isFormEncoded(contentType string) bool {
	if contentType == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.EqualFold(mt, formContentType)
}
