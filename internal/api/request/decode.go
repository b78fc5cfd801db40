// Package request turns HTTP request bodies into typed request structs.
package request

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/mcoot/searchgame/internal/model"
)

// MaxBodySize bounds request bodies
const MaxBodySize = 1 << 20

// Accepted content types
const (
	ContentTypeJSON = "application/json"
	ContentTypeText = "text/plain"
	ContentTypeForm = "application/x-www-form-urlencoded"
)

// formDecoder is implemented by request types that accept form bodies
type formDecoder interface {
	decodeForm(form url.Values) error
}

// Decode reads the body of r into dst according to its Content-Type.
// JSON bodies may arrive as application/json or text/plain (some
// browser beacons cannot set a JSON content type); form bodies are
// mapped field by field. A missing Content-Type is treated as JSON.
// All failures are model.InvalidArgument errors.
func Decode(w http.ResponseWriter, r *http.Request, dst formDecoder) error {
	mediaType := ContentTypeJSON
	if ct := r.Header.Get("Content-Type"); ct != "" {
		parsed, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return model.InvalidArgument("invalid Content-Type")
		}
		mediaType = parsed
	}

	body := http.MaxBytesReader(w, r.Body, MaxBodySize)

	switch mediaType {
	case ContentTypeJSON, ContentTypeText:
		return decodeJSON(body, dst)
	case ContentTypeForm:
		raw, err := io.ReadAll(body)
		if err != nil {
			return bodyError(err)
		}
		form, err := url.ParseQuery(string(raw))
		if err != nil {
			return model.InvalidArgument("invalid form body")
		}
		return dst.decodeForm(form)
	default:
		return model.InvalidArgument("unsupported Content-Type " + mediaType)
	}
}

func decodeJSON(body io.Reader, dst any) error {
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return model.InvalidArgument("request body is empty")
		}
		return bodyError(err)
	}
	return nil
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return model.InvalidArgument("request body too large")
	}
	return model.InvalidArgument("invalid request body")
}
