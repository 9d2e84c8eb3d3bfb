// Package clone duplicates a once-consumable HTTP response so both the
// caller and the redactor can read its body independently (C8).
package clone

import (
	"bytes"
	"io"
	"net/http"
)

// Cloned holds two independent responses derived from one buffered read:
// Caller is returned to the proxy client, Redactor feeds the redaction
// pipeline. Both share Status, Proto and Header; each owns its own Body.
type Cloned struct {
	Caller   *http.Response
	Redactor *http.Response
	// Body is the fully buffered response body, exposed directly since the
	// redactor only needs the bytes, not another io.ReadCloser.
	Body []byte
}

// Clone fully buffers resp.Body (closing it in the process, matching a
// single-consumption http.Response) and synthesizes two independent
// responses sharing status, protocol version, and header set.
func Clone(resp *http.Response) (*Cloned, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Cloned{
		Caller:   shadowResponse(resp, body),
		Redactor: shadowResponse(resp, body),
		Body:     body,
	}, nil
}

func shadowResponse(src *http.Response, body []byte) *http.Response {
	header := make(http.Header, len(src.Header))
	for k, v := range src.Header {
		header[k] = append([]string(nil), v...)
	}

	return &http.Response{
		Status:        src.Status,
		StatusCode:    src.StatusCode,
		Proto:         src.Proto,
		ProtoMajor:    src.ProtoMajor,
		ProtoMinor:    src.ProtoMinor,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
	}
}
