package fetch

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"

	"github.com/Sriram-PR/webtest/pkg/utils"
)

// DefaultContentType is assumed when a response carries no Content-Type
const DefaultContentType = "application/octet-stream; charset=iso-8859-1"

// DecodeContent undoes a Content-Encoding; identity and empty encodings return data unchanged
func DecodeContent(encoding string, data []byte) ([]byte, error) {
	var r io.Reader
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return data, nil
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: gzip: %w", utils.ErrDecoding, err)
		}
		defer gz.Close()
		r = gz
	case "deflate":
		// zlib framing per RFC 9110, raw deflate streams are accepted as well
		zr, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			fr := flate.NewReader(bytes.NewReader(data))
			defer fr.Close()
			r = fr
		} else {
			defer zr.Close()
			r = zr
		}
	default:
		return nil, fmt.Errorf("%w: unsupported content encoding '%s'", utils.ErrDecoding, encoding)
	}

	decoded, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", utils.ErrDecoding, encoding, err)
	}
	return decoded, nil
}

// GzipContent compresses data, used to upload bodies to the HTML validator
func GzipContent(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(data); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ParseContentType splits a Content-Type value into its lowercase media type and parameters
// Malformed values still yield the media type and whatever parameters parse
func ParseContentType(value string) (string, map[string]string) {
	if strings.TrimSpace(value) == "" {
		value = DefaultContentType
	}
	mediaType, params, err := mime.ParseMediaType(value)
	if err == nil {
		return mediaType, params
	}

	params = make(map[string]string)
	parts := strings.Split(value, ";")
	mediaType = strings.ToLower(strings.TrimSpace(parts[0]))
	for _, part := range parts[1:] {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		params[strings.ToLower(strings.TrimSpace(k))] = strings.Trim(strings.TrimSpace(v), `"`)
	}
	return mediaType, params
}

// IsHTML reports whether a media type is parsed for links as HTML
func IsHTML(mediaType string) bool {
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// IsCSS reports whether a media type is a stylesheet
func IsCSS(mediaType string) bool {
	return mediaType == "text/css"
}

// IsJavaScript reports whether a media type is a script
func IsJavaScript(mediaType string) bool {
	switch mediaType {
	case "application/javascript", "application/x-javascript", "text/javascript",
		"application/ecmascript", "application/x-ecmascript":
		return true
	}
	return false
}
