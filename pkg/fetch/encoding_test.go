package fetch

import (
	"bytes"
	"compress/flate"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/webtest/pkg/utils"
)

func TestDecodeContent(t *testing.T) {
	data := []byte("body { color: red }")

	gz, err := GzipContent(data)
	require.NoError(t, err)

	var raw bytes.Buffer
	fw, _ := flate.NewWriter(&raw, flate.DefaultCompression)
	fw.Write(data)
	fw.Close()

	tests := []struct {
		name     string
		encoding string
		input    []byte
	}{
		{"Identity", "", data},
		{"ExplicitIdentity", "identity", data},
		{"Gzip", "gzip", gz},
		{"XGzip", "X-Gzip", gz},
		{"RawDeflate", "deflate", raw.Bytes()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeContent(tt.encoding, tt.input)
			require.NoError(t, err)
			assert.Equal(t, data, got)
		})
	}
}

func TestDecodeContent_Errors(t *testing.T) {
	_, err := DecodeContent("br", []byte("x"))
	assert.True(t, errors.Is(err, utils.ErrDecoding))

	_, err = DecodeContent("gzip", []byte("not gzip"))
	assert.True(t, errors.Is(err, utils.ErrDecoding))
}

func TestParseContentType(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		mediaType string
		params    map[string]string
	}{
		{"Simple", "text/html", "text/html", map[string]string{}},
		{"Charset", "text/html; charset=UTF-8", "text/html", map[string]string{"charset": "UTF-8"}},
		{"UpperCase", "Text/CSS;Charset=\"utf-8\"", "text/css", map[string]string{"charset": "utf-8"}},
		{"Empty", "", "application/octet-stream", map[string]string{"charset": "iso-8859-1"}},
		{"Malformed", "text/html; charset=utf-8; broken", "text/html", map[string]string{"charset": "utf-8"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mediaType, params := ParseContentType(tt.value)
			assert.Equal(t, tt.mediaType, mediaType)
			assert.Equal(t, tt.params, params)
		})
	}
}

func TestMediaTypeKinds(t *testing.T) {
	assert.True(t, IsHTML("text/html"))
	assert.True(t, IsHTML("application/xhtml+xml"))
	assert.False(t, IsHTML("text/plain"))
	assert.True(t, IsCSS("text/css"))
	for _, js := range []string{"application/javascript", "application/x-javascript", "text/javascript", "application/ecmascript", "application/x-ecmascript"} {
		assert.True(t, IsJavaScript(js), js)
	}
	assert.False(t, IsJavaScript("application/json"))
}
