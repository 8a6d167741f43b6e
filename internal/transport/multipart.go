package transport

import (
	"bytes"
	"mime/multipart"
	"net/textproto"
	"strings"
)

// FormField is a plain multipart field written after the file part.
type FormField struct {
	Name  string
	Value string
}

// MultipartFile encodes payload as a single file part named field, followed by
// any extra fields. It returns the body and its Content-Type header value.
func MultipartFile(field, fileName, contentType string, payload []byte, extra ...FormField) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if fileName == "" {
		fileName = "upload"
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	part, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {`form-data; name="` + quoteEscaper.Replace(field) +
			`"; filename="` + quoteEscaper.Replace(fileName) + `"`},
		"Content-Type": {contentType},
	})
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(payload); err != nil {
		return nil, "", err
	}

	for _, f := range extra {
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")
