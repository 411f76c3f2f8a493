package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"

	"github.com/khoahotran/personal-site/pkg/coerce"
)

// Body is a request payload: JSONBody or *Multipart.
type Body interface {
	isBody()
}

// JSONBody is sent as application/json.
type JSONBody map[string]any

func (JSONBody) isBody() {}

// File is one attached upload. ContentType is sniffed when empty.
type File struct {
	Field       string
	Name        string
	Content     io.Reader
	ContentType string
}

// ProgressFunc receives the upload percentage, 0 to 100.
type ProgressFunc func(percent int)

// Multipart is sent as multipart/form-data. List values become repeated fields,
// scalars are formatted as text and anything else is JSON encoded into one field.
type Multipart struct {
	Fields   map[string]any
	Files    []File
	progress ProgressFunc
}

func (*Multipart) isBody() {}

func NewMultipart(fields map[string]any, files ...File) *Multipart {
	return &Multipart{Fields: fields, Files: files}
}

// OnProgress registers fn to be called as the body is written to the wire.
func (m *Multipart) OnProgress(fn ProgressFunc) *Multipart {
	m.progress = fn
	return m
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func (m *Multipart) encode() (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	keys := make([]string, 0, len(m.Fields))
	for k := range m.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		values, err := fieldValues(m.Fields[k])
		if err != nil {
			return nil, "", fmt.Errorf("field %q: %w", k, err)
		}
		for _, v := range values {
			if err := w.WriteField(k, v); err != nil {
				return nil, "", err
			}
		}
	}

	for _, f := range m.Files {
		data, err := io.ReadAll(f.Content)
		if err != nil {
			return nil, "", fmt.Errorf("read %s: %w", f.Name, err)
		}
		ct := f.ContentType
		if ct == "" {
			ct = mimetype.Detect(data).String()
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(f.Field), quoteEscaper.Replace(f.Name)))
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

func fieldValues(v any) ([]string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{t}, nil
	case []string:
		return t, nil
	case coerce.List:
		return []string(t), nil
	case bool:
		return []string{strconv.FormatBool(t)}, nil
	case int:
		return []string{strconv.Itoa(t)}, nil
	case int64:
		return []string{strconv.FormatInt(t, 10)}, nil
	case float64:
		return []string{strconv.FormatFloat(t, 'f', -1, 64)}, nil
	case json.Number:
		return []string{t.String()}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []string{string(data)}, nil
}

type progressReader struct {
	r     io.Reader
	total int64
	fn    ProgressFunc

	mu   sync.Mutex
	read int64
	last int
}

func newProgressReader(buf *bytes.Buffer, fn ProgressFunc) *progressReader {
	return &progressReader{r: buf, total: int64(buf.Len()), fn: fn, last: -1}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if p.fn == nil || p.total == 0 {
		return n, err
	}
	p.mu.Lock()
	p.read += int64(n)
	percent := int(p.read * 100 / p.total)
	changed := percent != p.last
	p.last = percent
	p.mu.Unlock()
	if changed {
		p.fn(percent)
	}
	return n, err
}
