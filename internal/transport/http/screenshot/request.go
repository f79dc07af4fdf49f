package screenshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	domainscreenshot "screamshot-server/internal/domain/screenshot"
)

// MsgMalformedBody is reported when the request body cannot be parsed at all.
const MsgMalformedBody = "Malformed request body"

var errBodyTooLarge = errors.New("request body too large")

// readParameters extracts the capture parameters of r in arrival order.
// GET reads the query string. POST reads the body and falls back to the
// url query parameter when the body carries none.
func readParameters(r *http.Request, maxBody int64) (domainscreenshot.RawParameters, error) {
	if r.Method == http.MethodGet {
		return parseOrderedQuery(r.URL.RawQuery)
	}

	body := io.Reader(http.NoBody)
	if r.Body != nil {
		body = r.Body
	}
	if maxBody > 0 {
		body = io.LimitReader(body, maxBody+1)
	}

	var (
		raw domainscreenshot.RawParameters
		err error
	)
	mediaType, typeParams, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		raw, err = parseJSONObject(limited(body, maxBody))
	case "multipart/form-data":
		raw, err = parseMultipart(limited(body, maxBody), typeParams["boundary"])
	default:
		var data []byte
		data, err = io.ReadAll(body)
		if err == nil && maxBody > 0 && int64(len(data)) > maxBody {
			err = errBodyTooLarge
		}
		if err == nil {
			raw, err = parseOrderedQuery(string(data))
		}
	}
	if err != nil {
		return nil, err
	}

	if raw.Blank(domainscreenshot.ParamURL) {
		if target := r.URL.Query().Get(domainscreenshot.ParamURL); target != "" {
			raw.Set(domainscreenshot.ParamURL, target)
		}
	}
	return raw, nil
}

// limited fails the read once more than maxBody bytes have been consumed.
func limited(r io.Reader, maxBody int64) io.Reader {
	if maxBody <= 0 {
		return r
	}
	return &capReader{r: r, remaining: maxBody}
}

type capReader struct {
	r         io.Reader
	remaining int64
}

func (c *capReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.remaining -= int64(n)
	if c.remaining < 0 {
		return n, errBodyTooLarge
	}
	return n, err
}

// formBuilder folds flat form pairs into RawParameters: repeated keys become
// lists and credentials[field] keys become a mapping.
type formBuilder struct {
	raw domainscreenshot.RawParameters
}

func (b *formBuilder) add(key, value string) {
	if key == "" {
		return
	}
	if base, field, ok := bracketKey(key); ok {
		existing, _ := b.raw.Get(base)
		fields, isMap := existing.(map[string]any)
		if !isMap {
			fields = make(map[string]any)
		}
		fields[field] = value
		b.raw.Set(base, fields)
		return
	}

	existing, ok := b.raw.Get(key)
	if !ok {
		b.raw.Set(key, value)
		return
	}
	switch t := existing.(type) {
	case string:
		b.raw.Set(key, []string{t, value})
	case []string:
		b.raw.Set(key, append(t, value))
	default:
		b.raw.Set(key, value)
	}
}

func bracketKey(key string) (string, string, bool) {
	open := strings.IndexByte(key, '[')
	if open <= 0 || !strings.HasSuffix(key, "]") {
		return "", "", false
	}
	field := key[open+1 : len(key)-1]
	if field == "" || strings.ContainsAny(field, "[]") {
		return "", "", false
	}
	return key[:open], field, true
}

// parseOrderedQuery decodes a urlencoded string keeping key order.
func parseOrderedQuery(query string) (domainscreenshot.RawParameters, error) {
	b := formBuilder{raw: domainscreenshot.RawParameters{}}
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, fmt.Errorf("decode key %q: %w", k, err)
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return nil, fmt.Errorf("decode value of %q: %w", key, err)
		}
		b.add(key, value)
	}
	return b.raw, nil
}

// parseMultipart walks the parts in order; file parts are ignored.
func parseMultipart(body io.Reader, boundary string) (domainscreenshot.RawParameters, error) {
	if boundary == "" {
		return nil, errors.New("multipart boundary missing")
	}
	b := formBuilder{raw: domainscreenshot.RawParameters{}}
	reader := multipart.NewReader(body, boundary)
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return b.raw, nil
		}
		if err != nil {
			return nil, err
		}
		if part.FileName() != "" {
			_ = part.Close()
			continue
		}
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, part); err != nil {
			return nil, err
		}
		_ = part.Close()
		b.add(part.FormName(), buf.String())
	}
}

// parseJSONObject reads a top-level JSON object keeping key order. Numbers
// stay json.Number; an empty body yields no parameters.
func parseJSONObject(body io.Reader) (domainscreenshot.RawParameters, error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()

	raw := domainscreenshot.RawParameters{}
	tok, err := dec.Token()
	if err == io.EOF {
		return raw, nil
	}
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("expected a JSON object")
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		raw.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return raw, nil
}
