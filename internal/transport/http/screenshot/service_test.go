package screenshot

import (
	"bytes"
	"context"
	"encoding/json"
	goerrors "errors"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screamshot-server/internal/domain/image"
	domainscreenshot "screamshot-server/internal/domain/screenshot"
	platformtesting "screamshot-server/internal/platform/testing"
)

type fakeGenerator struct {
	mu    sync.Mutex
	calls int
	url   string
	opts  domainscreenshot.Options
	data  []byte
	err   error
}

func (g *fakeGenerator) Generate(_ context.Context, url string, opts domainscreenshot.Options) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.url = url
	g.opts = opts
	return g.data, g.err
}

func newTestEngine(t *testing.T, gen domainscreenshot.Generator, maxBody int64) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tempDir := t.TempDir()
	logger := platformtesting.SetupTestLogger(t)
	svc, err := domainscreenshot.NewService(domainscreenshot.ServiceOptions{
		Generator: gen,
		Encoder:   image.NewPipeline(image.Options{TempDir: tempDir}),
		Logger:    logger,
	})
	require.NoError(t, err)

	handler, err := NewService(svc, logger, maxBody)
	require.NoError(t, err)

	engine := gin.New()
	handler.Register(context.Background(), engine.Group("/api"))
	return engine, tempDir
}

func decodeErrors(t *testing.T, body []byte) []string {
	t.Helper()
	var payload struct {
		Errors []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NotNil(t, payload.Errors, "errors key must be a list: %s", body)
	return payload.Errors
}

func TestTakeScreenshot_FormSuccess(t *testing.T) {
	gen := &fakeGenerator{data: platformtesting.PNGFixture(t, 4, 3)}
	engine, tempDir := newTestEngine(t, gen, 0)

	form := "url=http%3A%2F%2Fexample.com&width=640&height=480&selector=%23godot&wait_until=load&wait_until=networkidle0"
	req := httptest.NewRequest(http.MethodPost, "/api/take-screenshot", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `attachment; filename="screenshot.png"`)

	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())

	assert.Equal(t, "http://example.com", gen.url)
	assert.Equal(t, 640, gen.opts.Width)
	assert.Equal(t, 480, gen.opts.Height)
	assert.Equal(t, "#godot", gen.opts.Selector)
	assert.Equal(t, []string{"load", "networkidle0"}, gen.opts.WaitUntil)
	platformtesting.AssertNoTempFiles(t, tempDir)
}

func TestTakeScreenshot_NoURL(t *testing.T) {
	gen := &fakeGenerator{data: platformtesting.PNGFixture(t, 4, 3)}
	engine, _ := newTestEngine(t, gen, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/take-screenshot", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"errors":["No url"]}`, rec.Body.String())
	assert.Zero(t, gen.calls)
}

func TestTakeScreenshot_ValidationErrorsInOrder(t *testing.T) {
	gen := &fakeGenerator{data: platformtesting.PNGFixture(t, 4, 3)}
	engine, _ := newTestEngine(t, gen, 0)

	form := "zeta=1&url=http%3A%2F%2Fexample.com&alpha=2&width=wide&wait_until=never"
	req := httptest.NewRequest(http.MethodPost, "/api/take-screenshot", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{
		`Unknown parameter: "zeta"`,
		`Unknown parameter: "alpha"`,
		domainscreenshot.MsgBadWidth,
		domainscreenshot.MsgBadWaitUntil,
	}, decodeErrors(t, rec.Body.Bytes()))
	assert.Zero(t, gen.calls)
}

func TestTakeScreenshot_URLFromQuery(t *testing.T) {
	gen := &fakeGenerator{data: platformtesting.PNGFixture(t, 4, 3)}
	engine, _ := newTestEngine(t, gen, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/take-screenshot?url=http%3A%2F%2Fquery.example", strings.NewReader("width=10"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "http://query.example", gen.url)
}

func TestTakeScreenshot_BodyURLWinsOverQuery(t *testing.T) {
	gen := &fakeGenerator{data: platformtesting.PNGFixture(t, 4, 3)}
	engine, _ := newTestEngine(t, gen, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/take-screenshot?url=http%3A%2F%2Fquery.example",
		strings.NewReader("url=http%3A%2F%2Fbody.example"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://body.example", gen.url)
}

func TestTakeScreenshot_BlankBodyURLFallsBackToQuery(t *testing.T) {
	gen := &fakeGenerator{data: platformtesting.PNGFixture(t, 4, 3)}
	engine, _ := newTestEngine(t, gen, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/take-screenshot?url=http%3A%2F%2Fexample.com",
		strings.NewReader("url=&selector=%23a"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "http://example.com", gen.url)
	assert.Equal(t, "#a", gen.opts.Selector)
}

func TestTakeScreenshot_GET(t *testing.T) {
	gen := &fakeGenerator{data: platformtesting.PNGFixture(t, 4, 3)}
	engine, _ := newTestEngine(t, gen, 0)

	req := httptest.NewRequest(http.MethodGet, "/api/take-screenshot?url=http%3A%2F%2Fexample.com&wait_until=load,domcontentloaded", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"load", "domcontentloaded"}, gen.opts.WaitUntil)
}

func TestTakeScreenshot_JSONBody(t *testing.T) {
	gen := &fakeGenerator{data: platformtesting.PNGFixture(t, 4, 3)}
	engine, _ := newTestEngine(t, gen, 0)

	body := `{"url":"http://example.com","width":320,"wait_until":["networkidle2"],"credentials":{"username":"u","password":"p"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/take-screenshot", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 320, gen.opts.Width)
	assert.Equal(t, []string{"networkidle2"}, gen.opts.WaitUntil)
	require.NotNil(t, gen.opts.Credentials)
	assert.Equal(t, "u", gen.opts.Credentials.Username)
	assert.Equal(t, "p", gen.opts.Credentials.Password)
}

func TestTakeScreenshot_JSONCredentialErrors(t *testing.T) {
	cases := []struct {
		name        string
		credentials string
		want        string
	}{
		{"username only", `{"username":"u"}`, domainscreenshot.MsgCredentialsPassword},
		{"password only", `{"password":"p"}`, domainscreenshot.MsgCredentialsUsername},
		{"empty mapping", `{}`, domainscreenshot.MsgCredentialsToken},
		{"not a mapping", `"plain"`, domainscreenshot.MsgCredentialsToken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gen := &fakeGenerator{data: platformtesting.PNGFixture(t, 4, 3)}
			engine, _ := newTestEngine(t, gen, 0)

			body := `{"url":"http://example.com","credentials":` + tc.credentials + `}`
			req := httptest.NewRequest(http.MethodPost, "/api/take-screenshot", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, req)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, []string{tc.want}, decodeErrors(t, rec.Body.Bytes()))
		})
	}
}

func TestTakeScreenshot_MultipartBracketCredentials(t *testing.T) {
	gen := &fakeGenerator{data: platformtesting.PNGFixture(t, 4, 3)}
	engine, _ := newTestEngine(t, gen, 0)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("url", "http://example.com"))
	require.NoError(t, mw.WriteField("credentials[token_in_header]", "abc"))
	fw, err := mw.CreateFormFile("ignored", "x.bin")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("binary"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/take-screenshot", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, gen.opts.Credentials)
	assert.Equal(t, "abc", gen.opts.Credentials.TokenInHeader)
}

func TestTakeScreenshot_GenerationFailure(t *testing.T) {
	gen := &fakeGenerator{err: domainscreenshot.BadSelector("#missing", nil)}
	engine, _ := newTestEngine(t, gen, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/take-screenshot",
		strings.NewReader("url=http%3A%2F%2Fexample.com&selector=%23missing"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{`Bad selector: "#missing"`}, decodeErrors(t, rec.Body.Bytes()))
}

func TestTakeScreenshot_EmptyImageGivesEmptyErrorList(t *testing.T) {
	gen := &fakeGenerator{}
	engine, _ := newTestEngine(t, gen, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/take-screenshot", strings.NewReader("url=http%3A%2F%2Fexample.com"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"errors":[]}`, rec.Body.String())
}

func TestTakeScreenshot_UnexpectedFailure(t *testing.T) {
	gen := &fakeGenerator{err: goerrors.New("browser crashed")}
	engine, _ := newTestEngine(t, gen, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/take-screenshot", strings.NewReader("url=http%3A%2F%2Fexample.com"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"errors":["internal error"]}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "crashed")
}

func TestTakeScreenshot_UndecodableImageIsServerError(t *testing.T) {
	gen := &fakeGenerator{data: []byte("not an image")}
	engine, tempDir := newTestEngine(t, gen, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/take-screenshot", strings.NewReader("url=http%3A%2F%2Fexample.com"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	matches, _ := filepath.Glob(filepath.Join(tempDir, "screenshot-*"))
	assert.Empty(t, matches)
}

func TestTakeScreenshot_MalformedBodies(t *testing.T) {
	cases := []struct {
		name        string
		contentType string
		body        string
		status      int
		want        string
	}{
		{"json array", "application/json", `["url"]`, http.StatusBadRequest, MsgMalformedBody},
		{"truncated json", "application/json", `{"url":`, http.StatusBadRequest, MsgMalformedBody},
		{"bad escape", "application/x-www-form-urlencoded", "url=%zz", http.StatusBadRequest, MsgMalformedBody},
		{"too large", "application/x-www-form-urlencoded", "url=" + strings.Repeat("a", 64), http.StatusRequestEntityTooLarge, MsgBodyTooLarge},
		{"too large json", "application/json", `{"url":"` + strings.Repeat("a", 64) + `"}`, http.StatusRequestEntityTooLarge, MsgBodyTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gen := &fakeGenerator{data: platformtesting.PNGFixture(t, 4, 3)}
			engine, _ := newTestEngine(t, gen, 32)

			req := httptest.NewRequest(http.MethodPost, "/api/take-screenshot", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", tc.contentType)
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, req)

			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.Equal(t, []string{tc.want}, decodeErrors(t, rec.Body.Bytes()))
			assert.Zero(t, gen.calls)
		})
	}
}

func TestNewService_RequiresDomainService(t *testing.T) {
	_, err := NewService(nil, nil, 0)
	assert.Error(t, err)
}
