package browser

import (
	"bytes"
	"context"
	stderrors "errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"testing"
	"time"

	"screamshot-server/internal/domain/screenshot"
	"screamshot-server/internal/platform/errors"
	"screamshot-server/internal/platform/logging"
)

func TestAuthorizationHeader(t *testing.T) {
	tests := []struct {
		name  string
		creds *screenshot.Credentials
		want  string
	}{
		{"none", nil, ""},
		{"basic", &screenshot.Credentials{Username: "aladdin", Password: "opensesame"}, "Basic YWxhZGRpbjpvcGVuc2VzYW1l"},
		{"bare token", &screenshot.Credentials{TokenInHeader: "abc123"}, "Bearer abc123"},
		{"token with scheme", &screenshot.Credentials{TokenInHeader: "Token abc123"}, "Token abc123"},
		{"basic wins over token", &screenshot.Credentials{Username: "a", Password: "b", TokenInHeader: "t"}, "Basic YTpi"},
		{"empty token", &screenshot.Credentials{TokenInHeader: "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := authorizationHeader(tt.creds); got != tt.want {
				t.Errorf("authorizationHeader() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCheckURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"http://example.com", false},
		{"https://example.com/path?q=1", false},
		{"file:///tmp/page.html", false},
		{"data:text/html,<h1>hi</h1>", true},
		{"javascript:alert(1)", true},
		{"example.com", true},
		{"ftp://example.com", true},
		{"http://", true},
		{"://bad", true},
	}
	for _, tt := range tests {
		if err := checkURL(tt.url); (err != nil) != tt.wantErr {
			t.Errorf("checkURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
		}
	}
}

func TestLifecycleEventsCoverWaitValues(t *testing.T) {
	for _, v := range []string{
		screenshot.WaitLoad, screenshot.WaitDOMContentLoaded,
		screenshot.WaitNetworkIdle0, screenshot.WaitNetworkIdle2,
	} {
		if _, ok := lifecycleEvents[v]; !ok {
			t.Errorf("no lifecycle event for %q", v)
		}
	}
}

func TestClassify(t *testing.T) {
	g := New(Config{Timeout: time.Second}, logging.Nop())
	live := context.Background()
	expired, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	cancelled, cancelReq := context.WithCancel(context.Background())
	cancelReq()

	tests := []struct {
		name     string
		reqCtx   context.Context
		tabCtx   context.Context
		opts     screenshot.Options
		err      error
		wantKind screenshot.FailureKind
		wantOK   bool
	}{
		{"selector", live, live, screenshot.Options{Selector: "#x"}, &selectorError{}, screenshot.FailureBadSelector, true},
		{"dns failure", live, live, screenshot.Options{}, &navigationError{err: stderrors.New("page load error net::ERR_NAME_NOT_RESOLVED")}, screenshot.FailureNetwork, true},
		{"invalid url", live, live, screenshot.Options{}, &navigationError{err: stderrors.New("page load error net::ERR_INVALID_URL")}, screenshot.FailureBadURL, true},
		{"wait_for timeout", live, expired, screenshot.Options{WaitFor: ".never"}, context.DeadlineExceeded, screenshot.FailureBadSelector, true},
		{"page timeout", live, expired, screenshot.Options{}, context.DeadlineExceeded, screenshot.FailureNetwork, true},
		{"request cancelled", cancelled, live, screenshot.Options{}, context.Canceled, "", false},
		{"unknown", live, live, screenshot.Options{}, stderrors.New("websocket closed"), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.classify(tt.reqCtx, tt.tabCtx, "http://example.com", tt.opts, tt.err)
			var gerr *screenshot.GenerationError
			ok := stderrors.As(err, &gerr)
			if ok != tt.wantOK {
				t.Fatalf("classify() = %v, expected generation error: %v", err, tt.wantOK)
			}
			if ok && gerr.Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", gerr.Kind, tt.wantKind)
			}
			if !ok && !errors.IsKind(err, errors.KindCapture) {
				t.Errorf("unexpected errors should carry the capture kind, got %v", err)
			}
		})
	}
}

func TestGenerate_BadURLNeedsNoBrowser(t *testing.T) {
	g := New(Config{ExecPath: "/nonexistent/chrome"}, logging.Nop())
	defer g.Close()

	_, err := g.Generate(context.Background(), "not a url", screenshot.Options{})
	var gerr *screenshot.GenerationError
	if !stderrors.As(err, &gerr) || gerr.Kind != screenshot.FailureBadURL {
		t.Fatalf("expected bad url failure, got %v", err)
	}
}

func findChrome(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("browser test skipped in short mode")
	}
	if p := os.Getenv("SCREAMSHOT_CHROME_PATH"); p != "" {
		return p
	}
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	t.Skip("no chrome binary available")
	return ""
}

const fixturePage = `<!doctype html>
<html><body style="margin:0;background:#fff">
<div id="godot" style="position:absolute;left:20px;top:30px;width:120px;height:60px;background:rgb(255,0,0)"></div>
</body></html>`

// meanDistance compares img with a solid reference colour, returning the mean
// per-channel distance in [0,255].
func meanDistance(img image.Image, ref color.RGBA) float64 {
	b := img.Bounds()
	var total float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			total += absDiff(r>>8, uint32(ref.R)) + absDiff(g>>8, uint32(ref.G)) + absDiff(bl>>8, uint32(ref.B))
		}
	}
	return total / float64(3*b.Dx()*b.Dy())
}

func absDiff(a, b uint32) float64 {
	if a > b {
		return float64(a - b)
	}
	return float64(b - a)
}

func TestGenerate_ElementScreenshot(t *testing.T) {
	chrome := findChrome(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(fixturePage))
	}))
	defer srv.Close()

	g := New(Config{ExecPath: chrome, Headless: true, NoSandbox: true, Timeout: 20 * time.Second}, logging.Nop())
	defer g.Close()

	data, err := g.Generate(context.Background(), srv.URL, screenshot.Options{
		Selector:  "#godot",
		WaitUntil: []string{screenshot.WaitLoad, screenshot.WaitDOMContentLoaded},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode screenshot: %v", err)
	}
	if d := meanDistance(img, color.RGBA{R: 255, A: 255}); d > 8 {
		t.Errorf("element screenshot differs from reference, mean distance %.2f", d)
	}

	_, err = g.Generate(context.Background(), srv.URL, screenshot.Options{Selector: "#missing"})
	var gerr *screenshot.GenerationError
	if !stderrors.As(err, &gerr) || gerr.Kind != screenshot.FailureBadSelector {
		t.Fatalf("expected bad selector failure, got %v", err)
	}
}

func TestGenerate_WaitsForFreeTab(t *testing.T) {
	g := New(Config{MaxTabs: 1}, logging.Nop())
	if err := g.tabs.Acquire(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	defer g.tabs.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := g.Generate(ctx, "http://example.com", screenshot.Options{})
	if !stderrors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Generate error = %v, want deadline exceeded", err)
	}
	if g.browserCtx != nil {
		t.Fatal("browser started while no tab was free")
	}
}

func TestBrowser_RestartReleasesDeadBrowser(t *testing.T) {
	g := New(Config{RemoteURL: "ws://127.0.0.1:1/devtools/browser/none", Timeout: 2 * time.Second}, logging.Nop())

	dead, cancelDead := context.WithCancel(context.Background())
	cancelDead()
	var browserReleased, allocReleased bool
	g.browserCtx = dead
	g.browserCancel = func() { browserReleased = true }
	g.allocCancel = func() { allocReleased = true }

	// nothing listens on port 1, so the restart fails after releasing the old handles
	if _, err := g.browser(context.Background()); err == nil {
		t.Fatal("expected start failure against closed port")
	}
	if !browserReleased || !allocReleased {
		t.Fatalf("old browser not released: browser=%t alloc=%t", browserReleased, allocReleased)
	}
	if g.browserCtx != nil || g.allocCancel != nil {
		t.Fatal("failed start left handles behind")
	}
}
