package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"screamshot-server/internal/bootstrap"
	"screamshot-server/internal/domain/image"
	domainscreenshot "screamshot-server/internal/domain/screenshot"
	"screamshot-server/internal/domain/screenshot/browser"
	"screamshot-server/internal/platform/logging"
)

var (
	captureURL string
	captureOut string
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Take one screenshot and write it to disk",
	Long: `Take one screenshot using the browser settings from the config file.

Only flags that are set on the command line are passed on, so validation
messages match what the HTTP API would return for the same input.`,
	RunE: runCapture,
}

// flagParams maps capture flags onto request parameter names, in the order
// they are forwarded.
var flagParams = []struct {
	flag  string
	param string
}{
	{"width", domainscreenshot.ParamWidth},
	{"height", domainscreenshot.ParamHeight},
	{"wait-until", domainscreenshot.ParamWaitUntil},
	{"selector", domainscreenshot.ParamSelector},
	{"wait-for", domainscreenshot.ParamWaitFor},
}

var credentialFlags = []struct {
	flag  string
	field string
}{
	{"username", "username"},
	{"password", "password"},
	{"token-in-header", "token_in_header"},
}

func init() {
	f := captureCmd.Flags()
	f.StringVar(&captureURL, "url", "", "Page to capture (required)")
	f.StringVarP(&captureOut, "out", "o", "screenshot.png", "Output file, - for stdout")
	addParameterFlags(f)
	_ = captureCmd.MarkFlagRequired("url")
}

// addParameterFlags declares the flags read by captureParameters. They are
// strings so the validator sees exactly what was typed.
func addParameterFlags(f *pflag.FlagSet) {
	f.String("width", "", "Viewport width in pixels")
	f.String("height", "", "Viewport height in pixels")
	f.String("wait-until", "", "Comma separated: load, domcontentloaded, networkidle0, networkidle2")
	f.String("selector", "", "CSS selector of the element to capture")
	f.String("wait-for", "", "CSS selector to wait for before capturing")
	f.String("username", "", "HTTP basic auth user")
	f.String("password", "", "HTTP basic auth password")
	f.String("token-in-header", "", "Authorization header value")
}

// captureParameters collects the flags the user actually set.
func captureParameters(flags *pflag.FlagSet) domainscreenshot.RawParameters {
	raw := domainscreenshot.RawParameters{}
	for _, fp := range flagParams {
		if flags.Changed(fp.flag) {
			v, _ := flags.GetString(fp.flag)
			raw.Set(fp.param, v)
		}
	}

	creds := map[string]any{}
	for _, cf := range credentialFlags {
		if flags.Changed(cf.flag) {
			v, _ := flags.GetString(cf.flag)
			creds[cf.field] = v
		}
	}
	if len(creds) > 0 {
		raw.Set(domainscreenshot.ParamCredentials, creds)
	}
	return raw
}

func runCapture(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Console: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer logger.Close()

	gen := browser.New(bootstrap.BrowserConfig(cfg.Browser), logger)
	defer gen.Close()

	svc, err := domainscreenshot.NewService(domainscreenshot.ServiceOptions{
		Generator: gen,
		Encoder: image.NewPipeline(image.Options{
			TempDir: cfg.Capture.TempDir,
			Limits:  image.Limits{MaxBytes: cfg.Capture.MaxImageBytes},
			Logger:  logger,
		}),
		Logger: logger,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	resp, err := svc.NewSerializer(captureURL, captureParameters(cmd.Flags())).Serialize(ctx, nil)
	if err != nil {
		return err
	}
	defer resp.Close()

	if resp.File == nil {
		for _, msg := range resp.Errors {
			fmt.Fprintln(cmd.ErrOrStderr(), msg)
		}
		return fmt.Errorf("capture rejected with status %d", resp.Status)
	}
	return writeCapture(cmd.OutOrStdout(), resp.File.Path, captureOut)
}

func writeCapture(stdout io.Writer, src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if dst == "-" {
		_, err = io.Copy(stdout, in)
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	n, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s (%d bytes)\n", dst, n)
	return nil
}
