// Package screenshot exposes the capture endpoint over HTTP.
package screenshot

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainscreenshot "screamshot-server/internal/domain/screenshot"
	platformerrors "screamshot-server/internal/platform/errors"
	"screamshot-server/internal/platform/logging"
	httptransport "screamshot-server/internal/transport/http"
)

// MsgBodyTooLarge is reported when the body exceeds the configured limit.
const MsgBodyTooLarge = "Request body too large"

// Service is the HTTP handler for /take-screenshot.
type Service struct {
	screenshots *domainscreenshot.Service
	logger      *logging.Logger
	maxBody     int64
}

// NewService creates the handler. maxBody <= 0 disables the body limit.
func NewService(screenshots *domainscreenshot.Service, logger *logging.Logger, maxBody int64) (*Service, error) {
	if screenshots == nil {
		return nil, platformerrors.New(platformerrors.KindConfig, "http.screenshot.new", "screenshot service is required")
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{
		screenshots: screenshots,
		logger:      logger,
		maxBody:     maxBody,
	}, nil
}

// Register mounts the capture routes on router.
func (s *Service) Register(_ context.Context, router *gin.RouterGroup) {
	router.POST("/take-screenshot", s.handleTakeScreenshot)
	router.GET("/take-screenshot", s.handleTakeScreenshot)
	s.logger.InfoTag(logging.TagHTTP, "screenshot routes registered")
}

// handleTakeScreenshot captures a page.
// @Summary Take a screenshot
// @Description Renders url in a headless browser and returns a PNG attachment.
// @Tags Screenshot
// @Accept x-www-form-urlencoded
// @Accept json
// @Accept mpfd
// @Produce png
// @Produce json
// @Param url formData string true "Page to capture (may also be a query parameter)"
// @Param width formData int false "Viewport width"
// @Param height formData int false "Viewport height"
// @Param wait_until formData []string false "load, domcontentloaded, networkidle0, networkidle2" collectionFormat(multi)
// @Param selector formData string false "CSS selector of the element to capture"
// @Param wait_for formData string false "CSS selector to wait for before capturing"
// @Param credentials formData string false "JSON object with username/password or token_in_header"
// @Success 200 {file} file "screenshot.png"
// @Failure 400 {object} httptransport.ErrorsResponse
// @Failure 500 {object} httptransport.ErrorsResponse
// @Router /api/take-screenshot [post]
func (s *Service) handleTakeScreenshot(c *gin.Context) {
	raw, err := readParameters(c.Request, s.maxBody)
	if err != nil {
		if errors.Is(err, errBodyTooLarge) {
			httptransport.RespondErrors(c, http.StatusRequestEntityTooLarge, []string{MsgBodyTooLarge})
			return
		}
		s.logger.DebugTag(logging.TagHTTP, "malformed capture request: %v", err)
		httptransport.RespondErrors(c, http.StatusBadRequest, []string{MsgMalformedBody})
		return
	}

	serializer := s.screenshots.NewRequestSerializer(raw)
	resp, err := serializer.Serialize(c.Request.Context(), nil)
	if err != nil {
		s.logger.ErrorTag(logging.TagCapture, "capture of %q failed: %v", serializer.URL(), err)
		_ = c.Error(err)
		httptransport.RespondErrors(c, http.StatusInternalServerError, []string{httptransport.MsgInternalError})
		return
	}
	defer func() {
		if err := resp.Close(); err != nil {
			s.logger.WarnTag(logging.TagCapture, "remove temp file: %v", err)
		}
	}()

	if resp.Status != http.StatusOK {
		httptransport.RespondErrors(c, resp.Status, resp.Errors)
		return
	}
	c.FileAttachment(resp.File.Path, resp.Filename)
}
