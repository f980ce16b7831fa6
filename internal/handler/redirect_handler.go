package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"linkgate/internal/config"
	"linkgate/internal/domain"
	"linkgate/internal/metrics"
	"linkgate/internal/qrcode"
	"linkgate/internal/service"
	"linkgate/pkg/logger"
	"linkgate/pkg/validator"
)

// Entry points recorded on decision metrics
const (
	entryDirect = "direct"
	entryQR     = "qr"
)

// RedirectHandler serves the public visitor endpoints
type RedirectHandler struct {
	resolver   service.LinkResolver
	encoder    qrcode.Encoder
	baseURL    string
	trustProxy bool
	production bool
	logger     *logger.Logger
}

// NewRedirectHandler creates a new redirect handler with dependencies
func NewRedirectHandler(resolver service.LinkResolver, encoder qrcode.Encoder, cfg *config.Config, logger *logger.Logger) *RedirectHandler {
	return &RedirectHandler{
		resolver:   resolver,
		encoder:    encoder,
		baseURL:    cfg.BaseURL,
		trustProxy: cfg.TrustProxyHeaders,
		production: cfg.IsProduction(),
		logger:     logger,
	}
}

// Redirect handles GET /:shortCode
func (h *RedirectHandler) Redirect(c *gin.Context) {
	h.resolve(c, false)
}

// RedirectQR handles GET /q/:shortCode
// Same as Redirect, but the visit is attributed to a QR scan
func (h *RedirectHandler) RedirectQR(c *gin.Context) {
	h.resolve(c, true)
}

func (h *RedirectHandler) resolve(c *gin.Context, viaQR bool) {
	entry := entryDirect
	if viaQR {
		entry = entryQR
	}

	shortCode := c.Param("shortCode")
	if !validator.ValidateShortCode(shortCode) {
		metrics.RecordDecision(string(domain.ReasonNotFound), entry)
		status, body := denialResponse(domain.ReasonNotFound)
		c.JSON(status, body)
		return
	}

	decision, err := h.resolver.Resolve(c.Request.Context(), shortCode, h.requestContext(c, viaQR))
	if err != nil {
		metrics.RecordDecision("error", entry)
		h.internalError(c, err)
		return
	}

	if !decision.Allowed {
		metrics.RecordDecision(string(decision.Reason), entry)
		status, body := denialResponse(decision.Reason)
		c.JSON(status, body)
		return
	}

	metrics.RecordDecision("allowed", entry)

	// Browsers cache 301s. Anything else must come back so it gets counted.
	if decision.RedirectStatus != http.StatusMovedPermanently {
		c.Header("Cache-Control", "no-store")
	}
	c.Redirect(decision.RedirectStatus, decision.TargetURL)
}

// requestContext extracts what the resolver needs from the request
func (h *RedirectHandler) requestContext(c *gin.Context, viaQR bool) *domain.RequestContext {
	req := &domain.RequestContext{
		ClientIP:         ClientIP(c.Request, h.trustProxy),
		UserAgent:        c.Request.UserAgent(),
		Referrer:         c.Request.Referer(),
		Password:         c.Query("password"),
		ScreenResolution: validator.ScreenResolution(c.Query("sr")),
		ViaQR:            viaQR,
	}
	if h.trustProxy {
		req.CountryHint = c.GetHeader("CF-IPCountry")
	}
	return req
}

// QRCode handles GET /qr/:shortCode
// Renders a QR code pointing at the QR-attributed redirect
func (h *RedirectHandler) QRCode(c *gin.Context) {
	shortCode := c.Param("shortCode")
	if !validator.ValidateShortCode(shortCode) {
		respondError(c, http.StatusNotFound, CodeURLNotFound, "The requested link does not exist")
		return
	}

	size := qrcode.DefaultSize
	if raw := c.Query("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, CodeInvalidRequest, "size must be an integer")
			return
		}
		size = qrcode.ClampSize(n)
	}

	if _, err := h.resolver.Lookup(c.Request.Context(), shortCode); err != nil {
		if errors.Is(err, domain.ErrLinkNotFound) {
			respondError(c, http.StatusNotFound, CodeURLNotFound, "The requested link does not exist")
			return
		}
		h.internalError(c, err)
		return
	}

	target := h.baseURL + "/q/" + shortCode
	png, err := h.encoder.PNG(target, size)
	if err != nil {
		h.internalError(c, err)
		return
	}

	if strings.EqualFold(c.Query("format"), "datauri") {
		respondData(c, http.StatusOK, gin.H{
			"short_code": shortCode,
			"url":        target,
			"data_uri":   qrcode.DataURI(png),
		})
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/png", png)
}

// Preview handles GET /preview/:shortCode
// Describes a link without following or counting it
func (h *RedirectHandler) Preview(c *gin.Context) {
	shortCode := c.Param("shortCode")
	if !validator.ValidateShortCode(shortCode) {
		respondError(c, http.StatusNotFound, CodeURLNotFound, "The requested link does not exist")
		return
	}

	preview, err := h.resolver.Preview(c.Request.Context(), shortCode)
	if err != nil {
		if errors.Is(err, domain.ErrLinkNotFound) {
			respondError(c, http.StatusNotFound, CodeURLNotFound, "The requested link does not exist")
			return
		}
		h.internalError(c, err)
		return
	}

	respondData(c, http.StatusOK, preview)
}

// internalError logs err and answers 500, with detail only outside production
func (h *RedirectHandler) internalError(c *gin.Context, err error) {
	h.logger.Errorw("Internal server error",
		"path", c.Request.URL.Path,
		"error", err,
	)

	message := ""
	if !h.production {
		var appErr *domain.AppError
		if errors.As(err, &appErr) && appErr.Err != nil {
			message = appErr.Err.Error()
		} else {
			message = err.Error()
		}
	}
	respondError(c, http.StatusInternalServerError, CodeInternalError, message)
}
