// Package viewer exposes patient summary extraction over HTTP.
package viewer

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/epsviewer/internal/domain/summary"
	"github.com/ehr/epsviewer/internal/platform/export"
	"github.com/ehr/epsviewer/internal/platform/fhir"
	"github.com/ehr/epsviewer/internal/platform/intake"
	"github.com/ehr/epsviewer/internal/platform/middleware"
	"github.com/ehr/epsviewer/internal/platform/sample"
)

// DocumentIDHeader carries the id assigned to an uploaded document.
const DocumentIDHeader = "X-Document-ID"

var (
	errMissingFile   = errors.New("multipart field \"file\" is required")
	errNotAcceptable = errors.New("no acceptable summary format; use text/plain, application/json or application/yaml")
)

// Handler provides HTTP endpoints that turn uploaded bundles into summaries.
type Handler struct {
	reader    *intake.Reader
	extractor *summary.Extractor
	format    export.Format
	logger    zerolog.Logger
}

// NewHandler creates a new summary handler. format is used when a request
// does not name one.
func NewHandler(reader *intake.Reader, extractor *summary.Extractor, format export.Format, logger zerolog.Logger) *Handler {
	return &Handler{
		reader:    reader,
		extractor: extractor,
		format:    format,
		logger:    logger,
	}
}

// RegisterRoutes registers summary endpoints on the provided route group.
//
//	POST /api/v1/summary         - Summarise an uploaded bundle
//	GET  /api/v1/summary/sample  - Summarise the bundled sample document
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/summary", h.Summarize)
	g.GET("/summary/sample", h.Sample)
}

// Summarize handles POST /api/v1/summary. The body is either the bundle
// itself or a multipart form with the bundle in the "file" field.
func (h *Handler) Summarize(c echo.Context) error {
	format, err := h.requestFormat(c)
	if err != nil {
		return formatError(c, err)
	}

	doc, err := h.readDocument(c)
	if err != nil {
		return intakeError(c, err)
	}
	c.Response().Header().Set(DocumentIDHeader, doc.ID)

	h.logger.Debug().
		Str("document_id", doc.ID).
		Str("document", doc.Name).
		Str("sha256", doc.Hash).
		Msg("summarising uploaded document")

	return h.respond(c, doc.Bundle, format)
}

// Sample handles GET /api/v1/summary/sample.
func (h *Handler) Sample(c echo.Context) error {
	format, err := h.requestFormat(c)
	if err != nil {
		return formatError(c, err)
	}

	b, err := sample.Bundle()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.InternalErrorOutcome("failed to load sample document"))
	}
	return h.respond(c, b, format)
}

// requestFormat picks the response format. The format query parameter wins
// over the Accept header.
func (h *Handler) requestFormat(c echo.Context) (export.Format, error) {
	if q := c.QueryParam("format"); q != "" {
		return export.ParseFormat(q)
	}
	f, ok := export.Negotiate(c.Request().Header.Get(echo.HeaderAccept), h.format)
	if !ok {
		return "", errNotAcceptable
	}
	return f, nil
}

func formatError(c echo.Context, err error) error {
	if errors.Is(err, errNotAcceptable) {
		return c.JSON(http.StatusNotAcceptable, fhir.NotSupportedOutcome(err.Error()))
	}
	return c.JSON(http.StatusBadRequest, fhir.NotSupportedOutcome(err.Error()))
}

func (h *Handler) readDocument(c echo.Context) (*intake.Document, error) {
	req := c.Request()
	if strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		file, err := c.FormFile("file")
		if errors.Is(err, middleware.ErrBodyTooLarge) {
			return nil, err
		}
		if err != nil {
			return nil, errMissingFile
		}
		src, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer src.Close()
		return h.reader.ReadFrom(file.Filename, src, file.Header.Get(echo.HeaderContentType))
	}
	return h.reader.ReadFrom("request body", req.Body, req.Header.Get(echo.HeaderContentType))
}

func (h *Handler) respond(c echo.Context, b *fhir.Bundle, format export.Format) error {
	s, err := h.extractor.Extract(b)
	switch {
	case errors.Is(err, summary.ErrMalformedInput):
		return c.JSON(http.StatusUnprocessableEntity, fhir.RequiredFieldOutcome("Bundle.entry", err.Error()))
	case errors.Is(err, summary.ErrMissingSubject):
		return c.JSON(http.StatusUnprocessableEntity, fhir.RequiredFieldOutcome("Bundle.entry.resource.ofType(Patient)", err.Error()))
	case err != nil:
		return c.JSON(http.StatusInternalServerError, fhir.InternalErrorOutcome(err.Error()))
	}

	var buf bytes.Buffer
	if err := export.Encode(&buf, s, format); err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.InternalErrorOutcome("failed to encode summary"))
	}
	return c.Blob(http.StatusOK, format.ContentType(), buf.Bytes())
}

// intakeError maps document intake failures to OperationOutcome responses.
func intakeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, intake.ErrFileTooLarge), errors.Is(err, middleware.ErrBodyTooLarge):
		return c.JSON(http.StatusRequestEntityTooLarge,
			fhir.NewOperationOutcome(fhir.IssueSeverityError, fhir.IssueTypeTooCostly, err.Error()))
	case errors.Is(err, intake.ErrInvalidContentType):
		return c.JSON(http.StatusUnsupportedMediaType, fhir.NotSupportedOutcome(err.Error()))
	case errors.Is(err, intake.ErrEmptyDocument), errors.Is(err, errMissingFile):
		return c.JSON(http.StatusBadRequest,
			fhir.NewOperationOutcome(fhir.IssueSeverityError, fhir.IssueTypeRequired, err.Error()))
	case errors.Is(err, fhir.ErrNotBundle):
		return c.JSON(http.StatusBadRequest,
			fhir.NewOperationOutcome(fhir.IssueSeverityError, fhir.IssueTypeInvalid, err.Error()))
	default:
		return c.JSON(http.StatusBadRequest, fhir.StructureOutcome(err.Error()))
	}
}
