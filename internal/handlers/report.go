package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"safenet/internal/models"
	"safenet/internal/services"
	"safenet/internal/utils"
)

const (
	dateLayout = "2006-01-02"
	// multipart overhead on top of the attachment limit
	maxSubmitBody = services.MaxAttachments*services.MaxAttachmentBytes + 1<<20
	// larger parts spill to temp files
	multipartMemory = 8 << 20
)

type ReportHandler struct {
	reports *services.ReportService
	hashIP  IPHasher
	log     *zap.Logger
}

func NewReportHandler(reports *services.ReportService, hashIP IPHasher, log *zap.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, hashIP: hashIP, log: log}
}

func reportForm(form gin.H) gin.H {
	if form == nil {
		form = gin.H{}
	}
	return gin.H{
		"Categories": models.ReportCategories,
		"Form":       form,
		"MaxFiles":   services.MaxAttachments,
		"Today":      time.Now().Format(dateLayout),
	}
}

func (h *ReportHandler) ShowSubmit(c *gin.Context) {
	Render(c, http.StatusOK, "report/new.html", reportForm(nil))
}

func (h *ReportHandler) Submit(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSubmitBody)
	if err := parseSubmitForm(c.Request); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			data := reportForm(nil)
			data["Error"] = fmt.Sprintf("Your submission is too large. Attach at most %d files of up to %d MB each.",
				services.MaxAttachments, services.MaxAttachmentBytes>>20)
			Render(c, http.StatusRequestEntityTooLarge, "report/new.html", data)
			return
		}
		data := reportForm(nil)
		data["Error"] = "We could not read your submission. Please try again."
		Render(c, http.StatusBadRequest, "report/new.html", data)
		return
	}

	form := gin.H{
		"Category":     c.PostForm("category"),
		"Description":  c.PostForm("description"),
		"Location":     c.PostForm("location"),
		"IncidentDate": c.PostForm("incident_date"),
		"Latitude":     c.PostForm("latitude"),
		"Longitude":    c.PostForm("longitude"),
	}
	fail := func(msg string) {
		data := reportForm(form)
		data["Error"] = msg
		Render(c, http.StatusBadRequest, "report/new.html", data)
	}

	in := services.SubmitReportInput{
		Category:    c.PostForm("category"),
		Description: c.PostForm("description"),
		Location:    c.PostForm("location"),
		IPHash:      h.hashIP(c.ClientIP()),
	}
	if d := strings.TrimSpace(c.PostForm("incident_date")); d != "" {
		t, err := time.Parse(dateLayout, d)
		if err != nil {
			fail("Please enter the incident date as YYYY-MM-DD.")
			return
		}
		in.IncidentDate = t
	}
	var err error
	if in.Latitude, err = utils.ParseOptionalFloat(c.PostForm("latitude")); err != nil {
		fail("Latitude must be a number.")
		return
	}
	if in.Longitude, err = utils.ParseOptionalFloat(c.PostForm("longitude")); err != nil {
		fail("Longitude must be a number.")
		return
	}
	if mf, err := c.MultipartForm(); err == nil && mf != nil {
		for _, fh := range mf.File["attachments"] {
			if fh.Size == 0 && fh.Filename == "" {
				continue
			}
			in.Attachments = append(in.Attachments, uploadFromHeader(fh))
		}
	}

	report, err := h.reports.Submit(c.Request.Context(), in)
	if err != nil {
		if ve, ok := validation(err); ok {
			fail(ve.Message)
			return
		}
		handleError(c, h.log, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	Render(c, http.StatusCreated, "report/success.html", gin.H{
		"TrackingCode": report.TrackingCode,
		"SubmittedAt":  report.SubmittedAt,
	})
}

func uploadFromHeader(fh *multipart.FileHeader) services.Upload {
	return services.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// parseSubmitForm reads the whole body up front so an oversized request is
// reported instead of surfacing as empty fields.
func parseSubmitForm(r *http.Request) error {
	if r.ContentLength > maxSubmitBody {
		return &http.MaxBytesError{Limit: maxSubmitBody}
	}
	err := r.ParseMultipartForm(multipartMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		return r.ParseForm()
	}
	return err
}

func (h *ReportHandler) ShowTrack(c *gin.Context) {
	Render(c, http.StatusOK, "report/track.html", nil)
}

// Track handles the lookup form. The code stays in the POST body so it
// does not end up in browser history.
func (h *ReportHandler) Track(c *gin.Context) {
	h.track(c, c.PostForm("code"))
}

func (h *ReportHandler) TrackByCode(c *gin.Context) {
	h.track(c, c.Param("code"))
}

func (h *ReportHandler) track(c *gin.Context, code string) {
	c.Header("Cache-Control", "no-store")
	res, err := h.reports.Track(c.Request.Context(), code)
	if err != nil {
		if isNotFound(err) {
			Render(c, http.StatusNotFound, "report/track.html", gin.H{
				"Error": "No report matches that tracking code. Check the code and try again.",
			})
			return
		}
		handleError(c, h.log, err)
		return
	}
	Render(c, http.StatusOK, "report/track.html", gin.H{"Result": res})
}
