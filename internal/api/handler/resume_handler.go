package handler

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/cuongbtq/resume-extractor/internal/api/dto"
	"github.com/cuongbtq/resume-extractor/internal/domain"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

const pdfContentType = "application/pdf"

// multipartOverhead leaves room for boundaries and part headers around the file
const multipartOverhead = 64 << 10

// SubmitResume handles POST /v1/parse
// Accepts a PDF upload and starts a background parsing job
func (h *ResumeHandler) SubmitResume(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, dto.ErrorResponse{Error: "File is too large"})
			return
		}
		h.logger.Warn("Missing upload", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "A PDF file is required in the 'file' field"})
		return
	}

	if h.maxUploadBytes > 0 && fileHeader.Size > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, dto.ErrorResponse{Error: "File is too large"})
		return
	}

	if !isPDFPart(fileHeader.Header.Get("Content-Type")) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Only PDF files are allowed"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("Failed to open upload", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Failed to read uploaded file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("Failed to read upload", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Failed to read uploaded file"})
		return
	}

	if !mimetype.Detect(data).Is(pdfContentType) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Only PDF files are allowed"})
		return
	}

	jobID, err := h.jobs.Submit(c.Request.Context(), data)
	if err != nil {
		if errors.Is(err, domain.ErrQueueFull) || errors.Is(err, domain.ErrShuttingDown) {
			h.logger.Warn("Job rejected", slog.String("error", err.Error()))
			c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: "Server is at capacity. Please try again later."})
			return
		}
		h.logger.Error("Failed to submit job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to submit job"})
		return
	}

	h.logger.Info("Resume accepted",
		slog.String("job_id", jobID),
		slog.String("identity", c.GetString(IdentityKey)),
		slog.String("filename", fileHeader.Filename),
		slog.Int("size_bytes", len(data)),
	)

	c.JSON(http.StatusAccepted, dto.SubmitResponse{
		JobID:  jobID,
		Status: domain.JobStatusPending,
	})
}

// GetJob handles GET /v1/jobs/:job_id
func (h *ResumeHandler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")

	job, err := h.jobs.GetStatus(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "Job not found"})
			return
		}
		h.logger.Error("Failed to get job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get job"})
		return
	}

	c.JSON(http.StatusOK, dto.NewJobResponse(job))
}

func isPDFPart(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == pdfContentType
}
