package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	apierrors "github.com/okazaki/taskdesk/internal/errors"
	"github.com/okazaki/taskdesk/internal/middleware"
	"github.com/okazaki/taskdesk/internal/services"
)

// utf8BOM makes exported files open cleanly in spreadsheet tools.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// TransferHandler coordinates the CSV import/export HTTP handlers.
type TransferHandler struct {
	transferService *services.TransferService
}

// NewTransferHandler creates a new TransferHandler
func NewTransferHandler(transferService *services.TransferService) *TransferHandler {
	return &TransferHandler{
		transferService: transferService,
	}
}

// ExportTasks streams the caller's visible tasks as a CSV download. With
// ?open=1 the file is served inline instead of as an attachment.
func (h *TransferHandler) ExportTasks(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var buf bytes.Buffer
	buf.Write(utf8BOM)
	if err := h.transferService.Export(user, &buf); err != nil {
		apierrors.InternalError(c, "Failed to export tasks")
		return
	}

	filename := fmt.Sprintf("tasks_%s.csv", time.Now().Format("20060102_150405"))
	disposition := "attachment"
	if c.Query("open") == "1" {
		disposition = "inline"
	}
	c.Header("Content-Disposition", fmt.Sprintf(`%s; filename="%s"`, disposition, filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// ImportTasks bulk-creates tasks from an uploaded CSV file. Row problems are
// reported in the response, not as request failures.
func (h *TransferHandler) ImportTasks(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		apierrors.BadRequest(c, "A CSV file upload named 'file' is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		apierrors.BadRequest(c, "Could not read the uploaded file")
		return
	}
	defer file.Close()

	result, err := h.transferService.Import(user, file)
	if err != nil {
		if errors.Is(err, services.ErrNoHeaderRow) {
			apierrors.BadRequest(c, err.Error())
			return
		}
		apierrors.InternalError(c, "Failed to import tasks")
		return
	}

	c.JSON(http.StatusOK, result)
}
