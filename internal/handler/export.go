package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/wyun/codeshare/internal/archive"
	"github.com/wyun/codeshare/internal/service"
)

// ExportHandler streams a share as a ZIP download.
type ExportHandler struct {
	service *service.ShareService
	logger  *slog.Logger
}

func NewExportHandler(svc *service.ShareService, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{service: svc, logger: logger}
}

// HandleDownload authorizes the read like a normal get, then streams the
// archive straight into the response. Once the first byte of the ZIP is
// out, errors can only be logged — the 200 and its headers are gone.
//
// GET /api/shares/{id}/download?pw=
func (h *ExportHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	share, err := h.service.Export(r.Context(), id, credential(r))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".zip"))

	if err := archive.Write(w, share); err != nil {
		h.logger.Error("failed to stream archive",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
	}
}
