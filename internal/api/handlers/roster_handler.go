package handlers

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/designwheel/engine/internal/api/middleware"
	"github.com/designwheel/engine/internal/api/types"
	"github.com/designwheel/engine/internal/services"
	appErr "github.com/designwheel/engine/pkg/errors"
	"github.com/designwheel/engine/pkg/logger"
)

const maxAllowListBody = 4 << 20

// RosterHandler serves the instructor roster and the student's own profile.
type RosterHandler struct {
	directory services.DirectoryService
	export    services.ExportService
	now       func() time.Time
}

func NewRosterHandler(directory services.DirectoryService, export services.ExportService) *RosterHandler {
	return &RosterHandler{directory: directory, export: export, now: time.Now}
}

func (h *RosterHandler) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.directory.ListUsers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, users)
}

func (h *RosterHandler) AllowList(w http.ResponseWriter, r *http.Request) {
	ids, err := h.directory.AllowList(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: ids, Meta: &types.Meta{Total: int64(len(ids))}})
}

// ImportAllowList accepts a JSON {"ids": "..."} body, a multipart "file"
// part, or the raw text/csv blob as the body.
func (h *RosterHandler) ImportAllowList(w http.ResponseWriter, r *http.Request) {
	raw, err := h.readAllowList(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.directory.ImportAllowList(r.Context(), raw)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, res)
}

func (h *RosterHandler) readAllowList(w http.ResponseWriter, r *http.Request) (string, error) {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mt {
	case "application/json":
		var req types.AllowListRequest
		if err := decode(w, r, &req); err != nil {
			return "", err
		}
		return req.IDs, nil
	case "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, maxAllowListBody)
		file, _, err := r.FormFile("file")
		if err != nil {
			return "", appErr.Wrap(err, appErr.CodeInvalid, "multipart field \"file\" is required").WithMeta("field", "file")
		}
		defer file.Close()
		b, err := io.ReadAll(file)
		if err != nil {
			return "", appErr.Wrap(err, appErr.CodeInvalid, "read upload failed")
		}
		return string(b), nil
	default:
		b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAllowListBody))
		if err != nil {
			return "", appErr.Wrap(err, appErr.CodeInvalid, "read body failed")
		}
		return string(b), nil
	}
}

// Export downloads the results sheet. The CSV is built in memory so a failure
// still yields a JSON error instead of a truncated file.
func (h *RosterHandler) Export(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.export.WriteResultsCSV(r.Context(), &buf); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": h.export.Filename(h.now())}))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logger.L().Warn("export write interrupted", zap.Error(err))
	}
}

func (h *RosterHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.directory.GetProfile(r.Context(), middleware.GetClaims(r.Context()).StudentID())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, u)
}

func (h *RosterHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req types.ProfilePatchRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.directory.UpdateProfile(r.Context(), middleware.GetClaims(r.Context()).StudentID(), &services.ProfilePatch{
		Name:   req.Name,
		Email:  req.Email,
		Avatar: req.Avatar,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, u)
}
