package handlers

import (
	"context"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/designwheel/engine/internal/api/types"
	"github.com/designwheel/engine/internal/services"
	"github.com/designwheel/engine/internal/storage"
	"github.com/designwheel/engine/internal/workflow"
	appErr "github.com/designwheel/engine/pkg/errors"
	"github.com/designwheel/engine/pkg/logger"
)

// multipart framing allowance on top of the file limit
const multipartOverhead = 1 << 20

// AssetsHandler serves uploads, asset content and annotations.
type AssetsHandler struct {
	projects  services.ProjectService
	store     storage.Store
	guard     projectGuard
	maxUpload int64
}

func NewAssetsHandler(projects services.ProjectService, store storage.Store, maxUpload int64) *AssetsHandler {
	return &AssetsHandler{projects: projects, store: store, guard: projectGuard{projects: projects}, maxUpload: maxUpload}
}

func assetRef(r *http.Request) (services.AssetRef, error) {
	stage, err := stageParam(r)
	if err != nil {
		return services.AssetRef{}, err
	}
	return services.AssetRef{
		ProjectID: chi.URLParam(r, "id"),
		Stage:     stage,
		OptionID:  chi.URLParam(r, "optionID"),
		AssetID:   chi.URLParam(r, "assetID"),
	}, nil
}

// Upload accepts a multipart form with a single "file" part.
func (h *AssetsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ref, err := assetRef(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.guard.check(r.Context(), ref.ProjectID, ownerOnly); err != nil {
		writeError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+multipartOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, appErr.Wrap(err, appErr.CodeInvalid, "multipart field \"file\" is required").WithMeta("field", "file"))
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
	if err != nil {
		writeError(w, r, appErr.Wrap(err, appErr.CodeInvalid, "read upload failed"))
		return
	}

	contentType := header.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mt
	} else {
		contentType = http.DetectContentType(data)
	}

	p, asset, err := h.projects.UploadAsset(r.Context(), ref.ProjectID, ref.Stage, ref.OptionID, &services.UploadInput{
		Name:        header.Filename,
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	url, err := h.store.URL(r.Context(), asset.Ref)
	if err != nil {
		logger.L().Warn("asset url unavailable", zap.String("ref", asset.Ref), zap.Error(err))
	}
	writeData(w, http.StatusCreated, map[string]any{"project": p, "asset": asset, "url": url})
}

func (h *AssetsHandler) Remove(w http.ResponseWriter, r *http.Request) {
	ref, err := assetRef(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.guard.check(r.Context(), ref.ProjectID, ownerOnly); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.projects.RemoveAsset(r.Context(), ref.ProjectID, ref.Stage, ref.OptionID, ref.AssetID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

// Content streams stored bytes addressed by their content reference.
func (h *AssetsHandler) Content(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "*")
	if !storage.ValidRef(ref) {
		writeError(w, r, appErr.New(appErr.CodeNotFound, "asset content not found"))
		return
	}
	rc, obj, err := h.store.Open(r.Context(), ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer rc.Close()
	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": obj.Name}))
	w.Header().Set("Cache-Control", "private, max-age=86400, immutable")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		logger.L().Warn("asset stream interrupted", zap.String("ref", ref), zap.Error(err))
	}
}

type annotationOp func(ctx context.Context, ref services.AssetRef) (*workflow.Project, error)

func (h *AssetsHandler) annotate(w http.ResponseWriter, r *http.Request, op annotationOp) {
	ref, err := assetRef(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.guard.check(r.Context(), ref.ProjectID, ownerOrInstructor); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := op(r.Context(), ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

func (h *AssetsHandler) AddAnnotation(w http.ResponseWriter, r *http.Request) {
	var req types.AnnotationRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.annotate(w, r, func(ctx context.Context, ref services.AssetRef) (*workflow.Project, error) {
		return h.projects.AddAnnotation(ctx, ref, req.Input())
	})
}

func (h *AssetsHandler) UpdateAnnotation(w http.ResponseWriter, r *http.Request) {
	var req types.AnnotationTextRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	annotationID := chi.URLParam(r, "annotationID")
	h.annotate(w, r, func(ctx context.Context, ref services.AssetRef) (*workflow.Project, error) {
		return h.projects.UpdateAnnotation(ctx, ref, annotationID, req.Text)
	})
}

func (h *AssetsHandler) RemoveAnnotation(w http.ResponseWriter, r *http.Request) {
	annotationID := chi.URLParam(r, "annotationID")
	h.annotate(w, r, func(ctx context.Context, ref services.AssetRef) (*workflow.Project, error) {
		return h.projects.RemoveAnnotation(ctx, ref, annotationID)
	})
}

func (h *AssetsHandler) ReplaceAnnotations(w http.ResponseWriter, r *http.Request) {
	var req types.ReplaceAnnotationsRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.annotate(w, r, func(ctx context.Context, ref services.AssetRef) (*workflow.Project, error) {
		return h.projects.ReplaceAnnotations(ctx, ref, req.Annotations)
	})
}
