package batch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"watermark-studio/internal/domain"
	"watermark-studio/internal/http-server/handler/batch/dto"
	"watermark-studio/internal/orchestrator"
	"watermark-studio/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/wb-go/wbf/zlog"
)

const maxMemory = 32 << 20

type BatchHandler struct {
	orch     batchOrchestrator
	logoGen  logoGenerator
	store    storage.ObjectStore
	validate *validator.Validate
	logger   *zlog.Zerolog

	maxUploadBytes int64
}

func NewBatchHandler(orch batchOrchestrator, logoGen logoGenerator, store storage.ObjectStore, maxUploadBytes int64, logger *zlog.Zerolog) *BatchHandler {
	return &BatchHandler{
		orch:           orch,
		logoGen:        logoGen,
		store:          store,
		validate:       validator.New(),
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

// AddItems accepts one or more source photos under the "files" form field,
// in selection order.
func (h *BatchHandler) AddItems(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to parse multipart form")
		h.respondError(w, http.StatusBadRequest, "Invalid request format", nil)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		h.respondError(w, http.StatusBadRequest, "At least one file is required", nil)
		return
	}

	// Validate and read every file before touching the session, so one bad
	// upload never leaves a partial add behind.
	for _, header := range files {
		if err := h.validateFile(header); err != nil {
			h.respondError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
	}

	contents := make([][]byte, 0, len(files))
	for _, header := range files {
		data, err := readUpload(header)
		if err != nil {
			h.logger.Error().Err(err).Str("filename", header.Filename).Msg("Failed to read file")
			h.respondError(w, http.StatusInternalServerError, "Failed to read file", err)
			return
		}
		contents = append(contents, data)
	}

	added := make([]dto.ItemResponse, 0, len(files))
	for i, header := range files {
		item := h.orch.AddItem(header.Filename, contents[i])
		added = append(added, toItemResponse(item))
	}

	h.respondJSON(w, http.StatusCreated, dto.ItemsResponse{Items: added})
}

func (h *BatchHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items := h.orch.Items()
	resp := dto.ItemsResponse{Items: make([]dto.ItemResponse, 0, len(items))}
	for _, it := range items {
		resp.Items = append(resp.Items, toItemResponse(it))
	}
	h.respondJSON(w, http.StatusOK, resp)
}

func (h *BatchHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.respondError(w, http.StatusBadRequest, "Item ID is required", nil)
		return
	}

	if err := h.orch.RemoveItem(id); err != nil {
		if errors.Is(err, orchestrator.ErrItemNotFound) {
			h.respondError(w, http.StatusNotFound, "Item not found", nil)
			return
		}
		h.logger.Error().Err(err).Str("item_id", id).Msg("Failed to remove item")
		h.respondError(w, http.StatusInternalServerError, "Failed to remove item", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *BatchHandler) ResetBatch(w http.ResponseWriter, r *http.Request) {
	h.orch.Reset()
	w.WriteHeader(http.StatusNoContent)
}

// SetLogo replaces the session logo with the uploaded file.
func (h *BatchHandler) SetLogo(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request format", nil)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "File is required", nil)
		return
	}
	defer file.Close()

	if err := h.validateFile(header); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error().Err(err).Str("filename", header.Filename).Msg("Failed to read logo")
		h.respondError(w, http.StatusInternalServerError, "Failed to read file", err)
		return
	}

	if err := h.orch.SetLogo(header.Filename, data); err != nil {
		h.logger.Warn().Err(err).Str("filename", header.Filename).Msg("Logo rejected")
		h.respondError(w, http.StatusUnprocessableEntity, "Logo could not be decoded", err)
		return
	}

	h.respondJSON(w, http.StatusOK, dto.LogoResponse{Name: header.Filename})
}

// SetLogoText renders a text mark into a transparent raster and installs it
// as the session logo.
func (h *BatchHandler) SetLogoText(w http.ResponseWriter, r *http.Request) {
	var req dto.LogoTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON body", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Text must be 1-64 characters", nil)
		return
	}

	img, err := h.logoGen.FromText(req.Text)
	if err != nil {
		h.logger.Error().Err(err).Str("text", req.Text).Msg("Failed to render text logo")
		h.respondError(w, http.StatusInternalServerError, "Failed to render text logo", err)
		return
	}

	data, err := encodePNG(img)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode text logo")
		h.respondError(w, http.StatusInternalServerError, "Failed to encode text logo", err)
		return
	}

	name := fmt.Sprintf("text-%s.png", sanitizeName(req.Text))
	if err := h.orch.SetLogo(name, data); err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to set logo", err)
		return
	}

	h.respondJSON(w, http.StatusOK, dto.LogoResponse{Name: name})
}

func (h *BatchHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.orch.Settings())
}

func (h *BatchHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var s domain.WatermarkSettings
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON body", nil)
		return
	}

	if err := h.orch.UpdateSettings(s); err != nil {
		h.respondError(w, http.StatusBadRequest, "Settings out of range", err)
		return
	}

	h.respondJSON(w, http.StatusOK, s)
}

// Process runs a full batch pass. Batches above the confirmation threshold
// require confirm=true; without it nothing is started.
func (h *BatchHandler) Process(w http.ResponseWriter, r *http.Request) {
	confirmed := r.URL.Query().Get("confirm") == "true"

	report, err := h.orch.ProcessBatch(r.Context(), confirmed)
	if err != nil {
		h.handleProcessError(w, err)
		return
	}

	if report == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.respondJSON(w, http.StatusOK, report)
}

func (h *BatchHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	item, err := h.orch.Item(id)
	if err != nil {
		h.respondError(w, http.StatusNotFound, "Item not found", nil)
		return
	}
	if item.Status != domain.StatusDone || item.OutputPath == "" {
		h.respondError(w, http.StatusConflict, "Item has no processed result", nil)
		return
	}

	reader, err := h.store.Get(r.Context(), item.OutputPath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			h.respondError(w, http.StatusNotFound, "Result no longer available", nil)
			return
		}
		h.logger.Error().Err(err).Str("item_id", id).Msg("Failed to fetch result")
		h.respondError(w, http.StatusInternalServerError, "Failed to fetch result", err)
		return
	}
	defer reader.Close()

	// The stored object keeps the format it was encoded with; the session
	// settings may have moved on since the batch ran.
	filename := domain.DeliverableName(item.Filename, item.OutputFormat)
	w.Header().Set("Content-Type", item.OutputFormat.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if _, err := io.Copy(w, reader); err != nil {
		h.logger.Error().Err(err).Str("item_id", id).Msg("Failed to stream result")
	}
}

// SelectPreview makes an item the active preview target and schedules a
// recompute.
func (h *BatchHandler) SelectPreview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.orch.SelectItem(id); err != nil {
		if errors.Is(err, orchestrator.ErrItemNotFound) {
			h.respondError(w, http.StatusNotFound, "Item not found", nil)
			return
		}
		h.respondError(w, http.StatusInternalServerError, "Failed to select item", err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// GetPreview serves the newest applied preview. 202 while a fresher render
// is pending and nothing has been applied yet; 422 when the last recompute
// failed.
func (h *BatchHandler) GetPreview(w http.ResponseWriter, r *http.Request) {
	result, pending := h.orch.PreviewResult()
	if result == nil {
		if pending {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		h.respondError(w, http.StatusNotFound, "No preview available", nil)
		return
	}

	if result.Err != nil {
		h.respondError(w, http.StatusUnprocessableEntity, "Preview failed", result.Err)
		return
	}

	w.Header().Set("Content-Type", result.Format.ContentType())
	if pending {
		w.Header().Set("X-Preview-Stale", "true")
	}
	if _, err := w.Write(result.Data); err != nil {
		h.logger.Error().Err(err).Msg("Failed to write preview")
	}
}

func (h *BatchHandler) handleProcessError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orchestrator.ErrConfirmationRequired):
		h.respondJSON(w, http.StatusConflict, dto.ErrorResponse{
			Error:   "confirmation_required",
			Message: fmt.Sprintf("Batch exceeds %d items; repeat with confirm=true", domain.ConfirmThreshold),
		})
	case errors.Is(err, orchestrator.ErrNoLogo):
		h.respondError(w, http.StatusConflict, "Set a logo before processing", nil)
	case errors.Is(err, orchestrator.ErrNoItems):
		h.respondError(w, http.StatusConflict, "Add at least one photo before processing", nil)
	case errors.Is(err, orchestrator.ErrBatchRunning):
		h.respondError(w, http.StatusConflict, "A batch pass is already running", nil)
	default:
		h.logger.Error().Err(err).Msg("Batch processing failed")
		h.respondError(w, http.StatusInternalServerError, "Batch processing failed", err)
	}
}

func (h *BatchHandler) validateFile(header *multipart.FileHeader) error {
	if header.Size > h.maxUploadBytes {
		return fmt.Errorf("File is too large (max %d MB)", h.maxUploadBytes/(1024*1024))
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		return fmt.Errorf("Unsupported file format. Allowed: jpg, jpeg, png, gif, webp, bmp")
	}

	contentType := header.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		return fmt.Errorf("File must be an image")
	}

	return nil
}

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func toItemResponse(item domain.BatchItem) dto.ItemResponse {
	return dto.ItemResponse{
		ID:        item.ID,
		Filename:  item.Filename,
		Status:    string(item.Status),
		Error:     item.Error,
		CreatedAt: item.CreatedAt,
	}
}

func sanitizeName(text string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, text)
	if len(mapped) > 24 {
		mapped = mapped[:24]
	}
	return mapped
}

func (h *BatchHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *BatchHandler) respondError(w http.ResponseWriter, status int, message string, err error) {
	response := dto.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	}
	if err != nil {
		response.Details = err.Error()
	}
	h.respondJSON(w, status, response)
}

func encodePNG(img image.Image) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
