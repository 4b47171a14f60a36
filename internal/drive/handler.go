package drive

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	source   FileSource
	importer *CatalogImporter
	// isBadRequest reports import errors caused by the caller's file or parameters.
	isBadRequest func(error) bool
}

func NewHandler(source FileSource, importer *CatalogImporter, isBadRequest func(error) bool) *Handler {
	if isBadRequest == nil {
		isBadRequest = func(error) bool { return false }
	}
	return &Handler{
		source:       source,
		importer:     importer,
		isBadRequest: isBadRequest,
	}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/drive/files", h.ListFiles).Methods(http.MethodGet)
	router.HandleFunc("/api/drive/catalog/import", h.ImportCatalog).Methods(http.MethodPost)
}

func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	folderID := query.Get("folderId")

	if folderPath := query.Get("path"); folderPath != "" {
		var err error
		folderID, err = h.source.FindFolderByPath(r.Context(), folderPath)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
	}

	files, err := h.source.ListFiles(r.Context(), folderID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, files)
}

// ImportCatalog imports fileId, or the newest catalog file under path, as shopId's catalog.
func (h *Handler) ImportCatalog(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	shopID := query.Get("shopId")
	fileID := query.Get("fileId")
	folderPath := query.Get("path")

	if shopID == "" {
		writeError(w, http.StatusBadRequest, "shopId parameter is required")
		return
	}
	if fileID == "" && folderPath == "" {
		writeError(w, http.StatusBadRequest, "fileId or path parameter is required")
		return
	}

	var (
		result *ImportResult
		err    error
	)
	if fileID != "" {
		result, err = h.importer.ImportFile(r.Context(), fileID, shopID)
	} else {
		result, err = h.importer.ImportLatest(r.Context(), folderPath, shopID)
	}
	if err != nil {
		status := statusFor(err)
		if h.isBadRequest(err) {
			status = http.StatusBadRequest
		}
		log.Warn().Err(err).Str("shop_id", shopID).Msg("drive catalog import failed")
		writeError(w, status, "catalog import failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrFolderNotFound), errors.Is(err, ErrNoCatalogFile):
		return http.StatusNotFound
	case errors.Is(err, ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("drive: encode response failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
