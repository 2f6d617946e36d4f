package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/duckmesh/duckprompt/internal/config"
	"github.com/duckmesh/duckprompt/internal/dataset"
	"github.com/duckmesh/duckprompt/internal/observability"
	"github.com/duckmesh/duckprompt/internal/storage"
)

const (
	uploadField          = "file"
	uploadSuccessMessage = "File uploaded and processed successfully."
	maxMultipartMemory   = 32 << 20
)

type uploadResponse struct {
	Message  string         `json:"message"`
	Filename string         `json:"filename"`
	Metadata uploadMetadata `json:"metadata"`
}

type uploadMetadata struct {
	ColumnNames []string `json:"column_names"`
}

type columnsResponse struct {
	DatasetID    string           `json:"dataset_id"`
	Format       dataset.Format   `json:"format"`
	ColumnNames  []string         `json:"column_names"`
	Columns      []dataset.Column `json:"columns"`
	NestedColumn string           `json:"nested_column,omitempty"`
}

func handleUpload(cfg config.Config, deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Datasets == nil || deps.Engine == nil || deps.Registry == nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "UPLOAD_UNAVAILABLE", "dataset upload is not configured", false, nil)
		return
	}
	if cfg.HTTP.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, cfg.HTTP.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(r.Context(), w, http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE", "uploaded file exceeds the size limit", false, map[string]any{"limit_bytes": tooLarge.Limit})
			return
		}
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_UPLOAD", "No file part", false, map[string]any{"details": err.Error()})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_UPLOAD", "No file part", false, nil)
		return
	}
	defer func() { _ = file.Close() }()
	if header.Filename == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_UPLOAD", "No selected file", false, nil)
		return
	}

	key, err := storage.BuildUploadPath(header.Filename)
	if err != nil {
		var unsupported *dataset.UnsupportedFormatError
		if errors.As(err, &unsupported) {
			writeError(r.Context(), w, http.StatusBadRequest, "UNSUPPORTED_FORMAT", err.Error(), false, map[string]any{
				"allowed_extensions": dataset.AllowedExtensions(),
			})
			return
		}
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_FILENAME", err.Error(), false, nil)
		return
	}

	staged := storage.StagingKey(key)
	if _, err := deps.Datasets.Put(r.Context(), staged, file, header.Size, storage.PutOptions{}); err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "STORAGE_ERROR", "File upload failed", true, map[string]any{"details": err.Error()})
		return
	}
	defer func() {
		if err := deps.Datasets.Delete(r.Context(), staged); err != nil && deps.Logger != nil {
			deps.Logger.Warn("remove staged upload failed", slog.String("key", staged), slog.Any("error", err))
		}
	}()

	// The dataset under key is only replaced once the new file has been read
	// successfully.
	columns, err := deps.Engine.Introspect(r.Context(), deps.Datasets.Location(staged))
	if err != nil {
		observability.IncrementIntrospectionFailure()
		writeError(r.Context(), w, http.StatusBadRequest, "INTROSPECTION_FAILED", "Upload failed", false, map[string]any{"details": err.Error()})
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "STORAGE_ERROR", "File upload failed", true, map[string]any{"details": err.Error()})
		return
	}
	if _, err := deps.Datasets.Put(r.Context(), key, file, header.Size, storage.PutOptions{}); err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "STORAGE_ERROR", "File upload failed", true, map[string]any{"details": err.Error()})
		return
	}
	location := deps.Datasets.Location(key)

	metadata, err := dataset.NewMetadata(location, columns)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "UNSUPPORTED_FORMAT", err.Error(), false, nil)
		return
	}
	if err := deps.Registry.Set(r.Context(), key, metadata); err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "REGISTRY_ERROR", "failed to store dataset metadata", true, map[string]any{"details": err.Error()})
		return
	}
	if deps.Logger != nil {
		deps.Logger.Info("dataset uploaded",
			slog.String("dataset_id", key),
			slog.String("location", location),
			slog.Int("columns", len(columns)),
		)
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Message:  uploadSuccessMessage,
		Filename: key,
		Metadata: uploadMetadata{ColumnNames: dataset.Descriptors(columns)},
	})
}

func handleColumns(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Registry == nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "REGISTRY_UNAVAILABLE", "dataset registry is not configured", false, nil)
		return
	}
	datasetID := r.PathValue("id")
	metadata, err := deps.Registry.Get(r.Context(), datasetID)
	if err != nil {
		if errors.Is(err, dataset.ErrNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "DATASET_NOT_FOUND", "File metadata not found", false, map[string]any{"dataset_id": datasetID})
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "REGISTRY_ERROR", "failed to load dataset metadata", true, map[string]any{"details": err.Error()})
		return
	}

	response := columnsResponse{
		DatasetID:   datasetID,
		Format:      metadata.Format,
		ColumnNames: dataset.Descriptors(metadata.Columns),
		Columns:     metadata.Columns,
	}
	if response.Columns == nil {
		response.Columns = []dataset.Column{}
	}
	if metadata.IsNested() {
		response.NestedColumn = metadata.PathNavigationColumn()
	}
	writeJSON(w, http.StatusOK, response)
}
