package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kalambet/contractd/internal/blob"
	"github.com/kalambet/contractd/internal/document"
	"github.com/kalambet/contractd/internal/ingest"
	"github.com/kalambet/contractd/internal/storage"
)

// UploadResponse is returned by POST /upload.
type UploadResponse struct {
	ContractID string `json:"contract_id"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

// StatusResponse is returned by GET /{id}/status.
type StatusResponse struct {
	ContractID      string  `json:"contract_id"`
	Status          string  `json:"status"`
	ProgressPercent int     `json:"progress_percentage"`
	ProgressMessage string  `json:"progress_message"`
	ErrorMessage    *string `json:"error_message"`
}

// ContractDataResponse is returned by GET /{id} for completed contracts.
type ContractDataResponse struct {
	ContractID      string          `json:"contract_id"`
	FileName        string          `json:"file_name"`
	Status          string          `json:"processing_status"`
	ExtractedData   json.RawMessage `json:"extracted_data"`
	IdentifiedGaps  []string        `json:"identified_gaps"`
	UploadTimestamp time.Time       `json:"upload_timestamp"`
}

// ContractSummary is one row of the list response.
type ContractSummary struct {
	ContractID      string    `json:"contract_id"`
	FileName        string    `json:"file_name"`
	UploadTimestamp time.Time `json:"upload_timestamp"`
	Status          string    `json:"processing_status"`
	GapsCount       int       `json:"gaps_count"`
	FileSize        int64     `json:"file_size"`
}

// ContractListResponse is returned by GET /.
type ContractListResponse struct {
	TotalItems int               `json:"total_items"`
	Items      []ContractSummary `json:"items"`
	Page       int               `json:"page"`
	Size       int               `json:"size"`
}

func newStatusResponse(c storage.Contract) StatusResponse {
	resp := StatusResponse{
		ContractID:      c.ID,
		Status:          c.Status,
		ProgressPercent: c.Progress,
		ProgressMessage: c.ProgressMessage,
	}
	if c.ErrorMessage != "" {
		resp.ErrorMessage = &c.ErrorMessage
	}
	return resp
}

func handleUpload(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, deps.MaxUploadSize)
		defer r.Body.Close()

		file, hdr, err := r.FormFile("file")
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "multipart field \"file\" is required: %v", err)
			return
		}
		defer file.Close()

		if mt, _, _ := mime.ParseMediaType(hdr.Header.Get("Content-Type")); mt != "application/pdf" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "Invalid file type. Only PDFs are accepted.")
			return
		}
		pages, err := document.Validate(file)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "could not read upload: %v", err)
			return
		}

		id := uuid.New().String()
		key := blob.Key(id)
		if err := deps.Blobs.Put(r.Context(), key, file, hdr.Size, "application/pdf"); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "Could not save file: %v", err)
			return
		}

		err = deps.Store.CreateContract(storage.Contract{
			ID:       id,
			FileName: hdr.Filename,
			BlobKey:  key,
			FileSize: hdr.Size,
		})
		if err != nil {
			deps.Blobs.Delete(r.Context(), key)
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save contract: %v", err)
			return
		}

		if _, err := ingest.Enqueue(deps.Store, id); err != nil {
			if failErr := deps.Store.FailContract(id, ingest.MsgFailed, "An error occurred: "+err.Error()); failErr != nil {
				deps.Logger.Error("failed to record contract failure", "contract_id", id, "error", failErr)
			}
			httpError(w, http.StatusInternalServerError, "api_error", "failed to queue contract: %v", err)
			return
		}

		deps.Logger.Info("contract uploaded", "contract_id", id, "file_name", hdr.Filename, "pages", pages, "bytes", hdr.Size)
		writeJSON(w, http.StatusAccepted, UploadResponse{
			ContractID: id,
			Status:     storage.StatusProcessing,
			Message:    "Contract uploaded successfully.",
		})
	}
}

// loadContract writes a 404 or 500 and returns false when the contract in
// the URL cannot be loaded.
func loadContract(w http.ResponseWriter, r *http.Request, deps Deps) (storage.Contract, bool) {
	c, err := deps.Store.GetContract(chi.URLParam(r, "id"))
	if errors.Is(err, storage.ErrNotFound) {
		httpError(w, http.StatusNotFound, "not_found", "Contract not found")
		return c, false
	}
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "failed to get contract: %v", err)
		return c, false
	}
	return c, true
}

func handleContractStatus(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := loadContract(w, r, deps)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, newStatusResponse(c))
	}
}

func handleGetContract(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := loadContract(w, r, deps)
		if !ok {
			return
		}

		switch c.Status {
		case storage.StatusProcessing:
			httpError(w, http.StatusUnprocessableEntity, "invalid_state",
				"Contract is still being processed. Please check the status endpoint.")
		case storage.StatusError:
			httpError(w, http.StatusConflict, "invalid_state",
				"Processing failed for this contract. Error: %s", c.ErrorMessage)
		case storage.StatusCompleted:
			gaps := c.IdentifiedGaps
			if gaps == nil {
				gaps = []string{}
			}
			writeJSON(w, http.StatusOK, ContractDataResponse{
				ContractID:      c.ID,
				FileName:        c.FileName,
				Status:          c.Status,
				ExtractedData:   c.ExtractedData,
				IdentifiedGaps:  gaps,
				UploadTimestamp: c.UploadedAt,
			})
		default:
			httpError(w, http.StatusInternalServerError, "api_error", "Contract is in an unknown state: %s", c.Status)
		}
	}
}

func handleListContracts(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := parseContractQuery(r)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		page, err := deps.Store.ListContracts(q)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list contracts: %v", err)
			return
		}

		resp := ContractListResponse{
			TotalItems: page.Total,
			Items:      make([]ContractSummary, len(page.Items)),
			Page:       page.Page,
			Size:       page.Size,
		}
		for i, c := range page.Items {
			resp.Items[i] = ContractSummary{
				ContractID:      c.ID,
				FileName:        c.FileName,
				UploadTimestamp: c.UploadedAt,
				Status:          c.Status,
				GapsCount:       c.GapsCount,
				FileSize:        c.FileSize,
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleDownload(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := loadContract(w, r, deps)
		if !ok {
			return
		}

		rc, err := deps.Blobs.Open(r.Context(), c.BlobKey)
		if errors.Is(err, blob.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "File not found on the server. It may have been moved or deleted.")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to open file: %v", err)
			return
		}
		defer rc.Close()

		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": c.FileName}))
		if c.FileSize > 0 {
			w.Header().Set("Content-Length", strconv.FormatInt(c.FileSize, 10))
		}
		if _, err := io.Copy(w, rc); err != nil {
			deps.Logger.Warn("download interrupted", "contract_id", c.ID, "error", err)
		}
	}
}

func handleExport(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := parseContractQuery(r)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		data, err := deps.Exporter.ContractsXLSX(r.Context(), q)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "export failed: %v", err)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="contracts.xlsx"`)
		w.Write(data)
	}
}

// parseContractQuery reads list filters from the query string. Dates accept
// RFC 3339 or YYYY-MM-DD; a date-only end_date covers the whole day.
func parseContractQuery(r *http.Request) (storage.ContractQuery, error) {
	v := r.URL.Query()
	q := storage.ContractQuery{
		Page:             1,
		Size:             10,
		Status:           v.Get("status"),
		FileNameContains: v.Get("file_name_contains"),
		Search:           strings.Fields(v.Get("q")),
		SortBy:           storage.SortUploadedAt,
		SortDesc:         true,
	}

	var err error
	if s := v.Get("page"); s != "" {
		if q.Page, err = strconv.Atoi(s); err != nil || q.Page < 1 {
			return q, fmt.Errorf("page must be an integer >= 1")
		}
	}
	if s := v.Get("size"); s != "" {
		if q.Size, err = strconv.Atoi(s); err != nil || q.Size < 1 || q.Size > 100 {
			return q, fmt.Errorf("size must be an integer between 1 and 100")
		}
	}
	if s := v.Get("start_date"); s != "" {
		if q.From, _, err = parseDate(s); err != nil {
			return q, fmt.Errorf("start_date: %w", err)
		}
	}
	if s := v.Get("end_date"); s != "" {
		t, dateOnly, err := parseDate(s)
		if err != nil {
			return q, fmt.Errorf("end_date: %w", err)
		}
		if dateOnly {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		q.To = t
	}

	if s := v.Get("sort_by"); s != "" {
		switch s {
		case storage.SortUploadedAt, storage.SortFileName, storage.SortStatus:
			q.SortBy = s
		default:
			return q, fmt.Errorf("invalid sort_by field %q, allowed: %s, %s, %s",
				s, storage.SortUploadedAt, storage.SortFileName, storage.SortStatus)
		}
	}
	order := v.Get("sort_order")
	q.SortDesc = order == "" || strings.EqualFold(order, "desc")
	return q, nil
}

func parseDate(s string) (t time.Time, dateOnly bool, err error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	t, err = time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid date %q", s)
	}
	return t, true, nil
}
