package storage

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrTerminal is returned when a write targets a contract that already
	// reached completed or error.
	ErrTerminal = errors.New("contract already terminal")
)

// Contract processing statuses.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// Contract is the stored record of one uploaded document.
type Contract struct {
	ID              string
	FileName        string
	BlobKey         string
	FileSize        int64
	UploadedAt      time.Time
	Status          string
	Progress        int
	ProgressMessage string
	ErrorMessage    string
	ExtractedData   json.RawMessage // nil until completed
	IdentifiedGaps  []string
	GapsCount       int
	SearchContent   string
	UpdatedAt       time.Time
}

// Terminal reports whether the contract finished processing.
func (c Contract) Terminal() bool {
	return c.Status == StatusCompleted || c.Status == StatusError
}

// Completion is the terminal success write for a contract.
type Completion struct {
	ExtractedData  json.RawMessage
	IdentifiedGaps []string
	SearchContent  string
	Message        string
}

// Sort keys accepted by ListContracts.
const (
	SortUploadedAt = "upload_timestamp"
	SortFileName   = "file_name"
	SortStatus     = "processing_status"
)

// ContractQuery filters, sorts and pages ListContracts. Zero values mean
// "no filter".
type ContractQuery struct {
	Page int // 1-based
	Size int

	Search           []string // every token must occur in the search content
	Status           string
	From, To         time.Time // inclusive bounds on upload time
	FileNameContains string

	SortBy   string
	SortDesc bool
}

// ContractPage is one page of ListContracts results.
type ContractPage struct {
	Items []Contract
	Total int
	Page  int
	Size  int
}

type Job struct {
	ID          string
	Type        string
	PayloadJSON string
	Status      string // "pending", "running", "completed", "failed"
	Attempts    int
	MaxAttempts int
	RunAfter    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastError   string
}
