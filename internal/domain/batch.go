package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

type ItemStatus string

const (
	StatusPending    ItemStatus = "pending"
	StatusProcessing ItemStatus = "processing"
	StatusDone       ItemStatus = "done"
	StatusError      ItemStatus = "error"
)

// BatchItem is one source photo in the session. Status only moves
// pending -> processing -> done|error; a new processing pass restarts
// the cycle and overwrites the prior outcome. OutputFormat records the
// format the stored result was encoded with, which may differ from the
// session settings by the time it is downloaded.
type BatchItem struct {
	ID           string
	Filename     string
	SourceData   []byte
	Status       ItemStatus
	OutputPath   string
	OutputFormat OutputFormat
	Error        string
	CreatedAt    time.Time
}

// Logo is the single shared watermark raster for the session. It is
// replaced wholesale and read-only while a batch pass runs.
type Logo struct {
	Name string
	Data []byte
}

type ItemFailure struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Error string `json:"error"`
}

// BatchReport aggregates a batch pass that had at least one failure.
// Failures are listed in item-submission order.
type BatchReport struct {
	Total    int           `json:"total"`
	Success  int           `json:"success"`
	Failures []ItemFailure `json:"failures"`
}

const ConfirmThreshold = 10

// DeliverableName builds the suggested download filename for a processed
// item: watermarked-<original-name-without-extension>.<ext-for-format>.
func DeliverableName(originalName string, format OutputFormat) string {
	base := strings.TrimSuffix(originalName, filepath.Ext(originalName))
	return fmt.Sprintf("watermarked-%s.%s", base, format.Extension())
}
