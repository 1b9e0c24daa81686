package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/edusuite/institution-admin/internal/activity"
	"github.com/edusuite/institution-admin/internal/spreadsheet"
)

// =============================================================================
// SPREADSHEET UPLOAD SERVICE
// =============================================================================
// Handles scheduled-activity spreadsheet uploads:
// - Reads .xlsx / .xls workbooks and maps institution headers
// - Normalizes rows (time serials, date serials, multi-date fan-out)
// - Imports records with natural-key deduplication
// - Real-time progress tracking via Redis

var ErrJobNotFound = errors.New("upload job not found")

const (
	// ProgressTTL keeps progress readable for a while after completion.
	ProgressTTL = 1 * time.Hour

	// progressUpdateFreq controls how often the importing phase writes
	// progress back to Redis.
	progressUpdateFreq = 50
)

// Phases of an upload job.
const (
	PhaseReading     = "reading"
	PhaseNormalizing = "normalizing"
	PhaseImporting   = "importing"
	PhaseCompleted   = "completed"
	PhaseFailed      = "failed"
)

// Progress tracks processing of one uploaded spreadsheet.
type Progress struct {
	JobID         string    `json:"job_id"`
	Filename      string    `json:"filename"`
	Phase         string    `json:"phase"`
	TotalRows     int       `json:"total_rows"`
	ProcessedRows int       `json:"processed_rows"`
	Inserted      int       `json:"inserted"`
	Duplicates    int       `json:"duplicates"`
	Invalid       int       `json:"invalid"`
	Errors        int       `json:"errors"`
	Messages      []string  `json:"messages,omitempty"`
	Error         string    `json:"error,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// UploadResult is returned to the caller once processing finishes.
type UploadResult struct {
	JobID           string                 `json:"job_id"`
	Filename        string                 `json:"filename"`
	SpreadsheetRows int                    `json:"spreadsheet_rows"`
	Report          *activity.ImportReport `json:"report"`
	DurationSeconds float64                `json:"duration_seconds"`
	CompletedAt     time.Time              `json:"completed_at"`
}

// UploadService reads spreadsheet uploads and imports the resulting
// activity records. A nil Redis client disables progress tracking.
type UploadService struct {
	importer *activity.Importer
	redis    *redis.Client
}

// NewUploadService creates an upload service backed by the given importer.
func NewUploadService(importer *activity.Importer, redisClient *redis.Client) *UploadService {
	return &UploadService{importer: importer, redis: redisClient}
}

// Process runs the full pipeline for one uploaded workbook and returns the
// final result. Progress is written to Redis under the returned job id.
func (s *UploadService) Process(ctx context.Context, data []byte, filename string) (*UploadResult, error) {
	jobID := uuid.New().String()
	started := time.Now()

	progress := &Progress{
		JobID:     jobID,
		Filename:  filename,
		Phase:     PhaseReading,
		StartedAt: started,
	}
	s.updateProgress(ctx, progress)

	rows, err := spreadsheet.ReadRows(data, filename)
	if err != nil {
		s.failProgress(ctx, progress, err)
		return nil, fmt.Errorf("read spreadsheet: %w", err)
	}

	progress.Phase = PhaseNormalizing
	progress.TotalRows = len(rows)
	s.updateProgress(ctx, progress)

	var records []activity.Activity
	for _, row := range rows {
		records = append(records, activity.Normalize(row)...)
	}

	progress.Phase = PhaseImporting
	progress.TotalRows = len(records)
	s.updateProgress(ctx, progress)

	report, err := s.importer.Import(ctx, records, func(done int, r *activity.ImportReport) {
		if done%progressUpdateFreq != 0 {
			return
		}
		progress.ProcessedRows = done
		progress.Inserted = r.Inserted
		progress.Duplicates = r.Duplicates
		progress.Invalid = r.Invalid
		progress.Errors = r.Errors
		s.updateProgress(ctx, progress)
	})
	if err != nil {
		s.failProgress(ctx, progress, err)
		return nil, err
	}

	progress.Phase = PhaseCompleted
	progress.ProcessedRows = report.Total
	progress.Inserted = report.Inserted
	progress.Duplicates = report.Duplicates
	progress.Invalid = report.Invalid
	progress.Errors = report.Errors
	progress.Messages = report.Messages
	s.updateProgress(ctx, progress)

	duration := time.Since(started)
	log.Printf("[Upload] Job %s (%s): %d spreadsheet rows, %d records, %d inserted, %d duplicates in %.2fs",
		jobID, filename, len(rows), report.Total, report.Inserted, report.Duplicates, duration.Seconds())

	return &UploadResult{
		JobID:           jobID,
		Filename:        filename,
		SpreadsheetRows: len(rows),
		Report:          report,
		DurationSeconds: duration.Seconds(),
		CompletedAt:     time.Now(),
	}, nil
}

// GetProgress retrieves progress for an upload job.
func (s *UploadService) GetProgress(ctx context.Context, jobID string) (*Progress, error) {
	if s.redis == nil {
		return nil, ErrJobNotFound
	}
	data, err := s.redis.Get(ctx, s.progressKey(jobID)).Bytes()
	if err == redis.Nil {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}

	var progress Progress
	if err := json.Unmarshal(data, &progress); err != nil {
		return nil, err
	}
	return &progress, nil
}

func (s *UploadService) progressKey(jobID string) string {
	return fmt.Sprintf("upload:progress:%s", jobID)
}

func (s *UploadService) updateProgress(ctx context.Context, progress *Progress) {
	if s.redis == nil {
		return
	}
	progress.UpdatedAt = time.Now()
	data, _ := json.Marshal(progress)
	s.redis.Set(ctx, s.progressKey(progress.JobID), data, ProgressTTL)
}

func (s *UploadService) failProgress(ctx context.Context, progress *Progress, err error) {
	progress.Phase = PhaseFailed
	progress.Error = err.Error()
	s.updateProgress(ctx, progress)
}
