package domain

import (
	"fmt"
	"time"
)

// IngestionStats accumulates metrics over one ingestion run. It is mutated
// only while the run is in flight and frozen by Finish.
type IngestionStats struct {
	FilesProcessed     int            `json:"files_processed"`
	FilesFailed        int            `json:"files_failed"`
	ChunksCreated      int            `json:"chunks_created"`
	ChunksDeduplicated int            `json:"chunks_deduplicated"`
	TotalCharacters    int            `json:"total_characters"`
	Categories         map[string]int `json:"categories"`
	Errors             []string       `json:"errors"`
	StartTime          time.Time      `json:"start_time"`
	EndTime            time.Time      `json:"end_time,omitzero"`
}

func NewIngestionStats() *IngestionStats {
	return &IngestionStats{
		Categories: make(map[string]int),
		StartTime:  time.Now(),
	}
}

func (s *IngestionStats) RecordFailure(path string, err error) {
	s.FilesFailed++
	s.Errors = append(s.Errors, fmt.Sprintf("%s: %v", path, err))
}

func (s *IngestionStats) Finish() {
	s.EndTime = time.Now()
}

func (s *IngestionStats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// DedupRatio is the share of produced chunks rejected as duplicates.
func (s *IngestionStats) DedupRatio() float64 {
	total := s.ChunksCreated + s.ChunksDeduplicated
	if total == 0 {
		return 0
	}
	return float64(s.ChunksDeduplicated) / float64(total)
}

// IngestionRun is a persisted record of one ingestion pass.
type IngestionRun struct {
	ID         string          `json:"id"`
	Root       string          `json:"root"`
	Status     string          `json:"status"`
	Stats      *IngestionStats `json:"stats,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at,omitzero"`
}

const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// IngestRequest is the queue message asking a worker to run ingestion.
type IngestRequest struct {
	RunID     string `json:"run_id"`
	Root      string `json:"root"`
	Recursive bool   `json:"recursive"`
}
