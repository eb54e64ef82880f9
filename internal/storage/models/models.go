package models

import "time"

type QueryRecord struct {
	ID             string
	UserID         string
	Role           string
	QueryText      string
	Answer         string
	Confidence     float64
	ConfidenceTier string
	SourceCount    int
	LatencyMS      int
	CreatedAt      time.Time
}

type QuerySource struct {
	ID         int
	QueryID    string
	SourceType string
	SourceID   string
	Title      string
	Relevance  float64
}

// ValidationSample is a ticket picked by the offline sampling process for
// human review of its extracted entities and relationships.
type ValidationSample struct {
	SampleID     int64
	TicketID     int64
	TicketNumber string
	Validated    bool
	ValidatedBy  string
	ValidatedAt  *time.Time
}

// EntityValidation holds one machine-extracted entity awaiting a human
// judgment. IsCorrect stays nil until the first judgment and can only move
// between true and false afterwards.
type EntityValidation struct {
	ValidationID        int64
	SampleID            int64
	EntityType          string
	EntityText          string
	ExtractedConfidence float64
	IsCorrect           *bool
	ShouldBeType        string
	Notes               string
	ValidatedAt         *time.Time
}

type RelationshipValidation struct {
	ValidationID        int64
	SampleID            int64
	SourceEntity        string
	EdgeType            string
	TargetEntity        string
	ExtractedConfidence float64
	IsCorrect           *bool
	Notes               string
	ValidatedAt         *time.Time
}
