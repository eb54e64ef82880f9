package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/helpdesk-assist/backend/internal/storage/models"
	"github.com/helpdesk-assist/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

// InitSchema creates the tables this service owns. The validation tables
// are NOT created here: they belong to the offline sampling process and
// their presence is probed at runtime instead.
func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS query_history (
		id TEXT PRIMARY KEY,
		user_id TEXT,
		role TEXT NOT NULL,
		query_text TEXT NOT NULL,
		answer TEXT,
		confidence REAL,
		confidence_tier TEXT,
		source_count INTEGER,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_query_user ON query_history(user_id);
	CREATE INDEX IF NOT EXISTS idx_query_created ON query_history(created_at);

	CREATE TABLE IF NOT EXISTS query_sources (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query_id TEXT NOT NULL,
		source_type TEXT NOT NULL,
		source_id TEXT,
		title TEXT,
		relevance REAL,
		FOREIGN KEY (query_id) REFERENCES query_history(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_sources_query ON query_sources(query_id);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

// InitValidationSchema creates the three review tables. In production the
// offline sampling process owns these; this exists for tooling and tests.
func (c *Client) InitValidationSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS validation_samples (
		sample_id INTEGER PRIMARY KEY AUTOINCREMENT,
		ticket_id INTEGER NOT NULL,
		ticket_number TEXT NOT NULL,
		validated INTEGER NOT NULL DEFAULT 0,
		validated_by TEXT,
		validated_at INTEGER
	);

	CREATE TABLE IF NOT EXISTS entity_validations (
		validation_id INTEGER PRIMARY KEY AUTOINCREMENT,
		sample_id INTEGER NOT NULL,
		entity_type TEXT NOT NULL,
		entity_text TEXT NOT NULL,
		extracted_confidence REAL,
		is_correct INTEGER,
		should_be_type TEXT,
		notes TEXT,
		validated_at INTEGER,
		FOREIGN KEY (sample_id) REFERENCES validation_samples(sample_id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_entity_sample ON entity_validations(sample_id);

	CREATE TABLE IF NOT EXISTS relationship_validations (
		validation_id INTEGER PRIMARY KEY AUTOINCREMENT,
		sample_id INTEGER NOT NULL,
		source_entity TEXT NOT NULL,
		edge_type TEXT NOT NULL,
		target_entity TEXT NOT NULL,
		extracted_confidence REAL,
		is_correct INTEGER,
		notes TEXT,
		validated_at INTEGER,
		FOREIGN KEY (sample_id) REFERENCES validation_samples(sample_id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_relationship_sample ON relationship_validations(sample_id);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize validation schema: %w", err)
	}

	return nil
}

// HasValidationSchema reports whether all three validation tables exist.
func (c *Client) HasValidationSchema() (bool, error) {
	query := `
		SELECT count(*) FROM sqlite_master
		WHERE type = 'table'
		  AND name IN ('validation_samples', 'entity_validations', 'relationship_validations')
	`

	var count int
	if err := c.db.QueryRow(query).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to probe validation schema: %w", err)
	}

	return count == 3, nil
}

func (c *Client) InsertQueryRecord(record *models.QueryRecord) error {
	query := `
		INSERT INTO query_history (id, user_id, role, query_text, answer, confidence,
			confidence_tier, source_count, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		record.ID,
		record.UserID,
		record.Role,
		record.QueryText,
		record.Answer,
		record.Confidence,
		record.ConfidenceTier,
		record.SourceCount,
		record.LatencyMS,
		record.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert query record: %w", err)
	}

	logger.Debug("Query recorded",
		zap.String("query_id", record.ID),
		zap.Float64("confidence", record.Confidence),
	)

	return nil
}

func (c *Client) InsertQuerySource(source *models.QuerySource) error {
	query := `INSERT INTO query_sources (query_id, source_type, source_id, title, relevance) VALUES (?, ?, ?, ?, ?)`

	_, err := c.db.Exec(
		query,
		source.QueryID,
		source.SourceType,
		source.SourceID,
		source.Title,
		source.Relevance,
	)

	if err != nil {
		return fmt.Errorf("failed to insert query source: %w", err)
	}

	return nil
}

type DayCount struct {
	Day   string
	Count int
}

func (c *Client) QueryCountsByDay(days int) ([]DayCount, error) {
	query := `
		SELECT date(created_at, 'unixepoch') AS day, count(*)
		FROM query_history
		WHERE created_at >= ?
		GROUP BY day
		ORDER BY day DESC
	`

	since := time.Now().UTC().AddDate(0, 0, -days).Unix()

	rows, err := c.db.Query(query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get query counts: %w", err)
	}
	defer rows.Close()

	var counts []DayCount
	for rows.Next() {
		var dc DayCount
		if err := rows.Scan(&dc.Day, &dc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		counts = append(counts, dc)
	}

	return counts, rows.Err()
}

func (c *Client) InsertValidationSample(sample *models.ValidationSample) (int64, error) {
	query := `INSERT INTO validation_samples (ticket_id, ticket_number, validated) VALUES (?, ?, 0)`

	res, err := c.db.Exec(query, sample.TicketID, sample.TicketNumber)
	if err != nil {
		return 0, fmt.Errorf("failed to insert validation sample: %w", err)
	}

	return res.LastInsertId()
}

func (c *Client) InsertEntityValidation(v *models.EntityValidation) (int64, error) {
	query := `
		INSERT INTO entity_validations (sample_id, entity_type, entity_text, extracted_confidence)
		VALUES (?, ?, ?, ?)
	`

	res, err := c.db.Exec(query, v.SampleID, v.EntityType, v.EntityText, v.ExtractedConfidence)
	if err != nil {
		return 0, fmt.Errorf("failed to insert entity validation: %w", err)
	}

	return res.LastInsertId()
}

func (c *Client) InsertRelationshipValidation(v *models.RelationshipValidation) (int64, error) {
	query := `
		INSERT INTO relationship_validations (sample_id, source_entity, edge_type, target_entity, extracted_confidence)
		VALUES (?, ?, ?, ?, ?)
	`

	res, err := c.db.Exec(query, v.SampleID, v.SourceEntity, v.EdgeType, v.TargetEntity, v.ExtractedConfidence)
	if err != nil {
		return 0, fmt.Errorf("failed to insert relationship validation: %w", err)
	}

	return res.LastInsertId()
}

func (c *Client) CountSamples() (total int, validated int, err error) {
	query := `SELECT count(*), coalesce(sum(validated), 0) FROM validation_samples`

	if err := c.db.QueryRow(query).Scan(&total, &validated); err != nil {
		return 0, 0, fmt.Errorf("failed to count samples: %w", err)
	}

	return total, validated, nil
}

// NextUnvalidatedSample returns the lowest-id unvalidated sample, or nil
// when every sample has been reviewed.
func (c *Client) NextUnvalidatedSample() (*models.ValidationSample, error) {
	query := `
		SELECT sample_id, ticket_id, ticket_number, validated, coalesce(validated_by, ''), validated_at
		FROM validation_samples
		WHERE validated = 0
		ORDER BY sample_id ASC
		LIMIT 1
	`

	var s models.ValidationSample
	var validated int
	var validatedAt sql.NullInt64

	err := c.db.QueryRow(query).Scan(&s.SampleID, &s.TicketID, &s.TicketNumber, &validated, &s.ValidatedBy, &validatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get next sample: %w", err)
	}

	s.Validated = validated != 0
	if validatedAt.Valid {
		t := time.Unix(validatedAt.Int64, 0)
		s.ValidatedAt = &t
	}

	return &s, nil
}

// UpdateEntityJudgment overwrites the judgment on one extracted entity.
// Returns the number of rows touched; zero means the id does not exist.
func (c *Client) UpdateEntityJudgment(validationID int64, isCorrect bool, shouldBeType, notes string, at time.Time) (int64, error) {
	query := `
		UPDATE entity_validations
		SET is_correct = ?, should_be_type = ?, notes = ?, validated_at = ?
		WHERE validation_id = ?
	`

	res, err := c.db.Exec(query, boolToInt(isCorrect), shouldBeType, notes, at.Unix(), validationID)
	if err != nil {
		return 0, fmt.Errorf("failed to update entity judgment: %w", err)
	}

	return res.RowsAffected()
}

func (c *Client) UpdateRelationshipJudgment(validationID int64, isCorrect bool, notes string, at time.Time) (int64, error) {
	query := `
		UPDATE relationship_validations
		SET is_correct = ?, notes = ?, validated_at = ?
		WHERE validation_id = ?
	`

	res, err := c.db.Exec(query, boolToInt(isCorrect), notes, at.Unix(), validationID)
	if err != nil {
		return 0, fmt.Errorf("failed to update relationship judgment: %w", err)
	}

	return res.RowsAffected()
}

func (c *Client) MarkSampleComplete(sampleID int64, reviewerID string, at time.Time) (int64, error) {
	query := `
		UPDATE validation_samples
		SET validated = 1, validated_by = ?, validated_at = ?
		WHERE sample_id = ?
	`

	res, err := c.db.Exec(query, reviewerID, at.Unix(), sampleID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark sample complete: %w", err)
	}

	return res.RowsAffected()
}

// EntityJudgmentCounts returns how many entities have been judged at all
// and how many of those were confirmed correct. Pending (null) judgments
// are excluded from both.
func (c *Client) EntityJudgmentCounts() (judged int, correct int, err error) {
	query := `
		SELECT count(*), coalesce(sum(is_correct), 0)
		FROM entity_validations
		WHERE is_correct IS NOT NULL
	`

	if err := c.db.QueryRow(query).Scan(&judged, &correct); err != nil {
		return 0, 0, fmt.Errorf("failed to count entity judgments: %w", err)
	}

	return judged, correct, nil
}

func (c *Client) RelationshipJudgmentCounts() (judged int, correct int, err error) {
	query := `
		SELECT count(*), coalesce(sum(is_correct), 0)
		FROM relationship_validations
		WHERE is_correct IS NOT NULL
	`

	if err := c.db.QueryRow(query).Scan(&judged, &correct); err != nil {
		return 0, 0, fmt.Errorf("failed to count relationship judgments: %w", err)
	}

	return judged, correct, nil
}

func (c *Client) GetEntityValidation(validationID int64) (*models.EntityValidation, error) {
	query := `
		SELECT validation_id, sample_id, entity_type, entity_text, coalesce(extracted_confidence, 0),
		       is_correct, coalesce(should_be_type, ''), coalesce(notes, ''), validated_at
		FROM entity_validations
		WHERE validation_id = ?
	`

	var v models.EntityValidation
	var isCorrect sql.NullInt64
	var validatedAt sql.NullInt64

	err := c.db.QueryRow(query, validationID).Scan(
		&v.ValidationID,
		&v.SampleID,
		&v.EntityType,
		&v.EntityText,
		&v.ExtractedConfidence,
		&isCorrect,
		&v.ShouldBeType,
		&v.Notes,
		&validatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entity validation: %w", err)
	}

	if isCorrect.Valid {
		b := isCorrect.Int64 != 0
		v.IsCorrect = &b
	}
	if validatedAt.Valid {
		t := time.Unix(validatedAt.Int64, 0)
		v.ValidatedAt = &t
	}

	return &v, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
