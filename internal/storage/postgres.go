package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/xaenox/chat-ingest/internal/models"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	UseInMemory bool
}

type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(config DatabaseConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	storage := &PostgresStorage{db: db}

	if err := storage.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	return storage, nil
}

func (s *PostgresStorage) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	_, err = s.db.Exec(string(migrationSQL))
	if err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}

	return nil
}

// WriteEvent runs the idempotent multi-table write for one logical event.
// The message and label upserts key on identity and no-op on conflict, so
// any partial redelivery converges to the same committed state. The whole
// write commits or rolls back as a unit.
func (s *PostgresStorage) WriteEvent(ctx context.Context, msg *models.Message, labelValues []string, metric *models.Metric) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO messages (message_id, thread_id, room_id, tool_kind, step_kind,
		                      routing_target, primary_category, status, request_at, response_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (message_id) DO NOTHING`,
		msg.ID,
		msg.ThreadID,
		msg.RoomID,
		msg.ToolKind,
		msg.StepKind,
		msg.RoutingTarget,
		msg.PrimaryCategory,
		msg.Status,
		nullTime(msg.RequestAt),
		nullTime(msg.ResponseAt),
	)
	if err != nil {
		return fmt.Errorf("error upserting message %s: %w", msg.ID, err)
	}

	for _, value := range labelValues {
		_, err = tx.Exec(`
			INSERT INTO labels (label_id, message_id, label_value)
			VALUES ($1, $2, $3)
			ON CONFLICT (message_id, label_value) DO NOTHING`,
			uuid.New().String(), msg.ID, value,
		)
		if err != nil {
			return fmt.Errorf("error upserting label (%s, %s): %w", msg.ID, value, err)
		}
	}

	if metric != nil {
		if err := insertMetric(tx, *metric); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing event write: %w", err)
	}

	return nil
}

func (s *PostgresStorage) AppendMetric(ctx context.Context, metric models.Metric) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertMetric(tx, metric); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing metric: %w", err)
	}

	return nil
}

func insertMetric(tx *sql.Tx, metric models.Metric) error {
	id := metric.ID
	if id == "" {
		id = uuid.New().String()
	}

	_, err := tx.Exec(`
		INSERT INTO metrics (metric_id, message_id, thread_id, tokens, cost, request_at, response_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id,
		nullString(metric.MessageID),
		metric.ThreadID,
		metric.Tokens,
		metric.Cost,
		nullTime(metric.RequestAt),
		nullTime(metric.ResponseAt),
	)
	if err != nil {
		return fmt.Errorf("error inserting metric: %w", err)
	}
	return nil
}

func (s *PostgresStorage) ListMessages(ctx context.Context) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT message_id, thread_id, room_id, tool_kind, step_kind,
		       routing_target, primary_category, status, request_at, response_at, created_at
		FROM messages
		ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("error querying messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var (
			msg                  models.Message
			requestAt, responseAt sql.NullTime
		)
		err := rows.Scan(
			&msg.ID,
			&msg.ThreadID,
			&msg.RoomID,
			&msg.ToolKind,
			&msg.StepKind,
			&msg.RoutingTarget,
			&msg.PrimaryCategory,
			&msg.Status,
			&requestAt,
			&responseAt,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning message: %w", err)
		}
		msg.RequestAt = requestAt.Time
		msg.ResponseAt = responseAt.Time
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

func (s *PostgresStorage) ListLabels(ctx context.Context) ([]models.Label, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT label_id, message_id, label_value
		FROM labels
		ORDER BY message_id, label_value`)
	if err != nil {
		return nil, fmt.Errorf("error querying labels: %w", err)
	}
	defer rows.Close()

	var labels []models.Label
	for rows.Next() {
		var label models.Label
		if err := rows.Scan(&label.ID, &label.MessageID, &label.Value); err != nil {
			return nil, fmt.Errorf("error scanning label: %w", err)
		}
		labels = append(labels, label)
	}

	return labels, rows.Err()
}

func (s *PostgresStorage) ListMetrics(ctx context.Context) ([]models.Metric, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT metric_id, message_id, thread_id, tokens, cost, request_at, response_at
		FROM metrics`)
	if err != nil {
		return nil, fmt.Errorf("error querying metrics: %w", err)
	}
	defer rows.Close()

	var metrics []models.Metric
	for rows.Next() {
		var (
			metric                models.Metric
			messageID             sql.NullString
			requestAt, responseAt sql.NullTime
		)
		err := rows.Scan(
			&metric.ID,
			&messageID,
			&metric.ThreadID,
			&metric.Tokens,
			&metric.Cost,
			&requestAt,
			&responseAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning metric: %w", err)
		}
		metric.MessageID = messageID.String
		metric.RequestAt = requestAt.Time
		metric.ResponseAt = responseAt.Time
		metrics = append(metrics, metric)
	}

	return metrics, rows.Err()
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
