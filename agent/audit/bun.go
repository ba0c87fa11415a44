package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/jirapatw/TAM-Copilot-Orchestrator/agent/contract"
)

// Config holds the Postgres audit backend settings.
type Config struct {
	DSN          string        `envconfig:"DSN"`
	QueryTimeout time.Duration `envconfig:"QUERY_TIMEOUT" split_words:"true" default:"5s"`
}

func (c Config) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("audit dsn is required")
	}
	return nil
}

type auditRow struct {
	bun.BaseModel `bun:"table:audit_records"`

	ID                    int64                   `bun:"id,pk,autoincrement"`
	RequestID             string                  `bun:"request_id,notnull"`
	RequestText           string                  `bun:"request_text"`
	Domain                string                  `bun:"domain,notnull"`
	Steps                 []contractx.StepOutcome `bun:"steps,type:jsonb"`
	RequiresHumanApproval bool                    `bun:"requires_human_approval,notnull"`
	Failure               string                  `bun:"failure"`
	StartedAt             time.Time               `bun:"started_at,notnull"`
	CompletedAt           time.Time               `bun:"completed_at,notnull"`
}

// BunSink appends one row per request to Postgres.
type BunSink struct {
	db      *bun.DB
	timeout time.Duration
}

func NewBunSink(cfg Config) (*BunSink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
	return &BunSink{
		db:      bun.NewDB(sqldb, pgdialect.New()),
		timeout: cfg.QueryTimeout,
	}, nil
}

// EnsureSchema creates the audit table when it does not exist yet.
func (s *BunSink) EnsureSchema(ctx context.Context) error {
	ctx, cancel := s.queryContext(ctx)
	defer cancel()
	_, err := s.db.NewCreateTable().
		Model((*auditRow)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create audit table: %w", err)
	}
	return nil
}

func (s *BunSink) Append(ctx context.Context, rec contractx.AuditRecord) error {
	row := &auditRow{
		RequestID:             rec.RequestID,
		RequestText:           rec.RequestText,
		Domain:                string(rec.Domain),
		Steps:                 rec.Steps,
		RequiresHumanApproval: rec.RequiresHumanApproval,
		Failure:               rec.Failure,
		StartedAt:             rec.StartedAt,
		CompletedAt:           rec.CompletedAt,
	}
	ctx, cancel := s.queryContext(ctx)
	defer cancel()
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

func (s *BunSink) Close() error {
	return s.db.Close()
}

func (s *BunSink) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}
