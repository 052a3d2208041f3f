package pgvector

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	pgv "github.com/pgvector/pgvector-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yungbote/rag-chatbot/internal/domain"
	"github.com/yungbote/rag-chatbot/internal/platform/ctxutil"
	"github.com/yungbote/rag-chatbot/internal/platform/logger"
)

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

type Config struct {
	DSN   string
	Table string
}

// VectorIndex stores chunks in a Postgres table with a pgvector column and
// answers queries by cosine distance.
type VectorIndex struct {
	log   *logger.Logger
	db    *gorm.DB
	table string
	dim   int
}

var _ domain.VectorIndex = (*VectorIndex)(nil)

func Open(log *logger.Logger, cfg Config) (*VectorIndex, error) {
	if log == nil {
		return nil, errors.New("logger required")
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New("missing PGVECTOR_DSN")
	}
	log.Info("Connecting to Postgres...", "table", cfg.Table)
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return New(log, db, cfg.Table)
}

func New(log *logger.Logger, db *gorm.DB, table string) (*VectorIndex, error) {
	if log == nil {
		return nil, errors.New("logger required")
	}
	if db == nil {
		return nil, errors.New("gorm db required")
	}
	table = strings.TrimSpace(table)
	if table == "" {
		table = "rag_chunks"
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid PGVECTOR_TABLE %q", table)
	}
	return &VectorIndex{log: log.With("service", "PGVectorIndex", "table", table), db: db, table: table}, nil
}

func (v *VectorIndex) EnsureIndex(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("dimension must be positive")
	}
	tx := v.db.WithContext(ctxutil.Default(ctx))
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
			id text PRIMARY KEY,
			source text NOT NULL,
			chunk_index integer NOT NULL DEFAULT 0,
			content text NOT NULL,
			embedding vector(%d) NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now()
		)`, v.table, dimension),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %q ON %q (source)`, "idx_"+v.table+"_source", v.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %q ON %q USING hnsw (embedding vector_cosine_ops)`, "idx_"+v.table+"_embedding", v.table),
	}
	for _, s := range stmts {
		if err := tx.Exec(s).Error; err != nil {
			return fmt.Errorf("pgvector ensure table: %w", err)
		}
	}

	var existing int
	row := tx.Raw(`SELECT atttypmod FROM pg_attribute WHERE attrelid = ?::regclass AND attname = 'embedding'`, v.table).Row()
	if err := row.Scan(&existing); err == nil && existing > 0 && existing != dimension {
		return fmt.Errorf("pgvector table %q dimension mismatch: expected=%d actual=%d", v.table, dimension, existing)
	}
	v.dim = dimension
	v.log.Info("pgvector table ready", "dimension", dimension)
	return nil
}

func (v *VectorIndex) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := v.db.WithContext(ctxutil.Default(ctx)).Table(v.table).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("pgvector count: %w", err)
	}
	return n, nil
}

func (v *VectorIndex) Upsert(ctx context.Context, vectors []domain.IndexedVector) error {
	if len(vectors) == 0 {
		return nil
	}
	records := make([]ChunkRecord, 0, len(vectors))
	for _, iv := range vectors {
		if v.dim > 0 && len(iv.Values) != v.dim {
			return fmt.Errorf("vector %q dimension mismatch: expected=%d got=%d", iv.ID, v.dim, len(iv.Values))
		}
		records = append(records, ChunkRecord{
			ID:         iv.ID,
			Source:     iv.Metadata.Source,
			ChunkIndex: iv.Metadata.ChunkIndex,
			Content:    iv.Metadata.Text,
			Embedding:  pgv.NewVector(iv.Values),
		})
	}
	err := v.upsertStatement(v.db.WithContext(ctxutil.Default(ctx)), records).Error
	if err != nil {
		return fmt.Errorf("pgvector upsert: %w", err)
	}
	return nil
}

func (v *VectorIndex) upsertStatement(tx *gorm.DB, records []ChunkRecord) *gorm.DB {
	return tx.Table(v.table).
		Omit("created_at").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"source", "chunk_index", "content", "embedding"}),
		}).
		Create(&records)
}

func (v *VectorIndex) Query(ctx context.Context, vector []float32, topK int) ([]domain.Match, error) {
	if len(vector) == 0 {
		return nil, errors.New("query vector required")
	}
	if topK <= 0 {
		topK = 3
	}
	var rows []matchRow
	if err := v.queryStatement(v.db.WithContext(ctxutil.Default(ctx)), vector, topK).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("pgvector query: %w", err)
	}
	out := make([]domain.Match, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Match{
			ID:         r.ID,
			Score:      1 - r.Distance,
			SourceFile: r.Source,
			Text:       r.Content,
		})
	}
	return out, nil
}

func (v *VectorIndex) queryStatement(tx *gorm.DB, vector []float32, topK int) *gorm.DB {
	return tx.Table(v.table).
		Select("id, source, chunk_index, content, embedding <=> ? AS distance", pgv.NewVector(vector)).
		Order("distance").
		Limit(topK)
}

func (v *VectorIndex) Clear(ctx context.Context) error {
	if err := v.db.WithContext(ctxutil.Default(ctx)).Exec(fmt.Sprintf(`TRUNCATE TABLE %q`, v.table)).Error; err != nil {
		return fmt.Errorf("pgvector clear: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (v *VectorIndex) Close() error {
	sqlDB, err := v.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
