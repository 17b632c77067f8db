package repository

import (
	"context"
	"fmt"

	"github.com/timmy/chanindex/internal/jobqueue"
	"gorm.io/gorm"
)

// SQLExecutor runs job queue statements against a gorm database.
type SQLExecutor struct {
	db *gorm.DB
}

// NewSQLExecutor wraps db as a jobqueue.Executor.
func NewSQLExecutor(db *gorm.DB) *SQLExecutor {
	return &SQLExecutor{db: db}
}

// Execute runs statement and collects every returned row.
func (e *SQLExecutor) Execute(ctx context.Context, statement string, params ...any) (*jobqueue.ResultSet, error) {
	rows, err := e.db.WithContext(ctx).Raw(statement, params...).Rows()
	if err != nil {
		return nil, fmt.Errorf("execute statement: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	rs := &jobqueue.ResultSet{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		rs.Rows = append(rs.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return rs, nil
}

// Close releases the underlying connection pool.
func (e *SQLExecutor) Close() error {
	sqlDB, err := e.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
