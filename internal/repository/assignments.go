package repository

import (
	"fmt"
	"strings"

	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/planner"
)

// AssignmentFilter 中为空的字段表示不过滤
type AssignmentFilter struct {
	EngineerName string
	Month        string
	Program      string
}

const assignmentColumns = `id, engineer_name, program, feature, priority, month, allocation, notes, created_at, version`

func scanAssignment(row rowScanner) (*domain.Assignment, error) {
	a := &domain.Assignment{}
	dst := []any{&a.ID, &a.EngineerName, &a.Program, &a.Feature, &a.Priority, &a.Month, &a.Allocation, &a.Notes, &a.CreatedAt, &a.Version}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *Repository) GetAssignments(filter AssignmentFilter) ([]*domain.Assignment, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	conditions := make([]string, 0, 3)
	args := make([]any, 0, 3)
	for column, value := range map[string]string{
		"engineer_name": filter.EngineerName,
		"month":         filter.Month,
		"program":       filter.Program,
	} {
		if value == "" {
			continue
		}
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	query := `SELECT ` + assignmentColumns + ` FROM assignments`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY month, engineer_name, id`

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignments := make([]*domain.Assignment, 0)
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *Repository) GetAssignmentByID(id int64) (*domain.Assignment, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1`
	return scanAssignment(r.dbpool.QueryRowContext(ctx, query, id))
}

func (r *Repository) CreateAssignment(a *domain.Assignment) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	query := `
		INSERT INTO assignments (engineer_name, program, feature, priority, month, allocation, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, version
	`
	args := []any{a.EngineerName, a.Program, a.Feature, a.Priority, a.Month, a.Allocation, a.Notes}
	return r.dbpool.QueryRowContext(ctx, query, args...).Scan(&a.ID, &a.CreatedAt, &a.Version)
}

func (r *Repository) UpdateAssignment(a *domain.Assignment) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	query := `
		UPDATE assignments
		SET
			engineer_name = $1,
			program = $2,
			feature = $3,
			priority = $4,
			month = $5,
			allocation = $6,
			notes = $7,
			version = version + 1
		WHERE id = $8 AND version = $9
		RETURNING version
	`
	args := []any{a.EngineerName, a.Program, a.Feature, a.Priority, a.Month, a.Allocation, a.Notes, a.ID, a.Version}
	return r.dbpool.QueryRowContext(ctx, query, args...).Scan(&a.Version)
}

func (r *Repository) DeleteAssignment(id int64) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, `DELETE FROM assignments WHERE id = $1`, id)
	return err
}

/**
 * ReplaceLedger 在一个事务中用导入的排期记录替换全部排期：
 * 		1. 删除所有排期记录和上一次导入记下的缺失维度
 * 		2. 写入新的排期记录
 * 		3. 记下这次导入的表格缺少的维度列，报表据此判断视图是否可用
 */
func (r *Repository) ReplaceLedger(assignments []*domain.Assignment, missing []planner.Dimension) error {
	ctx, cancel := r.transactionContext()
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM assignments`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM ledger_missing_dimensions`); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO assignments (engineer_name, program, feature, priority, month, allocation, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, version
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range assignments {
		args := []any{a.EngineerName, a.Program, a.Feature, a.Priority, a.Month, a.Allocation, a.Notes}
		if err := stmt.QueryRowContext(ctx, args...).Scan(&a.ID, &a.CreatedAt, &a.Version); err != nil {
			return err
		}
	}

	for _, dim := range missing {
		if _, err := tx.ExecContext(ctx, `INSERT INTO ledger_missing_dimensions (dimension) VALUES ($1) ON CONFLICT DO NOTHING`, string(dim)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetMissingDimensions 返回最近一次导入的排期表格缺少的维度列
func (r *Repository) GetMissingDimensions() ([]planner.Dimension, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, `SELECT dimension FROM ledger_missing_dimensions ORDER BY dimension`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	missing := make([]planner.Dimension, 0)
	for rows.Next() {
		var dim string
		if err := rows.Scan(&dim); err != nil {
			return nil, err
		}
		missing = append(missing, planner.Dimension(dim))
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return missing, nil
}
