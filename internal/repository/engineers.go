package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/domain"
)

var ErrEngineerNotFound = errors.New("engineer not found")

func (r *Repository) GetAllEngineers() ([]*domain.Engineer, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	query := `
		SELECT
			e.id,
			e.name,
			e.team,
			e.role,
			e.weekly_hours,
			e.created_at,
			e.version,
			p.month,
			p.days
		FROM engineers e
		LEFT JOIN engineer_pto p ON e.id = p.engineer_id
		ORDER BY e.id, p.month
	`

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	engineers := make([]*domain.Engineer, 0)
	byID := make(map[int64]*domain.Engineer)

	for rows.Next() {
		var row struct {
			ID          int64
			Name        string
			Team        string
			Role        string
			WeeklyHours float64
			CreatedAt   time.Time
			Version     int32

			Month sql.NullString
			Days  sql.NullFloat64
		}

		dst := []any{&row.ID, &row.Name, &row.Team, &row.Role, &row.WeeklyHours, &row.CreatedAt, &row.Version, &row.Month, &row.Days}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		engineer, exists := byID[row.ID]
		if !exists {
			// 第一次查到这名工程师，保持 id 顺序
			engineer = &domain.Engineer{
				ID:          row.ID,
				Name:        row.Name,
				Team:        row.Team,
				Role:        row.Role,
				WeeklyHours: row.WeeklyHours,
				PTO:         make(map[string]float64),
				CreatedAt:   row.CreatedAt,
				Version:     row.Version,
			}
			byID[row.ID] = engineer
			engineers = append(engineers, engineer)
		}

		// 没有任何休假记录
		if !row.Month.Valid {
			continue
		}

		engineer.PTO[row.Month.String] = row.Days.Float64
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return engineers, nil
}

func (r *Repository) GetEngineerByID(id int64) (*domain.Engineer, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	engineer := &domain.Engineer{
		ID:  id,
		PTO: make(map[string]float64),
	}

	query := `SELECT name, team, role, weekly_hours, created_at, version FROM engineers WHERE id = $1`
	dst := []any{&engineer.Name, &engineer.Team, &engineer.Role, &engineer.WeeklyHours, &engineer.CreatedAt, &engineer.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	rows, err := r.dbpool.QueryContext(ctx, `SELECT month, days FROM engineer_pto WHERE engineer_id = $1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var month string
		var days float64
		if err := rows.Scan(&month, &days); err != nil {
			return nil, err
		}
		engineer.PTO[month] = days
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return engineer, nil
}

func insertEngineer(ctx context.Context, tx *sql.Tx, engineer *domain.Engineer) error {
	query := `
		INSERT INTO engineers (name, team, role, weekly_hours)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, version
	`
	args := []any{engineer.Name, engineer.Team, engineer.Role, engineer.WeeklyHours}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&engineer.ID, &engineer.CreatedAt, &engineer.Version); err != nil {
		return err
	}

	return insertPTO(ctx, tx, engineer.ID, engineer.PTO)
}

func insertPTO(ctx context.Context, tx *sql.Tx, engineerID int64, pto map[string]float64) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO engineer_pto (engineer_id, month, days) VALUES ($1, $2, $3)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for month, days := range pto {
		if _, err := stmt.ExecContext(ctx, engineerID, month, days); err != nil {
			return err
		}
	}

	return nil
}

func (r *Repository) CreateEngineer(engineer *domain.Engineer) error {
	ctx, cancel := r.transactionContext()
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := insertEngineer(ctx, tx, engineer); err != nil {
		return err
	}

	return tx.Commit()
}

/**
 * UpdateEngineer 更新工程师的基本信息，休假不在这里修改
 * 排期记录通过名字引用工程师，因此改名时需要在同一个事务里同步修改排期记录
 */
func (r *Repository) UpdateEngineer(engineer *domain.Engineer, previousName string) error {
	ctx, cancel := r.transactionContext()
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		UPDATE engineers
		SET
			name = $1,
			team = $2,
			role = $3,
			weekly_hours = $4,
			version = version + 1
		WHERE id = $5 AND version = $6
		RETURNING version
	`
	args := []any{engineer.Name, engineer.Team, engineer.Role, engineer.WeeklyHours, engineer.ID, engineer.Version}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&engineer.Version); err != nil {
		return err
	}

	if previousName != engineer.Name {
		query = `UPDATE assignments SET engineer_name = $1, version = version + 1 WHERE engineer_name = $2`
		if _, err := tx.ExecContext(ctx, query, engineer.Name, previousName); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ReplaceEngineerPTO 用新的每月休假表整体替换旧的
func (r *Repository) ReplaceEngineerPTO(engineerID int64, pto map[string]float64) error {
	ctx, cancel := r.transactionContext()
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx, `UPDATE engineers SET version = version + 1 WHERE id = $1`, engineerID)
	if err != nil {
		return err
	}
	if affected, err := result.RowsAffected(); err != nil {
		return err
	} else if affected == 0 {
		return ErrEngineerNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM engineer_pto WHERE engineer_id = $1`, engineerID); err != nil {
		return err
	}

	if err := insertPTO(ctx, tx, engineerID, pto); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *Repository) DeleteEngineer(id int64) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	// engineer_pto 通过外键级联删除，排期记录保留，它们在报表中会被忽略
	_, err := r.dbpool.ExecContext(ctx, `DELETE FROM engineers WHERE id = $1`, id)
	return err
}

// ReplaceRoster 在一个事务中用导入的花名册替换全部工程师
func (r *Repository) ReplaceRoster(engineers []*domain.Engineer) error {
	ctx, cancel := r.transactionContext()
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM engineers`); err != nil {
		return err
	}

	for _, engineer := range engineers {
		if err := insertEngineer(ctx, tx, engineer); err != nil {
			return err
		}
	}

	return tx.Commit()
}
