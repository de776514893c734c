package repository

import (
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/domain"
)

const futureProjectColumns = `id, name, expected_start_date, expected_end_date, required_skills, estimated_engineers, priority, status, notes, created_at, version`

func scanFutureProject(row rowScanner) (*domain.FutureProject, error) {
	p := &domain.FutureProject{}
	dst := []any{&p.ID, &p.Name, &p.ExpectedStartDate, &p.ExpectedEndDate, &p.RequiredSkills, &p.EstimatedEngineers, &p.Priority, &p.Status, &p.Notes, &p.CreatedAt, &p.Version}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Repository) GetAllFutureProjects() ([]*domain.FutureProject, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, `SELECT `+futureProjectColumns+` FROM future_projects ORDER BY expected_start_date, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := make([]*domain.FutureProject, 0)
	for rows.Next() {
		p, err := scanFutureProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return projects, nil
}

func (r *Repository) GetFutureProjectByID(id int64) (*domain.FutureProject, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	return scanFutureProject(r.dbpool.QueryRowContext(ctx, `SELECT `+futureProjectColumns+` FROM future_projects WHERE id = $1`, id))
}

func (r *Repository) CreateFutureProject(p *domain.FutureProject) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	query := `
		INSERT INTO future_projects (name, expected_start_date, expected_end_date, required_skills, estimated_engineers, priority, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, version
	`
	args := []any{p.Name, p.ExpectedStartDate, p.ExpectedEndDate, p.RequiredSkills, p.EstimatedEngineers, p.Priority, p.Status, p.Notes}
	return r.dbpool.QueryRowContext(ctx, query, args...).Scan(&p.ID, &p.CreatedAt, &p.Version)
}

func (r *Repository) UpdateFutureProject(p *domain.FutureProject) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	query := `
		UPDATE future_projects
		SET
			name = $1,
			expected_start_date = $2,
			expected_end_date = $3,
			required_skills = $4,
			estimated_engineers = $5,
			priority = $6,
			status = $7,
			notes = $8,
			version = version + 1
		WHERE id = $9 AND version = $10
		RETURNING version
	`
	args := []any{p.Name, p.ExpectedStartDate, p.ExpectedEndDate, p.RequiredSkills, p.EstimatedEngineers, p.Priority, p.Status, p.Notes, p.ID, p.Version}
	return r.dbpool.QueryRowContext(ctx, query, args...).Scan(&p.Version)
}

func (r *Repository) DeleteFutureProject(id int64) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, `DELETE FROM future_projects WHERE id = $1`, id)
	return err
}
