package handler

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// 违反唯一性或检查约束时返回给用户的提示
var constraintMessages = map[string]string{
	"users_username_key":                        "用户名已存在",
	"users_email_key":                           "邮箱已存在",
	"engineers_name_key":                        "工程师姓名已存在",
	"engineers_weekly_hours_check":              "每周工时不能为负数",
	"engineer_pto_days_check":                   "休假天数必须在 0 到 22 之间",
	"assignments_allocation_check":              "排期百分比必须在 0 到 100 之间",
	"future_projects_name_key":                  "项目名称已存在",
	"future_projects_dates_check":               "预计结束日期不能早于预计开始日期",
	"future_projects_estimated_engineers_check": "预计人数不能为负数",
}

// constraintMessage 判断 err 是否为已知的数据库约束错误
func constraintMessage(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}

	msg, ok := constraintMessages[pgErr.ConstraintName]
	return msg, ok
}
