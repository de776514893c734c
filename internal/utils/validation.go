package utils

import (
	"errors"
	"fmt"
	"math"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/fiscal"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/planner"
)

/**
 * RegisterValidations 注册自定义的校验标签及其中文翻译：
 * 		month：YYYY-MM 格式的月份
 * 		priority：Critical / High / Medium / Low
 * 		projectstatus：Planning / On Hold / Approved / Canceled
 */
func RegisterValidations(validate *validator.Validate, trans ut.Translator) error {
	rules := []struct {
		tag     string
		message string
		fn      validator.Func
	}{
		{
			tag:     "month",
			message: "{0}必须是 YYYY-MM 格式的月份",
			fn: func(fl validator.FieldLevel) bool {
				return ValidateMonth(fl.Field().String()) == nil
			},
		},
		{
			tag:     "priority",
			message: "{0}必须是 Critical、High、Medium、Low 中的一个",
			fn: func(fl validator.FieldLevel) bool {
				value := fl.Field().String()
				return string(domain.ParsePriority(value)) == value
			},
		},
		{
			tag:     "projectstatus",
			message: "{0}必须是 Planning、On Hold、Approved、Canceled 中的一个",
			fn: func(fl validator.FieldLevel) bool {
				switch domain.ProjectStatus(fl.Field().String()) {
				case domain.ProjectStatusPlanning, domain.ProjectStatusOnHold, domain.ProjectStatusApproved, domain.ProjectStatusCanceled:
					return true
				}
				return false
			},
		},
	}

	for _, rule := range rules {
		if err := validate.RegisterValidation(rule.tag, rule.fn); err != nil {
			return err
		}

		tag, message := rule.tag, rule.message
		err := validate.RegisterTranslation(tag, trans, func(ut ut.Translator) error {
			return ut.Add(tag, message, true)
		}, func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T(tag, fe.Field())
			return t
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func ValidateMonth(month string) error {
	if _, err := fiscal.ParseMonth(month); err != nil {
		return fmt.Errorf("月份 %q 格式错误，应为 YYYY-MM", month)
	}
	return nil
}

// ValidatePTO 检查每月休假表：月份合法，天数在 0 到标准工作日之间，并且以半天为单位
func ValidatePTO(pto map[string]float64) error {
	for month, days := range pto {
		if err := ValidateMonth(month); err != nil {
			return err
		}
		if days < 0 || days > planner.StandardWorkingDays {
			return fmt.Errorf("%s 的休假天数必须在 0 到 %g 之间", month, planner.StandardWorkingDays)
		}
		if days*2 != math.Trunc(days*2) {
			return fmt.Errorf("%s 的休假天数必须以半天为单位", month)
		}
	}
	return nil
}

func ValidateFutureProjectDates(p *domain.FutureProject) error {
	if p.ExpectedStartDate.IsZero() || p.ExpectedEndDate.IsZero() {
		return errors.New("预计开始日期和结束日期不能为空")
	}

	if p.ExpectedEndDate.Before(p.ExpectedStartDate) {
		return errors.New("预计结束日期不能早于预计开始日期")
	}

	return nil
}
