package handler

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/planner"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/repository"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/utils"
)

// Store 是 handler 用到的持久化操作，*repository.Repository 实现了它
type Store interface {
	GetUserByID(id int64) (*domain.User, error)
	GetUserByUsername(username string) (*domain.User, error)
	GetAllUsers() ([]*domain.User, error)
	GetActiveUsersByRoles(roles []domain.Role) ([]*domain.User, error)
	CreateUser(user *domain.User) error
	UpdateUser(user *domain.User) error
	DeleteUser(id int64) error

	GetAllEngineers() ([]*domain.Engineer, error)
	GetEngineerByID(id int64) (*domain.Engineer, error)
	CreateEngineer(engineer *domain.Engineer) error
	UpdateEngineer(engineer *domain.Engineer, previousName string) error
	ReplaceEngineerPTO(engineerID int64, pto map[string]float64) error
	DeleteEngineer(id int64) error
	ReplaceRoster(engineers []*domain.Engineer) error

	GetAssignments(filter repository.AssignmentFilter) ([]*domain.Assignment, error)
	GetAssignmentByID(id int64) (*domain.Assignment, error)
	CreateAssignment(a *domain.Assignment) error
	UpdateAssignment(a *domain.Assignment) error
	DeleteAssignment(id int64) error
	ReplaceLedger(assignments []*domain.Assignment, missing []planner.Dimension) error
	GetMissingDimensions() ([]planner.Dimension, error)

	GetAllFutureProjects() ([]*domain.FutureProject, error)
	GetFutureProjectByID(id int64) (*domain.FutureProject, error)
	CreateFutureProject(p *domain.FutureProject) error
	UpdateFutureProject(p *domain.FutureProject) error
	DeleteFutureProject(id int64) error
}

// MailPublisher 是邮件队列的发布端，*amqp.Channel 实现了它
type MailPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type Handler struct {
	validate    *validator.Validate
	config      *config.Config
	repository  Store
	translator  ut.Translator
	mailChannel MailPublisher
	redisClient *redis.Client
	now         func() time.Time

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo Store, mailCh MailPublisher, rdb *redis.Client) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}
	if err := utils.RegisterValidations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:    validate,
		config:      cfg,
		repository:  repo,
		translator:  trans,
		mailChannel: mailCh,
		redisClient: rdb,
		now:         time.Now,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	planners := h.RequiredRole([]domain.Role{domain.RoleAdmin, domain.RolePlanner})
	admins := h.RequiredRole([]domain.Role{domain.RoleAdmin})

	h.Mux.Use(h.requestID)
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Route("/reset-password", func(r chi.Router) {
			r.Post("/require", h.RequireResetPassword)
			r.Post("/confirm", h.ConfirmResetPassword)
		})
	})

	// 以下 API 必须要在登录后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Route("/my-info", func(r chi.Router) {
			r.Use(h.myInfo)
			r.Get("/", h.GetMyInfo)
			r.Patch("/password", h.UpdateMyPassword)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(admins)
			r.Post("/", h.CreateUser)
			r.Get("/", h.GetAllUserInfo)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.userInfo)
				r.Get("/", h.GetUserInfo)
				r.With(h.preventOperateInitialAdmin).Patch("/", h.UpdateUser)
				r.With(h.preventOperateInitialAdmin).Delete("/", h.DeleteUser)
				r.Patch("/password", h.UpdateUserPassword)
			})
		})

		r.Route("/engineers", func(r chi.Router) {
			r.Get("/", h.GetAllEngineers)
			r.With(planners).Post("/", h.CreateEngineer)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.engineerInfo)
				r.Get("/", h.GetEngineer)
				r.With(planners).Patch("/", h.UpdateEngineer)
				r.With(planners).Delete("/", h.DeleteEngineer)
				r.With(planners).Put("/pto", h.ReplaceEngineerPTO)
			})
		})

		r.Route("/assignments", func(r chi.Router) {
			r.Get("/", h.GetAssignments)
			r.With(planners).Post("/", h.CreateAssignment)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.assignmentInfo)
				r.Get("/", h.GetAssignment)
				r.With(planners).Patch("/", h.UpdateAssignment)
				r.With(planners).Delete("/", h.DeleteAssignment)
			})
		})

		r.Route("/future-projects", func(r chi.Router) {
			r.Get("/", h.GetAllFutureProjects)
			r.With(planners).Post("/", h.CreateFutureProject)
			r.Get("/summary", h.GetPipelineSummary)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.futureProjectInfo)
				r.Get("/", h.GetFutureProject)
				r.With(planners).Patch("/", h.UpdateFutureProject)
				r.With(planners).Delete("/", h.DeleteFutureProject)
			})
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/utilization", h.GetUtilization)
			r.Get("/team-summary", h.GetTeamSummary)
			r.Get("/trends/{dimension}", h.GetTrend)
			r.Get("/matrix", h.GetMatrix)
			r.Get("/timeline", h.GetTimeline)
			r.Get("/pipeline", h.GetPipelineSummary)
			r.Get("/pipeline/timeline", h.GetProjectTimeline)
			r.Get("/export", h.ExportWorkbook)
			r.With(planners).Post("/over-allocation-alerts", h.SendOverAllocationAlerts)
		})

		r.Route("/import", func(r chi.Router) {
			r.Use(planners)
			r.Post("/engineers", h.ImportEngineers)
			r.Post("/assignments", h.ImportAssignments)
		})
	})
}
