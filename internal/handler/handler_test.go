package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/planner"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// ── 测试辅助 ──

type fakeStore struct {
	users       []*domain.User
	engineers   []*domain.Engineer
	assignments []*domain.Assignment
	projects    []*domain.FutureProject
	missing     []planner.Dimension
	nextID      int64
}

func (s *fakeStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *fakeStore) GetUserByID(id int64) (*domain.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			copied := *u
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *fakeStore) GetUserByUsername(username string) (*domain.User, error) {
	for _, u := range s.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *fakeStore) GetAllUsers() ([]*domain.User, error) { return s.users, nil }

func (s *fakeStore) GetActiveUsersByRoles(roles []domain.Role) ([]*domain.User, error) {
	result := make([]*domain.User, 0)
	for _, u := range s.users {
		for _, role := range roles {
			if u.IsActive && u.Role == role {
				result = append(result, u)
			}
		}
	}
	return result, nil
}

func (s *fakeStore) CreateUser(user *domain.User) error {
	user.ID = s.id()
	user.IsActive = true
	s.users = append(s.users, user)
	return nil
}

func (s *fakeStore) UpdateUser(user *domain.User) error {
	for i, u := range s.users {
		if u.ID == user.ID {
			s.users[i] = user
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *fakeStore) DeleteUser(id int64) error { return nil }

func (s *fakeStore) GetAllEngineers() ([]*domain.Engineer, error) { return s.engineers, nil }

func (s *fakeStore) GetEngineerByID(id int64) (*domain.Engineer, error) {
	for _, e := range s.engineers {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *fakeStore) CreateEngineer(engineer *domain.Engineer) error {
	engineer.ID = s.id()
	s.engineers = append(s.engineers, engineer)
	return nil
}

func (s *fakeStore) UpdateEngineer(engineer *domain.Engineer, previousName string) error {
	for _, a := range s.assignments {
		if a.EngineerName == previousName {
			a.EngineerName = engineer.Name
		}
	}
	return nil
}

func (s *fakeStore) ReplaceEngineerPTO(engineerID int64, pto map[string]float64) error {
	e, err := s.GetEngineerByID(engineerID)
	if err != nil {
		return repository.ErrEngineerNotFound
	}
	e.PTO = pto
	return nil
}

func (s *fakeStore) DeleteEngineer(id int64) error { return nil }

func (s *fakeStore) ReplaceRoster(engineers []*domain.Engineer) error {
	s.engineers = engineers
	return nil
}

func (s *fakeStore) GetAssignments(filter repository.AssignmentFilter) ([]*domain.Assignment, error) {
	result := make([]*domain.Assignment, 0)
	for _, a := range s.assignments {
		if filter.EngineerName != "" && a.EngineerName != filter.EngineerName {
			continue
		}
		if filter.Month != "" && a.Month != filter.Month {
			continue
		}
		result = append(result, a)
	}
	return result, nil
}

func (s *fakeStore) GetAssignmentByID(id int64) (*domain.Assignment, error) {
	for _, a := range s.assignments {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *fakeStore) CreateAssignment(a *domain.Assignment) error {
	a.ID = s.id()
	s.assignments = append(s.assignments, a)
	return nil
}

func (s *fakeStore) UpdateAssignment(a *domain.Assignment) error { return nil }
func (s *fakeStore) DeleteAssignment(id int64) error             { return nil }

func (s *fakeStore) ReplaceLedger(assignments []*domain.Assignment, missing []planner.Dimension) error {
	s.assignments = assignments
	s.missing = missing
	return nil
}

func (s *fakeStore) GetMissingDimensions() ([]planner.Dimension, error) { return s.missing, nil }

func (s *fakeStore) GetAllFutureProjects() ([]*domain.FutureProject, error) { return s.projects, nil }

func (s *fakeStore) GetFutureProjectByID(id int64) (*domain.FutureProject, error) {
	for _, p := range s.projects {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *fakeStore) CreateFutureProject(p *domain.FutureProject) error {
	p.ID = s.id()
	s.projects = append(s.projects, p)
	return nil
}

func (s *fakeStore) UpdateFutureProject(p *domain.FutureProject) error { return nil }
func (s *fakeStore) DeleteFutureProject(id int64) error                { return nil }

type fakePublisher struct {
	messages []domain.MailMessage
}

func (p *fakePublisher) PublishWithContext(_ context.Context, _, _ string, _, _ bool, msg amqp.Publishing) error {
	var m domain.MailMessage
	if err := json.Unmarshal(msg.Body, &m); err != nil {
		return err
	}
	p.messages = append(p.messages, m)
	return nil
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

const testPassword = "correct-horse"

func newTestHandler(t *testing.T) (*Handler, *fakeStore, *fakePublisher) {
	t.Helper()

	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.Expiration = 3600
	cfg.Server.MaxBodyBytes = 1 << 20
	cfg.RabbitMQ.Queue = "email_queue"
	cfg.RabbitMQ.PublishTimeout = 1
	cfg.NewUser.PasswordLength = 12
	cfg.Planning.LookaheadMonths = 3
	cfg.Planning.HeatmapThreshold = 15
	cfg.InitialAdmin.Username = "admin"

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("生成密码哈希失败: %v", err)
	}

	store := &fakeStore{nextID: 100}
	store.users = []*domain.User{
		{ID: 1, Username: "admin", PasswordHash: string(hash), FullName: "管理员", Email: "admin@example.com", Role: domain.RoleAdmin, IsActive: true},
		{ID: 2, Username: "planner", PasswordHash: string(hash), FullName: "规划员", Email: "planner@example.com", Role: domain.RolePlanner, IsActive: true},
		{ID: 3, Username: "viewer", PasswordHash: string(hash), FullName: "访客", Email: "viewer@example.com", Role: domain.RoleViewer, IsActive: true},
	}
	store.engineers = []*domain.Engineer{
		{ID: 10, Name: "Jane Doe", Team: "Team A", WeeklyHours: 40, PTO: map[string]float64{"2025-08": 2}},
	}
	store.assignments = []*domain.Assignment{
		{ID: 20, EngineerName: "Jane Doe", Program: "Alpha", Feature: "Login", Priority: domain.PriorityHigh, Month: "2025-08", Allocation: 30},
		{ID: 21, EngineerName: "Jane Doe", Program: "Alpha", Feature: "Login", Priority: domain.PriorityHigh, Month: "2025-09", Allocation: 20},
	}

	publisher := &fakePublisher{}
	h, err := NewHandler(cfg, store, publisher, nil)
	if err != nil {
		t.Fatalf("创建 handler 失败: %v", err)
	}
	h.now = func() time.Time { return time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC) }
	h.RegisterRoutes()

	return h, store, publisher
}

// do 以 user 的身份发送请求，user 为 nil 时不带令牌
func do(t *testing.T, h *Handler, user *domain.User, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("序列化请求体失败: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if user != nil {
		token, _, err := h.issueToken(user)
		if err != nil {
			t.Fatalf("签发令牌失败: %v", err)
		}
		req.AddCookie(&http.Cookie{Name: tokenCookieName, Value: token})
	}

	w := httptest.NewRecorder()
	h.Mux.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("响应不是合法的 JSON: %v, body=%s", err, w.Body.String())
	}
	return env
}

// ── 认证与权限 ──

func TestAuth_NoCookie(t *testing.T) {
	h, _, _ := newTestHandler(t)

	env := decode(t, do(t, h, nil, http.MethodGet, "/engineers", nil))
	if env.Success || env.Message != "用户未登录" {
		t.Errorf("期望 用户未登录，实际 %+v", env)
	}
}

func TestAuth_InvalidToken(t *testing.T) {
	h, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/engineers", nil)
	req.AddCookie(&http.Cookie{Name: tokenCookieName, Value: "not-a-jwt"})
	w := httptest.NewRecorder()
	h.Mux.ServeHTTP(w, req)

	if env := decode(t, w); env.Success || env.Message != "无效的令牌" {
		t.Errorf("期望 无效的令牌，实际 %+v", env)
	}
}

func TestRequiredRole_ViewerCannotWrite(t *testing.T) {
	h, store, _ := newTestHandler(t)

	env := decode(t, do(t, h, store.users[2], http.MethodPost, "/engineers", map[string]any{"name": "John"}))
	if env.Success || env.Message != "权限不足" {
		t.Errorf("访客不应当能创建工程师，实际 %+v", env)
	}

	env = decode(t, do(t, h, store.users[1], http.MethodGet, "/users", nil))
	if env.Success || env.Message != "权限不足" {
		t.Errorf("规划员不应当能管理账号，实际 %+v", env)
	}
}

func TestLogin(t *testing.T) {
	h, _, _ := newTestHandler(t)

	w := do(t, h, nil, http.MethodPost, "/auth/login", map[string]string{"username": "planner", "password": testPassword})
	if env := decode(t, w); !env.Success {
		t.Fatalf("登录失败: %+v", env)
	}

	found := false
	for _, c := range w.Result().Cookies() {
		if c.Name == tokenCookieName && c.Value != "" && c.HttpOnly {
			found = true
		}
	}
	if !found {
		t.Errorf("登录成功后应当设置 http-only 的令牌 cookie")
	}

	env := decode(t, do(t, h, nil, http.MethodPost, "/auth/login", map[string]string{"username": "planner", "password": "wrong"}))
	if env.Success || env.Message != "用户名不存在或密码错误" {
		t.Errorf("错误密码期望登录失败，实际 %+v", env)
	}
}

func TestRequestID(t *testing.T) {
	h, _, _ := newTestHandler(t)

	w := do(t, h, nil, http.MethodGet, "/engineers", nil)
	if w.Header().Get(requestIDHeader) == "" {
		t.Errorf("响应应当带有 %s", requestIDHeader)
	}

	req := httptest.NewRequest(http.MethodGet, "/engineers", nil)
	req.Header.Set(requestIDHeader, "6f1c1f8e-6a43-4e0a-9a57-3c2b0f9f6d11")
	w = httptest.NewRecorder()
	h.Mux.ServeHTTP(w, req)
	if got := w.Header().Get(requestIDHeader); got != "6f1c1f8e-6a43-4e0a-9a57-3c2b0f9f6d11" {
		t.Errorf("合法的请求 ID 应当被沿用，实际 %s", got)
	}
}

// ── 花名册与排期 ──

func TestCreateEngineer(t *testing.T) {
	h, store, _ := newTestHandler(t)
	user := store.users[1]

	env := decode(t, do(t, h, user, http.MethodPost, "/engineers", map[string]any{
		"name": "  John Smith ", "team": "Team B", "weeklyHours": 40, "pto": map[string]float64{"2025-09": 3},
	}))
	if !env.Success {
		t.Fatalf("创建工程师失败: %+v", env)
	}

	var created struct {
		Name          string  `json:"name"`
		AnnualPTODays float64 `json:"annualPTODays"`
	}
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if created.Name != "John Smith" || created.AnnualPTODays != 3 {
		t.Errorf("期望名字被去除空格且年度休假为 3，实际 %+v", created)
	}

	env = decode(t, do(t, h, user, http.MethodPost, "/engineers", map[string]any{
		"name": "Bad PTO", "pto": map[string]float64{"2025-13": 1},
	}))
	if env.Success {
		t.Errorf("非法月份的休假应当被拒绝")
	}
}

func TestReplaceEngineerPTO(t *testing.T) {
	h, store, _ := newTestHandler(t)

	env := decode(t, do(t, h, store.users[1], http.MethodPut, "/engineers/10/pto", map[string]any{
		"pto": map[string]float64{"2025-08": 1, "2025-09": 1.5},
	}))
	if !env.Success {
		t.Fatalf("替换休假失败: %+v", env)
	}
	if got := store.engineers[0].AnnualPTODays(); got != 2.5 {
		t.Errorf("年度休假期望 2.5，实际 %v", got)
	}

	env = decode(t, do(t, h, store.users[1], http.MethodPut, "/engineers/10/pto", map[string]any{
		"pto": map[string]float64{"2025-08": 2.3},
	}))
	if env.Success || env.Message != "2025-08 的休假天数必须以半天为单位" {
		t.Errorf("期望半天粒度的提示，实际 %+v", env)
	}
	if got := store.engineers[0].AnnualPTODays(); got != 2.5 {
		t.Errorf("被拒绝的休假不应当保存，实际 %v", got)
	}

	env = decode(t, do(t, h, store.users[1], http.MethodPut, "/engineers/999/pto", map[string]any{"pto": map[string]float64{}}))
	if env.Success || env.Message != "工程师不存在" {
		t.Errorf("期望 工程师不存在，实际 %+v", env)
	}
}

func TestUpdateEngineer_RenameCascades(t *testing.T) {
	h, store, _ := newTestHandler(t)

	env := decode(t, do(t, h, store.users[1], http.MethodPatch, "/engineers/10", map[string]any{"name": "Jane Roe"}))
	if !env.Success {
		t.Fatalf("更新工程师失败: %+v", env)
	}
	for _, a := range store.assignments {
		if a.EngineerName != "Jane Roe" {
			t.Errorf("改名后排期记录应当同步，实际 %s", a.EngineerName)
		}
	}
}

func TestCreateAssignment_Validation(t *testing.T) {
	h, store, _ := newTestHandler(t)

	env := decode(t, do(t, h, store.users[1], http.MethodPost, "/assignments", map[string]any{
		"engineerName": "Jane Doe", "program": "Alpha", "feature": "Search", "month": "2025/10", "allocation": 10,
	}))
	if env.Success || env.Message != "Month必须是 YYYY-MM 格式的月份" {
		t.Errorf("期望月份格式错误的提示，实际 %+v", env)
	}

	env = decode(t, do(t, h, store.users[1], http.MethodPost, "/assignments", map[string]any{
		"engineerName": "Jane Doe", "program": "Alpha", "feature": "Search", "month": "2025-10", "allocation": 10,
	}))
	if !env.Success {
		t.Fatalf("创建排期失败: %+v", env)
	}
	last := store.assignments[len(store.assignments)-1]
	if last.Priority != domain.PriorityMedium {
		t.Errorf("未指定优先级时期望 Medium，实际 %s", last.Priority)
	}
}

func TestAssignmentAllocationRange(t *testing.T) {
	h, store, _ := newTestHandler(t)
	before := len(store.assignments)

	for _, allocation := range []float64{250, -10} {
		env := decode(t, do(t, h, store.users[1], http.MethodPost, "/assignments", map[string]any{
			"engineerName": "Jane Doe", "program": "Alpha", "feature": "Search", "month": "2025-10", "allocation": allocation,
		}))
		if env.Success {
			t.Errorf("百分比 %v 应当被拒绝", allocation)
		}
	}
	if len(store.assignments) != before {
		t.Errorf("越界的排期不应当被保存，实际 %d 条", len(store.assignments))
	}

	env := decode(t, do(t, h, store.users[1], http.MethodPatch, "/assignments/20", map[string]any{"allocation": 150}))
	if env.Success {
		t.Errorf("更新为 150%% 应当被拒绝，实际 %+v", env)
	}
	if store.assignments[0].Allocation != 30 {
		t.Errorf("被拒绝的更新不应修改记录，实际 %v", store.assignments[0].Allocation)
	}

	env = decode(t, do(t, h, store.users[1], http.MethodPost, "/assignments", map[string]any{
		"engineerName": "Jane Doe", "program": "Alpha", "feature": "Search", "month": "2025-10", "allocation": 100,
	}))
	if !env.Success {
		t.Errorf("100%% 应当被接受，实际 %+v", env)
	}
}

func TestGetAssignments_Filter(t *testing.T) {
	h, store, _ := newTestHandler(t)

	env := decode(t, do(t, h, store.users[2], http.MethodGet, "/assignments?month=2025-09", nil))
	var assignments []domain.Assignment
	if err := json.Unmarshal(env.Data, &assignments); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if len(assignments) != 1 || assignments[0].Allocation != 20 {
		t.Errorf("期望只返回 2025-09 的一条记录，实际 %+v", assignments)
	}
}

// ── 报表 ──

func TestGetUtilization(t *testing.T) {
	h, store, _ := newTestHandler(t)

	env := decode(t, do(t, h, store.users[2], http.MethodGet, "/reports/utilization", nil))
	if !env.Success {
		t.Fatalf("获取利用率失败: %+v", env)
	}

	var rows []planner.UtilizationRow
	if err := json.Unmarshal(env.Data, &rows); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("3 个月的窗口只覆盖一个季度，期望 1 行，实际 %d", len(rows))
	}
	if rows[0].Quarter != "Q1 FY2026" || rows[0].EffectiveAllocation != 25 || rows[0].Status != planner.StatusAvailable {
		t.Errorf("利用率计算错误: %+v", rows[0])
	}

	env = decode(t, do(t, h, store.users[2], http.MethodGet, "/reports/utilization?months=0", nil))
	if env.Success {
		t.Errorf("非法的 months 参数应当被拒绝")
	}
}

func TestGetUtilization_TableFormat(t *testing.T) {
	h, store, _ := newTestHandler(t)

	env := decode(t, do(t, h, store.users[2], http.MethodGet, "/reports/utilization?format=table", nil))
	var table struct {
		Header []string   `json:"header"`
		Rows   [][]string `json:"rows"`
	}
	if err := json.Unmarshal(env.Data, &table); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if len(table.Rows) != 1 || table.Rows[0][0] != "Jane Doe" {
		t.Errorf("表格格式错误: %+v", table)
	}
}

func TestGetTrend(t *testing.T) {
	h, store, _ := newTestHandler(t)

	env := decode(t, do(t, h, store.users[2], http.MethodGet, "/reports/trends/program", nil))
	var points []planner.TrendPoint
	if err := json.Unmarshal(env.Data, &points); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	// (30 + 20) / 3
	if len(points) != 1 || points[0].Value != "Alpha" || points[0].Allocation != 16.67 {
		t.Errorf("趋势计算错误: %+v", points)
	}

	env = decode(t, do(t, h, store.users[2], http.MethodGet, "/reports/trends/team", nil))
	if env.Success {
		t.Errorf("不支持的维度应当报错")
	}
}

func TestGetMatrix(t *testing.T) {
	h, store, _ := newTestHandler(t)

	env := decode(t, do(t, h, store.users[2], http.MethodGet, "/reports/matrix?metric=allocated", nil))
	var matrix planner.MatrixReport
	if err := json.Unmarshal(env.Data, &matrix); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if matrix.ChartKind != planner.ChartGroupedBar || len(matrix.Values) != 1 || matrix.Values[0][0] != 25 {
		t.Errorf("矩阵计算错误: %+v", matrix)
	}

	env = decode(t, do(t, h, store.users[2], http.MethodGet, "/reports/matrix?metric=bogus", nil))
	if env.Success {
		t.Errorf("不支持的指标应当报错")
	}
}

func TestGetPipelineSummary(t *testing.T) {
	h, store, _ := newTestHandler(t)
	store.projects = []*domain.FutureProject{
		{ID: 1, Name: "P1", EstimatedEngineers: 3, Priority: domain.PriorityCritical},
		{ID: 2, Name: "P2", EstimatedEngineers: 2, Priority: domain.PriorityLow},
	}

	env := decode(t, do(t, h, store.users[2], http.MethodGet, "/reports/pipeline", nil))
	var summary planner.PipelineSummary
	if err := json.Unmarshal(env.Data, &summary); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	want := planner.PipelineSummary{TotalProjects: 2, TotalEngineersNeeded: 5, HighPriorityProjects: 0, CriticalPriorityProjects: 1}
	if summary != want {
		t.Errorf("期望 %+v，实际 %+v", want, summary)
	}
}

func TestGetProjectTimeline(t *testing.T) {
	h, store, _ := newTestHandler(t)
	store.projects = []*domain.FutureProject{
		{ID: 1, Name: "Later", ExpectedStartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), ExpectedEndDate: time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC), Priority: domain.PriorityMedium, EstimatedEngineers: 2},
		{ID: 2, Name: "Sooner", ExpectedStartDate: time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), ExpectedEndDate: time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), Priority: domain.PriorityHigh, EstimatedEngineers: 3},
	}

	env := decode(t, do(t, h, store.users[2], http.MethodGet, "/reports/pipeline/timeline", nil))
	if !env.Success {
		t.Fatalf("获取项目时间线失败: %+v", env)
	}

	var bars []planner.ProjectBar
	if err := json.Unmarshal(env.Data, &bars); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if len(bars) != 2 || bars[0].Project != "Sooner" || bars[0].Engineers != 3 || bars[1].Project != "Later" {
		t.Errorf("期望按开始日期排列，实际 %+v", bars)
	}
}

func TestCreateFutureProject_Dates(t *testing.T) {
	h, store, _ := newTestHandler(t)

	env := decode(t, do(t, h, store.users[1], http.MethodPost, "/future-projects", map[string]any{
		"name": "Gamma", "expectedStartDate": "2026-03-01", "expectedEndDate": "2026-01-01",
	}))
	if env.Success {
		t.Errorf("结束早于开始应当被拒绝")
	}

	env = decode(t, do(t, h, store.users[1], http.MethodPost, "/future-projects", map[string]any{
		"name": "Gamma", "expectedStartDate": "2026-01-01", "expectedEndDate": "2026-03-01", "estimatedEngineers": 2,
	}))
	if !env.Success {
		t.Fatalf("创建项目失败: %+v", env)
	}
	if store.projects[0].Status != domain.ProjectStatusPlanning {
		t.Errorf("默认状态期望 Planning，实际 %s", store.projects[0].Status)
	}
}

func TestExportWorkbook(t *testing.T) {
	h, store, _ := newTestHandler(t)

	w := do(t, h, store.users[2], http.MethodGet, "/reports/export", nil)
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("Content-Type 错误: %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "Engineer_Resource_Allocation_20250815.xlsx") {
		t.Errorf("Content-Disposition 错误: %s", cd)
	}
	if w.Body.Len() == 0 {
		t.Errorf("导出文件不应为空")
	}
}

func TestSendOverAllocationAlerts(t *testing.T) {
	h, store, publisher := newTestHandler(t)

	env := decode(t, do(t, h, store.users[1], http.MethodPost, "/reports/over-allocation-alerts", nil))
	if !env.Success || len(publisher.messages) != 0 {
		t.Fatalf("没有超额分配时不应当发送邮件: %+v", env)
	}

	store.assignments = append(store.assignments, &domain.Assignment{
		ID: 22, EngineerName: "Jane Doe", Program: "Beta", Feature: "Search", Priority: domain.PriorityLow, Month: "2025-08", Allocation: 200,
	})

	env = decode(t, do(t, h, store.users[1], http.MethodPost, "/reports/over-allocation-alerts", nil))
	if !env.Success {
		t.Fatalf("发送提醒失败: %+v", env)
	}
	// 管理员和规划员各一封
	if len(publisher.messages) != 2 {
		t.Fatalf("期望 2 封邮件，实际 %d", len(publisher.messages))
	}
	if publisher.messages[0].Type != domain.MailTypeOverAllocationAlert || publisher.messages[0].To != "admin@example.com" {
		t.Errorf("邮件内容错误: %+v", publisher.messages[0])
	}
}

// ── 导入 ──

func TestImportEngineers(t *testing.T) {
	h, store, _ := newTestHandler(t)

	env := decode(t, do(t, h, store.users[1], http.MethodPost, "/import/engineers", map[string]any{
		"header": []string{"Engineer Name", "Team", "PTO_2025_08"},
		"rows":   [][]string{{"A", "T1", "1"}, {"B", "T2", ""}, {"A", "T3", "5"}},
	}))
	if !env.Success {
		t.Fatalf("导入花名册失败: %+v", env)
	}
	if len(store.engineers) != 2 || store.engineers[0].Team != "T1" {
		t.Errorf("重复的名字应当只保留第一条，实际 %+v", store.engineers)
	}

	env = decode(t, do(t, h, store.users[1], http.MethodPost, "/import/engineers", map[string]any{
		"header": []string{"Team"},
		"rows":   [][]string{{"T1"}},
	}))
	if env.Success || !strings.Contains(env.Message, "缺少必需的列") {
		t.Errorf("缺少 Engineer Name 列应当报错，实际 %+v", env)
	}
}

func TestImportAssignments_MissingDimensions(t *testing.T) {
	h, store, _ := newTestHandler(t)

	env := decode(t, do(t, h, store.users[1], http.MethodPost, "/import/assignments", map[string]any{
		"header": []string{"Engineer Name", "Month", "Allocation %"},
		"rows":   [][]string{{"Jane Doe", "2025-08", "50%"}},
	}))
	if !env.Success {
		t.Fatalf("导入排期失败: %+v", env)
	}

	var result struct {
		Assignments       int      `json:"assignments"`
		MissingDimensions []string `json:"missingDimensions"`
	}
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if result.Assignments != 1 || len(result.MissingDimensions) != 3 {
		t.Errorf("期望 1 条记录、3 个缺失维度，实际 %+v", result)
	}
	if store.assignments[0].Allocation != 50 {
		t.Errorf("百分比解析错误: %v", store.assignments[0].Allocation)
	}
}

func TestImportAssignments_MissingDimensionMakesViewsUnavailable(t *testing.T) {
	h, store, _ := newTestHandler(t)

	env := decode(t, do(t, h, store.users[1], http.MethodPost, "/import/assignments", map[string]any{
		"header": []string{"Engineer Name", "Month", "Allocation %"},
		"rows":   [][]string{{"Jane Doe", "2025-08", "50"}},
	}))
	if !env.Success {
		t.Fatalf("导入排期失败: %+v", env)
	}

	for _, path := range []string{"/reports/trends/program", "/reports/trends/feature", "/reports/trends/priority", "/reports/timeline"} {
		env = decode(t, do(t, h, store.users[2], http.MethodGet, path, nil))
		if env.Success || !strings.HasPrefix(env.Message, planner.ErrDimensionUnavailable.Error()) {
			t.Errorf("%s 期望维度不可用，实际 %+v", path, env)
		}
	}

	// 利用率不依赖维度列
	env = decode(t, do(t, h, store.users[2], http.MethodGet, "/reports/utilization", nil))
	if !env.Success {
		t.Errorf("缺少维度列时利用率仍应可用，实际 %+v", env)
	}

	// 重新导入完整的表格后恢复
	env = decode(t, do(t, h, store.users[1], http.MethodPost, "/import/assignments", map[string]any{
		"header": []string{"Engineer Name", "Program", "Feature", "Priority", "Month", "Allocation %"},
		"rows":   [][]string{{"Jane Doe", "Alpha", "Login", "High", "2025-08", "60"}},
	}))
	if !env.Success {
		t.Fatalf("导入排期失败: %+v", env)
	}
	env = decode(t, do(t, h, store.users[2], http.MethodGet, "/reports/trends/program", nil))
	if !env.Success {
		t.Errorf("完整导入后趋势应当可用，实际 %+v", env)
	}
}
