package utils

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/mozillazg/go-pinyin"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "霞", "飞", "玲", "超",
	"华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌", "庆",
	"建", "丹", "彬", "凤", "旭", "宁", "乐", "成", "欣",
}

func GenerateRandomChineseName() string {
	surname := commonSurnames[rand.Intn(len(commonSurnames))]
	nameLength := rand.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[rand.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

var digits = "0123456789"

// GenerateUsernameFromChineseName 取每个字拼音的随机前缀，再加 1~3 位数字
func GenerateUsernameFromChineseName(chineseName string) string {
	username := ""
	for _, py := range pinyin.LazyConvert(chineseName, nil) {
		username += py[:rand.Intn(len(py))+1]
	}

	digitsLength := rand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		username += string(digits[rand.Intn(len(digits))])
	}

	return username
}

// 随机账号只会是规划员或访客，管理员只能手动创建
var seedRoles = []domain.Role{domain.RolePlanner, domain.RoleViewer}

func GenerateRandomUser(password string, emailDomainName string) (*domain.User, error) {
	fullName := GenerateRandomChineseName()
	username := GenerateUsernameFromChineseName(fullName)
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	return &domain.User{
		Username:     username,
		PasswordHash: string(passwordHash),
		FullName:     fullName,
		Email:        username + "@" + emailDomainName,
		Role:         seedRoles[rand.Intn(len(seedRoles))],
	}, nil
}

func GenerateRandomOTP() string {
	return fmt.Sprintf("%06d", rand.Intn(1000000))
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*")

func GenerateRandomPassword(length int) string {
	password := make([]rune, length)
	for i := range password {
		password[i] = letters[rand.Intn(len(letters))]
	}
	return string(password)
}

var (
	teams         = []string{"平台组", "数据组", "基础设施组", "客户端组"}
	engineerRoles = []string{"后端开发", "前端开发", "测试开发", "运维工程师", "算法工程师"}
	programs      = []string{"北斗", "天枢", "星河", "长庚"}
	features      = map[string][]string{
		"北斗": {"统一登录", "权限中心", "审计日志"},
		"天枢": {"指标平台", "实时看板"},
		"星河": {"搜索召回", "推荐排序", "特征仓库"},
		"长庚": {"容器迁移", "成本治理"},
	}
	projectSkills = []string{"Go", "Kubernetes", "React", "数据建模", "机器学习", "PostgreSQL"}
)

/**
 * GenerateRandomEngineer 生成一名随机工程师
 * months 中的每个月有 1/3 的概率安排休假，休假天数以半天为单位
 */
func GenerateRandomEngineer(months []string) *domain.Engineer {
	e := &domain.Engineer{
		Name:        GenerateRandomChineseName(),
		Team:        teams[rand.Intn(len(teams))],
		Role:        engineerRoles[rand.Intn(len(engineerRoles))],
		WeeklyHours: 40,
		PTO:         make(map[string]float64),
	}

	for _, month := range months {
		if rand.Intn(3) != 0 {
			continue
		}
		e.PTO[month] = float64(rand.Intn(11)) / 2 // 0 ~ 5 天
	}

	return e
}

// GenerateRandomAssignments 为一名工程师在若干个月上生成排期，每月 1~3 条，合计大致在 40% 到 120% 之间
func GenerateRandomAssignments(engineerName string, months []string) []*domain.Assignment {
	assignments := make([]*domain.Assignment, 0)

	for _, month := range months {
		// 部分月份不排期，用来覆盖稀疏数据的情况
		if rand.Intn(4) == 0 {
			continue
		}

		n := rand.Intn(3) + 1
		remaining := 40 + rand.Intn(81)
		for i := 0; i < n; i++ {
			program := programs[rand.Intn(len(programs))]
			programFeatures := features[program]

			allocation := remaining / (n - i)
			if i == n-1 {
				allocation = remaining
			}
			remaining -= allocation

			assignments = append(assignments, &domain.Assignment{
				EngineerName: engineerName,
				Program:      program,
				Feature:      programFeatures[rand.Intn(len(programFeatures))],
				Priority:     domain.Priorities[rand.Intn(len(domain.Priorities))],
				Month:        month,
				Allocation:   float64(allocation),
			})
		}
	}

	return assignments
}

var projectStatuses = []domain.ProjectStatus{
	domain.ProjectStatusPlanning,
	domain.ProjectStatusOnHold,
	domain.ProjectStatusApproved,
}

// GenerateRandomFutureProject 生成一个在 today 之后一年内开始的项目
func GenerateRandomFutureProject(today time.Time) *domain.FutureProject {
	start := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, rand.Intn(12)+1, 0)
	end := start.AddDate(0, rand.Intn(9)+3, -1)

	skills := projectSkills[rand.Intn(len(projectSkills))]
	if other := projectSkills[rand.Intn(len(projectSkills))]; other != skills {
		skills += ", " + other
	}

	return &domain.FutureProject{
		Name:               fmt.Sprintf("%s二期-%03d", programs[rand.Intn(len(programs))], rand.Intn(1000)),
		ExpectedStartDate:  start,
		ExpectedEndDate:    end,
		RequiredSkills:     skills,
		EstimatedEngineers: int32(rand.Intn(8) + 1),
		Priority:           domain.Priorities[rand.Intn(len(domain.Priorities))],
		Status:             projectStatuses[rand.Intn(len(projectStatuses))],
	}
}
