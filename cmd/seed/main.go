package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/fiscal"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/repository"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/seed"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int
	var engineersFile string
	var assignmentsFile string

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入随机用户, 2: 插入随机工程师, 3: 为所有工程师插入随机排期, 4: 插入随机未来项目, 5: 从 CSV 导入花名册和排期)")
	flag.IntVar(&n, "n", 5, "要插入的记录数量")
	flag.StringVar(&engineersFile, "engineers", "", "花名册 CSV 文件路径")
	flag.StringVar(&assignmentsFile, "assignments", "", "排期 CSV 文件路径")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	repo := repository.NewRepository(cfg, dbpool)

	// 随机数据覆盖当前财季开始的整个预测窗口
	var months []string
	for _, q := range fiscal.Window(time.Now(), cfg.Planning.LookaheadMonths) {
		months = append(months, q.Months()...)
	}

	if op != 5 && n <= 0 {
		slog.Error("请输入合法的记录数量")
		return
	}

	switch op {
	case 0:
		slog.Error("未指定操作")
	case 1:
		cnt := 0
		for i := 0; i < n; i++ {
			user, err := utils.GenerateRandomUser(cfg.Seed.User.Password, cfg.Email.UserDomain)
			if err != nil {
				slog.Error("无法生成随机用户", slog.String("error", err.Error()))
				continue
			}
			if err := repo.CreateUser(user); err != nil {
				slog.Error("无法插入用户", slog.String("error", err.Error()))
				continue
			}
			cnt++
		}
		slog.Info("插入用户成功", slog.Int("count", cnt))
	case 2:
		cnt := 0
		for i := 0; i < n; i++ {
			// 随机姓名可能重复，重复时由唯一约束拒绝
			if err := repo.CreateEngineer(utils.GenerateRandomEngineer(months)); err != nil {
				slog.Error("无法插入工程师", slog.String("error", err.Error()))
				continue
			}
			cnt++
		}
		slog.Info("插入工程师成功", slog.Int("count", cnt))
	case 3:
		engineers, err := repo.GetAllEngineers()
		if err != nil {
			slog.Error("无法获取所有工程师", slog.String("error", err.Error()))
			return
		}

		cnt := 0
		for _, e := range engineers {
			for _, a := range utils.GenerateRandomAssignments(e.Name, months) {
				if err := repo.CreateAssignment(a); err != nil {
					slog.Error("无法插入排期", slog.String("engineer", e.Name), slog.String("error", err.Error()))
					continue
				}
				cnt++
			}
		}
		slog.Info("插入排期成功", slog.Int("count", cnt))
	case 4:
		cnt := 0
		for i := 0; i < n; i++ {
			if err := repo.CreateFutureProject(utils.GenerateRandomFutureProject(time.Now())); err != nil {
				slog.Error("无法插入未来项目", slog.String("error", err.Error()))
				continue
			}
			cnt++
		}
		slog.Info("插入未来项目成功", slog.Int("count", cnt))
	case 5:
		if engineersFile == "" && assignmentsFile == "" {
			slog.Error("请通过 -engineers 或 -assignments 指定 CSV 文件")
			return
		}
		if engineersFile != "" {
			if err := seed.ImportRoster(repo, engineersFile); err != nil {
				slog.Error("导入花名册失败", slog.String("error", err.Error()))
				return
			}
		}
		if assignmentsFile != "" {
			if err := seed.ImportLedger(repo, assignmentsFile); err != nil {
				slog.Error("导入排期失败", slog.String("error", err.Error()))
				return
			}
		}
	default:
		slog.Error("指定的操作非法")
	}
}
