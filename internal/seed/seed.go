package seed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/repository"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/tabular"
)

var ErrEmptyFile = errors.New("文件为空")

/**
 * ReadTable 把 CSV 读成表格：
 * 		1. 第一行是表头，表头两端的空白和 UTF-8 BOM 会被去掉
 * 		2. 每行的列数可以和表头不同，缺少的单元格视为空
 */
func ReadTable(r io.Reader) (tabular.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return tabular.Table{}, ErrEmptyFile
		}
		return tabular.Table{}, fmt.Errorf("读取表头失败: %w", err)
	}
	for i, col := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
	}

	table := tabular.Table{Header: header, Rows: make([][]string, 0)}
	for {
		row, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return tabular.Table{}, fmt.Errorf("读取第 %d 行失败: %w", len(table.Rows)+2, err)
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

func readFile(path string) (tabular.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return tabular.Table{}, err
	}
	defer file.Close()

	return ReadTable(file)
}

// ImportRoster 用 CSV 文件整体替换花名册
func ImportRoster(r *repository.Repository, path string) error {
	table, err := readFile(path)
	if err != nil {
		return err
	}

	engineers, err := tabular.RosterFromTable(table)
	if err != nil {
		return err
	}

	if err := r.ReplaceRoster(engineers); err != nil {
		return err
	}

	slog.Info("导入花名册成功", slog.String("file", path), slog.Int("engineers", len(engineers)))
	return nil
}

// ImportLedger 用 CSV 文件整体替换排期，缺少的维度列只记录日志
func ImportLedger(r *repository.Repository, path string) error {
	table, err := readFile(path)
	if err != nil {
		return err
	}

	ledger, err := tabular.LedgerFromTable(table)
	if err != nil {
		return err
	}

	for _, dim := range ledger.Missing {
		slog.Warn("排期文件缺少维度列", slog.String("file", path), slog.String("dimension", string(dim)))
	}

	if err := r.ReplaceLedger(ledger.Assignments, ledger.Missing); err != nil {
		return err
	}

	slog.Info("导入排期成功", slog.String("file", path), slog.Int("assignments", len(ledger.Assignments)))
	return nil
}
