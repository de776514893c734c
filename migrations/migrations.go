// Package migrations 内嵌数据库迁移脚本，使 cmd/api 启动时可以直接执行
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
