package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"kidquest_backend/internal/app"
	"kidquest_backend/internal/config"
	"kidquest_backend/internal/model"
	"kidquest_backend/internal/util"
	"kidquest_backend/pkg/logger"
)

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// 命令行参数
	configDir := flag.String("config", "configs", "配置文件目录")
	migrateOnly := flag.Bool("migrate-only", false, "只执行数据库迁移，完成后退出")
	migrate := flag.Bool("migrate", false, "启动时强制执行数据库迁移（即使是 release 模式）")
	issueUser := flag.Uint("issue-token", 0, "为指定用户签发访问令牌后退出（本地调试用）")
	issueRole := flag.String("role", string(model.Child), "签发令牌的角色: PARENT 或 CHILD")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *issueUser != 0 {
		role := model.UserRole(*issueRole)
		if !role.Valid() {
			log.Fatalf("unknown role %q", *issueRole)
		}
		token, err := util.GenerateJWT(*issueUser, role, cfg.JWT.Secret, cfg.JWT.ExpireTime)
		if err != nil {
			log.Fatalf("Failed to issue token: %v", err)
		}
		fmt.Println(token)
		return
	}

	// 设置迁移标志
	cfg.ForceMigrate = *migrate || *migrateOnly
	cfg.MigrateOnly = *migrateOnly

	application := app.NewApp(cfg, *configDir)
	defer logger.Log.Sync()

	// 迁移完成后直接退出
	if *migrateOnly {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		application.Close(ctx)
		logger.Log.Info("数据库迁移完成，退出程序")
		return
	}

	application.Run()
}
