package main

import (
	"log"

	"github.com/mobilitics/mobility-analytics-go/internal/api"
	"github.com/mobilitics/mobility-analytics-go/internal/config"
	"github.com/mobilitics/mobility-analytics-go/internal/database"
)

func main() {
	// 加载配置
	cfg := config.Load()

	// 初始化数据库
	dbConfig := database.Config{
		Path: cfg.DBPath,
	}
	if err := database.Init(dbConfig); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer database.Close()

	// 初始化路由
	router := api.SetupRouter(cfg, database.GetDB())

	// 启动服务器
	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
