package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"budget/config"
	"budget/database"
	"budget/events"
	"budget/logger"
	"budget/middleware"
	"budget/router"
	"budget/service"
	"budget/storage"

	"github.com/joho/godotenv"
)

// @title 预算管理 API
// @version 1.0
// @description 月度预算分配、类别账本与交易对账，支持个人与企业账户
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

var (
	configFile  string
	port        string
	showVersion bool
)

func init() {
	flag.StringVar(&configFile, "config", "", "外部配置文件路径（可选）")
	flag.StringVar(&configFile, "c", "", "外部配置文件路径（简写）")
	flag.StringVar(&port, "port", "", "监听端口，如: 8080 或 :8080")
	flag.StringVar(&port, "p", "", "监听端口（简写）")
	flag.BoolVar(&showVersion, "version", false, "显示版本信息")
	flag.BoolVar(&showVersion, "v", false, "显示版本信息（简写）")
}

func main() {
	flag.Parse()

	if showVersion {
		log.Println("预算管理 v1.0.0")
		return
	}

	// .env 可选，用于本地开发注入 BUDGET_* 环境变量
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("警告: 读取 .env 失败: %v", err)
	}

	// 加载配置（内置配置 + 可选的外部配置覆盖 + 环境变量）
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 命令行参数覆盖端口配置
	if port != "" {
		if !strings.HasPrefix(port, ":") {
			port = ":" + port
		}
		cfg.Server.Port = port
		log.Printf("命令行指定端口: %s", port)
	}

	config.PrintConfig()
	appLog := logger.Init(cfg.Log)

	// 初始化数据库
	if err := database.Init(cfg); err != nil {
		log.Fatalf("数据库初始化失败: %v", err)
	}

	// 初始化 JWT
	middleware.InitJWT(cfg)

	// 领域事件：未启用时丢弃
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Events.Enabled {
		amqp, err := events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			appLog.WithError(err).Warn("事件总线不可用，领域事件将被丢弃")
		} else {
			publisher = amqp
		}
	}
	defer publisher.Close()

	mail := service.NewEmailService(&cfg.Email)
	services := service.New(database.DB, publisher, service.NewEmailNotifier(database.DB, mail))

	// 每月预算提醒
	if cfg.Scheduler.Enabled {
		scheduler, err := service.NewScheduler(cfg.Scheduler.ReminderSpec, service.NewPlanReminder(database.DB, mail))
		if err != nil {
			log.Fatalf("定时任务初始化失败: %v", err)
		}
		scheduler.Start()
		defer func() { <-scheduler.Stop().Done() }()
	}

	r := router.Setup(cfg, router.Deps{
		Services: services,
		Receipts: storage.NewReceiptStore(cfg.Upload),
		Logger:   appLog,
	})

	srv := &http.Server{
		Addr:    cfg.Server.Port,
		Handler: r,
	}

	log.Printf("==========================================")
	log.Printf("  预算管理服务已启动")
	log.Printf("==========================================")
	log.Printf("  Swagger:  http://localhost%s/swagger/index.html", cfg.Server.Port)
	log.Printf("  API接口:  http://localhost%s/api/v1/", cfg.Server.Port)
	log.Printf("==========================================")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("服务器启动失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLog.Info("正在关闭服务...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLog.WithError(err).Error("服务关闭失败")
	}
}
