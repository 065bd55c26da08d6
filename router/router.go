package router

import (
	"net/http"
	"time"

	"budget/api"
	"budget/config"
	_ "budget/docs"
	"budget/middleware"
	"budget/service"
	"budget/storage"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// 登录/注册限流：每个 IP 每分钟最多 10 次
const (
	loginMaxAttempts = 10
	loginWindow      = time.Minute
)

// Deps 路由依赖，由 main 统一构建
type Deps struct {
	Services *service.Services
	Receipts *storage.ReceiptStore
	Logger   *logrus.Logger
}

// Setup 设置路由
func Setup(cfg *config.Config, deps Deps) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	if deps.Logger != nil {
		r.Use(middleware.RequestLogger(deps.Logger))
	}
	r.Use(CORSMiddleware())

	// Swagger 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 票据静态文件
	if deps.Receipts != nil {
		r.Static(deps.Receipts.URLPrefix(), deps.Receipts.Dir())
	}

	authHandler := api.NewAuthHandler(cfg, deps.Services.Accounts)
	budgetHandler := api.NewBudgetHandler(deps.Services)
	categoryHandler := api.NewCategoryHandler(deps.Services)
	transactionHandler := api.NewTransactionHandler(deps.Services, deps.Receipts)
	exportHandler := api.NewExportHandler(deps.Services)

	v1 := r.Group("/api/v1")
	{
		// 认证相关路由（无需登录）
		auth := v1.Group("/auth")
		auth.Use(middleware.LoginRateLimit(loginMaxAttempts, loginWindow))
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		// 需要 JWT 认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth())
		{
			authorized.GET("/auth/profile", authHandler.GetProfile)

			account := authorized.Group("/account")
			{
				account.GET("/members", authHandler.ListMembers)
				account.POST("/members", authHandler.AddMember)
			}

			budget := authorized.Group("/budget")
			{
				budget.GET("/view-monthly-allocations", budgetHandler.ViewMonthlyAllocations)
				budget.POST("/monthly-allocations", budgetHandler.SaveMonthlyAllocations)
				budget.GET("/summary", budgetHandler.Summary)
			}

			category := authorized.Group("/category")
			{
				category.POST("/saveCategory", categoryHandler.SaveCategory)
				category.GET("/getCategories", categoryHandler.GetCategories)
				category.DELETE("/:id", categoryHandler.DeleteCategory)
			}

			transaction := authorized.Group("/transaction")
			{
				transaction.POST("/add-expense", transactionHandler.AddExpense)
				transaction.GET("/history/:allocationCategoryId", transactionHandler.History)
				transaction.DELETE("/delete/:id", transactionHandler.DeleteExpense)
				transaction.POST("/reconcile/:allocationCategoryId", transactionHandler.Reconcile)
			}

			export := authorized.Group("/export")
			{
				export.GET("/csv", exportHandler.ExportCSV)
				export.GET("/excel", exportHandler.ExportExcel)
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	return r
}

// CORSMiddleware CORS 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
