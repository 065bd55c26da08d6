package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"budget/config"
	"budget/database"
	"budget/events"
	"budget/models"
	"budget/service"
	"budget/storage"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// setupMockDB 基于 sqlmock 的 MySQL 连接，用于校验具体 SQL
func setupMockDB(t *testing.T) (sqlmock.Sqlmock, *service.Services, func()) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	return mock, service.New(gormDB, nil, nil), func() {
		sqlDB.Close()
	}
}

// setupSQLite 内存 sqlite，用于完整行为测试
func setupSQLite(t *testing.T) (*gorm.DB, *service.Services) {
	t.Helper()
	db, err := database.OpenSQLite(":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db, service.New(db, events.NopPublisher{}, nil)
}

func newTestReceipts(t *testing.T) *storage.ReceiptStore {
	t.Helper()
	return storage.NewReceiptStore(config.UploadConfig{Dir: t.TempDir(), URLPrefix: "/uploads", MaxSizeMB: 1})
}

func seedAccount(t *testing.T, db *gorm.DB, opening models.Money) service.Caller {
	t.Helper()
	account := models.Account{Name: "测试", Type: models.AccountPersonal, OpeningBalance: opening, Currency: "USD"}
	require.NoError(t, db.Create(&account).Error)
	user := models.User{
		AccountID: account.ID,
		Username:  fmt.Sprintf("owner%d", account.ID),
		Password:  "x",
		Role:      models.UserRoleOwner,
		Status:    models.UserStatusActive,
	}
	require.NoError(t, db.Omit("Account").Create(&user).Error)
	return service.Caller{UserID: user.ID, AccountID: account.ID}
}

// setCaller 模拟认证中间件写入的身份
func setCaller(caller service.Caller) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", caller.UserID)
		c.Set("accountID", caller.AccountID)
		c.Next()
	}
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func doJSONWithToken(router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func dataOf(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	data, ok := decode(t, w)["data"].(map[string]interface{})
	require.True(t, ok, w.Body.String())
	return data
}
