package api

import (
	"net/http"
	"testing"
	"time"

	"budget/config"
	"budget/middleware"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.ExpireTime = time.Hour
	middleware.InitJWT(cfg)
	return cfg
}

func TestRegister_UsernameExists(t *testing.T) {
	mock, svc, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `users` WHERE username = \\?").
		WithArgs("existinguser").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	router := gin.New()
	router.POST("/register", NewAuthHandler(testConfig(), svc.Accounts).Register)

	w := doJSON(router, http.MethodPost, "/register", map[string]interface{}{
		"username": "existinguser",
		"password": "password123",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "用户名已存在", decode(t, w)["message"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister_InvalidRequest(t *testing.T) {
	_, svc, cleanup := setupMockDB(t)
	defer cleanup()

	router := gin.New()
	router.POST("/register", NewAuthHandler(testConfig(), svc.Accounts).Register)

	w := doJSON(router, http.MethodPost, "/register", map[string]interface{}{"username": "ab"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_UserNotFound(t *testing.T) {
	mock, svc, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT \\* FROM `users` WHERE username = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	router := gin.New()
	router.POST("/login", NewAuthHandler(testConfig(), svc.Accounts).Login)

	w := doJSON(router, http.MethodPost, "/login", map[string]interface{}{
		"username": "nobody",
		"password": "password123",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "用户名或密码错误", decode(t, w)["message"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin_WrongPassword(t *testing.T) {
	mock, svc, cleanup := setupMockDB(t)
	defer cleanup()

	hashed, err := bcrypt.GenerateFromPassword([]byte("correct-password"), bcrypt.MinCost)
	require.NoError(t, err)
	now := time.Now()

	mock.ExpectQuery("SELECT \\* FROM `users` WHERE username = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "username", "password", "email", "role", "status", "created_at", "updated_at", "deleted_at"}).
			AddRow(1, 1, "alice", string(hashed), "", "owner", "active", now, now, nil))
	mock.ExpectQuery("SELECT \\* FROM `accounts` WHERE `accounts`.`id` = \\?").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "type", "opening_balance", "currency", "created_at", "updated_at"}).
			AddRow(1, "alice", "PERSONAL", 0, "USD", now, now))

	router := gin.New()
	router.POST("/login", NewAuthHandler(testConfig(), svc.Accounts).Login)

	w := doJSON(router, http.MethodPost, "/login", map[string]interface{}{
		"username": "alice",
		"password": "wrong-password",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterLoginProfile(t *testing.T) {
	_, svc := setupSQLite(t)
	handler := NewAuthHandler(testConfig(), svc.Accounts)

	router := gin.New()
	router.POST("/register", handler.Register)
	router.POST("/login", handler.Login)

	w := doJSON(router, http.MethodPost, "/register", map[string]interface{}{
		"username":       "alice",
		"password":       "password123",
		"accountType":    "business",
		"openingBalance": 5000,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	account := dataOf(t, w)["account"].(map[string]interface{})
	assert.Equal(t, "BUSINESS", account["type"])
	assert.Equal(t, "USD", account["currency"])
	assert.EqualValues(t, 5000, account["openingBalance"])

	w = doJSON(router, http.MethodPost, "/login", map[string]interface{}{
		"username": "alice",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token := dataOf(t, w)["token"].(string)

	claims, err := middleware.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.EqualValues(t, account["id"], claims.AccountID)

	protected := gin.New()
	protected.GET("/profile", middleware.JWTAuth(), handler.GetProfile)
	protected.POST("/members", middleware.JWTAuth(), handler.AddMember)
	protected.GET("/members", middleware.JWTAuth(), handler.ListMembers)

	req := func(method, path string, body interface{}) map[string]interface{} {
		w := doJSONWithToken(protected, method, path, token, body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		return decode(t, w)
	}

	profile := req(http.MethodGet, "/profile", nil)["data"].(map[string]interface{})
	assert.Equal(t, "alice", profile["user"].(map[string]interface{})["username"])

	member := req(http.MethodPost, "/members", map[string]interface{}{
		"username": "bob",
		"password": "password123",
	})["data"].(map[string]interface{})
	assert.Equal(t, "member", member["role"])

	members := req(http.MethodGet, "/members", nil)["data"].([]interface{})
	assert.Len(t, members, 2)
}

func TestAddMember_PersonalAccountRejected(t *testing.T) {
	db, svc := setupSQLite(t)
	caller := seedAccount(t, db, 0)

	router := gin.New()
	router.POST("/members", setCaller(caller), NewAuthHandler(testConfig(), svc.Accounts).AddMember)

	w := doJSON(router, http.MethodPost, "/members", map[string]interface{}{
		"username": "bob",
		"password": "password123",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "只有企业账户可以添加协作者", decode(t, w)["message"])
}
