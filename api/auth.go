package api

import (
	"errors"
	"net/http"

	"budget/config"
	"budget/middleware"
	"budget/models"
	"budget/service"

	"github.com/gin-gonic/gin"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	cfg      *config.Config
	accounts *service.AccountService
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(cfg *config.Config, accounts *service.AccountService) *AuthHandler {
	return &AuthHandler{cfg: cfg, accounts: accounts}
}

// RegisterRequest 注册请求，同时创建账户
type RegisterRequest struct {
	Username       string       `json:"username" binding:"required,min=3,max=50" example:"alice"`
	Password       string       `json:"password" binding:"required,min=6,max=50" example:"password123"`
	Email          string       `json:"email" binding:"omitempty,email" example:"alice@example.com"`
	AccountName    string       `json:"accountName" binding:"max=100" example:"家庭账本"`
	AccountType    string       `json:"accountType" example:"PERSONAL"` // PERSONAL / BUSINESS
	OpeningBalance models.Money `json:"openingBalance" swaggertype:"number" example:"5000"`
	Currency       string       `json:"currency" example:"USD"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required" example:"alice"`
	Password string `json:"password" binding:"required" example:"password123"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token   string         `json:"token"`
	User    models.User    `json:"user"`
	Account models.Account `json:"account"`
}

// ProfileResponse 当前用户信息
type ProfileResponse struct {
	User    models.User    `json:"user"`
	Account models.Account `json:"account"`
}

// Register 注册
// @Summary 注册
// @Description 创建账户及其所有者。期初余额与币种在注册后不可修改。
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "注册信息"
// @Success 200 {object} Response{data=ProfileResponse} "注册成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 500 {object} Response "服务器错误"
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	user, account, err := h.accounts.Register(c.Request.Context(), service.RegisterInput{
		Username:       req.Username,
		Password:       req.Password,
		Email:          req.Email,
		AccountName:    req.AccountName,
		AccountType:    req.AccountType,
		OpeningBalance: req.OpeningBalance,
		Currency:       req.Currency,
	})
	if err != nil {
		respondError(c, err, "注册失败")
		return
	}

	SuccessWithMessage(c, "注册成功", ProfileResponse{User: *user, Account: *account})
}

// Login 登录
// @Summary 登录
// @Description 登录获取 JWT token，令牌中携带账户 ID
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body LoginRequest true "登录信息"
// @Success 200 {object} Response{data=LoginResponse} "登录成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "用户名或密码错误"
// @Failure 403 {object} Response "账号已锁定"
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	user, account, err := h.accounts.Authenticate(c.Request.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		Unauthorized(c, "用户名或密码错误")
		return
	case errors.Is(err, service.ErrAccountLocked):
		Error(c, http.StatusForbidden, "账号已锁定，请联系账户所有者")
		return
	case err != nil:
		respondError(c, err, "登录失败")
		return
	}

	token, err := middleware.GenerateToken(user.ID, user.AccountID, user.Username, h.cfg.JWT.ExpireTime)
	if err != nil {
		InternalError(c, "生成 token 失败")
		return
	}

	Success(c, LoginResponse{Token: token, User: *user, Account: *account})
}

// GetProfile 获取当前用户信息
// @Summary 获取当前用户信息
// @Description 获取当前登录用户及其账户
// @Tags 认证
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=ProfileResponse} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/auth/profile [get]
func (h *AuthHandler) GetProfile(c *gin.Context) {
	user, account, err := h.accounts.Profile(c.Request.Context(), currentCaller(c))
	if err != nil {
		respondError(c, err, "获取用户信息失败")
		return
	}
	Success(c, ProfileResponse{User: *user, Account: *account})
}

// MemberRequest 添加协作者请求
type MemberRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50" example:"bob"`
	Password string `json:"password" binding:"required,min=6,max=50" example:"password123"`
	Email    string `json:"email" binding:"omitempty,email" example:"bob@example.com"`
}

// AddMember 添加协作者
// @Summary 添加协作者
// @Description 企业账户所有者为账户添加协作者，协作者与所有者共享预算数据
// @Tags 账户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body MemberRequest true "协作者信息"
// @Success 200 {object} Response{data=models.User} "添加成功"
// @Failure 400 {object} Response "请求参数错误或非企业账户"
// @Failure 403 {object} Response "仅所有者可操作"
// @Router /api/v1/account/members [post]
func (h *AuthHandler) AddMember(c *gin.Context) {
	var req MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	member, err := h.accounts.AddMember(c.Request.Context(), currentCaller(c), service.MemberInput{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
	})
	if err != nil {
		respondError(c, err, "添加协作者失败")
		return
	}
	SuccessWithMessage(c, "添加成功", member)
}

// ListMembers 账户成员列表
// @Summary 账户成员列表
// @Tags 账户
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]models.User} "获取成功"
// @Router /api/v1/account/members [get]
func (h *AuthHandler) ListMembers(c *gin.Context) {
	users, err := h.accounts.Members(c.Request.Context(), currentCaller(c))
	if err != nil {
		respondError(c, err, "获取成员失败")
		return
	}
	Success(c, users)
}
