package api

import (
	"errors"
	"net/http"
	"strconv"

	"budget/config"
	"budget/logger"
	"budget/middleware"
	"budget/service"
	"budget/storage"

	"github.com/gin-gonic/gin"
)

// respondError 将领域错误映射为 HTTP 状态码，未知错误按 500 处理且在生产环境隐藏细节
func respondError(c *gin.Context, err error, fallback string) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		BadRequest(c, ve.Message)
	case errors.Is(err, service.ErrValidation):
		BadRequest(c, err.Error())
	case errors.Is(err, service.ErrNotFound):
		NotFound(c, "记录不存在")
	case errors.Is(err, service.ErrNotAuthorized):
		Forbidden(c, "无权访问该账户的数据")
	case errors.Is(err, service.ErrCategoryInUse):
		Conflict(c, "类别正在被月度预算使用，无法删除")
	case errors.Is(err, storage.ErrTooLarge):
		Error(c, http.StatusRequestEntityTooLarge, "票据文件过大")
	case errors.Is(err, storage.ErrUnsupportedType):
		BadRequest(c, "票据仅支持 JPG、PNG、WEBP 或 PDF")
	default:
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"path":       c.FullPath(),
			"account_id": middleware.GetCurrentAccountID(c),
		}).Error(fallback)
		InternalError(c, config.SafeErrorMessage(err, fallback))
	}
}

// currentCaller 从认证中间件写入的上下文构造调用方身份
func currentCaller(c *gin.Context) service.Caller {
	return service.Caller{
		UserID:    middleware.GetCurrentUserID(c),
		AccountID: middleware.GetCurrentAccountID(c),
	}
}

// accountParam 读取 accountId 参数，缺省为当前账户
func accountParam(c *gin.Context, raw string) (uint, bool) {
	if raw == "" {
		return middleware.GetCurrentAccountID(c), true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		BadRequest(c, "accountId 格式错误")
		return 0, false
	}
	return uint(id), true
}

// idParam 读取路径中的正整数 ID
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		BadRequest(c, name+" 格式错误")
		return 0, false
	}
	return uint(id), true
}
