package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/tomehq/tome/internal/pkg/errcode"
	appErr "github.com/tomehq/tome/internal/pkg/errors"
	"github.com/tomehq/tome/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))
	switch {
	case appErr.IsNotFound(err):
		response.Error(c, errcode.ErrNotFound, err.Error())
	case appErr.IsInvalid(err):
		response.Error(c, errcode.ErrInvalid, err.Error())
	case appErr.IsUpstream(err):
		response.Error(c, errcode.ErrAIUnavailable, err.Error())
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
