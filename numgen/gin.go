package numgen

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/numkit/xerrors"
)

// registerRequest 规则注册请求体
type registerRequest struct {
	Format     string `json:"format"`
	SeqLength  int64  `json:"seqLength"`
	InitialSeq int64  `json:"initialSeq"`
}

// RegisterRoutes 将号码发放的 HTTP 接口挂载到 gin 路由：
//
//	PUT  /prefix-configs/:prefixKey                    注册前缀规则
//	GET  /prefix-configs/:prefixKey                    查询前缀规则
//	POST /prefix-configs/:prefixKey/network-partition  强制切入分区模式
//	GET  /numbers/:prefixKey                           发放下一个号码
//	GET  /numbers?prefixKey=                           同上（查询参数形式）
func RegisterRoutes(r gin.IRouter, engine Engine) {
	h := &httpHandler{engine: engine}

	r.PUT("/prefix-configs/:prefixKey", h.register)
	r.GET("/prefix-configs/:prefixKey", h.getRule)
	r.POST("/prefix-configs/:prefixKey/network-partition", h.forcePartition)
	r.GET("/numbers/:prefixKey", h.next)
	r.GET("/numbers", h.nextByQuery)
}

type httpHandler struct {
	engine Engine
}

// register 注册前缀规则。
// 重复注册返回 409；校验失败返回 400，details 列出全部违规项。
func (h *httpHandler) register(c *gin.Context) {
	prefixKey := c.Param("prefixKey")

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	rule, err := h.engine.Register(c.Request.Context(), prefixKey, req.Format, req.SeqLength, req.InitialSeq)
	if err != nil {
		switch {
		case xerrors.Is(err, ErrPrefixExists):
			c.JSON(http.StatusConflict, gin.H{"error": "Prefix already exists"})
		case xerrors.Is(err, ErrInvalidFormat) || xerrors.Is(err, ErrInvalidLength) || xerrors.Is(err, ErrValidation):
			details := make([]string, 0, 4)
			for _, sub := range xerrors.Flatten(err) {
				details = append(details, sub.Error())
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "details": details})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, rule)
}

// getRule 查询前缀规则
func (h *httpHandler) getRule(c *gin.Context) {
	rule, err := h.engine.Rule(c.Request.Context(), c.Param("prefixKey"))
	if err != nil {
		if xerrors.Is(err, ErrPrefixNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Prefix not registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rule)
}

// forcePartition 强制切入分区模式
func (h *httpHandler) forcePartition(c *gin.Context) {
	if err := h.engine.ForcePartition(c.Request.Context(), c.Param("prefixKey")); err != nil {
		if xerrors.Is(err, ErrPrefixNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Prefix not registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "partitioned"})
}

// next 发放下一个号码
func (h *httpHandler) next(c *gin.Context) {
	h.issue(c, c.Param("prefixKey"))
}

// nextByQuery 查询参数形式的发放接口
func (h *httpHandler) nextByQuery(c *gin.Context) {
	prefixKey := c.Query("prefixKey")
	if prefixKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prefixKey is required"})
		return
	}
	h.issue(c, prefixKey)
}

func (h *httpHandler) issue(c *gin.Context, prefixKey string) {
	num, err := h.engine.Next(c.Request.Context(), prefixKey)
	if err != nil {
		switch {
		case xerrors.Is(err, ErrPrefixNotFound):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Prefix not registered"})
		case xerrors.Is(err, ErrSequenceOverflow):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "sequence overflow"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"number": num.Number})
}
