package idempotency

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vendora-platform/vendora-core/clog"
	"github.com/vendora-platform/vendora-core/xerrors"
)

// DefaultHeaderName 幂等键请求头
const DefaultHeaderName = "Idempotency-Key"

// Route 中间件保护的路由
type Route struct {
	Method string
	Path   string
}

// DefaultRoutes 默认保护的关键路由
// 资金与账户入口必须携带幂等键，其余路由完全透传
func DefaultRoutes() []Route {
	return []Route{
		{Method: http.MethodPost, Path: "/api/payments/capture"},
		{Method: http.MethodPost, Path: "/api/wallet/transfer"},
		{Method: http.MethodPost, Path: "/api/orders"},
		{Method: http.MethodPost, Path: "/api/auth/register"},
		{Method: http.MethodPost, Path: "/api/auth/login"},
	}
}

// MiddlewareOption 中间件选项函数
type MiddlewareOption func(*middlewareOptions)

type middlewareOptions struct {
	headerName string
	routes     []Route
	userIDFunc func(c *gin.Context) string
}

// WithHeaderName 自定义幂等键请求头名称
func WithHeaderName(name string) MiddlewareOption {
	return func(o *middlewareOptions) {
		if name != "" {
			o.headerName = name
		}
	}
}

// WithRoutes 自定义受保护的路由列表，覆盖默认值
func WithRoutes(routes []Route) MiddlewareOption {
	return func(o *middlewareOptions) {
		if len(routes) > 0 {
			o.routes = routes
		}
	}
}

// WithUserIDFunc 自定义用户标识提取函数
// 默认读取认证中间件写入的 "user_id" 上下文值
func WithUserIDFunc(fn func(c *gin.Context) string) MiddlewareOption {
	return func(o *middlewareOptions) {
		if fn != nil {
			o.userIDFunc = fn
		}
	}
}

// storedResponse 缓存的 HTTP 响应
// 作为不透明结果字节存入幂等记录，重放时字节级还原
type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// GinMiddleware 创建 Gin 幂等性中间件
//
// 受保护路由的处理流程：
//  1. 缺失 Idempotency-Key 头 → 400
//  2. 键不是 UUID v4 → 400
//  3. 同键请求仍在处理窗口内 → 409
//  4. 已有落定结果 → 重放缓存的响应（状态码、Content-Type、响应体一致）
//  5. 首次请求 → 执行 handler，捕获响应并写入记录
func (c *coordinator) GinMiddleware(opts ...MiddlewareOption) gin.HandlerFunc {
	opt := middlewareOptions{
		headerName: DefaultHeaderName,
		routes:     DefaultRoutes(),
		userIDFunc: func(gc *gin.Context) string {
			return gc.GetString("user_id")
		},
	}
	for _, o := range opts {
		o(&opt)
	}

	protected := make(map[Route]struct{}, len(opt.routes))
	for _, r := range opt.routes {
		protected[r] = struct{}{}
	}

	return func(gc *gin.Context) {
		path := gc.FullPath()
		if path == "" {
			path = gc.Request.URL.Path
		}
		if _, ok := protected[Route{Method: gc.Request.Method, Path: path}]; !ok {
			gc.Next()
			return
		}

		key := gc.GetHeader(opt.headerName)
		if key == "" {
			gc.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": "Idempotency-Key header is required",
			})
			return
		}

		ref := OperationRef{
			Endpoint: path,
			Method:   gc.Request.Method,
			UserID:   opt.userIDFunc(gc),
		}

		acquired, err := c.AcquireLock(gc.Request.Context(), key, ref)
		if err != nil {
			switch {
			case xerrors.Is(err, ErrInvalidKey):
				gc.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
					"error": "Idempotency-Key must be a valid UUID v4",
				})
			case xerrors.Is(err, ErrConflictInFlight):
				gc.AbortWithStatusJSON(http.StatusConflict, gin.H{
					"error": "request is still being processed",
				})
			default:
				c.logger.ErrorContext(gc.Request.Context(), "idempotency middleware failed",
					clog.String("key", key), clog.Error(err))
				gc.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "internal server error",
				})
			}
			return
		}

		if !acquired.IsNew {
			c.replay(gc, acquired.Record)
			return
		}

		writer := &responseWriter{
			ResponseWriter: gc.Writer,
			body:           bytes.NewBuffer(nil),
		}
		gc.Writer = writer

		gc.Next()

		resp := storedResponse{
			Status:      writer.Status(),
			ContentType: writer.Header().Get("Content-Type"),
			Body:        writer.body.Bytes(),
		}
		payload, err := json.Marshal(resp)
		if err != nil {
			c.logger.ErrorContext(gc.Request.Context(), "failed to marshal captured response",
				clog.String("key", key), clog.Error(err))
			return
		}

		if resp.Status >= 200 && resp.Status < 300 {
			err = c.CompleteOperation(gc.Request.Context(), acquired.Record, payload)
		} else {
			err = c.FailOperation(gc.Request.Context(), acquired.Record, payload)
		}
		if err != nil {
			// 记录已被接管，响应照常返回给当前客户端
			c.logger.WarnContext(gc.Request.Context(), "failed to persist captured response",
				clog.String("key", key), clog.Error(err))
		}
	}
}

// replay 重放缓存的响应
func (c *coordinator) replay(gc *gin.Context, rec *Record) {
	payload := rec.Result
	if rec.Status == StatusFailed {
		payload = rec.ErrPayload
	}

	var resp storedResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		c.logger.ErrorContext(gc.Request.Context(), "failed to unmarshal cached response",
			clog.String("key", rec.Key), clog.Error(err))
		gc.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": "internal server error",
		})
		return
	}

	contentType := resp.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	gc.Data(resp.Status, contentType, resp.Body)
	gc.Abort()
}

// responseWriter 响应写入器包装器，用于捕获响应体
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

// Write 写入响应体
func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// WriteString 写入字符串响应体
func (w *responseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
