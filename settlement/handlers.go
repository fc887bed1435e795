package settlement

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vendora-platform/vendora-core/xerrors"
)

// RegisterRoutes 注册结算管理接口
//
// 路由:
//
//	POST /settlements/run        手动触发结算，body 可选 {"date": "2006-01-02"}，缺省为前一天
//	POST /settlements/:date/retry 重试失败的结算
//	GET  /settlements            结算历史，?limit=N
//	GET  /settlements/:date      按日期查询结算单
//	GET  /settlements/stats      结算统计，?days=N
func RegisterRoutes(r gin.IRouter, svc Settlement) {
	h := &handlers{svc: svc}

	g := r.Group("/settlements")
	g.POST("/run", h.run)
	g.POST("/:date/retry", h.retry)
	g.GET("", h.history)
	g.GET("/stats", h.stats)
	g.GET("/:date", h.getByDate)
}

type handlers struct {
	svc Settlement
}

type runRequest struct {
	Date string `json:"date"`
}

func (h *handlers) run(c *gin.Context) {
	var req runRequest
	// body 可以为空，忽略绑定错误，仅接收显式指定的日期
	_ = c.ShouldBindJSON(&req)

	date := req.Date
	if date == "" {
		date = time.Now().AddDate(0, 0, -1).Format(DateLayout)
	}

	rec, err := h.svc.SettleDate(c.Request.Context(), date)
	if err != nil {
		h.abortWithError(c, err, rec)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *handlers) retry(c *gin.Context) {
	rec, err := h.svc.RetryFailed(c.Request.Context(), c.Param("date"))
	if err != nil {
		h.abortWithError(c, err, rec)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *handlers) history(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	recs, err := h.svc.History(c.Request.Context(), limit)
	if err != nil {
		h.abortWithError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settlements": recs, "count": len(recs)})
}

func (h *handlers) getByDate(c *gin.Context) {
	rec, err := h.svc.GetByDate(c.Request.Context(), c.Param("date"))
	if err != nil {
		h.abortWithError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *handlers) stats(c *gin.Context) {
	days, _ := strconv.Atoi(c.Query("days"))
	stats, err := h.svc.Stats(c.Request.Context(), days)
	if err != nil {
		h.abortWithError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// abortWithError 将组件错误映射为 HTTP 状态码
// rec 非 nil 时（结算执行失败）一并返回失败的结算单
func (h *handlers) abortWithError(c *gin.Context, err error, rec *SettlementRecord) {
	switch {
	case xerrors.Is(err, ErrInvalidDate):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case xerrors.Is(err, ErrRecordNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case xerrors.Is(err, ErrInProgress):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	case xerrors.Is(err, ErrNotFailed):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		body := gin.H{"error": "settlement failed"}
		if rec != nil {
			body["settlement"] = rec
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, body)
	}
}
