package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/dewei/StockScreener/pkg/engine"
	"github.com/dewei/StockScreener/pkg/fundamentals"
	"github.com/dewei/StockScreener/pkg/marketdata"
	"github.com/dewei/StockScreener/pkg/messaging"
	"github.com/dewei/StockScreener/pkg/model"
	"github.com/dewei/StockScreener/pkg/monitor"
	"github.com/dewei/StockScreener/pkg/repository"
	"github.com/dewei/StockScreener/pkg/search"
)

const (
	defaultPage  = 1
	defaultLimit = 100
	maxPage      = 1_000_000
	maxLimit     = 1000

	headerRunID = "X-Screen-Run-ID"
)

// DirectoryStats 目录镜像统计
type DirectoryStats interface {
	CountByExchange(ctx context.Context) (map[string]int, error)
}

// Deps 处理器依赖，Publisher、Monitor 和 Directory 可以为 nil
type Deps struct {
	Market       *marketdata.Service
	Screener     *engine.Screener
	Universe     *repository.Universe
	Fundamentals *fundamentals.Service
	Search       *search.Index
	Publisher    messaging.Publisher
	Monitor      *monitor.Monitor
	Directory    DirectoryStats
	Log          zerolog.Logger
}

// Handlers API处理器
type Handlers struct {
	market       *marketdata.Service
	screener     *engine.Screener
	universe     *repository.Universe
	fundamentals *fundamentals.Service
	search       *search.Index
	publisher    messaging.Publisher
	monitor      *monitor.Monitor
	directory    DirectoryStats
	log          zerolog.Logger
	now          func() time.Time
}

// NewHandlers 创建新的处理器
func NewHandlers(deps Deps) *Handlers {
	publisher := deps.Publisher
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	return &Handlers{
		market:       deps.Market,
		screener:     deps.Screener,
		universe:     deps.Universe,
		fundamentals: deps.Fundamentals,
		search:       deps.Search,
		publisher:    publisher,
		monitor:      deps.Monitor,
		directory:    deps.Directory,
		log:          deps.Log.With().Str("component", "handlers").Logger(),
		now:          time.Now,
	}
}

// FilterRequest 对已有记录执行过滤的请求体
type FilterRequest struct {
	Stocks   []model.StockRecord  `json:"stocks"`
	Criteria model.FilterCriteria `json:"criteria"`
}

// HealthCheck 健康检查
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"timestamp":     h.now().UTC(),
		"cachedSymbols": h.market.Cache().Len(),
		"cacheTtl":      h.market.Cache().TTL().String(),
	})
}

// ReadinessCheck 就绪检查
//
// 可选依赖异常时状态为 degraded，服务仍然可用。
func (h *Handlers) ReadinessCheck(c *gin.Context) {
	resp := gin.H{
		"status":   "ready",
		"universe": h.universe.Size(),
		"source":   h.universe.Source(),
	}
	if h.search != nil {
		resp["searchIndex"] = h.search.Size()
	}
	if h.monitor != nil {
		components := h.monitor.CheckAll(c.Request.Context())
		if !monitor.AllHealthy(components) {
			resp["status"] = "degraded"
		}
		resp["components"] = components
	}
	if h.directory != nil {
		counts, err := h.directory.CountByExchange(c.Request.Context())
		if err != nil {
			h.log.Warn().Err(err).Msg("统计目录镜像失败")
			resp["status"] = "degraded"
		} else {
			resp["mirror"] = counts
		}
	}
	c.JSON(http.StatusOK, resp)
}

// GetStocks 分页浏览行情
//
// GET /api/stocks?mode=default|all|indices&page=1&limit=100&symbols=A,B
//
// 客户端断开后已发出的上游请求继续完成，结果照常写入缓存。
func (h *Handlers) GetStocks(c *gin.Context) {
	page := positiveQuery(c, "page", defaultPage, maxPage)
	limit := positiveQuery(c, "limit", defaultLimit, maxLimit)
	mode := c.DefaultQuery("mode", repository.ModeDefault)

	symbols, total := h.universe.BrowseSymbols(mode, splitSymbols(c.Query("symbols")), page, limit)
	records := h.market.GetMany(context.WithoutCancel(c.Request.Context()), symbols)

	c.JSON(http.StatusOK, model.StockPage{
		Data:       records,
		Pagination: model.NewPagination(page, limit, total),
	})
}

// Screen 全市场筛选
//
// 请求体为筛选条件，无法识别的字段值视为未设置。筛选一旦开始即执行完毕，
// 不随客户端断开而取消。
func (h *Handlers) Screen(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "读取请求体失败"})
		return
	}

	var criteria model.FilterCriteria
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &criteria); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的筛选条件"})
			return
		}
	}

	results, report, err := h.screener.Screen(context.WithoutCancel(c.Request.Context()), criteria)
	if err != nil {
		h.log.Error().Err(err).Msg("筛选失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "筛选失败"})
		return
	}

	c.Header(headerRunID, report.RunID)
	c.JSON(http.StatusOK, results)
}

// FilterStocks 对调用方给出的记录执行过滤
func (h *Handlers) FilterStocks(c *gin.Context) {
	var req FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求体"})
		return
	}
	c.JSON(http.StatusOK, engine.Filter(req.Stocks, req.Criteria))
}

// GetFundamentals 获取基本面数据
func (h *Handlers) GetFundamentals(c *gin.Context) {
	symbol := strings.TrimSpace(c.Param("symbol"))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol 不能为空"})
		return
	}
	c.JSON(http.StatusOK, h.fundamentals.Get(c.Request.Context(), symbol))
}

// SearchSymbols 按代码或名称搜索目录
func (h *Handlers) SearchSymbols(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q 不能为空"})
		return
	}
	if h.search == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "搜索索引不可用"})
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	results, err := h.search.Search(q, limit)
	if err != nil {
		h.log.Error().Err(err).Str("q", q).Msg("搜索失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "搜索失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query": q,
		"data":  results,
	})
}

// ClearCache 清空行情缓存
func (h *Handlers) ClearCache(c *gin.Context) {
	cleared := h.market.Cache().Clear()
	h.log.Info().Int("symbols", cleared).Msg("行情缓存已清空")

	event := model.CacheClearedEvent{SymbolsCleared: cleared, ClearedAt: h.now()}
	if err := h.publisher.Publish(c.Request.Context(), messaging.SubjectCacheCleared, event); err != nil {
		h.log.Warn().Err(err).Msg("发布缓存清空事件失败")
	}

	c.JSON(http.StatusOK, gin.H{
		"message":        "Cache cleared",
		"symbolsCleared": cleared,
	})
}

// positiveQuery 解析正整数查询参数，无效时使用默认值，超过上限时取上限
func positiveQuery(c *gin.Context, key string, fallback, upper int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v < 1 {
		return fallback
	}
	return min(v, upper)
}

func splitSymbols(raw string) []string {
	if raw == "" {
		return nil
	}
	var symbols []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			symbols = append(symbols, s)
		}
	}
	return symbols
}
