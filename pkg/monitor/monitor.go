package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// 组件状态
const (
	StatusUnknown   = "unknown"
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// DefaultCheckTimeout 单个组件检查的超时时间
const DefaultCheckTimeout = 2 * time.Second

// HealthStatus 健康状态
type HealthStatus struct {
	Component   string    `json:"component"`
	Status      string    `json:"status"`
	LastChecked time.Time `json:"lastChecked"`
	Message     string    `json:"message,omitempty"`
}

// CheckFunc 组件检查函数，返回 nil 表示健康
type CheckFunc func(ctx context.Context) error

// Monitor 可选依赖（数据库、NATS 等）的健康检查
//
// 这些依赖不可用时服务降级运行，因此检查结果只用于报告。
type Monitor struct {
	mu         sync.RWMutex
	order      []string
	checks     map[string]CheckFunc
	components map[string]*HealthStatus
	timeout    time.Duration
	log        zerolog.Logger
	now        func() time.Time
}

// NewMonitor 创建新的监控系统
func NewMonitor(log zerolog.Logger) *Monitor {
	return &Monitor{
		checks:     make(map[string]CheckFunc),
		components: make(map[string]*HealthStatus),
		timeout:    DefaultCheckTimeout,
		log:        log.With().Str("component", "monitor").Logger(),
		now:        time.Now,
	}
}

// RegisterComponent 注册组件，重复注册时替换检查函数
func (m *Monitor) RegisterComponent(component string, check CheckFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.checks[component]; !exists {
		m.order = append(m.order, component)
		m.components[component] = &HealthStatus{
			Component:   component,
			Status:      StatusUnknown,
			LastChecked: m.now(),
		}
	}
	m.checks[component] = check
}

// UpdateStatus 更新组件状态，状态变化时记录日志
func (m *Monitor) UpdateStatus(component, status, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, exists := m.components[component]
	if !exists {
		current = &HealthStatus{Component: component}
		m.components[component] = current
		m.order = append(m.order, component)
	}

	old := current.Status
	current.Status = status
	current.Message = message
	current.LastChecked = m.now()

	if old == status {
		return
	}
	if status == StatusHealthy {
		m.log.Info().Str("target", component).Str("from", old).Msg("组件恢复健康")
	} else {
		m.log.Warn().Str("target", component).Str("status", status).Str("message", message).Msg("组件状态异常")
	}
}

// CheckAll 执行全部检查，按注册顺序返回结果
func (m *Monitor) CheckAll(ctx context.Context) []HealthStatus {
	m.mu.RLock()
	order := append([]string(nil), m.order...)
	checks := make(map[string]CheckFunc, len(m.checks))
	for k, v := range m.checks {
		checks[k] = v
	}
	m.mu.RUnlock()

	for _, component := range order {
		check, ok := checks[component]
		if !ok || check == nil {
			continue
		}
		checkCtx, cancel := context.WithTimeout(ctx, m.timeout)
		err := check(checkCtx)
		cancel()

		if err != nil {
			m.UpdateStatus(component, StatusUnhealthy, err.Error())
		} else {
			m.UpdateStatus(component, StatusHealthy, "")
		}
	}
	return m.GetAllStatus()
}

// GetAllStatus 获取所有组件状态，按注册顺序
func (m *Monitor) GetAllStatus() []HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	statuses := make([]HealthStatus, 0, len(m.order))
	for _, component := range m.order {
		statuses = append(statuses, *m.components[component])
	}
	return statuses
}

// AllHealthy 是否所有组件都健康
func AllHealthy(statuses []HealthStatus) bool {
	for _, s := range statuses {
		if s.Status != StatusHealthy {
			return false
		}
	}
	return true
}
