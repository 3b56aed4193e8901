package server

import (
	"errors"

	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/static-hub/static-hub/internal/cache"
	"github.com/static-hub/static-hub/internal/resolver"
	"github.com/static-hub/static-hub/internal/version"
)

// AdminOptions 描述诊断应用的依赖，Table 允许为 nil。
type AdminOptions struct {
	Logger *logrus.Logger
	Cache  *cache.Cache
	Table  *resolver.Table
}

// cachePayload 输出缓存占用快照，human 字段便于肉眼巡检。
type cachePayload struct {
	Entries   int    `json:"entries"`
	SizeBytes int64  `json:"size_bytes"`
	SizeHuman string `json:"size_human"`
	MaxBytes  int64  `json:"max_bytes"`
	MaxHuman  string `json:"max_human"`
}

type resolverTargetPayload struct {
	Path   string `json:"path"`
	Weight int64  `json:"weight,omitempty"`
}

type resolverEntryPayload struct {
	Key     string                  `json:"key"`
	Targets []resolverTargetPayload `json:"targets"`
}

// NewAdminApp 构建挂在 /-/ 前缀下的只读诊断应用，与数据面分开监听。
func NewAdminApp(opts AdminOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Cache == nil {
		return nil, errors.New("cache is required")
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(func(c fiber.Ctx) error {
		c.Set("X-Request-ID", uuid.NewString())
		return c.Next()
	})

	app.Get("/-/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"version": version.Full(),
		})
	})

	app.Get("/-/cache", func(c fiber.Ctx) error {
		stats := opts.Cache.Stats()
		return c.JSON(cachePayload{
			Entries:   stats.Entries,
			SizeBytes: stats.Bytes,
			SizeHuman: humanize.IBytes(uint64(stats.Bytes)),
			MaxBytes:  stats.MaxBytes,
			MaxHuman:  maxHuman(stats.MaxBytes),
		})
	})

	app.Get("/-/resolver", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"entries": encodeTable(opts.Table),
		})
	})

	app.Use(func(c fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "not_found",
		})
	})

	return app, nil
}

func maxHuman(max int64) string {
	if max <= 0 {
		return "unlimited"
	}
	return humanize.IBytes(uint64(max))
}

// encodeTable 导出排序后的映射条目，nil 表渲染为空列表而不是 null。
func encodeTable(table *resolver.Table) []resolverEntryPayload {
	entries := table.Entries()
	result := make([]resolverEntryPayload, 0, len(entries))
	for _, entry := range entries {
		item := resolverEntryPayload{Key: entry.Key}
		for _, target := range entry.Targets {
			item.Targets = append(item.Targets, resolverTargetPayload{
				Path:   target.Path,
				Weight: target.Weight,
			})
		}
		result = append(result, item)
	}
	return result
}
