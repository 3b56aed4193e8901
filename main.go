package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/static-hub/static-hub/internal/cache"
	"github.com/static-hub/static-hub/internal/config"
	"github.com/static-hub/static-hub/internal/logging"
	"github.com/static-hub/static-hub/internal/resolver"
	"github.com/static-hub/static-hub/internal/server"
	"github.com/static-hub/static-hub/internal/version"
	"github.com/static-hub/static-hub/internal/watcher"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(*cfg)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	table, err := loadTable(cfg, logger)
	if err != nil {
		fmt.Fprintf(stdErr, "加载请求映射失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["listen_port"] = cfg.ListenPort
		fields["resource_root"] = cfg.ResourceRoot
		fields["max_cache_size"] = cfg.MaxCacheSize.String()
		fields["map_entries"] = table.Len()
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	// CLI 启动遵循“配置 → 映射表 → 内存缓存 → TCP server + watcher”顺序，
	// 保证所有连接共享同一个缓存实例，失效事件才能对得上请求路径。
	store := cache.New(cfg.MaxCacheSize.Int64())

	fields := logging.BaseFields("startup", opts.configPath)
	fields["listen_port"] = cfg.ListenPort
	fields["resource_root"] = cfg.ResourceRoot
	fields["max_cache_size"] = cfg.MaxCacheSize.String()
	fields["map_entries"] = table.Len()
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if err := serve(cfg, store, table, logger); err != nil {
		fmt.Fprintf(stdErr, "服务运行失败: %v\n", err)
		return 1
	}
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
// 路径留空表示使用内置默认值（若 ./config.toml 存在则优先加载它）。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("static-hub", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 STATIC_HUB_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("STATIC_HUB_CONFIG")
	if configFlag != "" {
		path = configFlag
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
	}, nil
}

// loadConfig 选择配置来源：显式路径必须可读；未指定时 ./config.toml
// 存在则使用，否则回退内置默认值。
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	if _, err := os.Stat("config.toml"); err == nil {
		return config.Load("config.toml")
	}
	return config.Default()
}

// loadTable 加载请求映射表。文件缺失不是错误，服务按无映射继续运行；
// 文件存在但内容非法则视为致命问题。
func loadTable(cfg *config.Config, logger *logrus.Logger) (*resolver.Table, error) {
	if cfg.MapFile == "" {
		return nil, nil
	}

	table, err := resolver.Load(cfg.MapFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.WithFields(logrus.Fields{
				"action": "map_missing",
				"path":   cfg.MapFile,
			}).Info("未找到映射文件，跳过请求映射")
			return nil, nil
		}
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"action":      "map_loaded",
		"path":        cfg.MapFile,
		"map_entries": table.Len(),
	}).Info("映射文件加载完成")
	logger.WithFields(logrus.Fields{
		"action": "map_loaded",
	}).Debugf("映射内容\n%s", table.String())
	return table, nil
}

// serve 启动数据面、文件监听与可选诊断端口，直到收到退出信号或任一
// 组件报出致命错误。watcher 出错按致命处理，失效通知断掉后继续运行
// 会悄悄提供过期内容。
func serve(cfg *config.Config, store *cache.Cache, table *resolver.Table, logger *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(server.Options{
		Logger:      logger,
		Cache:       store,
		Table:       table,
		Root:        cfg.ResourceRoot,
		ListenPort:  cfg.ListenPort,
		ReadTimeout: cfg.ReadTimeout.DurationValue(),
	})
	if err != nil {
		return err
	}
	if err := srv.Listen(); err != nil {
		return err
	}

	fw, err := watcher.New(cfg.ResourceRoot, store, logger)
	if err != nil {
		return fmt.Errorf("初始化文件监听失败: %w", err)
	}

	components := 2
	errCh := make(chan error, 3)

	go func() { errCh <- srv.Serve(ctx) }()
	go func() {
		if err := fw.Run(ctx); err != nil {
			errCh <- fmt.Errorf("文件监听退出: %w", err)
			return
		}
		errCh <- nil
	}()

	if cfg.AdminPort > 0 {
		adminApp, err := server.NewAdminApp(server.AdminOptions{
			Logger: logger,
			Cache:  store,
			Table:  table,
		})
		if err != nil {
			return err
		}

		components++
		go func() {
			<-ctx.Done()
			_ = adminApp.Shutdown()
		}()
		go func() {
			logger.WithFields(logrus.Fields{
				"action": "admin_listen",
				"port":   cfg.AdminPort,
			}).Info("诊断服务启动")
			errCh <- adminApp.Listen(fmt.Sprintf(":%d", cfg.AdminPort))
		}()
	}

	for i := 0; i < components; i++ {
		if err := <-errCh; err != nil {
			return err
		}
	}
	return nil
}
