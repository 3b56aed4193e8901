package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/static-hub/static-hub/internal/cache"
	"github.com/static-hub/static-hub/internal/resolver"
)

// Options 描述数据面服务的依赖与监听行为。ListenPort 为 0 时由内核分配
// 端口；Table 可以为 nil（未加载映射表）；Mirror 是 trace 级请求回显的
// 输出端，缺省为 stdout。
type Options struct {
	Logger      *logrus.Logger
	Cache       *cache.Cache
	Table       *resolver.Table
	Root        string
	ListenPort  int
	ReadTimeout time.Duration
	Mirror      io.Writer
}

// Server 是基于原始 socket 协议的静态资源服务。
type Server struct {
	logger      *logrus.Logger
	cache       *cache.Cache
	table       *resolver.Table
	root        string
	port        int
	readTimeout time.Duration
	mirror      io.Writer

	mu       sync.Mutex
	listener net.Listener
}

// New 校验依赖并构造 Server。
func New(opts Options) (*Server, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Cache == nil {
		return nil, errors.New("cache is required")
	}
	if opts.Root == "" {
		return nil, errors.New("resource root is required")
	}
	if opts.ListenPort < 0 || opts.ListenPort > 65535 {
		return nil, fmt.Errorf("invalid listen port: %d", opts.ListenPort)
	}

	mirror := opts.Mirror
	if mirror == nil {
		mirror = os.Stdout
	}

	return &Server{
		logger:      opts.Logger,
		cache:       opts.Cache,
		table:       opts.Table,
		root:        filepath.Clean(opts.Root),
		port:        opts.ListenPort,
		readTimeout: opts.ReadTimeout,
		mirror:      mirror,
	}, nil
}

// Listen 绑定监听端口，成功后 Addr 返回实际地址。
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("bind listener: %w", err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"action": "listen",
		"addr":   ln.Addr().String(),
	}).Info("TCP 服务启动")
	return nil
}

// Addr 返回监听地址，Listen 之前为 nil。
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve 运行 accept 循环直到 ctx 取消；未显式 Listen 时先行绑定。
// 每个连接在独立 goroutine 中处理，循环退出前等待在途连接完成。
// accept 在 ctx 取消之外的原因下失败视为致命错误。
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		if err := s.Listen(); err != nil {
			return err
		}
		s.mu.Lock()
		ln = s.listener
		s.mu.Unlock()
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	for {
		conn, err := ln.Accept()
		if err != nil {
			wg.Wait()
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept connection: %w", err)
		}

		s.logger.WithFields(logrus.Fields{
			"remote": conn.RemoteAddr().String(),
		}).Debug("connection_accepted")

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleConn(conn)
		}()
	}
}
