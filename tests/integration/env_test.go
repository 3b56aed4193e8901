package integration

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/static-hub/static-hub/internal/cache"
	"github.com/static-hub/static-hub/internal/resolver"
	"github.com/static-hub/static-hub/internal/server"
)

// env 聚合一套完整的数据面：资源目录、缓存、可选映射表与运行中的服务。
type env struct {
	root  string
	store *cache.Cache
	addr  string
}

func startEnv(t *testing.T, maxCacheBytes int64, table *resolver.Table, files map[string]string) *env {
	t.Helper()

	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := cache.New(maxCacheBytes)
	srv, err := server.New(server.Options{
		Logger: logger,
		Cache:  store,
		Table:  table,
		Root:   root,
	})
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	if err := srv.Listen(); err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("serve returned error: %v", err)
		}
	})

	_, port, err := net.SplitHostPort(srv.Addr().String())
	if err != nil {
		t.Fatalf("failed to split listen address: %v", err)
	}

	return &env{
		root:  root,
		store: store,
		addr:  net.JoinHostPort("127.0.0.1", port),
	}
}

func (e *env) get(t *testing.T, path string) string {
	t.Helper()

	conn, err := net.Dial("tcp", e.addr)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("GET " + path + " HTTP/1.1\r\n\r\n")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	data, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return string(data)
}

// resourcePath 计算资源文件的物理路径，即缓存使用的键。
func resourcePath(e *env, name string) string {
	return filepath.Join(e.root, filepath.FromSlash(name))
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
