package integration

import (
	"strings"
	"testing"

	"github.com/static-hub/static-hub/internal/resolver"
)

func TestServeFlowCachesOnFirstHit(t *testing.T) {
	table, err := resolver.Parse(strings.NewReader("/alias = files/hello.txt"), "map.txt")
	if err != nil {
		t.Fatalf("failed to parse table: %v", err)
	}
	e := startEnv(t, 1<<20, table, map[string]string{
		"files/hello.txt": "hello from disk",
		"docs/index":      "docs landing",
	})

	want := "HTTP/1.1 200 OK\r\nContent-Length: 15\r\n\r\nhello from disk"
	if got := e.get(t, "/files/hello.txt"); got != want {
		t.Fatalf("direct response = %q, want %q", got, want)
	}

	stats := e.store.Stats()
	if stats.Entries != 1 || stats.Bytes != 15 {
		t.Fatalf("cache stats = %+v, want one 15-byte entry", stats)
	}

	// 第二次请求与映射别名都命中同一个内存条目。
	if got := e.get(t, "/files/hello.txt"); got != want {
		t.Fatalf("repeat response = %q, want %q", got, want)
	}
	if got := e.get(t, "/alias"); got != want {
		t.Fatalf("alias response = %q, want %q", got, want)
	}
	stats = e.store.Stats()
	if stats.Entries != 1 || stats.Bytes != 15 {
		t.Fatalf("cache stats after hits = %+v, want unchanged", stats)
	}

	if got := e.get(t, "/docs"); !strings.HasSuffix(got, "docs landing") {
		t.Fatalf("directory response = %q, want docs landing body", got)
	}

	notFound := "HTTP/1.1 404 Not Found\r\nContent-Length: 9\r\n\r\nNOT FOUND"
	if got := e.get(t, "/absent"); got != notFound {
		t.Fatalf("missing response = %q, want %q", got, notFound)
	}
}

func TestCeilingDegradesToDiskServing(t *testing.T) {
	small := strings.Repeat("a", 100)
	large := strings.Repeat("b", 200)
	e := startEnv(t, 250, nil, map[string]string{
		"small.bin": small,
		"large.bin": large,
	})

	if got := e.get(t, "/small.bin"); !strings.HasSuffix(got, small) {
		t.Fatalf("small response truncated: %d bytes", len(got))
	}
	stats := e.store.Stats()
	if stats.Entries != 1 || stats.Bytes != 100 {
		t.Fatalf("cache stats = %+v, want one 100-byte entry", stats)
	}

	// 超出剩余额度的文件直接走磁盘，响应完整且缓存不变。
	for i := 0; i < 3; i++ {
		if got := e.get(t, "/large.bin"); !strings.HasSuffix(got, large) {
			t.Fatalf("large response truncated: %d bytes", len(got))
		}
	}
	stats = e.store.Stats()
	if stats.Entries != 1 || stats.Bytes != 100 {
		t.Fatalf("cache stats after degraded serving = %+v, want unchanged", stats)
	}

	// 释放空间后原本装不下的文件可以被缓存。
	if _, ok := e.store.Remove(resourcePath(e, "small.bin")); !ok {
		t.Fatalf("failed to remove cached entry")
	}
	if got := e.get(t, "/large.bin"); !strings.HasSuffix(got, large) {
		t.Fatalf("large response truncated after eviction: %d bytes", len(got))
	}
	stats = e.store.Stats()
	if stats.Entries != 1 || stats.Bytes != 200 {
		t.Fatalf("cache stats after admission = %+v, want one 200-byte entry", stats)
	}
}
