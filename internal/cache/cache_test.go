package cache

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func writeResFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write resource file: %v", err)
	}
	return path
}

func readSource(t *testing.T, src *Source) string {
	t.Helper()
	defer src.Reader.Close()
	data, err := io.ReadAll(src.Reader)
	if err != nil {
		t.Fatalf("failed to read source: %v", err)
	}
	return string(data)
}

func assertStats(t *testing.T, c *Cache, entries int, bytes int64) {
	t.Helper()
	stats := c.Stats()
	if stats.Entries != entries || stats.Bytes != bytes {
		t.Fatalf("stats = {entries:%d bytes:%d}, want {entries:%d bytes:%d}",
			stats.Entries, stats.Bytes, entries, bytes)
	}
}

func TestFetchCachesWithinCeiling(t *testing.T) {
	dir := t.TempDir()
	path := writeResFile(t, dir, "hello.txt", "hello world")
	c := New(1024)

	src, err := c.Fetch(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !src.Cached || src.Size != 11 {
		t.Fatalf("source = {cached:%v size:%d}, want cached 11 bytes", src.Cached, src.Size)
	}
	if got := readSource(t, src); got != "hello world" {
		t.Fatalf("content = %q, want %q", got, "hello world")
	}
	assertStats(t, c, 1, 11)

	// 命中后即使磁盘文件消失也继续用内存副本服务，直到被显式失效。
	if err := os.Remove(path); err != nil {
		t.Fatalf("failed to remove file: %v", err)
	}
	src, err = c.Fetch(path)
	if err != nil {
		t.Fatalf("unexpected error after disk removal: %v", err)
	}
	if !src.Cached || readSource(t, src) != "hello world" {
		t.Fatalf("expected memory hit after disk removal")
	}
	assertStats(t, c, 1, 11)
}

func TestFetchOversizedFileDegrades(t *testing.T) {
	dir := t.TempDir()
	path := writeResFile(t, dir, "big.bin", "exceeds")
	c := New(4)

	src, err := c.Fetch(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.Cached {
		t.Fatalf("oversized file must not be cached")
	}
	if got := readSource(t, src); got != "exceeds" {
		t.Fatalf("content = %q, want %q", got, "exceeds")
	}
	assertStats(t, c, 0, 0)

	// 降级不是一次性的，后续请求仍可直接从磁盘服务。
	src, err = c.Fetch(path)
	if err != nil {
		t.Fatalf("unexpected error on second fetch: %v", err)
	}
	if got := readSource(t, src); got != "exceeds" {
		t.Fatalf("second fetch content = %q, want %q", got, "exceeds")
	}
}

func TestFetchZeroByteFile(t *testing.T) {
	dir := t.TempDir()
	path := writeResFile(t, dir, "empty", "")
	c := New(16)

	src, err := c.Fetch(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !src.Cached || src.Size != 0 {
		t.Fatalf("source = {cached:%v size:%d}, want cached 0 bytes", src.Cached, src.Size)
	}
	if got := readSource(t, src); got != "" {
		t.Fatalf("content = %q, want empty", got)
	}
	assertStats(t, c, 1, 0)
}

func TestFetchReportsNotExist(t *testing.T) {
	dir := t.TempDir()
	c := New(1024)

	if _, err := c.Fetch(filepath.Join(dir, "absent")); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("missing file error = %v, want fs.ErrNotExist", err)
	}

	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if _, err := c.Fetch(sub); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("directory error = %v, want fs.ErrNotExist", err)
	}
	assertStats(t, c, 0, 0)
}

func TestRemoveAdjustsAccounting(t *testing.T) {
	dir := t.TempDir()
	first := writeResFile(t, dir, "a.txt", "12345")
	second := writeResFile(t, dir, "b.txt", "1234567")
	c := New(1024)

	for _, path := range []string{first, second} {
		src, err := c.Fetch(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		src.Reader.Close()
	}
	assertStats(t, c, 2, 12)

	entry, ok := c.Remove(first)
	if !ok || entry.Len() != 5 {
		t.Fatalf("Remove = {len:%d ok:%v}, want 5 bytes removed", entry.Len(), ok)
	}
	assertStats(t, c, 1, 7)

	if _, ok := c.Remove(first); ok {
		t.Fatalf("second remove must be a no-op")
	}
	assertStats(t, c, 1, 7)

	if _, ok := c.Lookup(second); !ok {
		t.Fatalf("unrelated entry lost after remove")
	}
}

func TestCeilingBlocksUntilSpaceFreed(t *testing.T) {
	dir := t.TempDir()
	first := writeResFile(t, dir, "a.bin", string(make([]byte, 100)))
	second := writeResFile(t, dir, "b.bin", string(make([]byte, 100)))
	c := New(150)

	src, err := c.Fetch(first)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	src.Reader.Close()
	assertStats(t, c, 1, 100)

	src, err = c.Fetch(second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.Cached {
		t.Fatalf("second file must degrade while ceiling is occupied")
	}
	if got := readSource(t, src); len(got) != 100 {
		t.Fatalf("degraded content length = %d, want 100", len(got))
	}
	assertStats(t, c, 1, 100)

	if _, ok := c.Remove(first); !ok {
		t.Fatalf("failed to remove first entry")
	}
	assertStats(t, c, 0, 0)

	src, err = c.Fetch(second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !src.Cached {
		t.Fatalf("second file should be admitted after space was freed")
	}
	src.Reader.Close()
	assertStats(t, c, 1, 100)
}

func TestConcurrentFetchKeepsAccountingExact(t *testing.T) {
	dir := t.TempDir()
	path := writeResFile(t, dir, "hot.bin", string(make([]byte, 1024)))
	c := New(1 << 20)

	const workers = 16
	start := make(chan struct{})
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			src, err := c.Fetch(path)
			if err != nil {
				errs <- err
				return
			}
			defer src.Reader.Close()
			if _, err := io.ReadAll(src.Reader); err != nil {
				errs <- err
			}
		}()
	}

	close(start)
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent fetch failed: %v", err)
	}

	assertStats(t, c, 1, 1024)
}

func TestUnboundedCacheAdmitsEverything(t *testing.T) {
	dir := t.TempDir()
	path := writeResFile(t, dir, "a.bin", string(make([]byte, 4096)))
	c := New(0)

	src, err := c.Fetch(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !src.Cached {
		t.Fatalf("unbounded cache must admit the file")
	}
	src.Reader.Close()
	assertStats(t, c, 1, 4096)
}
