package cache

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"sync"
)

// Cache 以完整文件为粒度的内存缓存，maxBytes <= 0 表示不设上限。
// 写路径持有排他锁直到文件读取完成，总量统计与映射内容因此始终一致。
type Cache struct {
	mu       sync.RWMutex
	entries  map[string]Entry
	maxBytes int64
	curBytes int64
}

// Source 将响应正文的 Reader 与元数据绑定在一起，正文可能来自内存条目，
// 也可能是降级后的磁盘文件。Reader 由调用方负责关闭。
type Source struct {
	Reader io.ReadCloser
	Size   int64
	Cached bool
}

// Stats 是诊断接口读取的缓存快照。
type Stats struct {
	Entries  int
	Bytes    int64
	MaxBytes int64
}

// New 构造空缓存。
func New(maxBytes int64) *Cache {
	return &Cache{
		entries:  make(map[string]Entry),
		maxBytes: maxBytes,
	}
}

// Lookup 查询内存条目。
func (c *Cache) Lookup(path string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[path]
	return entry, ok
}

// Remove 删除指定路径的条目并同步扣减总量，返回被删除的条目。
// 路径未缓存时不做任何修改。
func (c *Cache) Remove(path string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remove(path)
}

// remove 要求调用方已持有写锁。
func (c *Cache) remove(path string) (Entry, bool) {
	entry, ok := c.entries[path]
	if !ok {
		return Entry{}, false
	}
	delete(c.entries, path)
	c.curBytes -= entry.Len()
	return entry, true
}

// Fetch 返回路径对应的字节来源：内存命中直接复用缓存条目；未命中时打开
// 文件，额度允许则在排他区内整体读入并登记，否则改为直接流式读该文件，
// 请求本身仍然成功。目录与缺失文件统一以 fs.ErrNotExist 语义报告。
func (c *Cache) Fetch(path string) (*Source, error) {
	if entry, ok := c.Lookup(path); ok {
		return memorySource(entry), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	size := info.Size()

	c.mu.Lock()
	defer c.mu.Unlock()

	// 并发 miss 或磁盘内容更新后可能留有旧条目，先退还其占用的额度。
	c.remove(path)

	if c.maxBytes > 0 && c.curBytes+size > c.maxBytes {
		return &Source{Reader: f, Size: size, Cached: false}, nil
	}

	data, err := io.ReadAll(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	entry := Entry{data: data}

	// stat 与读取之间文件可能变大，超出额度时放弃缓存改走文件流。
	if c.maxBytes > 0 && c.curBytes+entry.Len() > c.maxBytes {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			f.Close()
			return nil, err
		}
		return &Source{Reader: f, Size: entry.Len(), Cached: false}, nil
	}
	f.Close()

	c.entries[path] = entry
	c.curBytes += entry.Len()
	return memorySource(entry), nil
}

// Stats 返回当前条目数、占用字节与额度上限。
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Entries:  len(c.entries),
		Bytes:    c.curBytes,
		MaxBytes: c.maxBytes,
	}
}

func memorySource(entry Entry) *Source {
	return &Source{
		Reader: io.NopCloser(bytes.NewReader(entry.data)),
		Size:   entry.Len(),
		Cached: true,
	}
}
