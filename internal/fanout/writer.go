package fanout

import (
	"errors"
	"io"
	"sync"
)

// copyBufferSize 与连接读缓冲保持一致的块大小。
const copyBufferSize = 8 * 1024

// Writer 将写入的每个块复制到全部 sink。
type Writer struct {
	sinks []io.Writer
}

// NewWriter 构造复制写入器。不带 sink 的写入器丢弃所有数据。
func NewWriter(sinks ...io.Writer) *Writer {
	return &Writer{sinks: sinks}
}

// Write 并发地把 p 写到每个 sink；短写的 sink 用剩余字节反复重写，
// 直到所有 sink 都接受完整块。任一 sink 报错时停止重试，返回
// 各 sink 已接受字节数的最小值与首个错误。
func (w *Writer) Write(p []byte) (int, error) {
	if len(p) == 0 || len(w.sinks) == 0 {
		return len(p), nil
	}

	offsets := make([]int, len(w.sinks))
	for {
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			firstErr error
		)

		pending := false
		for i, sink := range w.sinks {
			off := offsets[i]
			if off >= len(p) {
				continue
			}
			pending = true

			wg.Add(1)
			go func(i int, sink io.Writer, off int) {
				defer wg.Done()
				n, err := sink.Write(p[off:])
				if err == nil && n == 0 {
					err = io.ErrShortWrite
				}
				mu.Lock()
				offsets[i] += n
				if err != nil && firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}(i, sink, off)
		}
		if !pending {
			return len(p), nil
		}

		wg.Wait()
		if firstErr != nil {
			return minOffset(offsets), firstErr
		}
	}
}

// Flush 将缓冲数据推给所有支持 Flush 的 sink；先全部尝试，再返回首个错误。
func (w *Writer) Flush() error {
	var firstErr error
	for _, sink := range w.sinks {
		f, ok := sink.(interface{ Flush() error })
		if !ok {
			continue
		}
		if err := f.Flush(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close 关闭所有实现 io.Closer 的 sink；先全部尝试，再返回首个错误。
func (w *Writer) Close() error {
	var firstErr error
	for _, sink := range w.sinks {
		c, ok := sink.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Copy 以固定大小的块将 src 完整复制到所有 sink，返回成功复制的字节数。
// 读到 EOF 视为正常结束，不负责 Flush 或 Close。
func Copy(src io.Reader, sinks ...io.Writer) (int64, error) {
	w := NewWriter(sinks...)
	buf := make([]byte, copyBufferSize)

	var total int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			written, werr := w.Write(buf[:n])
			total += int64(written)
			if werr != nil {
				return total, werr
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return total, nil
			}
			return total, rerr
		}
	}
}

func minOffset(offsets []int) int {
	min := offsets[0]
	for _, n := range offsets[1:] {
		if n < min {
			min = n
		}
	}
	return min
}
