package wire

import (
	"bufio"
	"errors"
	"io"
)

// HeaderBufferSize 是连接读缓冲与请求头初始容量的统一块大小。
const HeaderBufferSize = 8 * 1024

// headerDelimiter 标记请求头区块的结束。
var headerDelimiter = []byte("\r\n\r\n")

// ReadHeader 读取完整的请求头区块（含结尾 \r\n\r\n）并原样返回。
// 只消费到分隔符为止，其后的字节保留在 br 中供调用方继续读取；
// 分隔符出现之前流就结束时返回 io.ErrUnexpectedEOF。
func ReadHeader(br *bufio.Reader) ([]byte, error) {
	head := make([]byte, 0, HeaderBufferSize)
	progress := 0

	for {
		if _, err := br.Peek(1); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}

		window, err := br.Peek(br.Buffered())
		if err != nil {
			return nil, err
		}

		for i, b := range window {
			if b == headerDelimiter[progress] {
				progress++
				if progress == len(headerDelimiter) {
					head = append(head, window[:i+1]...)
					if _, err := br.Discard(i + 1); err != nil {
						return nil, err
					}
					return head, nil
				}
				continue
			}
			// 失配的字节本身可能是分隔符的起点，必须立即重试而不是跳过
			progress = 0
			if b == headerDelimiter[0] {
				progress = 1
			}
		}

		head = append(head, window...)
		if _, err := br.Discard(len(window)); err != nil {
			return nil, err
		}
	}
}
