package wire

import "fmt"

// 响应只有两种固定形态，直接使用状态行文本而不引入通用状态表。
const (
	StatusOK       = "200 OK"
	StatusNotFound = "404 Not Found"

	// NotFoundBody 是 404 响应的固定正文。
	NotFoundBody = "NOT FOUND"
)

// Head 渲染响应头字节，调用方将其与正文拼成单一字节流写出。
func Head(status string, contentLength int64) []byte {
	return []byte(fmt.Sprintf("HTTP/1.1 %s\r\nContent-Length: %d\r\n\r\n", status, contentLength))
}
