package wire

import (
	"fmt"
	"strconv"
	"strings"
)

// Request 是解析后的请求头：起始行三元组加上小写键的头部映射。
type Request struct {
	Method string
	Path   string
	Proto  string
	Header map[string]string
}

// ParseError 表示请求头不符合预期格式。
type ParseError struct {
	Reason string
}

func (e ParseError) Error() string {
	return "invalid request head: " + e.Reason
}

// ParseRequest 解析 ReadHeader 返回的请求头区块。起始行必须至少包含
// method、path 与协议版本三段，多余的段忽略；其余行按 "Key: Value"
// 解析，键统一转为小写后存入 Header。
func ParseRequest(head []byte) (*Request, error) {
	lines := strings.Split(string(head), "\r\n")
	if len(lines) == 0 || lines[0] == "" {
		return nil, ParseError{Reason: "empty start line"}
	}

	parts := strings.Split(lines[0], " ")
	if len(parts) < 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return nil, ParseError{Reason: fmt.Sprintf("malformed start line: %q", lines[0])}
	}

	req := &Request{
		Method: parts[0],
		Path:   parts[1],
		Proto:  parts[2],
		Header: make(map[string]string, len(lines)),
	}

	for _, line := range lines[1:] {
		if line == "" {
			break
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, ParseError{Reason: fmt.Sprintf("malformed header line: %q", line)}
		}
		req.Header[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}

	return req, nil
}

// ContentLength 返回 Content-Length 头的数值，缺失或非法时返回 -1。
func (r *Request) ContentLength() int64 {
	raw, ok := r.Header["content-length"]
	if !ok {
		return -1
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return -1
	}
	return n
}
