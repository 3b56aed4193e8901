package server

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/static-hub/static-hub/internal/fanout"
	"github.com/static-hub/static-hub/internal/logging"
	"github.com/static-hub/static-hub/internal/wire"
)

// handleConn 串起单个连接的完整流程：读头、解析、定位资源、写回响应。
// 协议是一问一答，响应写完即关闭连接。
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	started := time.Now()
	requestID := uuid.NewString()
	remote := conn.RemoteAddr().String()

	if s.readTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	}

	br := bufio.NewReaderSize(conn, wire.HeaderBufferSize)
	head, err := wire.ReadHeader(br)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"request_id": requestID,
			"remote":     remote,
		}).Warn("request_rejected")
		return
	}

	req, err := wire.ParseRequest(head)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"request_id": requestID,
			"remote":     remote,
		}).Warn("request_rejected")
		return
	}

	trace := s.logger.IsLevelEnabled(logrus.TraceLevel)
	if trace {
		if err := s.traceRequest(requestID, req, br); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"request_id": requestID,
				"remote":     remote,
			}).Warn("trace_body_failed")
			return
		}
	}

	status, written, cacheHit, err := s.respond(conn, req, trace)

	fields := logging.RequestFields(requestID, remote, req.Method, req.Path, cacheHit)
	fields["action"] = "serve"
	fields["status"] = status
	fields["bytes"] = written
	fields["elapsed_ms"] = time.Since(started).Milliseconds()
	if err != nil {
		fields["error"] = err.Error()
		s.logger.WithFields(fields).Error("serve_failed")
		return
	}
	s.logger.WithFields(fields).Info("serve_complete")
}

// traceRequest 在 trace 级别回显请求头。POST 请求按 Content-Length 精确
// 读出正文一并回显，这些字节此前从未被消费。
func (s *Server) traceRequest(requestID string, req *wire.Request, br *bufio.Reader) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\n%s %s %s\n", req.Method, req.Path, req.Proto)
	for key, value := range req.Header {
		fmt.Fprintf(&sb, "%s: %s\n", key, value)
	}

	if req.Method == "POST" {
		length := req.ContentLength()
		if length < 0 {
			return errors.New("missing content length")
		}
		body := make([]byte, length)
		if _, err := io.ReadFull(br, body); err != nil {
			return fmt.Errorf("read request body: %w", err)
		}
		sb.WriteByte('\n')
		sb.Write(body)
	}

	s.logger.WithFields(logrus.Fields{
		"request_id": requestID,
	}).Trace(sb.String())
	return nil
}

// respond 定位目标文件并写出响应，返回状态行、已写字节数与缓存命中情况。
func (s *Server) respond(conn net.Conn, req *wire.Request, trace bool) (string, int64, bool, error) {
	target, ok := s.resolveTarget(req.Path)
	if !ok {
		written, err := s.writeNotFound(conn, trace)
		return wire.StatusNotFound, written, false, err
	}

	src, err := s.cache.Fetch(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.WithFields(logrus.Fields{
				"path": target,
			}).Trace("resource_missing")
			written, werr := s.writeNotFound(conn, trace)
			return wire.StatusNotFound, written, false, werr
		}
		return "", 0, false, fmt.Errorf("open resource: %w", err)
	}
	defer src.Reader.Close()

	written, err := s.writeResponse(conn, wire.StatusOK, src.Reader, src.Size, trace)
	return wire.StatusOK, written, src.Cached, err
}

func (s *Server) writeNotFound(conn net.Conn, trace bool) (int64, error) {
	body := strings.NewReader(wire.NotFoundBody)
	return s.writeResponse(conn, wire.StatusNotFound, body, int64(len(wire.NotFoundBody)), trace)
}

// writeResponse 将响应头与正文拼成单一字节流写出。trace 级别时整个响应
// 同时复制到镜像输出，并在结尾补一个换行与日志区隔。
func (s *Server) writeResponse(conn net.Conn, status string, body io.Reader, length int64, trace bool) (int64, error) {
	res := io.MultiReader(bytes.NewReader(wire.Head(status, length)), body)

	if !trace {
		return io.Copy(conn, res)
	}

	written, err := fanout.Copy(res, conn, s.mirror)
	if err != nil {
		return written, err
	}
	if _, err := io.WriteString(s.mirror, "\n"); err != nil {
		return written, err
	}
	if f, ok := s.mirror.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			return written, err
		}
	}
	return written, nil
}

// resolveTarget 把请求路径映射为资源根目录下的物理路径：映射表命中的
// 结果优先，其余情况去掉前导斜杠后拼接到根目录；指向目录时回退到其中的
// index 文件。最终路径必须仍位于根目录之内，越界一律按未找到处理。
func (s *Server) resolveTarget(reqPath string) (string, bool) {
	mapped := reqPath
	if target, ok := s.table.Resolve(reqPath); ok {
		mapped = target
	}

	rel := strings.TrimPrefix(mapped, "/")
	target := filepath.Join(s.root, filepath.FromSlash(rel))
	if target != s.root && !strings.HasPrefix(target, s.root+string(filepath.Separator)) {
		return "", false
	}

	if info, err := os.Stat(target); err == nil && info.IsDir() {
		target = filepath.Join(target, "index")
	}
	return target, true
}
