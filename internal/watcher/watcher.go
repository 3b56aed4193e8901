package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/static-hub/static-hub/internal/cache"
)

// Invalidator 是 watcher 依赖的最小缓存能力，*cache.Cache 直接满足。
type Invalidator interface {
	Remove(path string) (cache.Entry, bool)
}

// Watcher 监听资源目录的变更事件并驱逐对应的缓存条目。
type Watcher struct {
	store  Invalidator
	logger *logrus.Logger
	fw     *fsnotify.Watcher
}

// New 创建 watcher 并注册 root 下的全部目录，root 必须已存在。
func New(root string, store Invalidator, logger *logrus.Logger) (*Watcher, error) {
	if store == nil {
		return nil, errors.New("invalidator is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{store: store, logger: logger, fw: fw}
	if err := w.watchTree(root); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// Run 阻塞处理事件，直到 ctx 取消（返回 nil）或监听本身出错。
// 返回的非 nil 错误意味着失效通知已不可靠，调用方应当终止服务。
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fw.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fw.Events:
			if !ok {
				return errors.New("watch event channel closed")
			}
			w.handleEvent(event)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return errors.New("watch error channel closed")
			}
			return err
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	w.logger.WithFields(logrus.Fields{
		"op":   event.Op.String(),
		"path": event.Name,
	}).Trace("fs_event")

	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.watchTree(event.Name); err != nil {
				w.logger.WithError(err).WithFields(logrus.Fields{
					"path": event.Name,
				}).Warn("watch_add_failed")
			}
			return
		}
	}

	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return
	}

	path := filepath.Clean(event.Name)
	if _, ok := w.store.Remove(path); ok {
		w.logger.WithFields(logrus.Fields{
			"path": path,
		}).Debug("cache_invalidated")
	}
}

// watchTree 为 root 及其所有子目录登记监听。
func (w *Watcher) watchTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fw.Add(path)
		}
		return nil
	})
}
