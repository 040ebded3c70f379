package watcher

import (
	"context"
	"path/filepath"

	"github.com/everpan/formrel/pkg/event"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// FileWatcher 监视配置文件，写入或重建时发布 config.changed 事件
type FileWatcher struct {
	watcher *fsnotify.Watcher
	bus     event.Publisher
	logger  *zap.Logger
}

// NewFileWatcher creates a new FileWatcher
func NewFileWatcher(bus event.Publisher, logger *zap.Logger) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileWatcher{watcher: watcher, bus: bus, logger: logger}, nil
}

// Watch 监视文件所在目录，编辑器整体替换文件时也能收到事件
func (fw *FileWatcher) Watch(ctx context.Context, filePath string) error {
	file, err := filepath.Abs(filePath)
	if err != nil {
		return err
	}
	if err = fw.watcher.Add(filepath.Dir(file)); err != nil {
		return err
	}
	go fw.handleEvents(ctx, file)
	return nil
}

func (fw *FileWatcher) handleEvents(ctx context.Context, file string) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != file || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			fw.publish(ctx, ev)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn("watch file", zap.String("file", file), zap.Error(err))
		}
	}
}

func (fw *FileWatcher) publish(ctx context.Context, ev fsnotify.Event) {
	evt, err := event.NewEvent(event.TypeConfigChanged, ev.Name, map[string]any{"op": ev.Op.String()})
	if err == nil {
		err = fw.bus.Publish(ctx, event.TopicConfig, evt)
	}
	if err != nil {
		fw.logger.Error("publish config change", zap.String("file", ev.Name), zap.Error(err))
	}
}

// Close stops watching and closes the watcher
func (fw *FileWatcher) Close() error {
	return fw.watcher.Close()
}
