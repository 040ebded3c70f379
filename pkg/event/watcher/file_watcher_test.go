package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/everpan/formrel/pkg/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanPublisher struct {
	topics chan string
	events chan *event.Event
}

func (p *chanPublisher) Publish(_ context.Context, topic string, e *event.Event) error {
	p.topics <- topic
	p.events <- e
	return nil
}

func (p *chanPublisher) Close() error {
	return nil
}

func TestFileWatcher(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "formrel.yaml")
	require.NoError(t, os.WriteFile(file, []byte("server:\n  listen: :9090\n"), 0o644))

	bus := &chanPublisher{topics: make(chan string, 16), events: make(chan *event.Event, 16)}
	fw, err := NewFileWatcher(bus, nil)
	require.NoError(t, err)
	defer fw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, fw.Watch(ctx, file))

	// 同目录下的其他文件不触发
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0o644))
	require.NoError(t, os.WriteFile(file, []byte("server:\n  listen: :9191\n"), 0o644))

	select {
	case topic := <-bus.topics:
		e := <-bus.events
		assert.Equal(t, event.TopicConfig, topic)
		assert.Equal(t, event.TypeConfigChanged, e.Type)
		assert.Equal(t, file, e.Source)
		assert.NotEmpty(t, e.Data["op"])
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for config change")
	}
}

func TestFileWatcher_MissingDir(t *testing.T) {
	fw, err := NewFileWatcher(&chanPublisher{}, nil)
	require.NoError(t, err)
	defer fw.Close()
	assert.Error(t, fw.Watch(context.Background(), "/nonexistent/dir/formrel.yaml"))
}
