package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/everpan/formrel/pkg/config"
	"github.com/everpan/formrel/pkg/core"
	"github.com/everpan/formrel/pkg/event"
	"github.com/everpan/formrel/pkg/event/database"
	"github.com/everpan/formrel/pkg/event/kafka"
	"github.com/everpan/formrel/pkg/event/rocketmq"
	"github.com/everpan/formrel/pkg/event/watcher"
	"github.com/everpan/formrel/pkg/handler"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func newEventBus(logger *zap.Logger) (event.EventBus, error) {
	switch driver := viper.GetString("event.driver"); driver {
	case "kafka":
		return kafka.NewKafkaEventBus(viper.GetStringSlice("event.kafka.brokers"), logger)
	case "rocketmq":
		return rocketmq.NewRocketMQEventBus(rocketmq.RocketMQConfig{
			NameServers: viper.GetStringSlice("event.rocketmq.name-servers"),
			Group:       viper.GetString("event.rocketmq.group"),
		}, logger)
	case "database", "":
		engine, err := core.GetEngine(core.DefaultTenant.Driver, core.DefaultTenant.DataSource)
		if err != nil {
			return nil, err
		}
		return database.NewDBEventBus(engine, 0, logger)
	default:
		return nil, fmt.Errorf("unknown event driver '%s'", driver)
	}
}

// watchConfig 配置文件变化时重新加载
func watchConfig(ctx context.Context, bus event.EventBus, logger *zap.Logger) (*watcher.FileWatcher, error) {
	file := config.ConfigFile()
	if file == "" {
		return nil, nil
	}
	err := bus.Subscribe(ctx, event.TopicConfig, func(e *event.Event) error {
		if e.Type != event.TypeConfigChanged {
			return nil
		}
		logger.Info("reload config", zap.String("file", e.Source))
		return config.ReloadConfig()
	})
	if err != nil {
		return nil, err
	}
	fw, err := watcher.NewFileWatcher(bus, logger)
	if err != nil {
		return nil, err
	}
	return fw, fw.Watch(ctx, file)
}

func main() {
	logger := config.GetLogger()
	defer logger.Sync()
	if err := config.ReloadConfig(); err != nil {
		logger.Warn("load config, using defaults", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus, err := newEventBus(logger)
	if err != nil {
		logger.Fatal("create event bus", zap.Error(err))
	}
	defer bus.Close()
	handler.SetEventBus(bus)

	fw, err := watchConfig(ctx, bus, logger)
	if err != nil {
		logger.Error("watch config", zap.Error(err))
	}
	if fw != nil {
		defer fw.Close()
	}

	app := core.CreateApp()
	go func() {
		<-ctx.Done()
		_ = app.Shutdown()
	}()
	if err = app.Listen(viper.GetString("server.listen")); err != nil {
		logger.Error("listen", zap.Error(err))
	}
}
