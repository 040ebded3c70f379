package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type ReloadConfigFunc func() error

var reloadConfigFuncs []ReloadConfigFunc

func RegisterReloadConfigFunc(fn ReloadConfigFunc) {
	reloadConfigFuncs = append(reloadConfigFuncs, fn)
}

// ReloadConfig 重新读取配置文件并执行已注册的回调
func ReloadConfig() error {
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("fatal error config file: %w", err)
	}
	return applyReloadFuncs()
}

func applyReloadFuncs() error {
	for _, f := range reloadConfigFuncs {
		if err := f(); err != nil {
			return err
		}
	}
	return nil
}

// ConfigFile 当前使用的配置文件，未找到时为空
func ConfigFile() string {
	return viper.ConfigFileUsed()
}

func init() {
	viper.AutomaticEnv()
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.formrel")
	viper.SetConfigName("formrel")
	viper.SetConfigType("yaml")

	viper.SetDefault("server.listen", ":9090")
	viper.SetDefault("schema.cache-size", 256)
	viper.SetDefault("event.driver", "database")
	viper.SetDefault("event.rocketmq.group", "formrel")
}
