package core

import (
	"sync"

	"github.com/everpan/formrel/pkg/config"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	"xorm.io/xorm"
)

type InitTableFunT func(engine *xorm.Engine) error

var initTableFunctions []InitTableFunT

func RegisterInitTableFunction(fun InitTableFunT) {
	initTableFunctions = append(initTableFunctions, fun)
}

func InitAllTables(engine *xorm.Engine) error {
	for _, initTableFunction := range initTableFunctions {
		if err := initTableFunction(engine); err != nil {
			return err
		}
	}
	return nil
}

var (
	engineCache = sync.Map{}
	engineMux   sync.Mutex
)

// GetEngine 按数据源缓存引擎，新建时初始化已注册的表
func GetEngine(driver, ds string) (*xorm.Engine, error) {
	if e, ok := engineCache.Load(ds); ok {
		return e.(*xorm.Engine), nil
	}
	engineMux.Lock()
	defer engineMux.Unlock()
	if e, ok := engineCache.Load(ds); ok {
		return e.(*xorm.Engine), nil
	}
	engine, err := xorm.NewEngine(driver, ds)
	if err != nil {
		return nil, err
	}
	engineCache.Store(ds, engine)
	if err = InitAllTables(engine); err != nil {
		// 初始化失败不影响使用，例如种子数据重复插入
		config.GetLogger().Error("init all table error", zap.String("ds", ds), zap.Error(err))
	}
	return engine, nil
}
