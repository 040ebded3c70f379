package meta

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"xorm.io/xorm/schemas"
)

// Cache configuration
const (
	DefaultCacheSize = 256 // 默认缓存的数据源个数
	DefaultCacheTTL  = 1 * time.Hour
)

var ErrTableNotFound = errors.New("table not found")

// SchemaSource 能列出表结构的数据源，*xorm.Engine 即满足
type SchemaSource interface {
	DataSourceName() string
	DBMetas() ([]*schemas.Table, error)
}

type tableSet struct {
	tables    map[string]*schemas.Table
	updatedAt time.Time
}

// SchemaCache 按数据源缓存表结构
type SchemaCache struct {
	sync.Mutex
	cache *lru.Cache
	ttl   time.Duration
}

// NewSchemaCache 创建缓存，size <= 0 时使用默认大小
func NewSchemaCache(size int, ttl time.Duration) (*SchemaCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create schema cache: %w", err)
	}
	return &SchemaCache{cache: c, ttl: ttl}, nil
}

// DataSourceHash generates a secure hash for the data source name
func DataSourceHash(s string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(s)))
}

// Table 取表结构，缓存过期或缺失时从数据库刷新
func (c *SchemaCache) Table(src SchemaSource, table string) (*schemas.Table, error) {
	if src == nil {
		return nil, ErrNilParameter
	}
	key := DataSourceHash(src.DataSourceName())
	c.Lock()
	v, ok := c.cache.Get(key)
	c.Unlock()
	if !ok || time.Since(v.(*tableSet).updatedAt) > c.ttl {
		var err error
		if v, err = c.refresh(src, key); err != nil {
			return nil, err
		}
	}
	t, ok := v.(*tableSet).tables[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	return t, nil
}

// HasColumn 表中是否存在该列
func (c *SchemaCache) HasColumn(src SchemaSource, table, col string) (bool, error) {
	t, err := c.Table(src, table)
	if err != nil {
		return false, err
	}
	return t.GetColumn(col) != nil, nil
}

// Invalidate 丢弃数据源的缓存，表结构变化后调用
func (c *SchemaCache) Invalidate(src SchemaSource) {
	c.Lock()
	defer c.Unlock()
	c.cache.Remove(DataSourceHash(src.DataSourceName()))
}

func (c *SchemaCache) refresh(src SchemaSource, key string) (*tableSet, error) {
	sc, err := src.DBMetas()
	if err != nil {
		return nil, fmt.Errorf("failed to get DB metas: %w", err)
	}
	ts := &tableSet{tables: make(map[string]*schemas.Table, len(sc)), updatedAt: time.Now()}
	for _, s := range sc {
		ts.tables[s.Name] = s
	}
	c.Lock()
	defer c.Unlock()
	c.cache.Add(key, ts)
	return ts, nil
}
