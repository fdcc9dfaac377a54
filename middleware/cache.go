package middleware

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"sort"
	"time"

	"carebot-http-service/services"

	"github.com/gin-gonic/gin"
)

// CacheConfig 缓存配置
type CacheConfig struct {
	Expiration time.Duration             // 缓存过期时间
	KeyFunc    func(*gin.Context) string // 自定义缓存键生成函数
}

// DefaultCacheConfig 默认缓存配置
var DefaultCacheConfig = CacheConfig{
	Expiration: 1 * time.Minute,
	KeyFunc:    defaultKeyFunc,
}

// 默认缓存键生成函数：路径+排序后的查询参数+调用者身份
func defaultKeyFunc(c *gin.Context) string {
	key := c.Request.URL.Path

	queryParams := c.Request.URL.Query()
	var queryKeys []string
	for k := range queryParams {
		queryKeys = append(queryKeys, k)
	}
	sort.Strings(queryKeys)
	for _, k := range queryKeys {
		values := queryParams[k]
		sort.Strings(values)
		for _, v := range values {
			key += "&" + k + "=" + v
		}
	}

	// 响应按调用者隔离，避免跨监护人泄露列表
	if userID, exists := c.Get("userID"); exists {
		if role, ok := c.Get("role"); ok {
			key += "|" + role.(string)
		}
		key += "|" + itoaUint(userID.(uint))
	}

	hasher := md5.New()
	hasher.Write([]byte(key))
	return "httpcache:" + hex.EncodeToString(hasher.Sum(nil))
}

func itoaUint(v uint) string {
	buf := [20]byte{}
	i := len(buf)
	for {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
		if v == 0 {
			break
		}
	}
	return string(buf[i:])
}

// bodyCaptureWriter 捕获响应内容以便写入缓存
type bodyCaptureWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Cache 创建基于Redis的GET响应缓存中间件
// Redis不可用时静默跳过缓存，不影响请求
func Cache(redisService services.InterfaceRedisService, config ...CacheConfig) gin.HandlerFunc {
	cfg := DefaultCacheConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = defaultKeyFunc
	}
	if cfg.Expiration <= 0 {
		cfg.Expiration = DefaultCacheConfig.Expiration
	}

	return func(c *gin.Context) {
		// 只缓存GET请求
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := cfg.KeyFunc(c)

		// 命中缓存直接返回
		if cached, err := redisService.GetRaw(key); err == nil && len(cached) > 0 {
			c.Data(http.StatusOK, "application/json; charset=utf-8", cached)
			c.Abort()
			return
		}

		// 捕获响应并写入缓存
		writer := &bodyCaptureWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = writer
		c.Next()

		if c.Writer.Status() == http.StatusOK && writer.body.Len() > 0 {
			_ = redisService.SetRaw(key, writer.body.Bytes(), cfg.Expiration)
		}
	}
}
