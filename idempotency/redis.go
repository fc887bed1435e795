package idempotency

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vendora-platform/vendora-core/connector"
	"github.com/vendora-platform/vendora-core/xerrors"
)

// finishScript 仅当记录仍归当前持有者所有时写入结果
// created_at 充当持有者凭证：记录被接管后 created_at 变化，
// 原持有者迟到的写入被拒绝，接管者的结果不会被覆盖
// KEYS[1] 存储键
// ARGV[1] 目标状态 ("completed" | "failed")
// ARGV[2] 结果字节（completed 写入 result，failed 写入 err_payload）
// ARGV[3] processed_at (Unix 毫秒)
// ARGV[4] 期望的 created_at (Unix 毫秒)
// ARGV[5] 落定后的 TTL (毫秒)
// 返回 1 表示写入成功，0 表示记录不存在、不在处理中或已被接管
const finishScript = `
local raw = redis.call("GET", KEYS[1])
if not raw then
	return 0
end
local rec = cjson.decode(raw)
if rec.status ~= "processing" or rec.created_at ~= tonumber(ARGV[4]) then
	return 0
end
rec.status = ARGV[1]
if ARGV[1] == "completed" then
	rec.result = ARGV[2]
else
	rec.err_payload = ARGV[2]
end
rec.processed_at = tonumber(ARGV[3])
rec.expires_at = tonumber(ARGV[3]) + tonumber(ARGV[5])
redis.call("SET", KEYS[1], cjson.encode(rec), "PX", tonumber(ARGV[5]))
return 1
`

// takeoverScript 比较 created_at 后整体替换记录
// KEYS[1] 存储键
// ARGV[1] 期望的 created_at (Unix 毫秒)
// ARGV[2] 新记录 JSON
// ARGV[3] TTL (毫秒)
// 返回 1 表示接管成功，0 表示记录已被其他请求接管或消失
const takeoverScript = `
local raw = redis.call("GET", KEYS[1])
if not raw then
	return 0
end
local rec = cjson.decode(raw)
if rec.status ~= "processing" or rec.created_at ~= tonumber(ARGV[1]) then
	return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", tonumber(ARGV[3]))
return 1
`

// redisStore Redis 存储实现（非导出）
//
// 结果字节在 Record 中以 base64（encoding/json 的 []byte 编码）存储，
// Lua 侧只透传字符串，不关心内容
type redisStore struct {
	conn   connector.RedisConnector
	prefix string

	finish   *redis.Script
	takeover *redis.Script
}

// newRedisStore 创建 Redis 存储实例（内部函数）
func newRedisStore(conn connector.RedisConnector, prefix string) Store {
	return &redisStore{
		conn:     conn,
		prefix:   prefix,
		finish:   redis.NewScript(finishScript),
		takeover: redis.NewScript(takeoverScript),
	}
}

func (rs *redisStore) Create(ctx context.Context, key string, rec *Record, ttl time.Duration) (bool, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return false, xerrors.Wrap(err, "failed to marshal record")
	}

	ok, err := rs.conn.GetClient().SetNX(ctx, rs.storageKey(key), raw, ttl).Result()
	if err != nil {
		return false, xerrors.Wrap(err, "failed to create record")
	}
	return ok, nil
}

func (rs *redisStore) Get(ctx context.Context, key string) (*Record, error) {
	raw, err := rs.conn.GetClient().Get(ctx, rs.storageKey(key)).Bytes()
	if err == redis.Nil {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, xerrors.Wrap(err, "failed to get record")
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, xerrors.Wrap(err, "failed to unmarshal record")
	}
	return &rec, nil
}

func (rs *redisStore) Finish(ctx context.Context, key string, expectedCreatedAt int64, status Status, payload []byte, processedAt int64, ttl time.Duration) (bool, error) {
	// payload 以 base64 透传，与 encoding/json 对 []byte 的编码保持一致
	var arg string
	if len(payload) > 0 {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return false, xerrors.Wrap(err, "failed to encode payload")
		}
		// json.Marshal([]byte) 产生带引号的 base64 字符串，去掉引号后传给 Lua
		arg = string(encoded[1 : len(encoded)-1])
	}

	res, err := rs.finish.Run(ctx, rs.conn.GetClient(),
		[]string{rs.storageKey(key)}, string(status), arg, processedAt,
		expectedCreatedAt, ttl.Milliseconds()).Result()
	if err != nil {
		return false, xerrors.Wrap(err, "failed to finish record")
	}
	return res.(int64) == 1, nil
}

func (rs *redisStore) Takeover(ctx context.Context, key string, expectedCreatedAt int64, rec *Record, ttl time.Duration) (bool, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return false, xerrors.Wrap(err, "failed to marshal record")
	}

	res, err := rs.takeover.Run(ctx, rs.conn.GetClient(),
		[]string{rs.storageKey(key)}, expectedCreatedAt, raw, ttl.Milliseconds()).Result()
	if err != nil {
		return false, xerrors.Wrap(err, "failed to takeover record")
	}
	return res.(int64) == 1, nil
}

func (rs *redisStore) storageKey(key string) string {
	return rs.prefix + key
}
