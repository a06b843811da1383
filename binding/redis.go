package binding

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/hhkbp2/kvbench"
)

const (
	PropertyRedisAddr            = "redis.addr"
	PropertyRedisAddrDefault     = "127.0.0.1:6379"
	PropertyRedisPassword        = "redis.password"
	PropertyRedisPasswordDefault = ""
	PropertyRedisDatabase        = "redis.db"
	PropertyRedisDatabaseDefault = "0"
)

// RedisDB stores each record as a hash at "<table>/<key>" and keeps a
// per-table sorted set of keys (score 0) so scans can walk the key
// space in lexicographic order.
type RedisDB struct {
	*kvbench.DBBase
	client *redis.Client
	ctx    context.Context
}

func NewRedisDB() *RedisDB {
	return &RedisDB{
		DBBase: kvbench.NewDBBase(),
		ctx:    context.Background(),
	}
}

func (self *RedisDB) Init() error {
	props := self.GetProperties()
	database, err := strconv.Atoi(props.GetDefault(
		PropertyRedisDatabase, PropertyRedisDatabaseDefault))
	if err != nil {
		return kvbench.NewConfigError(PropertyRedisDatabase, "%s", err)
	}
	self.client = redis.NewClient(&redis.Options{
		Addr:     props.GetDefault(PropertyRedisAddr, PropertyRedisAddrDefault),
		Password: props.GetDefault(PropertyRedisPassword, PropertyRedisPasswordDefault),
		DB:       database,
	})
	return self.client.Ping(self.ctx).Err()
}

func (self *RedisDB) Cleanup() error {
	if self.client != nil {
		return self.client.Close()
	}
	return nil
}

func recordKey(table, key string) string {
	return table + "/" + key
}

func indexKey(table string) string {
	return table + "/_keys"
}

func redisStatusOf(err error) kvbench.StatusType {
	if err == redis.Nil {
		return kvbench.StatusNotFound
	}
	if strings.Contains(err.Error(), "connection refused") {
		return kvbench.StatusServiceUnavailable
	}
	return kvbench.StatusError
}

func (self *RedisDB) readOne(key string, fields []string) (kvbench.KVMap, kvbench.StatusType) {
	ret := make(kvbench.KVMap)
	if len(fields) == 0 {
		values, err := self.client.HGetAll(self.ctx, key).Result()
		if err != nil {
			return nil, redisStatusOf(err)
		}
		if len(values) == 0 {
			return nil, kvbench.StatusNotFound
		}
		for k, v := range values {
			ret[k] = kvbench.Binary(v)
		}
		return ret, kvbench.StatusOK
	}
	values, err := self.client.HMGet(self.ctx, key, fields...).Result()
	if err != nil {
		return nil, redisStatusOf(err)
	}
	for i, v := range values {
		if v == nil {
			return nil, kvbench.StatusNotFound
		}
		s, ok := v.(string)
		if !ok {
			return nil, kvbench.StatusUnexpectedState
		}
		ret[fields[i]] = kvbench.Binary(s)
	}
	return ret, kvbench.StatusOK
}

func (self *RedisDB) Read(table string, key string, fields []string) (kvbench.KVMap, kvbench.StatusType) {
	return self.readOne(recordKey(table, key), fields)
}

func (self *RedisDB) Scan(table string, startKey string, recordCount int64, fields []string) ([]kvbench.KVMap, kvbench.StatusType) {
	keys, err := self.client.ZRangeByLex(self.ctx, indexKey(table), &redis.ZRangeBy{
		Min:   "[" + startKey,
		Max:   "+",
		Count: recordCount,
	}).Result()
	if err != nil {
		return nil, redisStatusOf(err)
	}
	ret := make([]kvbench.KVMap, 0, len(keys))
	for _, key := range keys {
		m, status := self.readOne(recordKey(table, key), fields)
		if status != kvbench.StatusOK {
			return nil, status
		}
		ret = append(ret, m)
	}
	return ret, kvbench.StatusOK
}

func toHashValues(values kvbench.KVMap) map[string]interface{} {
	ret := make(map[string]interface{}, len(values))
	for k, v := range values {
		ret[k] = []byte(v)
	}
	return ret
}

func (self *RedisDB) Update(table string, key string, values kvbench.KVMap) kvbench.StatusType {
	exists, err := self.client.Exists(self.ctx, recordKey(table, key)).Result()
	if err != nil {
		return redisStatusOf(err)
	}
	if exists == 0 {
		return kvbench.StatusNotFound
	}
	if err := self.client.HSet(
		self.ctx, recordKey(table, key), toHashValues(values)).Err(); err != nil {
		return redisStatusOf(err)
	}
	return kvbench.StatusOK
}

func (self *RedisDB) Insert(table string, key string, values kvbench.KVMap) kvbench.StatusType {
	pipe := self.client.TxPipeline()
	pipe.HSet(self.ctx, recordKey(table, key), toHashValues(values))
	pipe.ZAdd(self.ctx, indexKey(table), &redis.Z{Score: 0, Member: key})
	if _, err := pipe.Exec(self.ctx); err != nil {
		return redisStatusOf(err)
	}
	return kvbench.StatusOK
}

func (self *RedisDB) Delete(table string, key string) kvbench.StatusType {
	pipe := self.client.TxPipeline()
	del := pipe.Del(self.ctx, recordKey(table, key))
	pipe.ZRem(self.ctx, indexKey(table), key)
	if _, err := pipe.Exec(self.ctx); err != nil {
		return redisStatusOf(err)
	}
	if del.Val() == 0 {
		return kvbench.StatusNotFound
	}
	return kvbench.StatusOK
}
