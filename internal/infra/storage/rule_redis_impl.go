package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	model "go_stub_server/internal/domain/model/mock_rule"
	configs "go_stub_server/internal/infra/config"
	"go_stub_server/utils"
)

// Redis 中的 key:
//
//	<prefix>rules  hash   slot -> rule JSON
//	<prefix>order  zset   slot, score = 注册序号
type redisRuleMirrorImpl struct {
	redisClient *redis.Client
	prefix      string
}

var _ RuleMirrorIface = (*redisRuleMirrorImpl)(nil)

// 序号不大于已有值时不写入, 返回 0
var saveRuleScript = redis.NewScript(`
local cur = redis.call('ZSCORE', KEYS[2], ARGV[1])
if cur and tonumber(cur) >= tonumber(ARGV[3]) then
	return 0
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
redis.call('ZADD', KEYS[2], ARGV[3], ARGV[1])
return 1
`)

func NewRedisClient(c *configs.RuleConfig) (*redis.Client, error) {
	rc := c.RedisConfig
	client := redis.NewClient(&redis.Options{
		Addr:         rc.Addr(),
		Password:     rc.Password,
		DB:           rc.Database,
		PoolSize:     rc.PoolSize,
		MinIdleConns: rc.MinIdleConns,
		MaxRetries:   rc.MaxRetries,
		DialTimeout:  rc.DialTimeout,
		ReadTimeout:  rc.ReadTimeout,
		WriteTimeout: rc.WriteTimeout,
	})

	// 测试连接是否成功
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", rc.Addr(), err)
	}

	utils.GetLogger().Infof("connected to redis at %s", rc.Addr())
	return client, nil
}

func NewRedisRuleMirror(redisClient *redis.Client, prefix string) RuleMirrorIface {
	return &redisRuleMirrorImpl{
		redisClient: redisClient,
		prefix:      prefix,
	}
}

func (r *redisRuleMirrorImpl) rulesKey() string { return r.prefix + "rules" }
func (r *redisRuleMirrorImpl) orderKey() string { return r.prefix + "order" }

func (r *redisRuleMirrorImpl) SaveRule(ctx context.Context, rule *model.MockRule, seq int64) error {
	ruleJSON, err := json.Marshal(rule)
	if err != nil {
		return fmt.Errorf("failed to marshal rule to JSON: %w", err)
	}

	slot := ruleSlot(rule)
	written, err := saveRuleScript.Run(ctx, r.redisClient,
		[]string{r.rulesKey(), r.orderKey()},
		slot, string(ruleJSON), seq,
	).Int()
	if err != nil {
		return fmt.Errorf("failed to set rule to redis: %w", err)
	}
	if written == 0 {
		utils.GetLogger().Debugf("skip stale mirror write for %s (seq %d)", slot, seq)
	}
	return nil
}

func (r *redisRuleMirrorImpl) ListRules(ctx context.Context) ([]*model.MockRule, error) {
	slots, err := r.redisClient.ZRange(ctx, r.orderKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get rule order: %w", err)
	}
	if len(slots) == 0 {
		return nil, nil
	}

	values, err := r.redisClient.HMGet(ctx, r.rulesKey(), slots...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get rules from redis: %w", err)
	}

	rules := make([]*model.MockRule, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// order 中存在但 hash 中已删除
			utils.GetLogger().Warnf("rule slot %q missing from redis hash", slots[i])
			continue
		}
		rule := &model.MockRule{}
		if err := json.Unmarshal([]byte(raw), rule); err != nil {
			return nil, fmt.Errorf("failed to unmarshal rule %q from JSON: %w", slots[i], err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func (r *redisRuleMirrorImpl) Clear(ctx context.Context) error {
	if err := r.redisClient.Del(ctx, r.rulesKey(), r.orderKey()).Err(); err != nil {
		return fmt.Errorf("failed to delete rules from redis: %w", err)
	}
	return nil
}

func (r *redisRuleMirrorImpl) Close() error {
	return r.redisClient.Close()
}
