package repo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/singleflight"

	model "go_stub_server/internal/domain/model/mock_rule"
	configs "go_stub_server/internal/infra/config"
	"go_stub_server/internal/infra/storage"
	"go_stub_server/utils"
)

const (
	restoreKey          = "restore_rules"
	poolReleaseTimeout  = 5 * time.Second
	mirrorWriteDeadline = 10 * time.Second
)

// ruleRepoImpl 实现了 RuleRepository 接口 (内存存储 + 可选镜像, singleflight, retry-go, ants pool)
type ruleRepoImpl struct {
	store         storage.RuleStoreIface
	mirror        storage.RuleMirrorIface
	mirrorEnabled bool
	config        *configs.RuleRepoConfig
	taskPool      *ants.Pool
	sfGroup       singleflight.Group

	// mu 串行化 SaveRule / Reset / Restore, 保护 pending 与 lastSeq
	mu      sync.Mutex
	pending sync.WaitGroup // 未完成的镜像写入
	lastSeq int64
}

// 确保 ruleRepoImpl 实现了 RuleRepository 接口 (编译时检查)
var _ RuleRepositoryIface = (*ruleRepoImpl)(nil)

func NewRuleRepoConfig(c *configs.RuleConfig) *configs.RuleRepoConfig {
	return &c.RuleRepoConfig
}

// NewRuleRepoImpl 的 cleanup 会等待未完成的镜像写入并释放协程池
func NewRuleRepoImpl(store storage.RuleStoreIface, mirror storage.RuleMirrorIface, config *configs.RuleRepoConfig) (RuleRepositoryIface, func(), error) {
	repo, err := newRuleRepoImpl(store, mirror, config)
	if err != nil {
		return nil, nil, err
	}
	return repo, repo.close, nil
}

func newRuleRepoImpl(store storage.RuleStoreIface, mirror storage.RuleMirrorIface, config *configs.RuleRepoConfig) (*ruleRepoImpl, error) {
	poolSize := config.MirrorPoolSize
	if poolSize <= 0 {
		poolSize = 1
	}
	taskPool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create ants pool: %w", err)
	}

	if mirror == nil {
		mirror = storage.NopRuleMirror{}
	}
	_, isNop := mirror.(storage.NopRuleMirror)

	return &ruleRepoImpl{
		store:         store,
		mirror:        mirror,
		mirrorEnabled: !isNop,
		config:        config,
		taskPool:      taskPool,
	}, nil
}

// SaveRule 同步写入内存存储, 镜像异步写入.
// 镜像序号在这里分配, 与内存插入顺序一致, 异步任务的完成顺序不影响镜像结果.
func (r *ruleRepoImpl) SaveRule(ctx context.Context, rule *model.MockRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.store.Insert(rule)
	utils.GetLogger().Debugf("rule saved: %s", rule)

	if !r.mirrorEnabled {
		return nil
	}

	mirrored := rule.Clone()
	seq := r.nextSeq()
	r.pending.Add(1)
	err := r.taskPool.Submit(func() {
		defer r.pending.Done()
		r.mirrorSave(mirrored, seq)
	})
	if err != nil {
		r.pending.Done()
		// 镜像失败不影响已生效的规则
		utils.GetLogger().Warnf("failed to submit mirror task for rule %s: %v", rule.ID, err)
	}
	return nil
}

// nextSeq 单调递增; 以微秒时间为下限, 重启后的新序号大于镜像中已有的序号
func (r *ruleRepoImpl) nextSeq() int64 {
	seq := time.Now().UnixMicro()
	if seq <= r.lastSeq {
		seq = r.lastSeq + 1
	}
	r.lastSeq = seq
	return seq
}

func (r *ruleRepoImpl) mirrorSave(rule *model.MockRule, seq int64) {
	// 请求的 ctx 在响应后即取消, 异步写入使用独立的超时
	ctx, cancel := context.WithTimeout(context.Background(), mirrorWriteDeadline)
	defer cancel()

	err := retry.Do(
		func() error {
			return r.mirror.SaveRule(ctx, rule, seq)
		},
		retry.Context(ctx),
		retry.Attempts(r.retryAttempts()),
		retry.Delay(r.config.MirrorRetryDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		utils.GetLogger().Errorf("async mirror write failed for rule %s: %v", rule.ID, err)
	}
}

// FindBestMatchRule 根据请求匹配最佳规则
func (r *ruleRepoImpl) FindBestMatchRule(ctx context.Context, req model.RequestInfo) (*model.MockRule, error) {
	rule, ok := r.store.Lookup(req)
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", req.GetMethod(), req.GetPath(), model.ErrNoMatchingRule)
	}
	return rule, nil
}

func (r *ruleRepoImpl) ListRules(ctx context.Context) ([]*model.MockRule, error) {
	return r.store.List(), nil
}

// Reset 清空内存存储; 镜像在未完成的写入落地后清空.
// 持有 mu 直到镜像清空, 并发注册要么整体在 Reset 之前, 要么整体在之后.
func (r *ruleRepoImpl) Reset(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.store.Reset()
	if !r.mirrorEnabled {
		return nil
	}

	r.pending.Wait()
	err := retry.Do(
		func() error {
			return r.mirror.Clear(ctx)
		},
		retry.Context(ctx),
		retry.Attempts(r.retryAttempts()),
		retry.Delay(r.config.MirrorRetryDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("failed to clear rule mirror: %w", err)
	}
	return nil
}

// Restore 使用 singleflight 防止并发重复加载
func (r *ruleRepoImpl) Restore(ctx context.Context) (int, error) {
	if !r.mirrorEnabled {
		return 0, nil
	}

	data, err, _ := r.sfGroup.Do(restoreKey, func() (interface{}, error) {
		r.mu.Lock()
		defer r.mu.Unlock()

		rules, err := r.mirror.ListRules(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to list rules from mirror: %w", err)
		}
		// 按注册顺序插入, 替换语义与原注册一致
		for _, rule := range rules {
			r.store.Insert(rule)
		}
		return len(rules), nil
	})
	if err != nil {
		return 0, err
	}

	n := data.(int)
	utils.GetLogger().Infof("restored %d rules from mirror", n)
	return n, nil
}

func (r *ruleRepoImpl) retryAttempts() uint {
	if r.config.MirrorRetryCount <= 0 {
		return 1
	}
	return uint(r.config.MirrorRetryCount)
}

func (r *ruleRepoImpl) flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending.Wait()
}

func (r *ruleRepoImpl) close() {
	r.flush()
	if err := r.taskPool.ReleaseTimeout(poolReleaseTimeout); err != nil {
		utils.GetLogger().Warnf("failed to release mirror pool: %v", err)
	}
}
