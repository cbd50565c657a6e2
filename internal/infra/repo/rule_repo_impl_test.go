package repo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "go_stub_server/internal/domain/model/mock_rule"
	configs "go_stub_server/internal/infra/config"
	"go_stub_server/internal/infra/storage"
)

// fakeMirror 记录写入, 可注入失败次数
type fakeMirror struct {
	mu       sync.Mutex
	rules    []*model.MockRule
	seqs     []int64
	failures int32
	saves    int32
	cleared  int32
}

func (f *fakeMirror) SaveRule(ctx context.Context, rule *model.MockRule, seq int64) error {
	atomic.AddInt32(&f.saves, 1)
	if atomic.AddInt32(&f.failures, -1) >= 0 {
		return errors.New("mirror unavailable")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, rule)
	f.seqs = append(f.seqs, seq)
	return nil
}

func (f *fakeMirror) ids() map[string]bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make(map[string]bool, len(f.rules))
	for _, rule := range f.rules {
		ids[rule.ID] = true
	}
	return ids
}

// delayedMirror 延迟指定规则的写入, 让后注册的规则先落地
type delayedMirror struct {
	storage.RuleMirrorIface
	delayID string
	delay   time.Duration
}

func (d *delayedMirror) SaveRule(ctx context.Context, rule *model.MockRule, seq int64) error {
	if rule.ID == d.delayID {
		time.Sleep(d.delay)
	}
	return d.RuleMirrorIface.SaveRule(ctx, rule, seq)
}

func (f *fakeMirror) ListRules(ctx context.Context) ([]*model.MockRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*model.MockRule(nil), f.rules...), nil
}

func (f *fakeMirror) Clear(ctx context.Context) error {
	atomic.AddInt32(&f.cleared, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = nil
	return nil
}

func (f *fakeMirror) Close() error { return nil }

func (f *fakeMirror) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rules)
}

func testRepoConfig() *configs.RuleRepoConfig {
	return &configs.RuleRepoConfig{
		MirrorRetryCount: 3,
		MirrorRetryDelay: time.Millisecond,
		MirrorPoolSize:   2,
	}
}

func newTestRepo(t *testing.T, mirror storage.RuleMirrorIface) *ruleRepoImpl {
	t.Helper()
	r, err := newRuleRepoImpl(storage.NewMemoryRuleStore(), mirror, testRepoConfig())
	require.NoError(t, err)
	t.Cleanup(r.close)
	return r
}

func getReq(target string) model.RequestInfo {
	return model.NewHTTPRequest(httptest.NewRequest(http.MethodGet, target, nil), 0)
}

func TestRuleRepoSaveAndFind(t *testing.T) {
	r := newTestRepo(t, nil)
	ctx := context.Background()

	require.NoError(t, r.SaveRule(ctx, &model.MockRule{
		ID: "1", Method: model.MethodGET, Path: "/ping", ResponseBody: []byte(`"pong"`),
	}))

	rule, err := r.FindBestMatchRule(ctx, getReq("/ping"))
	require.NoError(t, err)
	assert.Equal(t, "1", rule.ID)

	_, err = r.FindBestMatchRule(ctx, getReq("/pong"))
	assert.ErrorIs(t, err, model.ErrNoMatchingRule)
}

func TestRuleRepoMirrorsAsyncWithRetry(t *testing.T) {
	mirror := &fakeMirror{failures: 2}
	r := newTestRepo(t, mirror)
	ctx := context.Background()

	require.NoError(t, r.SaveRule(ctx, &model.MockRule{ID: "1", Method: model.MethodGET, Path: "/a"}))
	r.flush()

	assert.Equal(t, 1, mirror.count())
	assert.Equal(t, int32(3), atomic.LoadInt32(&mirror.saves))
}

func TestRuleRepoMirrorFailureKeepsRule(t *testing.T) {
	mirror := &fakeMirror{failures: 100}
	r := newTestRepo(t, mirror)
	ctx := context.Background()

	require.NoError(t, r.SaveRule(ctx, &model.MockRule{ID: "1", Method: model.MethodGET, Path: "/a"}))
	r.flush()

	assert.Equal(t, 0, mirror.count())
	_, err := r.FindBestMatchRule(ctx, getReq("/a"))
	assert.NoError(t, err)
}

func TestRuleRepoReset(t *testing.T) {
	mirror := &fakeMirror{}
	r := newTestRepo(t, mirror)
	ctx := context.Background()

	require.NoError(t, r.SaveRule(ctx, &model.MockRule{ID: "1", Method: model.MethodGET, Path: "/a"}))
	require.NoError(t, r.Reset(ctx))

	rules, err := r.ListRules(ctx)
	require.NoError(t, err)
	assert.Empty(t, rules)
	assert.Equal(t, 0, mirror.count())
	assert.Equal(t, int32(1), atomic.LoadInt32(&mirror.cleared))
}

func TestRuleRepoRestore(t *testing.T) {
	mirror := &fakeMirror{}
	mirror.rules = []*model.MockRule{
		{ID: "1", Method: model.MethodGET, Path: "/a", ResponseBody: []byte("old")},
		{ID: "2", Method: model.MethodGET, Path: "/b"},
		{ID: "3", Method: model.MethodGET, Path: "a", ResponseBody: []byte("new")},
	}
	r := newTestRepo(t, mirror)
	ctx := context.Background()

	n, err := r.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	rule, err := r.FindBestMatchRule(ctx, getReq("/a"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(rule.ResponseBody))

	rules, err := r.ListRules(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 2)
}

func TestRuleRepoRestoreWithoutMirror(t *testing.T) {
	r := newTestRepo(t, storage.NopRuleMirror{})
	n, err := r.Restore(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNewRuleRepoImplCleanup(t *testing.T) {
	mirror := &fakeMirror{}
	repo, cleanup, err := NewRuleRepoImpl(storage.NewMemoryRuleStore(), mirror, testRepoConfig())
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, repo.SaveRule(context.Background(), &model.MockRule{
			ID: string(rune('a' + i)), Method: model.OtherMethod("PURGE"), Path: "/p",
		}))
	}
	cleanup()
	assert.Equal(t, 10, mirror.count())
}

func TestRuleRepoMirrorSeqFollowsRegistrationOrder(t *testing.T) {
	mirror := &fakeMirror{}
	r := newTestRepo(t, mirror)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		require.NoError(t, r.SaveRule(ctx, &model.MockRule{
			ID: strconv.Itoa(i), Method: model.MethodGET, Path: "/a",
		}))
	}
	r.flush()

	mirror.mu.Lock()
	defer mirror.mu.Unlock()
	require.Len(t, mirror.seqs, 20)
	seqByID := make(map[string]int64, 20)
	for i, rule := range mirror.rules {
		seqByID[rule.ID] = mirror.seqs[i]
	}
	for i := 1; i < 20; i++ {
		assert.Greater(t, seqByID[strconv.Itoa(i)], seqByID[strconv.Itoa(i-1)])
	}
}

// 旧规则的镜像写入晚于新规则落地, 重启恢复后仍然是新规则
func TestRuleRepoRestoreKeepsLatestReplacement(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	redisMirror := storage.NewRedisRuleMirror(client, "repo:")
	defer redisMirror.Close()
	ctx := context.Background()

	slow := &delayedMirror{RuleMirrorIface: redisMirror, delayID: "old", delay: 50 * time.Millisecond}
	first, err := newRuleRepoImpl(storage.NewMemoryRuleStore(), slow, testRepoConfig())
	require.NoError(t, err)

	require.NoError(t, first.SaveRule(ctx, &model.MockRule{
		ID: "old", Method: model.MethodGET, Path: "/x", ResponseBody: []byte("old"),
	}))
	require.NoError(t, first.SaveRule(ctx, &model.MockRule{
		ID: "new", Method: model.MethodGET, Path: "/x", ResponseBody: []byte("new"),
	}))
	live, err := first.FindBestMatchRule(ctx, getReq("/x"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(live.ResponseBody))
	first.close()

	second := newTestRepo(t, redisMirror)
	n, err := second.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	restored, err := second.FindBestMatchRule(ctx, getReq("/x"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(restored.ResponseBody))
}

// 并发注册与重置: 不 panic, 且内存中的规则与镜像一致
func TestRuleRepoConcurrentSaveAndReset(t *testing.T) {
	mirror := &fakeMirror{}
	r := newTestRepo(t, mirror)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := strconv.Itoa(worker) + "-" + strconv.Itoa(j)
				assert.NoError(t, r.SaveRule(ctx, &model.MockRule{
					ID: id, Method: model.MethodGET, Path: "/w/" + id,
				}))
			}
		}(i)
	}
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				assert.NoError(t, r.Reset(ctx))
			}
		}()
	}
	wg.Wait()
	r.flush()

	rules, err := r.ListRules(ctx)
	require.NoError(t, err)
	live := make(map[string]bool, len(rules))
	for _, rule := range rules {
		live[rule.ID] = true
	}
	assert.Equal(t, live, mirror.ids())
}
