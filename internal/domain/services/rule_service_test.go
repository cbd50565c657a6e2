package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "go_stub_server/internal/domain/model/mock_rule"
	configs "go_stub_server/internal/infra/config"
	"go_stub_server/internal/infra/repo"
	"go_stub_server/internal/infra/storage"
)

func newTestServices(t *testing.T) (*RuleManageService, *RuleMatchService) {
	t.Helper()
	c := configs.DefaultRuleConfig()
	c.LogConfig.LogPayloads = true
	ruleRepo, cleanup, err := repo.NewRuleRepoImpl(storage.NewMemoryRuleStore(), storage.NopRuleMirror{}, &c.RuleRepoConfig)
	require.NoError(t, err)
	t.Cleanup(cleanup)
	return NewRuleManageService(ruleRepo), NewRuleMatchService(ruleRepo, c)
}

func request(method, target, contentType, body string) model.RequestInfo {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	return model.NewHTTPRequest(r, 0)
}

func TestCreateRuleDefaults(t *testing.T) {
	manage, _ := newTestServices(t)

	stored, err := manage.CreateRule(context.Background(), &model.MockRule{
		Method: model.MethodGET,
		Path:   "health",
	})
	require.NoError(t, err)

	_, err = uuid.Parse(stored.ID)
	assert.NoError(t, err)
	assert.False(t, stored.CreatedAt.IsZero())
	assert.Equal(t, http.StatusOK, stored.ReturnCode)
	assert.NotNil(t, stored.ResponseBody)
}

func TestCreateRuleInvalid(t *testing.T) {
	manage, _ := newTestServices(t)
	ctx := context.Background()

	_, err := manage.CreateRule(ctx, &model.MockRule{Path: "/a"})
	assert.ErrorIs(t, err, model.ErrMalformedRegistration)

	_, err = manage.CreateRule(ctx, &model.MockRule{Method: model.MethodGET, Path: "/a", ReturnCode: 42})
	assert.ErrorIs(t, err, model.ErrMalformedRegistration)

	_, err = manage.CreateRule(ctx, nil)
	assert.ErrorIs(t, err, model.ErrMalformedRegistration)
}

func TestHandleMiss(t *testing.T) {
	_, match := newTestServices(t)

	resp := match.Handle(context.Background(), request(http.MethodGet, "/nothing", "", ""))
	assert.Equal(t, http.StatusNotFound, resp.GetStatus())
	assert.Equal(t, model.ContentTypeJSON, resp.GetHeaders().Get("Content-Type"))
	assert.Empty(t, resp.GetBody())
}

func TestHandleFactsScenario(t *testing.T) {
	manage, match := newTestServices(t)
	ctx := context.Background()

	tmpl, err := model.ParseJSONValue([]byte(`{"filter":{"animal":"cat"}}`))
	require.NoError(t, err)
	_, err = manage.CreateRule(ctx, &model.MockRule{
		Method:          model.MethodGET,
		Path:            "facts/random",
		QueryParameters: []model.QueryParameter{{Name: "animal_type", Value: "cat"}, {Name: "amount", Value: "2"}},
		ReturnCode:      http.StatusOK,
		ResponseBody:    []byte(`[{"text":"Cats sleep 70% of their lives."}]`),
	})
	require.NoError(t, err)
	_, err = manage.CreateRule(ctx, &model.MockRule{
		Method:       model.MethodPOST,
		Path:         "facts/random",
		RequestBody:  &tmpl,
		ReturnCode:   http.StatusCreated,
		ResponseBody: []byte(`{"created":true}`),
	})
	require.NoError(t, err)

	resp := match.Handle(ctx, request(http.MethodGet, "/facts/random?animal_type=cat&amount=2", "", ""))
	assert.Equal(t, http.StatusOK, resp.GetStatus())
	assert.JSONEq(t, `[{"text":"Cats sleep 70% of their lives."}]`, string(resp.GetBody()))

	resp = match.Handle(ctx, request(http.MethodGet, "/facts/random?animal_type=dog&amount=2", "", ""))
	assert.Equal(t, http.StatusNotFound, resp.GetStatus())

	resp = match.Handle(ctx, request(http.MethodPost, "/facts/random", "application/json", `{"filter":{"animal":"cat","max":3},"page":1}`))
	assert.Equal(t, http.StatusCreated, resp.GetStatus())
	assert.Equal(t, model.ContentTypeJSON, resp.GetHeaders().Get("Content-Type"))

	resp = match.Handle(ctx, request(http.MethodPost, "/facts/random", "application/json", `{"filter":{"animal":"dog"}}`))
	assert.Equal(t, http.StatusNotFound, resp.GetStatus())

	resp = match.Handle(ctx, request(http.MethodPost, "/facts/random", "text/plain", `{"filter":{"animal":"cat"}}`))
	assert.Equal(t, http.StatusCreated, resp.GetStatus(), "body template ignored for non-JSON content")
}

func TestListAndResetRules(t *testing.T) {
	manage, match := newTestServices(t)
	ctx := context.Background()

	_, err := manage.CreateRule(ctx, &model.MockRule{Method: model.MethodGET, Path: "/a"})
	require.NoError(t, err)
	_, err = manage.CreateRule(ctx, &model.MockRule{Method: model.OtherMethod("PURGE"), Path: "/a"})
	require.NoError(t, err)

	rules, err := manage.ListRules(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 2)

	require.NoError(t, manage.ResetRules(ctx))
	rules, err = manage.ListRules(ctx)
	require.NoError(t, err)
	assert.Empty(t, rules)

	resp := match.Handle(ctx, request(http.MethodGet, "/a", "", ""))
	assert.Equal(t, http.StatusNotFound, resp.GetStatus())

	n, err := manage.RestoreRules(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
