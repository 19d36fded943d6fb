package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohitroy-github/ico-init/internal/chain"
	"github.com/rohitroy-github/ico-init/internal/config"
	"github.com/rohitroy-github/ico-init/internal/contract"
	"github.com/rohitroy-github/ico-init/internal/database"
	"github.com/rohitroy-github/ico-init/internal/monitor"
)

type testServer struct {
	engine   *gin.Engine
	monitor  *monitor.EventMonitor
	accounts []chain.Account
	registry *contract.ProjectRegistry
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	backend, accounts, err := chain.NewDevBackend(config.ChainConfig{
		ChainId:        1337,
		DevAccounts:    4,
		InitialBalance: "100000000000000000000",
	}, chain.WithClock(func() time.Time { return time.Unix(1700000000, 0) }))
	require.NoError(t, err)

	registry, _, err := contract.DeployProjectRegistry(backend, &chain.TransactOpts{From: accounts[0].Address}, nil)
	require.NoError(t, err)

	db, err := database.Init(config.DatabaseConfig{
		Driver: "sqlite",
		Path:   fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_")),
	})
	require.NoError(t, err)

	cfg := &config.Config{Server: config.ServerConfig{Mode: "test"}}
	return &testServer{
		engine:   Setup(db, backend, registry, accounts, cfg),
		monitor:  monitor.NewEventMonitor(backend, db, registry, time.Hour),
		accounts: accounts,
		registry: registry,
	}
}

func (s *testServer) do(t *testing.T, method, path string, from common.Address, body interface{}) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if from != (common.Address{}) {
		req.Header.Set("X-From", from.Hex())
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var resp envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w.Code, resp
}

func decode(t *testing.T, raw json.RawMessage, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, v))
}

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestRouter_Metrics(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodGet, "/api/v1/registry", common.Address{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ico_http_requests_total")
}

func TestRouter_RequestIDPropagated(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "fixed-id")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	assert.Equal(t, "fixed-id", w.Header().Get(RequestIDHeader))
}

func TestRouter_ICOFlow(t *testing.T) {
	s := newTestServer(t)
	superOwner := s.accounts[0].Address
	owner := s.accounts[1].Address
	buyer := s.accounts[2].Address
	stranger := s.accounts[3].Address

	// 上架
	code, resp := s.do(t, http.MethodPost, "/api/v1/projects", owner, map[string]string{
		"name":        "Alpha",
		"description": "first project",
		"openingDate": "1700000000",
		"closingDate": "1700600000",
		"value":       contract.DefaultListingFee().String(),
	})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	var listed struct {
		ProjectID string `json:"projectId"`
	}
	decode(t, resp.Data, &listed)
	assert.Equal(t, "0", listed.ProjectID)

	// 上架费不足
	code, resp = s.do(t, http.MethodPost, "/api/v1/projects", owner, map[string]string{
		"name":  "Cheap",
		"value": "1",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, resp.Message, "Listing fee is not sufficient")

	// 缺少调用方
	code, _ = s.do(t, http.MethodPost, "/api/v1/projects/0/close", common.Address{}, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	// 非所有者关闭
	code, resp = s.do(t, http.MethodPost, "/api/v1/projects/0/close", stranger, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Contains(t, resp.Message, contract.NotAuthorizedAsListedProjectOwner)

	// 发行代币
	code, resp = s.do(t, http.MethodPost, "/api/v1/projects/0/token", owner, map[string]string{
		"name":        "Alpha Token",
		"symbol":      "ALP",
		"totalSupply": "1000",
		"tokenPrice":  "1000000000",
	})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	var minted struct {
		TokenAddress string `json:"tokenAddress"`
	}
	decode(t, resp.Data, &minted)
	require.True(t, common.IsHexAddress(minted.TokenAddress))

	code, resp = s.do(t, http.MethodGet, "/api/v1/projects/0/status", common.Address{}, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(resp.Data), "PROJECT_TOKEN_MINTED")

	// 付款不精确
	tokenPath := "/api/v1/tokens/" + minted.TokenAddress
	code, resp = s.do(t, http.MethodPost, tokenPath+"/buy", buyer, map[string]string{"amount": "10", "value": "1"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, resp.Message, "Incorrect payment amount")

	code, resp = s.do(t, http.MethodPost, tokenPath+"/buy", buyer, map[string]string{"amount": "10", "value": "10000000000"})
	require.Equal(t, http.StatusOK, code, resp.Message)

	code, resp = s.do(t, http.MethodGet, tokenPath+"/balances/"+buyer.Hex(), common.Address{}, nil)
	require.Equal(t, http.StatusOK, code)
	var balance struct {
		Balance string `json:"balance"`
	}
	decode(t, resp.Data, &balance)
	assert.Equal(t, "10", balance.Balance)

	// 非初始所有者调价
	code, _ = s.do(t, http.MethodPut, tokenPath+"/price", buyer, map[string]string{"tokenPrice": "5"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = s.do(t, http.MethodGet, "/api/v1/projects/0/details", common.Address{}, nil)
	require.Equal(t, http.StatusOK, code)
	var details struct {
		TokenSymbol string `json:"tokenSymbol"`
		TokenPrice  string `json:"tokenPrice"`
	}
	decode(t, resp.Data, &details)
	assert.Equal(t, "ALP", details.TokenSymbol)
	assert.Equal(t, "1000000000", details.TokenPrice)

	// SUPEROWNER 管理
	code, _ = s.do(t, http.MethodPut, "/api/v1/registry/listing-fee", owner, map[string]string{"listingFee": "1"})
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(t, http.MethodPut, "/api/v1/registry/listing-fee", superOwner, map[string]string{"listingFee": "1"})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "1", s.registry.ListingFee().String())
	code, _ = s.do(t, http.MethodPost, "/api/v1/registry/withdraw", superOwner, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Zero(t, s.registry.GetContractBalance().Sign())

	// 索引后查询投影
	_, err := s.monitor.ProcessNewBlocks(context.Background())
	require.NoError(t, err)

	code, resp = s.do(t, http.MethodGet, "/api/v1/projects?status=token_minted", common.Address{}, nil)
	require.Equal(t, http.StatusOK, code)
	var projects struct {
		Projects []struct {
			ProjectID     int64  `json:"projectId"`
			TokenContract string `json:"tokenContract"`
		} `json:"projects"`
		Pagination struct {
			Total int64 `json:"total"`
		} `json:"pagination"`
	}
	decode(t, resp.Data, &projects)
	require.Len(t, projects.Projects, 1)
	assert.Equal(t, int64(1), projects.Pagination.Total)
	assert.Equal(t, minted.TokenAddress, projects.Projects[0].TokenContract)

	code, resp = s.do(t, http.MethodGet, "/api/v1/projects/0/purchases", common.Address{}, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(resp.Data), buyer.Hex())

	code, resp = s.do(t, http.MethodGet, tokenPath, common.Address{}, nil)
	require.Equal(t, http.StatusOK, code)
	var token struct {
		Available string `json:"available"`
		Indexed   *struct {
			Sold string `json:"sold"`
		} `json:"indexed"`
	}
	decode(t, resp.Data, &token)
	assert.Equal(t, "990", token.Available)
	require.NotNil(t, token.Indexed)
	assert.Equal(t, "10", token.Indexed.Sold)

	code, resp = s.do(t, http.MethodGet, "/api/v1/events?event_type=TokensPurchased", common.Address{}, nil)
	require.Equal(t, http.StatusOK, code)
	var events struct {
		Events []struct {
			EventType string `json:"eventType"`
		} `json:"events"`
	}
	decode(t, resp.Data, &events)
	require.Len(t, events.Events, 1)
}

func TestRouter_BadInput(t *testing.T) {
	s := newTestServer(t)
	owner := s.accounts[1].Address

	code, _ := s.do(t, http.MethodGet, "/api/v1/projects/abc", common.Address{}, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp := s.do(t, http.MethodGet, "/api/v1/projects/7", common.Address{}, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, resp.Message, "Project does not exist")

	code, _ = s.do(t, http.MethodGet, "/api/v1/projects?status=bogus", common.Address{}, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/projects", owner, map[string]string{"name": "X", "value": "-1"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/tokens/"+owner.Hex(), common.Address{}, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/tokens/not-an-address", common.Address{}, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/events/999", common.Address{}, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRouter_Accounts(t *testing.T) {
	s := newTestServer(t)

	code, resp := s.do(t, http.MethodGet, "/api/v1/accounts", common.Address{}, nil)
	require.Equal(t, http.StatusOK, code)
	var accounts []struct {
		Address string `json:"address"`
		Balance string `json:"balance"`
	}
	decode(t, resp.Data, &accounts)
	require.Len(t, accounts, 4)
	assert.Equal(t, s.accounts[1].Address.Hex(), accounts[1].Address)
	assert.Equal(t, "100000000000000000000", accounts[1].Balance)

	code, resp = s.do(t, http.MethodGet, "/api/v1/registry", common.Address{}, nil)
	require.Equal(t, http.StatusOK, code)
	var registry struct {
		SuperOwner string `json:"superOwner"`
		ListingFee string `json:"listingFee"`
	}
	decode(t, resp.Data, &registry)
	assert.Equal(t, s.accounts[0].Address.Hex(), registry.SuperOwner)
	assert.Equal(t, new(big.Int).Div(big.NewInt(1e18), big.NewInt(10)).String(), registry.ListingFee)
}
