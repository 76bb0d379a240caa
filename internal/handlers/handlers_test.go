package handlers_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"WeaveSync/internal/config"
	"WeaveSync/internal/handlers"
	"WeaveSync/internal/middleware"
	"WeaveSync/internal/repo"
	"WeaveSync/internal/service"
	"WeaveSync/internal/weave"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var dbSeq atomic.Int64

const alicePassword = "alice-password"

func testConfig() *config.Config {
	return &config.Config{
		AuthSecret:     "test-secret",
		AdminLogin:     "admin",
		AdminPassword:  "admin-password",
		MaxBodyMB:      1,
		RequestTimeout: 5 * time.Second,
		RetentionDays:  30,
		GuardMode:      "legacy",
	}
}

// newTestRouter собирает роутер над настоящей SQLite с пользователем alice.
func newTestRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	db, d, err := repo.InitDB("sqlite", fmt.Sprintf("file:handlers_%d?mode=memory&cache=shared", dbSeq.Add(1)), zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	logger := zap.NewNop().Sugar()
	store := repo.NewStorage(db, d)
	userSvc := service.NewUserService(store, service.WithBcryptCost(bcrypt.MinCost))
	syncSvc := service.NewSyncService(store, userSvc, logger, service.WithGuardMode(service.GuardMode(cfg.GuardMode)))

	_, err = userSvc.Register(context.Background(), "alice", alicePassword, "")
	require.NoError(t, err)

	return handlers.NewHandler(userSvc, syncSvc, logger, cfg).Router
}

func weaveCall(t *testing.T, router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	req.SetBasicAuth("alice", alicePassword)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestWeave_PutGetRoundTrip(t *testing.T) {
	router := newTestRouter(t, testConfig())

	rr := weaveCall(t, router, http.MethodPut, "/1.0/alice/storage/bookmarks/abc123", `{"payload":"xyz"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	modified := rr.Body.String()
	assert.Equal(t, modified, rr.Header().Get(weave.HeaderTimestamp))
	assert.NotEmpty(t, rr.Header().Get(middleware.HeaderRequestID))

	rr = weaveCall(t, router, http.MethodGet, "/1.0/alice/storage/bookmarks/abc123", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":"abc123","payload":"xyz","modified":`+modified+`}`, rr.Body.String())

	rr = weaveCall(t, router, http.MethodGet, "/1.0/alice/storage/bookmarks?full=1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "1", rr.Header().Get(weave.HeaderRecords))
}

func TestWeave_Rejections(t *testing.T) {
	router := newTestRouter(t, testConfig())

	t.Run("missing credentials", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/1.0/alice/info/collections", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "7", rr.Body.String())
		assert.Equal(t, `Basic realm="Weave"`, rr.Header().Get("WWW-Authenticate"))
	})

	t.Run("wrong password", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/1.0/alice/info/collections", nil)
		req.SetBasicAuth("alice", "not-the-password")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, `"Unauthorized"`, rr.Body.String())
	})

	t.Run("unsupported version wins over bad user name", func(t *testing.T) {
		rr := weaveCall(t, router, http.MethodGet, "/2.0/bad!name/info/collections", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "11", rr.Body.String())
	})

	t.Run("unfiltered delete", func(t *testing.T) {
		rr := weaveCall(t, router, http.MethodDelete, "/1.0/alice/storage/bookmarks", "")
		assert.Equal(t, http.StatusPreconditionFailed, rr.Code)
		assert.Equal(t, "4", rr.Body.String())
	})
}

func TestWeave_BatchPost(t *testing.T) {
	router := newTestRouter(t, testConfig())

	rr := weaveCall(t, router, http.MethodPost, "/1.0/alice/storage/tabs", `[{"id":"id1","payload":"a"},{"id":"id2","payload":"b"}]`)
	require.Equal(t, http.StatusOK, rr.Code)
	ts := rr.Header().Get(weave.HeaderTimestamp)
	assert.JSONEq(t, `{"modified":`+ts+`,"success":["id1","id2"],"failed":{}}`, rr.Body.String())
}

func TestWeave_BodyLimit(t *testing.T) {
	router := newTestRouter(t, testConfig())
	big := `{"payload":"` + strings.Repeat("x", 2<<20) + `"}`

	rr := weaveCall(t, router, http.MethodPut, "/1.0/alice/storage/bookmarks/big", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.NotEmpty(t, rr.Header().Get(weave.HeaderTimestamp))
	assert.Equal(t, `"Request entity too large"`, rr.Body.String())
}

func TestWeave_BrokenGzipBody(t *testing.T) {
	router := newTestRouter(t, testConfig())

	req := httptest.NewRequest(http.MethodPut, "/1.0/alice/storage/bookmarks/a", strings.NewReader("not gzip"))
	req.SetBasicAuth("alice", alicePassword)
	req.Header.Set("Content-Encoding", "gzip")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "1", rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get(weave.HeaderTimestamp))
}

func TestWeave_PathPrefixAndGzip(t *testing.T) {
	cfg := testConfig()
	cfg.PathPrefix = "/weave"
	router := newTestRouter(t, cfg)

	rr := weaveCall(t, router, http.MethodGet, "/1.0/alice/info/collections", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/weave/1.0/alice/info/quota", nil)
	req.SetBasicAuth("alice", alicePassword)
	req.Header.Set("Accept-Encoding", "gzip")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "gzip", rr.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.JSONEq(t, `[0,null]`, string(data))
}

func adminLogin(t *testing.T, router http.Handler) []*http.Cookie {
	t.Helper()
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/admin/login",
		strings.NewReader(`{"login":"admin","password":"admin-password"}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	cookies := rr.Result().Cookies()
	hasCookie := false
	for _, c := range cookies {
		if c.Name == middleware.CookieName {
			hasCookie = true
		}
	}
	require.True(t, hasCookie, "Set-Cookie auth_token expected")
	return cookies
}

func adminCall(t *testing.T, router http.Handler, cookies []*http.Cookie, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestAdmin_Login(t *testing.T) {
	router := newTestRouter(t, testConfig())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/admin/login",
		strings.NewReader(`{"login":"admin","password":"bad"}`)))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = adminCall(t, router, nil, http.MethodGet, "/admin/users", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	cookies := adminLogin(t, router)
	rr = adminCall(t, router, cookies, http.MethodGet, "/admin/users", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAdmin_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.AdminPassword = ""
	router := newTestRouter(t, cfg)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/admin/login",
		strings.NewReader(`{"login":"admin","password":""}`)))
	assert.NotEqual(t, http.StatusOK, rr.Code)
}

func TestAdmin_UserLifecycle(t *testing.T) {
	router := newTestRouter(t, testConfig())
	cookies := adminLogin(t, router)

	rr := adminCall(t, router, cookies, http.MethodPost, "/admin/users", `{"username":"bob","password":"bob-password","email":"bob@example.com"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = adminCall(t, router, cookies, http.MethodPost, "/admin/users", `{"username":"bob","password":"bob-password"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = adminCall(t, router, cookies, http.MethodPost, "/admin/users", `{"username":"carol","password":"short"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// bob пишет запись через протокол
	req := httptest.NewRequest(http.MethodPut, "/1.0/bob/storage/prefs/p", strings.NewReader(`{"payload":"0123456789"}`))
	req.SetBasicAuth("bob", "bob-password")
	wr := httptest.NewRecorder()
	router.ServeHTTP(wr, req)
	require.Equal(t, http.StatusOK, wr.Code)

	rr = adminCall(t, router, cookies, http.MethodGet, "/admin/users", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var users []struct {
		UserName string  `json:"username"`
		WboCount int64   `json:"wbo_count"`
		TotalKB  float64 `json:"total_kb"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &users))
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].UserName)
	assert.Equal(t, "bob", users[1].UserName)
	assert.Equal(t, int64(1), users[1].WboCount)

	rr = adminCall(t, router, cookies, http.MethodGet, "/admin/users/bob", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var details struct {
		Email       string `json:"email"`
		Collections []struct {
			Name  string `json:"name"`
			Count int64  `json:"count"`
			Bytes int64  `json:"bytes"`
		} `json:"collections"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &details))
	assert.Equal(t, "bob@example.com", details.Email)
	require.Len(t, details.Collections, 1)
	assert.Equal(t, "prefs", details.Collections[0].Name)
	assert.Equal(t, int64(10), details.Collections[0].Bytes)

	rr = adminCall(t, router, cookies, http.MethodPost, "/admin/users/bob/password", `{"password":"new-bob-password"}`)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = adminCall(t, router, cookies, http.MethodDelete, "/admin/users/bob", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = adminCall(t, router, cookies, http.MethodDelete, "/admin/users/bob", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = adminCall(t, router, cookies, http.MethodGet, "/admin/users/bob", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAdmin_Cleanup(t *testing.T) {
	router := newTestRouter(t, testConfig())
	cookies := adminLogin(t, router)

	rr := adminCall(t, router, cookies, http.MethodPost, "/admin/cleanup", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"deleted":0}`, rr.Body.String())

	rr = adminCall(t, router, cookies, http.MethodPost, "/admin/cleanup", `{"days":-1}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
