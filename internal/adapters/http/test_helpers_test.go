package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/CoPhuocVinh/demo-kafka/internal/application"
	"github.com/CoPhuocVinh/demo-kafka/internal/config"
	"github.com/CoPhuocVinh/demo-kafka/internal/infrastructure/memlog"
	"github.com/CoPhuocVinh/demo-kafka/internal/testutil"
	"github.com/CoPhuocVinh/demo-kafka/internal/utils"
)

const (
	testTopic = "demo-events"
	testGroup = "demo-shared-group"
)

func TestMain(m *testing.M) {
	utils.InitLogger()
	config.InitI18n()
	os.Exit(m.Run())
}

type testEnv struct {
	server     *Server
	handler    http.Handler
	log        *memlog.Log
	production *application.ProductionService
	pool       *application.ConsumerPool
	metrics    *testutil.FakeMetrics
}

// buildServer wires a Server over an in-memory log with a started pool.
func buildServer(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	log := memlog.New(3)
	require.NoError(t, log.EnsureTopic(ctx, testTopic, 3))

	metrics := testutil.NewFakeMetrics()
	hub := NewHub(nil)
	production := application.NewProductionService(log, metrics, application.ProductionConfig{
		Topic:           testTopic,
		Partitions:      3,
		DefaultInterval: time.Hour,
	})
	pool := application.NewConsumerPool(log, hub, metrics, application.ConsumerPoolConfig{
		Topic:      testTopic,
		GroupID:    testGroup,
		Consumers:  3,
		Partitions: 3,
	})
	require.NoError(t, pool.Start(ctx))
	groups := application.NewConsumerGroupService(log, metrics, testTopic, testGroup)

	s := New(production, pool, groups, hub, nil)
	t.Cleanup(func() {
		production.Stop()
		pool.Close()
		hub.Close()
		log.Close()
	})
	return &testEnv{
		server:     s,
		handler:    s.Routes(),
		log:        log,
		production: production,
		pool:       pool,
		metrics:    metrics,
	}
}

// do sends a request through the full router and returns the recorder.
func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return e.doWithHeaders(t, method, path, body, nil)
}

// doWithHeaders is do with extra request headers.
func (e *testEnv) doWithHeaders(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}
