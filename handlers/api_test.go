package handlers

import (
	"testing"

	"newsforge/config"
	"newsforge/services"
	"newsforge/store"
	"newsforge/tasks"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testAPI wires a real queue (miniredis) and a mocked database behind the
// handler layer.
type testAPI struct {
	api  *API
	mock sqlmock.Sqlmock
}

func newTestAPI(t *testing.T) *testAPI {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	log := zap.NewNop()
	st := store.New(db)
	queue := tasks.NewQueue(rdb, log)
	paddle := services.NewPaddleClient("vendor", "key", "whsec_test", true, 0, log)
	billing := services.NewBillingService(st, log)
	renderer := services.NewRenderer()
	generator := services.NewGenerator(services.NewAnthropicClient(""), services.NewOpenAIClient(""), nil, false, log)
	mailer := services.NewMailer("", "newsletter@newsforge.dev", log)

	cfg := &config.Config{
		Env:       "test",
		JWTSecret: "test-secret",
	}

	api := NewAPI(st, queue, generator, renderer, mailer, paddle, billing, cfg, log)
	return &testAPI{api: api, mock: mock}
}

func (f *testAPI) router() *gin.Engine {
	r := gin.New()
	r.POST("/api/generate", f.api.Generate)
	r.GET("/api/task/:id", f.api.TaskStatus)
	r.POST("/api/payment/webhook", f.api.PaymentWebhook)
	return r
}
