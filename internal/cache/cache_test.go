package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/maltedev/storefront-crawler/internal/crawler"
	"github.com/maltedev/storefront-crawler/internal/extract"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRedisClient is a mock for Redis client
type MockRedisClient struct {
	mock.Mock
}

func (m *MockRedisClient) Get(ctx context.Context, key string) *redis.StringCmd {
	args := m.Called(ctx, key)
	cmd := redis.NewStringCmd(ctx)
	if err := args.Error(1); err != nil {
		cmd.SetErr(err)
	} else {
		cmd.SetVal(args.String(0))
	}
	return cmd
}

func (m *MockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	args := m.Called(ctx, key, value, expiration)
	cmd := redis.NewStatusCmd(ctx)
	if err := args.Error(0); err != nil {
		cmd.SetErr(err)
	} else {
		cmd.SetVal("OK")
	}
	return cmd
}

func TestResultCache(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()
	req := crawler.Request{
		URL:     "https://outofline.co.kr/product/list.html?cate_no=24",
		BaseURL: "https://outofline.co.kr",
		Limit:   20,
	}
	price := 19800

	result := &extract.Result{
		Products: []extract.Product{{
			URL:       "https://outofline.co.kr/product/a/1/",
			Thumbnail: "https://outofline.co.kr/web/product/1.jpg",
			Price:     &price,
		}},
		Mode: extract.ModeStructured,
	}
	encoded, err := json.Marshal(result)
	require.NoError(t, err)

	t.Run("hit decodes stored result", func(t *testing.T) {
		mockRedis := new(MockRedisClient)
		mockRedis.On("Get", ctx, Key(req)).Return(string(encoded), nil)

		c := New(mockRedis, time.Hour, logger)
		got, ok := c.Get(ctx, req)

		require.True(t, ok)
		require.Len(t, got.Products, 1)
		assert.Equal(t, 19800, *got.Products[0].Price)
		assert.Equal(t, extract.ModeStructured, got.Mode)
		mockRedis.AssertExpectations(t)
	})

	t.Run("miss on redis nil", func(t *testing.T) {
		mockRedis := new(MockRedisClient)
		mockRedis.On("Get", ctx, Key(req)).Return("", redis.Nil)

		_, ok := New(mockRedis, time.Hour, logger).Get(ctx, req)
		assert.False(t, ok)
	})

	t.Run("miss on connection error", func(t *testing.T) {
		mockRedis := new(MockRedisClient)
		mockRedis.On("Get", ctx, Key(req)).Return("", errors.New("connection refused"))

		_, ok := New(mockRedis, time.Hour, logger).Get(ctx, req)
		assert.False(t, ok)
	})

	t.Run("miss on corrupt entry", func(t *testing.T) {
		mockRedis := new(MockRedisClient)
		mockRedis.On("Get", ctx, Key(req)).Return("{not json", nil)

		_, ok := New(mockRedis, time.Hour, logger).Get(ctx, req)
		assert.False(t, ok)
	})

	t.Run("set writes with ttl", func(t *testing.T) {
		mockRedis := new(MockRedisClient)
		mockRedis.On("Set", ctx, Key(req), encoded, 10*time.Minute).Return(nil)

		New(mockRedis, 10*time.Minute, logger).Set(ctx, req, result)
		mockRedis.AssertExpectations(t)
	})

	t.Run("set error is swallowed", func(t *testing.T) {
		mockRedis := new(MockRedisClient)
		mockRedis.On("Set", ctx, Key(req), mock.Anything, time.Minute).Return(errors.New("READONLY"))

		assert.NotPanics(t, func() {
			New(mockRedis, time.Minute, logger).Set(ctx, req, result)
		})
		mockRedis.AssertExpectations(t)
	})
}

func TestKey(t *testing.T) {
	req := crawler.Request{URL: "https://shop.example.com/list", BaseURL: "https://shop.example.com", Limit: 20}
	a := Key(req)

	tests := []struct {
		name   string
		mutate func(r *crawler.Request)
	}{
		{"Different limit", func(r *crawler.Request) { r.Limit = 5 }},
		{"Different base URL", func(r *crawler.Request) { r.BaseURL = "https://cdn.shop.example.com" }},
		{"Different URL", func(r *crawler.Request) { r.URL = "https://shop.example.com/list?page=2" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := req
			tt.mutate(&other)
			assert.NotEqual(t, a, Key(other))
		})
	}

	assert.Equal(t, a, Key(req))
	assert.Contains(t, a, keyPrefix)
}
