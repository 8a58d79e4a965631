package config

// Redis backs the distributed rate limiter in front of the credential
// endpoints. When Redis is unreachable at startup the limiter is disabled
// and the service keeps serving.

import (
	"context"
	"crypto/tls"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisOptions builds client options from the environment:
//
//	REDIS_HOST and REDIS_PORT – hostname and port of the Redis server
//	REDIS_ADDR – host:port shorthand (used when host/port are not both set)
//	REDIS_PASSWORD – optional password
//	REDIS_DB – database number (default 0)
//	REDIS_TLS – enable TLS when "true" or "1"
func RedisOptions(lookup func(string) (string, bool)) *redis.Options {
	get := func(k string) string { v, _ := lookup(k); return v }
	addr := get("REDIS_ADDR")
	if host, port := get("REDIS_HOST"), get("REDIS_PORT"); host != "" && port != "" {
		addr = host + ":" + port
	}
	if addr == "" {
		addr = "localhost:6379"
	}
	dbNum := 0
	if n, err := strconv.Atoi(get("REDIS_DB")); err == nil {
		dbNum = n
	}
	opts := &redis.Options{
		Addr:     addr,
		Password: get("REDIS_PASSWORD"),
		DB:       dbNum,
	}
	if v := get("REDIS_TLS"); strings.EqualFold(v, "true") || v == "1" {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts
}

// NewRedisClient connects using RedisOptions and pings the server with a
// short timeout. It returns nil when the server cannot be reached.
func NewRedisClient(log logrus.FieldLogger) *redis.Client {
	opts := RedisOptions(os.LookupEnv)
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.WithError(err).WithField("addr", opts.Addr).Warn("redis unavailable; rate limiting disabled")
		_ = client.Close()
		return nil
	}
	return client
}
