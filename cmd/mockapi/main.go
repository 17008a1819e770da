// Package main starts the development mock backend: an in-memory
// implementation of the auth and profile endpoints issuing real JWTs, so
// the client shell runs against localhost.
package main

import (
	"crypto/rand"
	"flag"
	"net/http"

	"github.com/amanpay/appcore/internal/logger"
	"github.com/amanpay/appcore/internal/mockapi"
	"go.uber.org/zap"
)

func main() {
	var (
		addr     string
		secret   string
		logLevel string
	)
	flag.StringVar(&addr, "a", "localhost:8080", "listen address")
	flag.StringVar(&secret, "secret", "", "JWT signing secret (random when empty)")
	flag.StringVar(&logLevel, "log", "info", "log level")
	flag.Parse()

	log, err := logger.New(logLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			log.Fatal("failed to generate signing secret", zap.Error(err))
		}
	}

	handler := &mockapi.Handler{
		Users:  mockapi.NewUserStore(),
		Tokens: mockapi.NewTokenIssuer(key),
		Log:    log,
	}
	router := mockapi.NewRouter(handler, log)

	log.Info("starting mock backend", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
