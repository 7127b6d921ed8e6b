package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/timez-app/timez/go/internal/config"
	"github.com/timez-app/timez/go/internal/session/gateway"
)

func setupServer(c *config.Config, services *Services) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%s", c.Gateway.Port),
		Handler:           gateway.NewHandler(services.Gateway, c.Gateway.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
