package main

import (
	"fmt"
	"net/http"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mcdev12/draftoverlay/go/internal/draft/service"
)

func setupServer(port string, services *Services) *http.Server {
	mux := http.NewServeMux()

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	// Admin RPCs
	mux.Handle(service.NewAdminServiceHandler(services.Admin))

	// Overlay sockets and the state snapshot
	services.Gateway.RegisterRoutes(mux)

	setupHealthCheck(mux, services)

	return &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: h2c.NewHandler(c.Handler(mux), &http2.Server{}),
	}
}

func setupHealthCheck(mux *http.ServeMux, services *Services) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		body := "OK"
		if !services.Controller.StorageHealthy() {
			// Still serving; saves are failing.
			body = "OK (storage degraded)"
		}
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(body)); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}
