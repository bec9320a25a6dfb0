package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"libraryledger/internal/database"
	"libraryledger/internal/handlers"
	"libraryledger/internal/services"
)

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the admin HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := connect()
			if err != nil {
				return err
			}
			if cfg.AutoMigrate {
				if err := database.AutoMigrate(db); err != nil {
					return err
				}
			}
			if addr != "" {
				cfg.ServerAddr = addr
			}
			if cfg.GinMode != "" {
				gin.SetMode(cfg.GinMode)
			}

			libraryService := services.New(db)

			router := gin.Default()
			handlers.RegisterRoutes(router, libraryService)

			srv := &http.Server{
				Addr:         cfg.ServerAddr,
				Handler:      router,
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 15 * time.Second,
			}

			log.Printf("[INFO] Starting server on %s", cfg.ServerAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides SERVER_ADDR)")
	return cmd
}
