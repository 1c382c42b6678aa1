package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/CiviTrack/civitrack-back/api"
	"github.com/CiviTrack/civitrack-back/api/auth"
	"github.com/CiviTrack/civitrack-back/env"
	"github.com/CiviTrack/civitrack-back/services/match"
	"github.com/CiviTrack/civitrack-back/services/memstore"
	mongosvc "github.com/CiviTrack/civitrack-back/services/mongo"
	"github.com/CiviTrack/civitrack-back/services/redis"
	"github.com/CiviTrack/civitrack-back/services/s3"
	"github.com/CiviTrack/civitrack-back/services/workflow"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "civitrack: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "civitrack",
		Short:        "CiviTrack report workflow service",
		SilenceUsage: true,
	}
	cmd.AddCommand(newServeCmd())
	return cmd
}

func newServeCmd() *cobra.Command {
	var memory bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the workflow API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), memory)
		},
	}
	cmd.Flags().BoolVar(&memory, "memory", false, "Run against in-memory stores (no Mongo/Redis/S3)")
	return cmd
}

func serve(ctx context.Context, memory bool) error {
	cfg := env.Load()

	variations := match.Variations{}
	if cfg.VariationsPath != "" {
		loaded, err := match.LoadVariations(cfg.VariationsPath)
		if err != nil {
			return err
		}
		variations = loaded
		log.Printf("loaded %d category variations from %s", len(variations), cfg.VariationsPath)
	} else {
		log.Printf("no variations table configured; matcher uses direct matches only")
	}

	var (
		reports workflow.ReportStore
		staff   workflow.StaffStore
		gallery workflow.GalleryStore
	)

	if memory {
		log.Printf("running with in-memory stores")
		store := memstore.New()
		reports = store.Reports()
		staff = store.Staff()
		gallery = store.Gallery()
	} else {
		client, err := mongosvc.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return err
		}
		defer client.Disconnect(context.Background())

		base := mongosvc.New(client.Database(cfg.MongoDB))
		reportStore := mongosvc.NewReportStore(base)
		if err := reportStore.EnsureIndexes(ctx); err != nil {
			log.Printf("index creation warnings: %v", err)
		}
		reports = reportStore
		staff = mongosvc.NewStaffStore(base)
		gallery = mongosvc.NewGalleryStore(base)
	}

	var cache *redis.Service
	if !memory && cfg.RedisAddr != "" {
		cache = redis.NewService(redis.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB), cfg.EventChannel)
		log.Printf("redis connected at %s", cfg.RedisAddr)
	}

	var images *s3.Service
	if !memory && cfg.S3Bucket != "" {
		svc, err := s3.NewService(s3.ClientConfig{
			Bucket:    cfg.S3Bucket,
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			return err
		}
		images = svc
	}

	engine := workflow.NewEngine(reports, staff, variations, cache)
	galleryFlow := workflow.NewGalleryWorkflow(gallery, reports, cache)

	server := api.NewServer(api.Deps{
		Engine:     engine,
		Gallery:    galleryFlow,
		Staff:      staff,
		Cache:      cache,
		Images:     images,
		JWT:        auth.NewJWTManager(cfg.JWTSecret),
		RankingTTL: time.Duration(cfg.RankingCacheS) * time.Second,
	})
	app := server.App()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("API listening on :%s", cfg.Port)
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Printf("shutting down")
		return app.ShutdownWithTimeout(5 * time.Second)
	}
}
