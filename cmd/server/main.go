package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/nrf-quote/auth"
	"github.com/jrsteele09/nrf-quote/cache"
	"github.com/jrsteele09/nrf-quote/internal/config"
	"github.com/jrsteele09/nrf-quote/internal/errors"
	"github.com/jrsteele09/nrf-quote/internal/logging"
	"github.com/jrsteele09/nrf-quote/server"
	"github.com/jrsteele09/nrf-quote/sessions"
	"github.com/jrsteele09/nrf-quote/upload"
	"github.com/jrsteele09/nrf-quote/upload/mockuploader"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

var envFile string

var rootCmd = &cobra.Command{
	Use:           "nrf-quote",
	Short:         "Nature Restoration Fund quote service",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file read before the environment (ignored if missing)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context) error {
	c, err := config.Load(config.WithEnvFile(envFile))
	if err != nil {
		return err
	}
	logging.Setup(c.GetLogLevel(), c.GetLogFormat(), os.Stderr)
	if c.IsDev() {
		displayAppname(c.GetAppName())
	}

	store, err := openCache(ctx, c)
	if err != nil {
		return err
	}
	defer store.Close()

	codec, err := sessions.NewCookieCodec(c.GetCookiePassword())
	if err != nil {
		return err
	}
	manager, err := sessions.NewManager(store, codec, c.GetSessionTTL(), sessions.WithSecureCookie(c.GetCookieSecure()))
	if err != nil {
		return err
	}

	httpClient := &http.Client{Timeout: c.GetHTTPClientTimeout()}
	var opts []server.Option

	if svc := newAuthService(ctx, c, store, httpClient); svc != nil {
		opts = append(opts, server.WithAuthService(svc))
	}

	var uploader upload.Uploader
	if c.GetUseMockUploader() {
		mock := mockuploader.New(store, c.GetUploaderBucket(), c.GetSessionTTL(), httpClient)
		opts = append(opts, server.WithMockUploader(mock))
		uploader = mock
		log.Warn().Msg("using the mock uploader; uploads are not scanned")
	} else {
		uploader = upload.NewCDPClient(c.GetUploaderURL(), c.GetUploaderBucket(), httpClient, upload.WithRelativeUploadURL())
	}
	orchestrator := upload.NewOrchestrator(uploader, upload.NewBackendClient(c.GetBackendURL(), httpClient))

	handler, err := server.New(c, manager, orchestrator, opts...)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return listenAndServe(srv)
	})
	g.Go(func() error {
		<-gctx.Done()
		return shutdown(srv)
	})
	return g.Wait()
}

func openCache(ctx context.Context, c config.Config) (cache.Cache, error) {
	switch c.GetCacheEngine() {
	case config.CacheEngineRedis:
		r, err := cache.OpenRedis(ctx, c.GetRedisAddr(), c.GetRedisPassword(), c.GetRedisDB(), c.GetRedisKeyPrefix())
		if err != nil {
			return nil, errors.Wrapf(err, "[openCache] redis")
		}
		log.Info().Str("addr", c.GetRedisAddr()).Msg("session cache: redis")
		return r, nil
	default:
		if c.IsProduction() {
			log.Warn().Msg("session cache: memory; sessions are lost on restart and not shared between instances")
		}
		return cache.NewMemory(time.Minute), nil
	}
}

// newAuthService returns nil when Defra ID is off or its discovery document cannot be read.
// The service then runs without sign-in.
func newAuthService(ctx context.Context, c config.Config, store cache.Cache, httpClient *http.Client) *auth.Service {
	if !c.GetDefraIDEnabled() {
		return nil
	}
	provider := auth.NewProvider(auth.ProviderConfig{
		WellKnownURL: c.GetWellKnownURL(),
		ClientID:     c.GetClientID(),
		ClientSecret: c.GetClientSecret(),
		RedirectURL:  c.GetRedirectURL(),
		ServiceID:    c.GetServiceID(),
	}, auth.WithProviderHTTPClient(httpClient))

	if _, err := provider.Discover(ctx); err != nil {
		log.Err(err).Msg("Defra ID discovery failed; running without sign-in")
		return nil
	}
	log.Info().Msg("Defra ID sign-in enabled")

	return auth.NewService(provider,
		auth.NewCacheUserSessionRepo(store, c.GetSessionTTL()),
		auth.WithRefresh(c.GetRefreshTokens()),
		auth.WithFlowTimeout(c.GetAuthFlowTimeout()),
		auth.WithClockSkew(c.GetClockSkew()),
	)
}

func listenAndServe(srv *http.Server) error {
	log.Info().Str("addr", srv.Addr).Msg("server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(srv *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
