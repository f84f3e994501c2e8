package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	"golang.org/x/xerrors"

	"github.com/tnc-ca-geo/SAGE/backend"
	"github.com/tnc-ca-geo/SAGE/backend/memory"
	"github.com/tnc-ca-geo/SAGE/backend/restapi"
	"github.com/tnc-ca-geo/SAGE/depl/service"
	"github.com/tnc-ca-geo/SAGE/depl/service/progress"
)

var (
	appName = "sage-emulator"
	appSha  = "populated-at-link-time"
	logger  *logrus.Entry
)

func main() {
	host, _ := os.Hostname()
	rootLogger := logrus.New()
	rootLogger.SetFormatter(new(logrus.JSONFormatter))
	logger = rootLogger.WithFields(logrus.Fields{
		"app":  appName,
		"sha":  appSha,
		"host": host,
	})

	if err := makeApp().Run(os.Args); err != nil {
		logger.WithField("err", err).Error("shutting down due to error")
		_ = os.Stderr.Sync()
		os.Exit(1)
	}
}

func makeApp() *cli.App {
	app := cli.NewApp()
	app.Name = appName
	app.Usage = "serve an in-memory batch backend for local development"
	app.Version = appSha
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "listen-addr",
			Value:  ":8080",
			EnvVar: "LISTEN_ADDR",
			Usage:  "The address to serve the backend API on",
		},
		cli.StringFlag{
			Name:   "accounts",
			EnvVar: "ACCOUNTS",
			Usage:  "A comma-separated list of accepted refresh tokens; any token is accepted if empty",
		},
		cli.DurationFlag{
			Name:   "step-interval",
			Value:  30 * time.Second,
			EnvVar: "STEP_INTERVAL",
			Usage:  "The time between task state transitions",
		},
	}
	app.Action = runMain
	return app
}

func runMain(appCtx *cli.Context) error {
	mem := memory.NewInMemoryBackend(nil)

	srv, err := restapi.NewServer(restapi.ServerConfig{
		Accounts:    accountResolver(mem, appCtx.String("accounts")),
		IssueTokens: true,
		ListenAddr:  appCtx.String("listen-addr"),
		Logger:      logger.WithField("service", "backend-api"),
	})
	if err != nil {
		return err
	}

	progressSvc, err := progress.NewService(progress.Config{
		Stepper:      mem,
		StepInterval: appCtx.Duration("step-interval"),
		Logger:       logger.WithField("service", "progress"),
	})
	if err != nil {
		return err
	}

	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()

	// Start signal watcher
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGHUP)
		select {
		case s := <-sigCh:
			logger.WithField("signal", s.String()).Infof("shutting down due to signal")
			cancelFn()
		case <-ctx.Done():
		}
	}()

	return service.Group{apiService{srv}, progressSvc}.Run(ctx)
}

// apiService adapts the REST server to service.Service.
type apiService struct {
	srv *restapi.Server
}

func (s apiService) Name() string                  { return "backend-api" }
func (s apiService) Run(ctx context.Context) error { return s.srv.Serve(ctx) }

// accountResolver maps bearer tokens to backend accounts. Tokens double as
// account names. If allowed is not empty only the listed tokens are
// accepted.
func accountResolver(mem *memory.InMemoryBackend, allowed string) restapi.AccountResolver {
	accepted := make(map[string]bool)
	for _, token := range strings.Split(allowed, ",") {
		if token = strings.TrimSpace(token); token != "" {
			accepted[token] = true
		}
	}

	return restapi.AccountResolverFunc(func(token string) (backend.Backend, error) {
		if len(accepted) != 0 && !accepted[token] {
			return nil, xerrors.Errorf("token not accepted: %w", backend.ErrUnauthenticated)
		}
		return mem.Account(token), nil
	})
}
