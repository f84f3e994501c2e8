package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/tnc-ca-geo/SAGE/credential"
)

var (
	appName = "sage"
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
	app.Usage = "spread batch export jobs across several credentials"
	app.Version = appSha
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "credentials-dir",
			Value:  credential.DefaultDir(),
			EnvVar: "SAGE_CREDENTIALS_DIR",
			Usage:  "The directory holding one credential file per identity",
		},
		cli.StringFlag{
			Name:   "credentials",
			Value:  "all",
			EnvVar: "SAGE_CREDENTIALS",
			Usage:  "The credentials to use: 'all' or a comma-separated list of file names",
		},
		cli.StringFlag{
			Name:   "backend-url",
			EnvVar: "SAGE_BACKEND_URL",
			Usage:  "The base URL of the batch backend API",
		},
		cli.StringFlag{
			Name:   "token-url",
			EnvVar: "SAGE_TOKEN_URL",
			Usage:  "The OAuth2 token endpoint (defaults to the backend's /oauth2/token)",
		},
		cli.StringFlag{
			Name:   "client-id",
			EnvVar: "SAGE_CLIENT_ID",
			Usage:  "The OAuth2 client ID used when a credential does not carry one",
		},
		cli.StringFlag{
			Name:   "client-secret",
			EnvVar: "SAGE_CLIENT_SECRET",
			Usage:  "The OAuth2 client secret used when a credential does not carry one",
		},
		cli.DurationFlag{
			Name:   "poll-interval",
			Value:  10 * time.Minute,
			EnvVar: "SAGE_POLL_INTERVAL",
			Usage:  "The time between task status polls",
		},
		cli.BoolFlag{
			Name:   "list-completed",
			EnvVar: "SAGE_LIST_COMPLETED",
			Usage:  "Also list the names of completed tasks in status reports",
		},
		cli.StringFlag{
			Name:   "status-addr",
			EnvVar: "SAGE_STATUS_ADDR",
			Usage:  "If set, serve task status and metrics on this address while watching",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "dispatch",
			Usage:  "submit every work item of a stage",
			Action: runDispatch,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "stage",
					Usage: "The YAML file describing the stage",
				},
				cli.BoolFlag{
					Name:  "watch",
					Usage: "Keep watching the submitted tasks until they are all done",
				},
				cli.StringFlag{
					Name:   "ledger-uri",
					EnvVar: "SAGE_LEDGER_URI",
					Usage:  "If set, record submissions (supported URIs: in-memory://, postgresql://user@host:26257/sage?sslmode=disable)",
				},
				cli.BoolFlag{
					Name:  "skip-recorded",
					Usage: "Do not submit items the ledger already holds for the stage",
				},
			},
		},
		{
			Name:   "watch",
			Usage:  "report task status for every credential until all tasks are done",
			Action: runWatch,
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "forever",
					Usage: "Keep watching after all tasks are done",
				},
			},
		},
		{
			Name:   "provision",
			Usage:  "create the containers a stage exports into",
			Action: runProvision,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "stage",
					Usage: "The YAML file describing the stage",
				},
			},
		},
		{
			Name:   "partition",
			Usage:  "print which credential each work item of a stage is assigned to",
			Action: runPartition,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "stage",
					Usage: "The YAML file describing the stage",
				},
				cli.StringFlag{
					Name:  "item",
					Usage: "Only print the assignment of the item with this key (e.g. NBR_1985_2021 or 2004)",
				},
			},
		},
		{
			Name:   "history",
			Usage:  "list the submissions recorded for a stage",
			Action: runHistory,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "stage-name",
					Usage: "The stage to list submissions for",
				},
				cli.StringFlag{
					Name:   "ledger-uri",
					EnvVar: "SAGE_LEDGER_URI",
					Usage:  "The ledger to read (supported URIs: postgresql://user@host:26257/sage?sslmode=disable)",
				},
			},
		},
	}
	return app
}

// signalContext returns a context that gets cancelled on SIGINT or SIGHUP.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancelFn := context.WithCancel(context.Background())
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
	return ctx, cancelFn
}
