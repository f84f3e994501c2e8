package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	"golang.org/x/xerrors"

	"github.com/tnc-ca-geo/SAGE/backend/restapi"
	"github.com/tnc-ca-geo/SAGE/credential"
	"github.com/tnc-ca-geo/SAGE/depl/service"
	statussvc "github.com/tnc-ca-geo/SAGE/depl/service/status"
	"github.com/tnc-ca-geo/SAGE/depl/service/watch"
	"github.com/tnc-ca-geo/SAGE/dispatch"
	"github.com/tnc-ca-geo/SAGE/monitor"
	"github.com/tnc-ca-geo/SAGE/partition"
	"github.com/tnc-ca-geo/SAGE/provision"
	"github.com/tnc-ca-geo/SAGE/session"
	"github.com/tnc-ca-geo/SAGE/status"
	"github.com/tnc-ca-geo/SAGE/submit"
	"github.com/tnc-ca-geo/SAGE/workload"
)

func runDispatch(appCtx *cli.Context) error {
	stage, err := loadStage(appCtx)
	if err != nil {
		return err
	}
	refs, err := resolveCredentials(appCtx)
	if err != nil {
		return err
	}
	sess, err := newSession(appCtx)
	if err != nil {
		return err
	}
	rec := monitor.NewRecorder()
	tracker, err := newTracker(appCtx, sess, rec)
	if err != nil {
		return err
	}

	submitter, err := submit.NewSubmitter(submit.Config{
		Session: sess,
		Logger:  logger.WithField("component", "submitter"),
	})
	if err != nil {
		return err
	}
	provisioner, err := provision.NewProvisioner(provision.Config{
		API:    sess,
		Logger: logger.WithField("component", "provisioner"),
	})
	if err != nil {
		return err
	}

	led, closeLedger, err := getLedger(appCtx.String("ledger-uri"))
	if err != nil {
		return err
	}
	defer closeLedger()

	d, err := dispatch.NewDispatcher(dispatch.Config{
		Credentials:            refs,
		Session:                sess,
		Submitter:              submitter,
		Builder:                stage.Builder(),
		UseMultipleCredentials: stage.UseMultipleCredentials,
		Provisioner:            provisioner,
		Containers:             stage.ProvisionList(),
		TrackBetweenPartitions: stage.UseMultipleCredentials,
		Tracker:                tracker,
		Ledger:                 led,
		Stage:                  stage.Name,
		SkipRecorded:           appCtx.Bool("skip-recorded"),
		Logger:                 logger.WithFields(logrus.Fields{"component": "dispatcher", "stage": stage.Name}),
	})
	if err != nil {
		return err
	}

	ctx, cancelFn := signalContext()
	defer cancelFn()

	res, err := d.Run(ctx, stage.WorkItems())
	writeSummary(os.Stdout, res)
	if err != nil {
		return err
	}
	if !appCtx.Bool("watch") {
		return nil
	}

	if !stage.UseMultipleCredentials {
		refs = refs[:1]
	}
	return runWatchGroup(ctx, appCtx, refs, sess, tracker, rec, monitor.UntilAllTerminal)
}

func runWatch(appCtx *cli.Context) error {
	refs, err := resolveCredentials(appCtx)
	if err != nil {
		return err
	}
	sess, err := newSession(appCtx)
	if err != nil {
		return err
	}
	rec := monitor.NewRecorder()
	tracker, err := newTracker(appCtx, sess, rec)
	if err != nil {
		return err
	}

	stop := monitor.UntilAllTerminal
	if appCtx.Bool("forever") {
		stop = monitor.Forever
	}

	ctx, cancelFn := signalContext()
	defer cancelFn()
	return runWatchGroup(ctx, appCtx, refs, sess, tracker, rec, stop)
}

func runProvision(appCtx *cli.Context) error {
	stage, err := loadStage(appCtx)
	if err != nil {
		return err
	}
	refs, err := resolveCredentials(appCtx)
	if err != nil {
		return err
	}
	sess, err := newSession(appCtx)
	if err != nil {
		return err
	}
	provisioner, err := provision.NewProvisioner(provision.Config{
		API:    sess,
		Logger: logger.WithField("component", "provisioner"),
	})
	if err != nil {
		return err
	}

	ctx, cancelFn := signalContext()
	defer cancelFn()

	// Containers are shared, so the first credential can create them all.
	cred, err := credential.LoadRef(refs[0])
	if err != nil {
		return err
	}
	if err = sess.Activate(ctx, cred); err != nil {
		return err
	}
	if err = sess.Verify(ctx); err != nil {
		return err
	}

	containers := stage.ProvisionList()
	if err = provisioner.EnsureAll(ctx, containers); err != nil {
		return err
	}
	for _, cont := range containers {
		fmt.Printf("ensured %s (%s)\n", cont.Path, cont.Kind)
	}
	return nil
}

func runPartition(appCtx *cli.Context) error {
	stage, err := loadStage(appCtx)
	if err != nil {
		return err
	}
	refs, err := resolveCredentials(appCtx)
	if err != nil {
		return err
	}
	if !stage.UseMultipleCredentials {
		refs = refs[:1]
	}
	if key := appCtx.String("item"); key != "" {
		return writeLocation(os.Stdout, stage.WorkItems(), refs, key)
	}
	return writeAssignment(os.Stdout, stage.WorkItems(), refs)
}

func runHistory(appCtx *cli.Context) error {
	stageName := appCtx.String("stage-name")
	if stageName == "" {
		return xerrors.Errorf("stage name must be specified with --stage-name")
	}
	led, closeLedger, err := getLedger(appCtx.String("ledger-uri"))
	if err != nil {
		return err
	} else if led == nil {
		return xerrors.Errorf("ledger URI must be specified with --ledger-uri")
	}
	defer closeLedger()

	it, err := led.Submissions(stageName)
	if err != nil {
		return err
	}
	defer func() { _ = it.Close() }()

	fmt.Printf("%d submissions recorded for %s\n", it.TotalCount(), stageName)
	for it.Next() {
		sub := it.Submission()
		fmt.Printf("%s %s %s %s %s\n", sub.SubmittedAt.Format("2006-01-02 15:04:05"), sub.Item, sub.Credential, sub.TaskID, sub.Run)
	}
	return it.Error()
}

func runWatchGroup(ctx context.Context, appCtx *cli.Context, refs []credential.Ref, sess watch.Session, tracker watch.Tracker, rec *monitor.Recorder, stop monitor.StopCondition) error {
	watchSvc, err := watch.NewService(watch.Config{
		Credentials: refs,
		Session:     sess,
		Tracker:     tracker,
		Interval:    appCtx.GlobalDuration("poll-interval"),
		Stop:        stop,
		Logger:      logger.WithField("service", "watch"),
	})
	if err != nil {
		return err
	}
	group := service.Group{watchSvc}

	if addr := appCtx.GlobalString("status-addr"); addr != "" {
		statusSvc, err := statussvc.NewService(statussvc.Config{Config: status.Config{
			Source:     rec,
			ListenAddr: addr,
			Logger:     logger.WithField("service", "status"),
		}})
		if err != nil {
			return err
		}
		group = append(group, statusSvc)
	}
	return group.Run(ctx)
}

func loadStage(appCtx *cli.Context) (*workload.Stage, error) {
	path := appCtx.String("stage")
	if path == "" {
		return nil, xerrors.Errorf("stage file must be specified with --stage")
	}
	return workload.LoadStage(path)
}

func resolveCredentials(appCtx *cli.Context) ([]credential.Ref, error) {
	sel, err := credential.ParseSelector(appCtx.GlobalString("credentials"))
	if err != nil {
		return nil, err
	}
	return credential.NewStore(appCtx.GlobalString("credentials-dir")).Resolve(sel)
}

func newSession(appCtx *cli.Context) (*session.Session, error) {
	baseURL := appCtx.GlobalString("backend-url")
	if baseURL == "" {
		return nil, xerrors.Errorf("backend URL must be specified with --backend-url")
	}
	tokenURL := appCtx.GlobalString("token-url")
	if tokenURL == "" {
		tokenURL = restapi.DefaultTokenURL(baseURL)
	}

	return session.New(&restapi.Connector{
		BaseURL:      baseURL,
		TokenURL:     tokenURL,
		ClientID:     appCtx.GlobalString("client-id"),
		ClientSecret: appCtx.GlobalString("client-secret"),
	}, logger.WithField("component", "session")), nil
}

func newTracker(appCtx *cli.Context, sess *session.Session, rec *monitor.Recorder) (*monitor.Monitor, error) {
	return monitor.NewMonitor(monitor.Config{
		Lister:        sess,
		ListCompleted: appCtx.GlobalBool("list-completed"),
		Recorder:      rec,
		Logger:        logger.WithField("component", "monitor"),
	})
}

func writeSummary(w io.Writer, res *dispatch.Result) {
	if res == nil {
		return
	}
	fmt.Fprintf(w, "run %s: %d submitted, %d failed, %d skipped, %d partitions completed\n",
		res.Run, len(res.Handles), len(res.Failures), len(res.Skipped), res.PartitionsCompleted)
	for _, subErr := range res.Failures {
		fmt.Fprintf(w, "  %v\n", subErr)
	}
}

// writeAssignment prints the items of each partition under the credential
// that submits them.
func writeAssignment(w io.Writer, items []workload.Item, refs []credential.Ref) error {
	parts, err := partition.RoundRobin(items, len(refs))
	if err != nil {
		return xerrors.Errorf("%v: %w", credential.ErrNoCredentials, err)
	}
	for p, part := range parts {
		fmt.Fprintf(w, "%s: %d items\n", refs[p].Name, len(part))
		for _, item := range part {
			fmt.Fprintf(w, "  %s\n", item.Key())
		}
	}
	return nil
}

// writeLocation prints the credential that submits the item with the given
// key and its position in that credential's partition.
func writeLocation(w io.Writer, items []workload.Item, refs []credential.Ref, key string) error {
	for pos, item := range items {
		if item.Key() != key {
			continue
		}
		p, offset, err := partition.Locate(pos, len(refs))
		if err != nil {
			return xerrors.Errorf("%v: %w", credential.ErrNoCredentials, err)
		}
		fmt.Fprintf(w, "%s: %s, position %d\n", key, refs[p].Name, offset)
		return nil
	}
	return xerrors.Errorf("stage has no work item %q", key)
}
