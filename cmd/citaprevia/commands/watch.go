package commands

import (
	"context"
	"fmt"
	"sync"
	"time"

	"citaprevia/internal/components/chrono"
	"citaprevia/internal/components/telemetry"
	"citaprevia/internal/finder"
	"citaprevia/internal/notify"

	"github.com/spf13/cobra"
)

const (
	report_watch_search = "watch.search"
	report_watch_notify = "watch.notify"
)

// watcher repeats a search and notifies when it finds something new.
type watcher struct {
	finder        finder.Finder
	query         finder.Query
	procedureName string
	notifier      notify.Notifier
	tel           telemetry.API

	mutex    sync.Mutex
	lastBody string
}

// check runs one search, it returns true if a notification was sent. A failed search or
// notification is reported and returned.
func (w *watcher) check(ctx context.Context) (bool, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	res, err := w.finder.Search(ctx, w.query)
	if err != nil {
		w.tel.ReportBroken(report_watch_search, err)
		return false, err
	}
	if !res.Found() {
		w.tel.ReportDebug("no appointments yet", "procedure", w.procedureName)
		w.lastBody = ""
		return false, nil
	}

	msg := notify.Summarize(w.procedureName, res)
	if msg.Body == w.lastBody {
		w.tel.ReportDebug("appointments unchanged since the last notification")
		return false, nil
	}
	err = w.notifier.Notify(ctx, msg)
	if err != nil {
		w.tel.ReportBroken(report_watch_notify, err)
		return false, err
	}
	w.lastBody = msg.Body
	return true, nil
}

func (a *app) notifier() notify.Notifier {
	notifiers := notify.Multi{notify.NewLogNotifier(a.out, a.tel, a.clock)}
	if a.config.Smtp != nil && len(a.config.NotifyTo) > 0 {
		notifiers = append(notifiers, notify.NewEmailNotifier(*a.config.Smtp, a.config.NotifyTo, a.tel))
	}
	return notifiers
}

func newWatchCmd(a *app) *cobra.Command {
	var flags searchFlags
	var schedule string
	var once bool

	cmd := &cobra.Command{
		Use:   "watch --procedure-id <id> [--schedule <cron>] [--once]",
		Short: "Searches for appointments on a schedule and notifies when some show up.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.finder()
			if err != nil {
				return err
			}
			q := flags.query(a)
			if len(f.Offices(q)) == 0 {
				return finder.ErrNoOffices
			}

			procedureName := fmt.Sprint(q.ProcedureId)
			if p, ok := a.catalog.Procedure(q.ProcedureId); ok {
				procedureName = p.Name
			}

			w := &watcher{
				finder:        f,
				query:         q,
				procedureName: procedureName,
				notifier:      a.notifier(),
				tel:           a.tel,
			}

			ctx := cmd.Context()
			if once {
				notified, err := w.check(ctx)
				if err != nil {
					return err
				}
				if !notified {
					return quietUnsatisfied
				}
				return nil
			}

			if schedule == "" {
				schedule = a.config.WatchSchedule
			}
			_, err = chrono.NextRun(schedule, a.clock.Now())
			if err != nil {
				return fmt.Errorf("invalid schedule %q: %w", schedule, err)
			}
			run := func() {
				// failures are already reported, the next activation tries again
				_, _ = w.check(ctx)
				next, _ := chrono.NextRun(schedule, a.clock.Now())
				a.tel.ReportDebug("next check", next.Format(time.DateTime))
			}

			scheduler := chrono.NewStandardCron(a.tel)
			defer scheduler.Stop()
			err = scheduler.Cron(schedule, run)
			if err != nil {
				return fmt.Errorf("invalid schedule %q: %w", schedule, err)
			}

			run()
			<-ctx.Done()
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&schedule, "schedule", "", "Cron spec in Europe/Madrid time, defaults to the configured schedule.")
	cmd.Flags().BoolVar(&once, "once", false, "Search a single time and exit.")
	return cmd
}
