package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hidraeco/gatewayd/connectivity"
	"github.com/hidraeco/gatewayd/internal/api"
	wifilog "github.com/hidraeco/gatewayd/internal/log"
	"github.com/hidraeco/gatewayd/internal/tui"
)

const shutdownTimeout = 5 * time.Second

// daemon is a running device task with its web server.
type daemon struct {
	app    *app
	task   *connectivity.Task
	server *http.Server

	taskDone  chan struct{}
	serveDone chan error
}

// startDaemon runs the boot sequence: bring the access point up, start
// auto-connect on the device task and serve the web pages.
func startDaemon(ctx context.Context, a *app, logs *wifilog.RecentHandler) *daemon {
	d := &daemon{
		app:       a,
		task:      connectivity.NewTask(a.manager),
		taskDone:  make(chan struct{}),
		serveDone: make(chan error, 1),
	}

	go func() {
		defer close(d.taskDone)
		d.task.Run(ctx)
	}()

	if err := d.task.Do(ctx, func(m *connectivity.Manager) error {
		return m.StartDefaultAccessPoint()
	}); err != nil {
		// The gateway stays reachable over station mode, so keep going.
		a.log.Error("could not start access point", "error", err)
	}

	go func() {
		err := d.task.Await(ctx, func(m *connectivity.Manager) error {
			return m.BeginAutoConnect(a.cfg.AttemptTimeout, a.cfg.MaxAttempts)
		})
		switch {
		case err == nil:
			a.log.Info("boot auto-connect succeeded", "ssid", d.task.Snapshot().Station.SSID)
		case errors.Is(err, connectivity.ErrConnectionTimeout):
			a.log.Warn("no saved network reachable at boot")
		case errors.Is(err, context.Canceled), errors.Is(err, connectivity.ErrTaskStopped):
		default:
			a.log.Error("boot auto-connect failed", "error", err)
		}
	}()

	handler := api.New(d.task, api.Options{
		Logger:         a.log.With("component", "api"),
		Logs:           logs,
		Metrics:        a.metrics,
		AttemptTimeout: a.cfg.AttemptTimeout,
		MaxAttempts:    a.cfg.MaxAttempts,
	})
	d.server = &http.Server{
		Addr:              a.cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		a.log.Info("serving web pages", "addr", a.cfg.Listen)
		if err := d.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.serveDone <- fmt.Errorf("web server exited: %w", err)
			return
		}
		d.serveDone <- nil
	}()
	return d
}

// Wait blocks until ctx is done or the web server fails, then shuts down.
func (d *daemon) Wait(ctx context.Context) error {
	var err error
	select {
	case <-ctx.Done():
	case err = <-d.serveDone:
	}
	return errors.Join(err, d.Shutdown())
}

// Shutdown stops the web server. The device task stops with its context.
func (d *daemon) Shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := d.server.Shutdown(shutdownCtx)
	d.app.log.Info("shut down")
	return err
}

func runServe(ctx context.Context, a *app, logs *wifilog.RecentHandler) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	d := startDaemon(ctx, a, logs)
	err := d.Wait(ctx)
	cancel()
	<-d.taskDone
	return err
}

// runMonitor runs the daemon with the terminal monitor in the foreground.
func runMonitor(ctx context.Context, a *app, logs *wifilog.RecentHandler) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	d := startDaemon(ctx, a, logs)

	m := tui.NewModel(tui.TaskClient{
		Task:           d.task,
		AttemptTimeout: a.cfg.AttemptTimeout,
		MaxAttempts:    a.cfg.MaxAttempts,
	})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	ch := make(chan tea.Msg, 16)
	logs.SetOutput(ch)
	go func() {
		for {
			select {
			case msg := <-ch:
				p.Send(msg)
			case <-ctx.Done():
				return
			}
		}
	}()

	_, runErr := p.Run()
	logs.SetOutput(nil)
	if errors.Is(runErr, tea.ErrProgramKilled) {
		runErr = nil
	}
	if runErr != nil {
		a.log.Error("monitor exited", "error", runErr)
	}

	cancel()
	err := d.Shutdown()
	<-d.taskDone
	return errors.Join(runErr, err)
}
