package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper runs one evaluation pass.
type Sweeper interface {
	Sweep(ctx context.Context) (SweepReport, error)
}

// Driver runs sweeps on a cron cadence. Overlapping runs are skipped.
type Driver struct {
	sweeper Sweeper
	spec    string
	logger  *zap.Logger
	cron    *cron.Cron
}

// NewDriver parses spec (standard five-field or a descriptor such as "@every 30s").
func NewDriver(sweeper Sweeper, spec string, logger *zap.Logger) (*Driver, error) {
	if sweeper == nil {
		return nil, errors.New("alarm driver: nil sweeper")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("alarm driver: parse spec %q: %w", spec, err)
	}
	adapter := cronLogger{log: logger.Sugar()}
	return &Driver{
		sweeper: sweeper,
		spec:    spec,
		logger:  logger,
		cron:    cron.New(cron.WithLogger(adapter), cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter))),
	}, nil
}

// Run schedules sweeps until ctx is canceled, then waits for a running sweep to finish.
func (d *Driver) Run(ctx context.Context) error {
	if d == nil {
		return errors.New("alarm driver: nil driver")
	}
	if _, err := d.cron.AddFunc(d.spec, func() { d.tick(ctx) }); err != nil {
		return err
	}
	d.logger.Info("alarm driver starting", zap.String("spec", d.spec))
	d.cron.Start()
	<-ctx.Done()
	<-d.cron.Stop().Done()
	d.logger.Info("alarm driver stopped")
	return nil
}

func (d *Driver) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	report, err := d.sweeper.Sweep(ctx)
	if err != nil {
		d.logger.Error("sweep failed", zap.Error(err))
		return
	}
	if report.Triggered > 0 || report.Failed > 0 {
		d.logger.Info("sweep",
			zap.Int("evaluated", report.Evaluated),
			zap.Int("triggered", report.Triggered),
			zap.Int("failed", report.Failed),
		)
	}
}

// cronLogger routes cron's logr-style calls to zap.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
