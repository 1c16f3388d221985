package cron

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	cronv3 "github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/customeros/maildigest/dto"
	"github.com/customeros/maildigest/interfaces"
	cron_config "github.com/customeros/maildigest/internal/cron/config"
	"github.com/customeros/maildigest/internal/logger"
	"github.com/customeros/maildigest/internal/tracing"
	"github.com/customeros/maildigest/internal/utils"
)

const (
	JobPoll = "poll"

	appSourcePoller = "poller"
)

// Poller runs the pipeline against one source on a cron schedule. Cycles
// never overlap: a scheduled cycle waits for the previous one to finish.
type Poller struct {
	cfg      *cron_config.Config
	log      logger.Logger
	pipeline interfaces.PipelineService
	source   interfaces.MessageSource

	cron   *cronv3.Cron
	jobIDs map[string]cronv3.EntryID

	// cycleMu serializes every cycle, scheduled or not
	cycleMu sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once
}

func NewPoller(cfg *cron_config.Config, log logger.Logger, pipeline interfaces.PipelineService, source interfaces.MessageSource) *Poller {
	if cfg == nil {
		cfg = &cron_config.Config{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		cfg:      cfg,
		log:      log,
		pipeline: pipeline,
		source:   source,
		jobIDs:   make(map[string]cronv3.EntryID),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start registers the poll job and starts the scheduler. With RunOnStart a
// first cycle begins immediately.
func (p *Poller) Start() error {
	var err error
	p.startOnce.Do(func() {
		cronLog := &cronLogger{log: p.log}
		c := cronv3.New(
			cronv3.WithSeconds(),
			cronv3.WithLogger(cronLog),
			cronv3.WithChain(
				cronv3.Recover(cronLog),
				cronv3.DelayIfStillRunning(cronLog),
			),
		)

		var id cronv3.EntryID
		id, err = c.AddFunc(p.cfg.CronSchedulePoll, func() {
			defer tracing.RecoverAndLogToJaeger(p.log)
			p.cycle()
		})
		if err != nil {
			err = errors.Wrapf(err, "invalid poll schedule %q", p.cfg.CronSchedulePoll)
			return
		}
		p.jobIDs[JobPoll] = id
		p.cron = c

		p.log.Info("Starting poller",
			zap.String("source", p.source.Name()),
			zap.String("schedule", p.cfg.CronSchedulePoll),
			zap.Int("maxResults", p.cfg.MaxResults))

		if p.cfg.RunOnStart {
			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				defer tracing.RecoverAndLogToJaeger(p.log)
				p.cycle()
			}()
		}
		c.Start()
	})
	return err
}

// Stop stops scheduling, waits for the in-flight cycle and only then cancels
// the cycle context.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		p.log.Info("Stopping poller")
		if p.cron != nil {
			<-p.cron.Stop().Done()
		}
		p.wg.Wait()
		// a cycle may still hold the lock when started outside the scheduler
		p.cycleMu.Lock()
		p.cancel()
		p.cycleMu.Unlock()
	})
}

// RunOnce executes a single cycle synchronously.
func (p *Poller) RunOnce(ctx context.Context) ([]dto.MessageOutcome, error) {
	p.cycleMu.Lock()
	defer p.cycleMu.Unlock()
	return p.run(ctx)
}

func (p *Poller) cycle() {
	p.cycleMu.Lock()
	defer p.cycleMu.Unlock()
	if p.ctx.Err() != nil {
		return
	}
	_, _ = p.run(p.ctx)
}

func (p *Poller) run(ctx context.Context) ([]dto.MessageOutcome, error) {
	ctx = utils.WithCustomContext(ctx, &utils.CustomContext{
		AppSource: appSourcePoller,
		RequestId: utils.GenerateNanoIDWithPrefix("poll", 12),
	})
	span, ctx := tracing.StartTracerSpan(ctx, "Poller.run")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	log := p.log.With(
		zap.String("requestId", utils.GetRequestIdFromContext(ctx)),
		zap.String("traceId", tracing.GetTraceId(span)),
	)

	outcomes, err := p.pipeline.Run(ctx, p.source, p.cfg.MaxResults)
	if err != nil {
		tracing.TraceErr(span, err)
		log.Error("Poll cycle failed", zap.String("source", p.source.Name()), zap.Error(err))
		return nil, err
	}
	log.Infof("Poll cycle finished with %d messages", len(outcomes))
	return outcomes, nil
}

// cronLogger routes scheduler logs through the application logger.
type cronLogger struct {
	log logger.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugf("cron: %s %v", msg, keysAndValues)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, zap.Error(err), zap.Any("details", keysAndValues))
}
