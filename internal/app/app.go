// Package app wires the dispatch pipeline from configuration. Both binaries
// build their dependencies here so the API and the standalone worker always
// agree on stores, scheduler and mail transport.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	reminder "github.com/ace-232/day-planner-app"
	"github.com/ace-232/day-planner-app/internal/config"
	"github.com/ace-232/day-planner-app/internal/httpx"
	"github.com/ace-232/day-planner-app/internal/logging"
	"github.com/ace-232/day-planner-app/internal/mail"
	"github.com/ace-232/day-planner-app/internal/sqsq"
	"github.com/ace-232/day-planner-app/internal/store/pgstore"
	"github.com/ace-232/day-planner-app/internal/store/redisstore"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
)

const connectTimeout = 5 * time.Second

// Deps holds the shared backends of one process.
type Deps struct {
	Config    *config.Config
	Logger    *slog.Logger
	Tasks     reminder.TaskStore
	Users     reminder.UserStore
	Scheduler reminder.Scheduler
	Mailer    reminder.Mailer

	redis *redis.Client
	pool  *pgxpool.Pool
}

// Build connects every backend cfg selects. On error, anything already
// opened is closed.
func Build(ctx context.Context, cfg *config.Config, log *slog.Logger) (d *Deps, err error) {
	d = &Deps{Config: cfg, Logger: log}
	defer func() {
		if err != nil {
			d.Close()
			d = nil
		}
	}()

	if cfg.Store.Backend == "redis" || cfg.Queue.Backend == "redis" {
		if d.redis, err = connectRedis(ctx, cfg.Redis); err != nil {
			return d, err
		}
	}
	if err = d.buildStores(ctx); err != nil {
		return d, err
	}
	if d.Scheduler, err = d.buildScheduler(ctx); err != nil {
		return d, err
	}
	d.Mailer = d.buildMailer()
	log.Info("backends ready",
		"store", cfg.Store.Backend,
		"queue", cfg.Queue.Backend,
		"mail", cfg.Mail.Backend,
	)
	return d, nil
}

func connectRedis(ctx context.Context, rc config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: rc.Addr, Password: rc.Password, DB: rc.DB})
	pctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis %s: %w", rc.Addr, err)
	}
	return rdb, nil
}

func (d *Deps) buildStores(ctx context.Context) error {
	switch d.Config.Store.Backend {
	case "postgres":
		cctx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		pool, err := pgstore.Open(cctx, d.Config.Store.DatabaseURL)
		if err != nil {
			return err
		}
		d.pool = pool
		if err := pgstore.EnsureSchema(cctx, pool); err != nil {
			return err
		}
		d.Tasks = pgstore.NewTaskStore(pool)
		d.Users = pgstore.NewUserStore(pool)
	case "redis":
		d.Tasks = redisstore.NewTaskStore(d.redis)
		d.Users = redisstore.NewUserStore(d.redis)
	default:
		return fmt.Errorf("unknown store backend %q", d.Config.Store.Backend)
	}
	return nil
}

func (d *Deps) buildScheduler(ctx context.Context) (reminder.Scheduler, error) {
	qc := d.Config.Queue
	switch qc.Backend {
	case "sqs":
		api, err := newSQSClient(ctx, qc)
		if err != nil {
			return nil, err
		}
		return sqsq.New(api, sqsq.Config{
			QueueURL:          qc.SQSQueueURL,
			VisibilityTimeout: qc.VisibilityTTL,
			Logger:            logging.Component(d.Logger, "sqs"),
		}), nil
	case "redis":
		return reminder.NewRedisScheduler(d.redis, reminder.RedisSchedulerConfig{
			Queue:         qc.Name,
			VisibilityTTL: qc.VisibilityTTL,
			PollInterval:  qc.PollInterval,
			Logger:        logging.Component(d.Logger, "scheduler"),
		}), nil
	default:
		return nil, fmt.Errorf("unknown queue backend %q", qc.Backend)
	}
}

func newSQSClient(ctx context.Context, qc config.QueueConfig) (*sqs.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(qc.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if qc.AWSEndpointURL != "" {
			o.BaseEndpoint = aws.String(qc.AWSEndpointURL)
		}
	}), nil
}

func (d *Deps) buildMailer() reminder.Mailer {
	mc := d.Config.Mail
	switch mc.Backend {
	case "smtp":
		return mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     mc.SMTPHost,
			Port:     mc.SMTPPort,
			Username: mc.SMTPUser,
			Password: mc.SMTPPassword,
			From:     mc.From,
			StartTLS: mc.SMTPStartTLS,
		})
	case "sendgrid":
		client := httpx.New(nil, httpx.Config{
			Name:          "sendgrid",
			Timeout:       d.Config.Dispatch.DeliveryTimeout,
			UserAgent:     "day-planner/1.0",
			OnStateChange: d.breakerLogger(),
		})
		return mail.NewSendGridMailer(client, mail.SendGridConfig{
			APIKey:   mc.SendGridAPIKey,
			From:     mc.From,
			FromName: mc.FromName,
		})
	default:
		return mail.LogMailer{Logger: logging.Component(d.Logger, "mail")}
	}
}

func (d *Deps) breakerLogger() func(name string, from, to gobreaker.State) {
	return func(name string, from, to gobreaker.State) {
		d.Logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
	}
}

// NotifyClient builds the breaker-guarded client a standalone worker uses to
// reach the API's notify endpoint.
func (d *Deps) NotifyClient() *httpx.Client {
	return httpx.New(nil, httpx.Config{
		Name:          "notify",
		Timeout:       d.Config.Dispatch.DeliveryTimeout,
		OnStateChange: d.breakerLogger(),
	})
}

// NewConsumer builds the dispatch consumer on top of the shared backends,
// delivering in-app notifications through n.
func (d *Deps) NewConsumer(n reminder.Notifier) *reminder.Consumer {
	mux := reminder.NewDeliveryMux(d.Mailer, n)
	mux.Use(reminder.LoggingMiddleware(logging.Component(d.Logger, "delivery")))
	dc := d.Config.Dispatch
	return reminder.NewConsumer(d.Scheduler, d.Tasks, d.Users, mux, reminder.ConsumerConfig{
		Concurrency:     dc.Concurrency,
		DeliveryTimeout: dc.DeliveryTimeout,
		Retry:           reminder.RetryPolicy{MaxRetries: dc.MaxRetries, BaseDelay: dc.BaseDelay},
		Logger:          logging.Component(d.Logger, "consumer"),
	})
}

// Ping checks the connections this process holds.
func (d *Deps) Ping(ctx context.Context) error {
	var errs []error
	if d.redis != nil {
		if err := d.redis.Ping(ctx).Err(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if d.pool != nil {
		if err := d.pool.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("postgres: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Close releases connections. It is safe on a partially built Deps.
func (d *Deps) Close() {
	if d == nil {
		return
	}
	if d.pool != nil {
		d.pool.Close()
		d.pool = nil
	}
	if d.redis != nil {
		_ = d.redis.Close()
		d.redis = nil
	}
}
