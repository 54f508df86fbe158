// Package runner drives the stream demo: one topology, one consumer and one
// publisher sharing a connection but not a channel.
package runner

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stupidhang/streamdemo/amqp/rabbitmq"
	"github.com/stupidhang/streamdemo/config"
	"github.com/stupidhang/streamdemo/monitor"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

type Runner struct {
	client  rabbitmq.Client
	cfg     *config.Config
	metrics *monitor.Metrics
	log     *logrus.Logger
}

func New(client rabbitmq.Client, cfg *config.Config, metrics *monitor.Metrics, log *logrus.Logger) *Runner {
	return &Runner{
		client:  client,
		cfg:     cfg,
		metrics: metrics,
		log:     log,
	}
}

/*
Run declares the topology, then consumes and publishes until ctx is done,
a publish fails or the connection is lost.
A consumer failure is logged and leaves the publisher running.
Run returns nil when stopped through ctx.
*/
func (r *Runner) Run(ctx context.Context) error {
	topology := r.cfg.Topology()
	if err := r.client.DeclareTopology(topology); err != nil {
		return err
	}
	r.log.WithFields(logrus.Fields{
		"exchange": topology.Exchange.Name,
		"queue":    topology.Queue.Name,
	}).Info("Exchange declared")

	publisher, err := r.client.NewPublisher(rabbitmq.PublisherOptions{Confirm: r.cfg.Confirm})
	if err != nil {
		return err
	}
	defer publisher.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r.consume(gctx)
		return nil
	})
	g.Go(func() error {
		return r.publish(gctx, publisher)
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case <-r.client.Done():
			return r.client.Err()
		}
	})

	err = g.Wait()
	if err != nil && ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (r *Runner) consume(ctx context.Context) {
	log := r.log.WithField("component", "consumer")

	opts := r.cfg.ConsumerOptions()
	opts.Acked = func(*rabbitmq.Delivery) { r.metrics.MsgsAcked.Inc() }
	consumer, err := r.client.NewConsumer(opts)
	if err != nil {
		r.metrics.ConsumeErrors.Inc()
		log.WithError(err).Error("consumer stopped")
		return
	}
	defer consumer.Close()

	err = consumer.Consume(ctx, func(ctx context.Context, d *rabbitmq.Delivery) error {
		r.metrics.MsgsReceived.Inc()
		log.Infof("Received message: %s", d.Text())
		return nil
	})
	if err != nil {
		r.metrics.ConsumeErrors.Inc()
		log.WithError(err).Error("consumer stopped")
	}
}

// publish sends the payload Count times, or forever when Count is 0, at
// most Rate times a second when Rate is set.
func (r *Runner) publish(ctx context.Context, publisher rabbitmq.Publisher) error {
	log := r.log.WithField("component", "publisher")

	limit := rate.Inf
	if r.cfg.Rate > 0 {
		limit = rate.Limit(r.cfg.Rate)
	}
	limiter := rate.NewLimiter(limit, 1)

	msg := &rabbitmq.Publish{
		Exchange: r.cfg.Exchange,
		Key:      r.cfg.Exchange,
		Content:  []byte(r.cfg.Payload),
	}
	sent := 0
	for r.cfg.Count == 0 || sent < r.cfg.Count {
		if err := limiter.Wait(ctx); err != nil {
			return nil
		}
		start := time.Now()
		_, err := publisher.Publish(ctx, msg)
		r.metrics.PublishLatency.Observe(time.Since(start).Seconds())
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.metrics.PublishErrors.Inc()
			log.WithError(err).Error("publish failed")
			return err
		}
		sent++
		r.metrics.MsgsPublished.Inc()
		log.Infof("Sent message: %s", r.cfg.Payload)
	}
	log.WithField("count", sent).Info("publishing finished")
	return nil
}
