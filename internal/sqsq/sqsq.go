// Package sqsq implements reminder.Scheduler on an Amazon SQS standard queue.
//
// SQS caps per-message delay at 15 minutes. Longer delays are chained: the
// envelope carries its absolute due time, and a message received early is
// sent again with the remaining delay before the original is deleted.
package sqsq

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	reminder "github.com/ace-232/day-planner-app"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// MaxDelay is the longest per-message delay SQS accepts.
const MaxDelay = 900 * time.Second

// API is the subset of the SQS client used by the scheduler.
type API interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	GetQueueAttributes(ctx context.Context, params *sqs.GetQueueAttributesInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueAttributesOutput, error)
}

// Config configures a Scheduler.
type Config struct {
	QueueURL string
	// WaitTime is the long-poll duration of one receive call. Defaults to 20s.
	WaitTime time.Duration
	// VisibilityTimeout is the lease of a received message. Defaults to 30s.
	VisibilityTimeout time.Duration
	Logger            reminder.Logger
	Now               func() time.Time
}

// Scheduler is a reminder.Scheduler backed by SQS.
type Scheduler struct {
	api API
	cfg Config
	enc reminder.Encoder
	log reminder.Logger
	now func() time.Time
}

var (
	_ reminder.Scheduler     = (*Scheduler)(nil)
	_ reminder.StatsReporter = (*Scheduler)(nil)
)

// New creates a scheduler on api.
func New(api API, cfg Config) *Scheduler {
	if cfg.WaitTime <= 0 || cfg.WaitTime > 20*time.Second {
		cfg.WaitTime = 20 * time.Second
	}
	if cfg.VisibilityTimeout <= 0 {
		cfg.VisibilityTimeout = 30 * time.Second
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	lg := cfg.Logger
	if lg == nil {
		lg = reminder.NewSlogLogger(nil)
	}
	return &Scheduler{api: api, cfg: cfg, enc: reminder.DefaultEncoder, log: lg, now: now}
}

// DelaySeconds converts d to the SQS delay parameter: whole seconds rounded
// up, clamped to [0, 900].
func DelaySeconds(d time.Duration) int32 {
	if d <= 0 {
		return 0
	}
	if d >= MaxDelay {
		return int32(MaxDelay / time.Second)
	}
	return int32(math.Ceil(d.Seconds()))
}

func (s *Scheduler) Enqueue(ctx context.Context, taskID string, delay time.Duration) error {
	now := s.now()
	return s.send(ctx, reminder.NewMessage(taskID, delay, now), now)
}

func (s *Scheduler) send(ctx context.Context, m reminder.Message, now time.Time) error {
	body, err := reminder.EncodeMessage(s.enc, m)
	if err != nil {
		return fmt.Errorf("sqsq: encode message: %w", err)
	}
	_, err = s.api.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:     aws.String(s.cfg.QueueURL),
		MessageBody:  aws.String(string(body)),
		DelaySeconds: DelaySeconds(m.Due().Sub(now)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"taskId": {
				DataType:    aws.String("String"),
				StringValue: aws.String(m.TaskID),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("sqsq: send message for task %s: %w", m.TaskID, err)
	}
	return nil
}

// Dequeue long-polls until a due message is received or ctx is done.
func (s *Scheduler) Dequeue(ctx context.Context) (*reminder.Delivery, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := s.api.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(s.cfg.QueueURL),
			MaxNumberOfMessages: 1,
			WaitTimeSeconds:     int32(s.cfg.WaitTime / time.Second),
			VisibilityTimeout:   int32(math.Ceil(s.cfg.VisibilityTimeout.Seconds())),
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("sqsq: receive: %w", err)
		}
		for _, raw := range out.Messages {
			d, err := s.accept(ctx, raw)
			if err != nil || d != nil {
				return d, err
			}
		}
	}
}

// accept returns a delivery for raw, or nil when raw was dropped or chained.
func (s *Scheduler) accept(ctx context.Context, raw sqstypes.Message) (*reminder.Delivery, error) {
	receipt := aws.ToString(raw.ReceiptHandle)
	m, err := reminder.DecodeMessage(s.enc, []byte(aws.ToString(raw.Body)))
	if err != nil {
		s.log.Errorf("dropping undecodable message: id=%s err=%v", aws.ToString(raw.MessageId), err)
		return nil, s.delete(ctx, receipt)
	}
	now := s.now()
	if m.Due().After(now) {
		// not due yet: the delay exceeded what one SQS hop allows
		if err := s.send(ctx, m, now); err != nil {
			return nil, err
		}
		s.log.Debugf("chained early message: task=%s remaining=%s", m.TaskID, m.Due().Sub(now))
		return nil, s.delete(ctx, receipt)
	}
	return &reminder.Delivery{Message: m, Receipt: receipt}, nil
}

// Ack deletes the received message.
func (s *Scheduler) Ack(ctx context.Context, d *reminder.Delivery) error {
	return s.delete(ctx, d.Receipt)
}

func (s *Scheduler) delete(ctx context.Context, receipt string) error {
	_, err := s.api.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(s.cfg.QueueURL),
		ReceiptHandle: aws.String(receipt),
	})
	if err != nil {
		return fmt.Errorf("sqsq: delete message: %w", err)
	}
	return nil
}

// Stats reports the approximate queue depth SQS exposes.
func (s *Scheduler) Stats(ctx context.Context) (reminder.QueueStats, error) {
	out, err := s.api.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl: aws.String(s.cfg.QueueURL),
		AttributeNames: []sqstypes.QueueAttributeName{
			sqstypes.QueueAttributeNameApproximateNumberOfMessagesDelayed,
			sqstypes.QueueAttributeNameApproximateNumberOfMessages,
			sqstypes.QueueAttributeNameApproximateNumberOfMessagesNotVisible,
		},
	})
	if err != nil {
		return reminder.QueueStats{}, fmt.Errorf("sqsq: queue attributes: %w", err)
	}
	attr := func(n sqstypes.QueueAttributeName) int64 {
		v, _ := strconv.ParseInt(out.Attributes[string(n)], 10, 64)
		return v
	}
	return reminder.QueueStats{
		Delayed: attr(sqstypes.QueueAttributeNameApproximateNumberOfMessagesDelayed),
		Pending: attr(sqstypes.QueueAttributeNameApproximateNumberOfMessages),
		Active:  attr(sqstypes.QueueAttributeNameApproximateNumberOfMessagesNotVisible),
	}, nil
}
