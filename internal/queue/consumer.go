package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/sunbeam-data/ocr-pipeline/constants"
	"github.com/sunbeam-data/ocr-pipeline/internal/common"
)

// API is the subset of the SQS service the consumer uses, split out so tests
// can substitute a fake.
type API interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Consumer long-polls the queue and drives each message through the
// processing endpoint. Queue delivery is at-least-once; exactly-once
// processing comes from the duplicate gate behind the endpoint, not from
// anything here.
type Consumer struct {
	api    API
	cfg    common.QueueConfig
	http   *http.Client
	logger *slog.Logger

	// retries tracks consecutive transient failures per receipt handle so a
	// poison message ends up on the dead-letter queue instead of looping.
	retries map[string]int
}

func NewConsumer(awsCfg aws.Config, cfg common.QueueConfig, logger *slog.Logger) *Consumer {
	return NewConsumerWithAPI(sqs.NewFromConfig(awsCfg), cfg, logger)
}

// NewConsumerWithAPI wires an explicit API implementation, for tests.
func NewConsumerWithAPI(api API, cfg common.QueueConfig, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		api:     api,
		cfg:     cfg,
		http:    &http.Client{Timeout: 3 * time.Minute},
		logger:  logger,
		retries: make(map[string]int),
	}
}

// Run polls until the context is cancelled. Each message is handled to
// completion before the next receive.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("queue consumer started", "queue", c.cfg.QueueURL, "wait", c.cfg.WaitTime.String())
	for {
		if err := ctx.Err(); err != nil {
			c.logger.Info("queue consumer stopping")
			return err
		}
		if err := c.poll(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				continue
			}
			c.logger.Error("receive failed, backing off", "err", err)
			select {
			case <-time.After(5 * time.Second):
			case <-ctx.Done():
			}
		}
	}
}

func (c *Consumer) poll(ctx context.Context) error {
	out, err := c.api.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.cfg.QueueURL),
		MaxNumberOfMessages: 1,
		WaitTimeSeconds:     int32(c.cfg.WaitTime / time.Second),
	})
	if err != nil {
		return err
	}
	for _, msg := range out.Messages {
		c.handle(ctx, msg)
	}
	return nil
}

// handle classifies one message into delete, dead-letter, or leave-in-flight.
func (c *Consumer) handle(ctx context.Context, msg types.Message) {
	handle := aws.ToString(msg.ReceiptHandle)

	fileKey, err := ParseEnvelope(aws.ToString(msg.Body))
	if err != nil {
		c.logger.Warn("unparseable message, deleting", "message_id", aws.ToString(msg.MessageId), "err", err)
		c.delete(ctx, handle)
		return
	}
	if !constants.SupportedExt(fileKey) {
		c.logger.Info("unsupported file type, deleting message", "file_key", fileKey)
		c.delete(ctx, handle)
		return
	}

	status, err := c.process(ctx, fileKey)
	switch {
	case err == nil && (status == http.StatusOK || status == http.StatusConflict):
		// Conflict means the duplicate gate already saw this document, which
		// is the expected terminal state for a redelivered message.
		if status == http.StatusConflict {
			c.logger.Info("document already processed", "file_key", fileKey)
		}
		delete(c.retries, handle)
		c.delete(ctx, handle)
	case err == nil && status != http.StatusNotFound &&
		status >= http.StatusBadRequest && status < http.StatusInternalServerError:
		c.logger.Warn("message rejected by processing endpoint, deleting", "file_key", fileKey, "status", status)
		delete(c.retries, handle)
		c.delete(ctx, handle)
	default:
		// A 404 lands here too: the storage event can outrun the object's
		// visibility, so the message is retried and dead-letters only after
		// the cap.
		c.retries[handle]++
		if c.retries[handle] > c.cfg.MaxRetries {
			c.logger.Error("retries exhausted, dead-lettering", "file_key", fileKey, "attempts", c.retries[handle])
			delete(c.retries, handle)
			c.deadLetter(ctx, msg, handle)
			return
		}
		// Leave the message in flight; the visibility timeout redelivers it.
		c.logger.Warn("transient failure, leaving message for redelivery",
			"file_key", fileKey, "attempt", c.retries[handle], "status", status, "err", err)
	}
}

// process calls the ocrd endpoint synchronously and returns its status code.
func (c *Consumer) process(ctx context.Context, fileKey string) (int, error) {
	body, _ := json.Marshal(map[string]any{"file_key": fileKey})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ProcessFileURL, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("call processing endpoint: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusInternalServerError {
		return resp.StatusCode, fmt.Errorf("processing endpoint returned %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

func (c *Consumer) delete(ctx context.Context, handle string) {
	_, err := c.api.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.cfg.QueueURL),
		ReceiptHandle: aws.String(handle),
	})
	if err != nil {
		c.logger.Error("delete message failed", "err", err)
	}
}

func (c *Consumer) deadLetter(ctx context.Context, msg types.Message, handle string) {
	if c.cfg.DLQURL == "" {
		c.logger.Error("no dead-letter queue configured, deleting poison message",
			"message_id", aws.ToString(msg.MessageId))
		c.delete(ctx, handle)
		return
	}
	_, err := c.api.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(c.cfg.DLQURL),
		MessageBody: msg.Body,
	})
	if err != nil {
		c.logger.Error("dead-letter send failed, leaving message in flight", "err", err)
		return
	}
	c.delete(ctx, handle)
}

// s3Event is the storage-notification wrapper shape.
type s3Event struct {
	Records []struct {
		S3 struct {
			Object struct {
				Key string `json:"key"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
}

// directMessage is the hand-enqueued shape.
type directMessage struct {
	FileKey string `json:"file_key"`
}

// ParseEnvelope extracts the document storage key from either envelope
// shape. S3 event keys arrive URL-encoded (spaces become "+").
func ParseEnvelope(body string) (string, error) {
	var event s3Event
	if err := json.Unmarshal([]byte(body), &event); err == nil && len(event.Records) > 0 {
		raw := event.Records[0].S3.Object.Key
		key, err := url.QueryUnescape(raw)
		if err != nil {
			key = raw
		}
		if strings.TrimSpace(key) != "" {
			return key, nil
		}
	}

	var direct directMessage
	if err := json.Unmarshal([]byte(body), &direct); err == nil && strings.TrimSpace(direct.FileKey) != "" {
		return direct.FileKey, nil
	}
	return "", errors.New("message body has neither an s3 event record nor a file_key")
}
