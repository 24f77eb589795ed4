package queue

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunbeam-data/ocr-pipeline/internal/common"
)

type fakeSQS struct {
	deleted []string
	sent    []string
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	return &sqs.ReceiveMessageOutput{}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func (f *fakeSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.sent = append(f.sent, aws.ToString(params.MessageBody))
	return &sqs.SendMessageOutput{}, nil
}

func testConfig(endpoint string) common.QueueConfig {
	return common.QueueConfig{
		QueueURL:       "https://sqs.test/queue",
		DLQURL:         "https://sqs.test/dlq",
		WaitTime:       20 * time.Second,
		MaxRetries:     2,
		ProcessFileURL: endpoint,
	}
}

func message(body string) types.Message {
	return types.Message{
		MessageId:     aws.String("m-1"),
		ReceiptHandle: aws.String("rh-1"),
		Body:          aws.String(body),
	}
}

func TestParseEnvelope(t *testing.T) {
	t.Run("s3 event", func(t *testing.T) {
		body := `{"Records":[{"s3":{"object":{"key":"receipts/march/lunch.png"}}}]}`
		key, err := ParseEnvelope(body)
		require.NoError(t, err)
		assert.Equal(t, "receipts/march/lunch.png", key)
	})

	t.Run("s3 event url encoded key", func(t *testing.T) {
		body := `{"Records":[{"s3":{"object":{"key":"my+receipt+%281%29.png"}}}]}`
		key, err := ParseEnvelope(body)
		require.NoError(t, err)
		assert.Equal(t, "my receipt (1).png", key)
	})

	t.Run("direct file key", func(t *testing.T) {
		key, err := ParseEnvelope(`{"file_key":"scan.pdf"}`)
		require.NoError(t, err)
		assert.Equal(t, "scan.pdf", key)
	})

	t.Run("neither shape", func(t *testing.T) {
		_, err := ParseEnvelope(`{"hello":"world"}`)
		assert.Error(t, err)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := ParseEnvelope(`???`)
		assert.Error(t, err)
	})
}

func TestHandleSuccessDeletes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	api := &fakeSQS{}
	c := NewConsumerWithAPI(api, testConfig(srv.URL), nil)
	c.handle(context.Background(), message(`{"file_key":"scan.png"}`))

	assert.Equal(t, []string{"rh-1"}, api.deleted)
	assert.Empty(t, api.sent)
}

func TestHandleDuplicateIsTerminal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	api := &fakeSQS{}
	c := NewConsumerWithAPI(api, testConfig(srv.URL), nil)
	c.handle(context.Background(), message(`{"file_key":"scan.png"}`))

	assert.Equal(t, []string{"rh-1"}, api.deleted,
		"a redelivered message for an already-processed document is done, not retried")
}

func TestHandleUnsupportedExtensionDeletedSilently(t *testing.T) {
	api := &fakeSQS{}
	c := NewConsumerWithAPI(api, testConfig("http://127.0.0.1:0"), nil)
	c.handle(context.Background(), message(`{"file_key":"notes.txt"}`))

	assert.Equal(t, []string{"rh-1"}, api.deleted)
	assert.Empty(t, api.sent)
}

func TestHandleTransientFailureLeavesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	api := &fakeSQS{}
	c := NewConsumerWithAPI(api, testConfig(srv.URL), nil)

	c.handle(context.Background(), message(`{"file_key":"scan.png"}`))
	assert.Empty(t, api.deleted, "message stays in flight for redelivery")
	assert.Equal(t, 1, c.retries["rh-1"])
}

func TestHandleNotFoundRetriesLikeTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	api := &fakeSQS{}
	c := NewConsumerWithAPI(api, testConfig(srv.URL), nil)
	msg := message(`{"file_key":"scan.png"}`)

	// The storage event can arrive before the object is readable; the first
	// 404 must not discard the document.
	c.handle(context.Background(), msg)
	assert.Empty(t, api.deleted, "message stays in flight for redelivery")
	assert.Equal(t, 1, c.retries["rh-1"])

	c.handle(context.Background(), msg)
	c.handle(context.Background(), msg)
	require.Len(t, api.sent, 1, "a persistent 404 dead-letters instead of looping")
	assert.Equal(t, []string{"rh-1"}, api.deleted)
	assert.NotContains(t, c.retries, "rh-1")
}

func TestHandleBadRequestIsTerminal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	api := &fakeSQS{}
	c := NewConsumerWithAPI(api, testConfig(srv.URL), nil)
	c.handle(context.Background(), message(`{"file_key":"scan.png"}`))

	assert.Equal(t, []string{"rh-1"}, api.deleted, "a malformed request never succeeds on retry")
	assert.Empty(t, api.sent)
}

func TestHandleRetriesExhaustedDeadLetters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	api := &fakeSQS{}
	c := NewConsumerWithAPI(api, testConfig(srv.URL), nil)

	msg := message(`{"file_key":"scan.png"}`)
	for i := 0; i < 3; i++ {
		c.handle(context.Background(), msg)
	}

	require.Len(t, api.sent, 1, "poison message goes to the dead-letter queue")
	assert.Equal(t, `{"file_key":"scan.png"}`, api.sent[0])
	assert.Equal(t, []string{"rh-1"}, api.deleted, "and is removed from the main queue")
	assert.NotContains(t, c.retries, "rh-1")
}
