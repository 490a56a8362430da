package kiosk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sony/gobreaker/v2"
)

// Default circuit breaker settings.
const (
	defaultCBMaxFailures uint32        = 3
	defaultCBTimeout     time.Duration = 30 * time.Second
	defaultCBInterval    time.Duration = 60 * time.Second
)

const (
	msgSubmitted     = "Successfully sent to embossing device!"
	msgSubmitFailed  = "Failed to send to embossing device"
	maxReplyBodySize = 1 << 20
)

// ErrNoImage is returned for a job without image data.
var ErrNoImage = errors.New("Please select an image file")

// Job is one embossing request.
type Job struct {
	Name           string
	Description    string
	EmbossingDepth int
	EmbossingSpeed int
	ImageType      string
	ImageName      string
	Image          []byte
}

// JobFromSettings fills the machine parameters from settings.
func JobFromSettings(s Settings) Job {
	return Job{
		EmbossingDepth: s.EmbossingDepth,
		EmbossingSpeed: s.EmbossingSpeed,
		ImageType:      "png",
	}
}

// Receipt describes an accepted job.
type Receipt struct {
	JobID   string
	Status  int
	Message string
}

// RejectedError is returned when the API answers with a non-2xx status.
type RejectedError struct {
	Status  int
	Message string
}

func (e *RejectedError) Error() string {
	return e.Message
}

// Submitter posts jobs to the embossing API through a circuit breaker.
type Submitter struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[Receipt]
	logger  *slog.Logger
}

// NewSubmitter creates a submitter. A nil client uses a 30 second timeout.
func NewSubmitter(client *http.Client, logger *slog.Logger) *Submitter {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	cb := gobreaker.NewCircuitBreaker[Receipt](gobreaker.Settings{
		Name:        "embossing-api",
		MaxRequests: 1,
		Interval:    defaultCBInterval,
		Timeout:     defaultCBTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= defaultCBMaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			// A job rejected with a 4xx means the API is up.
			var rejected *RejectedError
			return err == nil || (errors.As(err, &rejected) && rejected.Status < 500)
		},
	})

	return &Submitter{client: client, breaker: cb, logger: logger}
}

// Submit posts job to url.
func (s *Submitter) Submit(ctx context.Context, url string, job Job) (Receipt, error) {
	if len(job.Image) == 0 {
		return Receipt{}, ErrNoImage
	}
	jobID := ulid.Make().String()

	receipt, err := s.breaker.Execute(func() (Receipt, error) {
		return s.post(ctx, url, jobID, job)
	})
	if err != nil {
		s.logger.Error("job submission failed", "job_id", jobID, "url", url, "error", err)
		return Receipt{JobID: jobID}, err
	}
	s.logger.Info("job submitted", "job_id", jobID, "url", url, "status", receipt.Status)
	return receipt, nil
}

func (s *Submitter) post(ctx context.Context, url, jobID string, job Job) (Receipt, error) {
	body, contentType, err := encodeJob(job)
	if err != nil {
		return Receipt{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return Receipt{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Job-ID", jobID)

	resp, err := s.client.Do(req)
	if err != nil {
		return Receipt{}, fmt.Errorf("post job: %w", err)
	}
	defer resp.Body.Close()

	var reply struct {
		Message string `json:"message"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxReplyBodySize))
	_ = json.Unmarshal(data, &reply)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := reply.Message
		if msg == "" {
			msg = msgSubmitFailed
		}
		rejected := &RejectedError{Status: resp.StatusCode, Message: msg}
		if resp.StatusCode >= 500 {
			return Receipt{}, fmt.Errorf("server error %d: %w", resp.StatusCode, rejected)
		}
		return Receipt{}, rejected
	}

	return Receipt{JobID: jobID, Status: resp.StatusCode, Message: msgSubmitted}, nil
}

func encodeJob(job Job) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{"name", job.Name},
		{"description", job.Description},
		{"embossingDepth", strconv.Itoa(job.EmbossingDepth)},
		{"embossingSpeed", strconv.Itoa(job.EmbossingSpeed)},
		{"imageType", job.ImageType},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("encode %s: %w", f.name, err)
		}
	}

	name := job.ImageName
	if name == "" {
		name = "design." + job.ImageType
	}
	part, err := w.CreateFormFile("image", name)
	if err != nil {
		return nil, "", fmt.Errorf("encode image: %w", err)
	}
	if _, err := part.Write(job.Image); err != nil {
		return nil, "", fmt.Errorf("encode image: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("encode job: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
