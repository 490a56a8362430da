package kiosk

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func TestSubmit_Multipart(t *testing.T) {
	var gotJobID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		gotJobID = r.Header.Get("X-Job-ID")

		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "Alex", r.FormValue("name"))
		assert.Equal(t, "Front plate", r.FormValue("description"))
		assert.Equal(t, "5", r.FormValue("embossingDepth"))
		assert.Equal(t, "50", r.FormValue("embossingSpeed"))
		assert.Equal(t, "png", r.FormValue("imageType"))

		f, header, err := r.FormFile("image")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		assert.Equal(t, "design.png", header.Filename)
		data, _ := io.ReadAll(f)
		assert.Equal(t, pngBytes, data)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"queued"}`))
	}))
	defer srv.Close()

	job := JobFromSettings(DefaultSettings())
	job.Name = "Alex"
	job.Description = "Front plate"
	job.Image = pngBytes

	receipt, err := NewSubmitter(srv.Client(), nil).Submit(context.Background(), srv.URL, job)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, receipt.Status)
	assert.Equal(t, "Successfully sent to embossing device!", receipt.Message)
	assert.Equal(t, gotJobID, receipt.JobID)
	_, err = ulid.Parse(receipt.JobID)
	assert.NoError(t, err)
}

func TestSubmit_RejectedWithMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"Image too large"}`))
	}))
	defer srv.Close()

	_, err := NewSubmitter(srv.Client(), nil).Submit(context.Background(), srv.URL, Job{Image: pngBytes, ImageType: "png"})
	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, http.StatusBadRequest, rejected.Status)
	assert.Equal(t, "Image too large", err.Error())
}

func TestSubmit_RejectedWithoutMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := NewSubmitter(srv.Client(), nil).Submit(context.Background(), srv.URL, Job{Image: pngBytes})
	assert.EqualError(t, err, "Failed to send to embossing device")
}

func TestSubmit_NoImage(t *testing.T) {
	_, err := NewSubmitter(nil, nil).Submit(context.Background(), "http://127.0.0.1:1", Job{})
	assert.ErrorIs(t, err, ErrNoImage)
}

func TestSubmit_CircuitOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewSubmitter(srv.Client(), nil)
	job := Job{Image: pngBytes}
	for i := 0; i < 3; i++ {
		_, err := s.Submit(context.Background(), srv.URL, job)
		require.Error(t, err)
	}

	_, err := s.Submit(context.Background(), srv.URL, job)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState), "got %v", err)
	assert.Equal(t, int32(3), hits.Load())
}

func TestSubmit_ClientErrorsDoNotOpenCircuit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	s := NewSubmitter(srv.Client(), nil)
	for i := 0; i < 5; i++ {
		_, err := s.Submit(context.Background(), srv.URL, Job{Image: pngBytes})
		var rejected *RejectedError
		require.ErrorAs(t, err, &rejected)
	}
}
