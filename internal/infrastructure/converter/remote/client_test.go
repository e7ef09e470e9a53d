package remote

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kirillkom/image-to-excel/internal/core/domain"
	"github.com/kirillkom/image-to-excel/internal/infrastructure/resilience"
)

func testArtifact() *domain.ImageArtifact {
	return &domain.ImageArtifact{
		Data:        []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F'},
		MediaType:   "image/jpeg",
		DisplayName: "receipt.scan.jpg",
	}
}

func TestConvertSendsMultipartImageAndFlag(t *testing.T) {
	artifact := testArtifact()
	var (
		gotBytes       []byte
		gotFilename    string
		gotPartType    string
		gotDetectTable string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile() error = %v", err)
			http.Error(w, `{"error":"no file"}`, http.StatusBadRequest)
			return
		}
		defer file.Close()
		gotBytes, _ = io.ReadAll(file)
		gotFilename = header.Filename
		gotPartType = header.Header.Get("Content-Type")
		gotDetectTable = r.FormValue("detectTable")
		_, _ = w.Write([]byte(`{"data":"[[\"A\",\"B\"],[\"1\",\"2\"]]"}`))
	}))
	defer server.Close()

	client := New(server.URL)
	resp, err := client.Convert(context.Background(), artifact, domain.ModeTableDetection)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if !resp.Success || resp.Payload != `[["A","B"],["1","2"]]` {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if !bytes.Equal(gotBytes, artifact.Data) {
		t.Fatalf("transmitted bytes differ from artifact bytes: %v vs %v", gotBytes, artifact.Data)
	}
	if gotFilename != "receipt.scan.jpg" {
		t.Fatalf("expected filename receipt.scan.jpg, got %q", gotFilename)
	}
	if gotPartType != "image/jpeg" {
		t.Fatalf("expected part content type image/jpeg, got %q", gotPartType)
	}
	if gotDetectTable != "true" {
		t.Fatalf("expected detectTable=true, got %q", gotDetectTable)
	}
}

func TestConvertSendsDetectTableFalseForPlainText(t *testing.T) {
	var gotDetectTable string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotDetectTable = r.FormValue("detectTable")
		_, _ = w.Write([]byte(`{"data":"[\"hello\"]"}`))
	}))
	defer server.Close()

	if _, err := New(server.URL).Convert(context.Background(), testArtifact(), domain.ModePlainText); err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if gotDetectTable != "false" {
		t.Fatalf("expected detectTable=false, got %q", gotDetectTable)
	}
}

func TestConvertUsesServerErrorMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Failed to extract data from the image."}`))
	}))
	defer server.Close()

	_, err := New(server.URL).Convert(context.Background(), testArtifact(), domain.ModeTableDetection)
	if !domain.IsKind(err, domain.ErrService) {
		t.Fatalf("expected ErrService, got %v", err)
	}
	if got := domain.UserMessage(err); got != "Failed to extract data from the image." {
		t.Fatalf("expected server message, got %q", got)
	}
}

func TestConvertFallsBackToStatusMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := New(server.URL).Convert(context.Background(), testArtifact(), domain.ModeTableDetection)
	if !domain.IsKind(err, domain.ErrService) {
		t.Fatalf("expected ErrService, got %v", err)
	}
	if got := domain.UserMessage(err); got != "Server responded with status: 502" {
		t.Fatalf("expected status-derived message, got %q", got)
	}
}

func TestConvertReportsTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	endpoint := server.URL
	server.Close()

	_, err := NewWithOptions(endpoint, Options{Timeout: time.Second}).Convert(context.Background(), testArtifact(), domain.ModeTableDetection)
	if !domain.IsKind(err, domain.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestConvertRejectsEnvelopeWithoutData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":"x"}`))
	}))
	defer server.Close()

	_, err := New(server.URL).Convert(context.Background(), testArtifact(), domain.ModeTableDetection)
	if !domain.IsKind(err, domain.ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}
}

func TestConvertDoesNotRetryAndOpenBreakerIsTransportError(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"error":"down"}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	executor := resilience.NewExecutor(resilience.Config{
		BreakerEnabled:          true,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      time.Minute,
		BreakerHalfOpenMaxCalls: 1,
	})
	client := NewWithOptions(server.URL, Options{ResilienceExecutor: executor})
	if got := client.BreakerState(); got != "closed" {
		t.Fatalf("expected closed breaker before any call, got %q", got)
	}

	for i := 0; i < 2; i++ {
		_, err := client.Convert(context.Background(), testArtifact(), domain.ModeTableDetection)
		if !domain.IsKind(err, domain.ErrService) {
			t.Fatalf("expected ErrService on call %d, got %v", i, err)
		}
	}
	if calls != 2 {
		t.Fatalf("expected one request per call, got %d", calls)
	}

	_, err := client.Convert(context.Background(), testArtifact(), domain.ModeTableDetection)
	if !domain.IsKind(err, domain.ErrTransport) {
		t.Fatalf("expected ErrTransport from open breaker, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("open breaker must not reach the server, got %d calls", calls)
	}
	if got := client.BreakerState(); got != "open" {
		t.Fatalf("expected open breaker, got %q", got)
	}
}

func TestBreakerStateWithoutExecutor(t *testing.T) {
	if got := New("").BreakerState(); got != "disabled" {
		t.Fatalf("expected disabled, got %q", got)
	}
}
