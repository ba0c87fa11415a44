package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	contractx "github.com/jirapatw/TAM-Copilot-Orchestrator/agent/contract"
)

func draftArtifact(requestID string) *contractx.SynthesizedArtifact {
	return &contractx.SynthesizedArtifact{
		RequestID:             requestID,
		Domain:                contractx.DomainHealthCheck,
		Summary:               "health-check: 3/3 steps succeeded; 1 draft(s) pending human approval",
		RequiresHumanApproval: true,
		GeneratedAt:           time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC),
	}
}

func TestUpstashRedisOutboxPutUsesPrefixedKey(t *testing.T) {
	t.Parallel()

	const wantKey = "tam:outbox:req-1"
	var gotCommand []any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotCommand); err != nil {
			t.Errorf("decode command: %v", err)
		}
		fmt.Fprint(w, `{"result":"OK"}`)
	}))
	t.Cleanup(server.Close)

	box, err := NewUpstashRedisOutbox(
		UpstashRedisConfig{
			URL:   server.URL,
			Token: "token",
		},
		WithHTTPClient(server.Client()),
		WithTTL(0),
	)
	if err != nil {
		t.Fatalf("NewUpstashRedisOutbox() error = %v", err)
	}

	if err := box.Put(context.Background(), draftArtifact("req-1")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if len(gotCommand) != 3 {
		t.Fatalf("unexpected command: %#v", gotCommand)
	}
	if gotCommand[0] != "SET" {
		t.Fatalf("command[0] = %v, want SET", gotCommand[0])
	}
	if gotCommand[1] != wantKey {
		t.Fatalf("command[1] = %v, want %s", gotCommand[1], wantKey)
	}
}

func TestUpstashRedisOutboxPutAppliesTTL(t *testing.T) {
	t.Parallel()

	var gotCommand []any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotCommand); err != nil {
			t.Errorf("decode command: %v", err)
		}
		fmt.Fprint(w, `{"result":"OK"}`)
	}))
	t.Cleanup(server.Close)

	box, err := NewUpstashRedisOutbox(
		UpstashRedisConfig{
			URL:   server.URL,
			Token: "token",
		},
		WithHTTPClient(server.Client()),
		WithTTL(time.Hour),
	)
	if err != nil {
		t.Fatalf("NewUpstashRedisOutbox() error = %v", err)
	}

	if err := box.Put(context.Background(), draftArtifact("req-2")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if len(gotCommand) != 5 || gotCommand[3] != "EX" {
		t.Fatalf("expected SET with EX, got %#v", gotCommand)
	}
	if gotCommand[4] != float64(3600) {
		t.Fatalf("ttl seconds = %v, want 3600", gotCommand[4])
	}
}

func TestUpstashRedisOutboxGetRoundTrip(t *testing.T) {
	t.Parallel()

	seed := draftArtifact("req-3")
	payload, err := json.Marshal(seed)
	if err != nil {
		t.Fatalf("marshal seed: %v", err)
	}
	encoded, err := json.Marshal(string(payload))
	if err != nil {
		t.Fatalf("marshal encoded seed: %v", err)
	}

	var gotCommand []any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotCommand); err != nil {
			t.Errorf("decode command: %v", err)
		}
		fmt.Fprintf(w, `{"result":%s}`, encoded)
	}))
	t.Cleanup(server.Close)

	box, err := NewUpstashRedisOutbox(
		UpstashRedisConfig{
			URL:   server.URL,
			Token: "token",
		},
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewUpstashRedisOutbox() error = %v", err)
	}

	got, err := box.Get(context.Background(), "req-3")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.RequestID != "req-3" || !got.RequiresHumanApproval {
		t.Fatalf("Get() = %#v", got)
	}
	if gotCommand[0] != "GET" || gotCommand[1] != "tam:outbox:req-3" {
		t.Fatalf("unexpected command: %#v", gotCommand)
	}
}

func TestUpstashRedisOutboxGetMissing(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":null}`)
	}))
	t.Cleanup(server.Close)

	box, err := NewUpstashRedisOutbox(
		UpstashRedisConfig{
			URL:   server.URL,
			Token: "token",
		},
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewUpstashRedisOutbox() error = %v", err)
	}

	if _, err := box.Get(context.Background(), "missing"); !errors.Is(err, ErrDraftNotFound) {
		t.Fatalf("Get() error = %v, want ErrDraftNotFound", err)
	}
}

func TestUpstashRedisOutboxDelete(t *testing.T) {
	t.Parallel()

	var gotCommand []any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotCommand); err != nil {
			t.Errorf("decode command: %v", err)
		}
		fmt.Fprint(w, `{"result":1}`)
	}))
	t.Cleanup(server.Close)

	box, err := NewUpstashRedisOutbox(
		UpstashRedisConfig{
			URL:   server.URL,
			Token: "token",
		},
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewUpstashRedisOutbox() error = %v", err)
	}

	if err := box.Delete(context.Background(), "req-4"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if gotCommand[0] != "DEL" || gotCommand[1] != "tam:outbox:req-4" {
		t.Fatalf("unexpected command: %#v", gotCommand)
	}
}

func TestUpstashRedisOutboxRejectsEmptyRequestID(t *testing.T) {
	t.Parallel()

	box, err := NewUpstashRedisOutbox(UpstashRedisConfig{URL: "http://localhost:1", Token: "token"})
	if err != nil {
		t.Fatalf("NewUpstashRedisOutbox() error = %v", err)
	}
	if _, err := box.Get(context.Background(), "   "); !errors.Is(err, ErrInvalidRequestID) {
		t.Fatalf("Get() error = %v, want ErrInvalidRequestID", err)
	}
}

func TestMemoryOutboxRoundTrip(t *testing.T) {
	t.Parallel()

	box := NewMemoryOutbox()
	ctx := context.Background()

	if err := box.Put(ctx, draftArtifact("req-5")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, err := box.Get(ctx, "req-5")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Summary == "" || !got.RequiresHumanApproval {
		t.Fatalf("Get() = %#v", got)
	}

	if err := box.Delete(ctx, "req-5"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := box.Get(ctx, "req-5"); !errors.Is(err, ErrDraftNotFound) {
		t.Fatalf("Get() after delete error = %v, want ErrDraftNotFound", err)
	}
}
