package outbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	contractx "github.com/jirapatw/TAM-Copilot-Orchestrator/agent/contract"
)

var (
	ErrDraftNotFound    = errors.New("parked draft not found")
	ErrNilArtifact      = errors.New("artifact is nil")
	ErrInvalidRequestID = errors.New("request id is empty")
)

const (
	defaultKeyPrefix     = "tam:outbox:"
	defaultTTL           = 72 * time.Hour
	maxResponseSizeBytes = 2 << 20
)

// Option customizes UpstashRedisOutbox.
type Option func(*UpstashRedisOutbox)

func WithKeyPrefix(prefix string) Option {
	return func(o *UpstashRedisOutbox) {
		trimmed := strings.TrimSpace(prefix)
		if trimmed != "" {
			o.keyPrefix = trimmed
		}
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(o *UpstashRedisOutbox) {
		o.ttl = ttl
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(o *UpstashRedisOutbox) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// UpstashRedisOutbox parks draft artifacts in Upstash Redis via REST. Drafts
// expire after the TTL: a draft nobody approved within three days is stale
// enough to regenerate.
type UpstashRedisOutbox struct {
	baseURL    string
	token      string
	httpClient *http.Client
	keyPrefix  string
	ttl        time.Duration
}

type redisRESTResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

type UpstashRedisConfig struct {
	URL     string        `envconfig:"URL" split_words:"true" required:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

func NewUpstashRedisOutbox(cfg UpstashRedisConfig, opts ...Option) (*UpstashRedisOutbox, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("upstash redis url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid redis rest url: %w", err)
	}

	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("upstash redis token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	o := &UpstashRedisOutbox{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		keyPrefix: defaultKeyPrefix,
		ttl:       defaultTTL,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	if o.ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}

	return o, nil
}

func (o *UpstashRedisOutbox) Put(ctx context.Context, artifact *contractx.SynthesizedArtifact) error {
	if artifact == nil {
		return ErrNilArtifact
	}
	key, err := o.redisKey(artifact.RequestID)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("marshal parked draft: %w", err)
	}

	cmd := []any{"SET", key, string(payload)}
	if o.ttl > 0 {
		cmd = append(cmd, "EX", ttlSeconds(o.ttl))
	}

	if _, err := o.exec(ctx, cmd); err != nil {
		return err
	}
	return nil
}

func (o *UpstashRedisOutbox) Get(ctx context.Context, requestID string) (*contractx.SynthesizedArtifact, error) {
	key, err := o.redisKey(requestID)
	if err != nil {
		return nil, err
	}

	resp, err := o.exec(ctx, []any{"GET", key})
	if err != nil {
		return nil, err
	}

	result := bytes.TrimSpace(resp.Result)
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return nil, ErrDraftNotFound
	}

	var encoded string
	if err := json.Unmarshal(result, &encoded); err != nil {
		return nil, fmt.Errorf("decode parked draft payload: %w", err)
	}

	var artifact contractx.SynthesizedArtifact
	if err := json.Unmarshal([]byte(encoded), &artifact); err != nil {
		return nil, fmt.Errorf("unmarshal parked draft: %w", err)
	}
	return &artifact, nil
}

func (o *UpstashRedisOutbox) Delete(ctx context.Context, requestID string) error {
	key, err := o.redisKey(requestID)
	if err != nil {
		return err
	}
	_, err = o.exec(ctx, []any{"DEL", key})
	return err
}

func (o *UpstashRedisOutbox) redisKey(requestID string) (string, error) {
	if strings.TrimSpace(requestID) == "" {
		return "", ErrInvalidRequestID
	}
	return strings.TrimSpace(o.keyPrefix) + requestID, nil
}

func (o *UpstashRedisOutbox) exec(ctx context.Context, command []any) (*redisRESTResponse, error) {
	if o == nil {
		return nil, errors.New("nil outbox")
	}
	if len(command) == 0 {
		return nil, errors.New("empty redis command")
	}

	body, err := json.Marshal(command)
	if err != nil {
		return nil, fmt.Errorf("marshal redis command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build redis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+o.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute redis request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read redis response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("redis http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed redisRESTResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode redis response: %w", err)
	}
	if parsed.Error != "" {
		return nil, errors.New(parsed.Error)
	}
	return &parsed, nil
}

func ttlSeconds(ttl time.Duration) int64 {
	seconds := ttl / time.Second
	if seconds <= 0 {
		return 1
	}
	if ttl%time.Second != 0 {
		seconds++
	}
	return int64(seconds)
}

// MemoryOutbox keeps parked drafts in process memory. Useful in tests and
// when no Redis backend is configured.
type MemoryOutbox struct {
	mu     sync.Mutex
	drafts map[string]*contractx.SynthesizedArtifact
}

func NewMemoryOutbox() *MemoryOutbox {
	return &MemoryOutbox{drafts: make(map[string]*contractx.SynthesizedArtifact)}
}

func (m *MemoryOutbox) Put(ctx context.Context, artifact *contractx.SynthesizedArtifact) error {
	if artifact == nil {
		return ErrNilArtifact
	}
	if strings.TrimSpace(artifact.RequestID) == "" {
		return ErrInvalidRequestID
	}
	clone := *artifact
	m.mu.Lock()
	m.drafts[artifact.RequestID] = &clone
	m.mu.Unlock()
	return nil
}

func (m *MemoryOutbox) Get(ctx context.Context, requestID string) (*contractx.SynthesizedArtifact, error) {
	if strings.TrimSpace(requestID) == "" {
		return nil, ErrInvalidRequestID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	artifact, ok := m.drafts[requestID]
	if !ok {
		return nil, ErrDraftNotFound
	}
	clone := *artifact
	return &clone, nil
}

func (m *MemoryOutbox) Delete(ctx context.Context, requestID string) error {
	if strings.TrimSpace(requestID) == "" {
		return ErrInvalidRequestID
	}
	m.mu.Lock()
	delete(m.drafts, requestID)
	m.mu.Unlock()
	return nil
}
