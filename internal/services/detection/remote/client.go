package remote

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"seawatch-worker-go/internal/models"
)

const maxRetryBackoff = 30 * time.Second

// Client is a detection model backed by a remote Detector service.
type Client struct {
	endpoint string
	timeout  time.Duration
	dialOpts []grpc.DialOption
	clock    clock.Clock

	mu               sync.RWMutex
	conn             *grpc.ClientConn
	healthy          bool
	consecutiveFails int
	lastFailTime     time.Time
}

type ClientOption func(*Client)

// WithDialOptions appends gRPC dial options, e.g. a custom dialer.
func WithDialOptions(opts ...grpc.DialOption) ClientOption {
	return func(c *Client) { c.dialOpts = append(c.dialOpts, opts...) }
}

func WithClock(clk clock.Clock) ClientOption {
	return func(c *Client) { c.clock = clk }
}

// NewClient does not dial; Load connects and verifies the service health.
func NewClient(endpoint string, timeout time.Duration, opts ...ClientOption) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	c := &Client{
		endpoint: endpoint,
		timeout:  timeout,
		clock:    clock.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() string {
	return "remote:" + c.endpoint
}

// Load connects and fails unless the Detector reports SERVING.
func (c *Client) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *Client) connectLocked(ctx context.Context) error {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
		c.healthy = false
	}

	target, creds, err := parseGRPCEndpoint(c.endpoint)
	if err != nil {
		return fmt.Errorf("failed to parse detector endpoint %s: %w", c.endpoint, err)
	}

	opts := append([]grpc.DialOption{grpc.WithTransportCredentials(creds)}, c.dialOpts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to detector at %s: %w", target, err)
	}

	hctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resp, err := healthpb.NewHealthClient(conn).Check(hctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		conn.Close()
		return fmt.Errorf("detector health check failed: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		conn.Close()
		return fmt.Errorf("detector is %s", resp.GetStatus())
	}

	c.conn = conn
	c.healthy = true
	c.consecutiveFails = 0
	log.Info().Str("endpoint", target).Msg("detector_connected")
	return nil
}

func (c *Client) ensureConnection(ctx context.Context) (*grpc.ClientConn, error) {
	c.mu.RLock()
	if c.healthy && c.conn != nil {
		conn := c.conn
		c.mu.RUnlock()
		return conn, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.healthy && c.conn != nil {
		return c.conn, nil
	}
	if !c.shouldRetryLocked() {
		return nil, fmt.Errorf("detector unavailable: in backoff period after %d consecutive failures", c.consecutiveFails)
	}
	if err := c.connectLocked(ctx); err != nil {
		c.recordFailureLocked()
		return nil, fmt.Errorf("detector unavailable: %w", err)
	}
	return c.conn, nil
}

func (c *Client) Detect(ctx context.Context, frame *models.Frame) ([]models.Detection, error) {
	conn, err := c.ensureConnection(ctx)
	if err != nil {
		return nil, err
	}

	req, err := encodeFrame(frame)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out := new(structpb.Struct)
	if err := conn.Invoke(ctx, detectMethod, req, out); err != nil {
		if status.Code(err) == codes.Unavailable {
			c.mu.Lock()
			c.healthy = false
			c.recordFailureLocked()
			c.mu.Unlock()
		}
		return nil, fmt.Errorf("remote detection failed: %w", err)
	}
	return detectionsFromStruct(out)
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.healthy = false
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// shouldRetryLocked applies exponential backoff: 1s, 2s, 4s ... capped at 30s
func (c *Client) shouldRetryLocked() bool {
	if c.consecutiveFails == 0 {
		return true
	}
	backoff := time.Duration(1<<uint(c.consecutiveFails-1)) * time.Second
	if backoff > maxRetryBackoff || backoff <= 0 {
		backoff = maxRetryBackoff
	}
	return c.clock.Since(c.lastFailTime) >= backoff
}

func (c *Client) recordFailureLocked() {
	c.consecutiveFails++
	c.lastFailTime = c.clock.Now()
	if c.consecutiveFails <= 5 {
		log.Warn().Str("endpoint", c.endpoint).Int("consecutive_fails", c.consecutiveFails).Msg("detector_failure_recorded")
	}
}

// parseGRPCEndpoint normalizes host[:port] or http(s) URLs to a dial target.
// Resolver targets such as "dns:///host:port" or "passthrough:///name" are
// used as-is over plaintext.
func parseGRPCEndpoint(endpoint string) (string, credentials.TransportCredentials, error) {
	if endpoint == "" {
		return "", nil, fmt.Errorf("empty endpoint")
	}
	for _, scheme := range []string{"dns:", "passthrough:", "unix:"} {
		if strings.HasPrefix(endpoint, scheme) {
			return endpoint, insecure.NewCredentials(), nil
		}
	}

	if !strings.Contains(endpoint, "://") {
		if strings.Contains(endpoint, ":") {
			parts := strings.Split(endpoint, ":")
			if port, err := strconv.Atoi(parts[len(parts)-1]); err == nil && (port == 443 || port == 8443 || port == 9443) {
				endpoint = "https://" + endpoint
			} else {
				endpoint = "http://" + endpoint
			}
		} else if strings.Contains(endpoint, ".") {
			endpoint = "https://" + endpoint + ":443"
		} else {
			endpoint = "http://" + endpoint + ":80"
		}
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", nil, fmt.Errorf("invalid endpoint URL: %w", err)
	}

	host := u.Host
	if u.Port() == "" {
		switch u.Scheme {
		case "https":
			host = u.Hostname() + ":443"
		case "http":
			host = u.Hostname() + ":80"
		}
	}

	switch u.Scheme {
	case "https":
		return host, credentials.NewTLS(&tls.Config{ServerName: u.Hostname()}), nil
	case "http":
		return host, insecure.NewCredentials(), nil
	default:
		return "", nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
}
