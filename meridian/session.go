/*
 * Copyright (c) 2022, 2024 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

package meridian

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/meridiandb/meridian-go-client/meridian/internal/wire"
)

// ErrInvalidFormat indicates that the serialization format can only be JSON.
var ErrInvalidFormat = errors.New("meridian: format can only be 'json'")

const (
	defaultFormat  = "json"
	defaultAddress = "localhost:1408"

	envAddress            = "MERIDIAN_SERVER_ADDRESS"
	envTLSEnabled         = "TLS_ENABLED"
	envTLSCACert          = "MERIDIAN_TLS_CA_CERT"
	envTLSClientCert      = "MERIDIAN_TLS_CLIENT_CERT"
	envTLSClientKey       = "MERIDIAN_TLS_CLIENT_KEY"
	envIgnoreInvalidCerts = "MERIDIAN_IGNORE_INVALID_CERTS"
	envSessionDebug       = "MERIDIAN_SESSION_DEBUG"
)

// Session owns the gRPC channel shared by every NamedMap/NamedCache
// obtained from it, plus the per-session logger, metrics registry, and
// monotonic request id counter every unary/page request is stamped with
// (events-duplex requests carry their own UUID instead).
type Session struct {
	id       uuid.UUID
	opts     *SessionOptions
	conn     *grpc.ClientConn
	client   wire.Client
	log      *zap.SugaredLogger
	metrics  *Metrics
	requestID int64

	mutex              sync.RWMutex
	closed             bool
	firstConnectDone   bool
	lifecycleListeners []*SessionLifecycleListener

	mapsMutex sync.Mutex
	maps      map[string]any
}

// SessionOptions holds the session's connection and serialization
// attributes.
type SessionOptions struct {
	Address        string
	RequestTimeout time.Duration
	TLSEnabled     bool
	CACertPath     string
	ClientCertPath string
	ClientKeyPath  string
	Format         string
	PlainText      bool
	Debug          bool
}

// NewSession dials a Meridian server proxy and returns a ready Session.
// Address defaults to localhost:1408 or the MERIDIAN_SERVER_ADDRESS
// environment variable; TLS defaults to the TLS_ENABLED environment
// variable's truthiness (spec.md §6).
func NewSession(ctx context.Context, options ...func(*SessionOptions)) (*Session, error) {
	opts := &SessionOptions{
		Format:         defaultFormat,
		RequestTimeout: 30 * time.Second,
		TLSEnabled:     getBoolEnv(envTLSEnabled, false),
	}

	for _, f := range options {
		f(opts)
	}

	if opts.Format != defaultFormat {
		return nil, ErrInvalidFormat
	}
	if opts.Address == "" {
		opts.Address = getStringEnv(envAddress, defaultAddress)
	}

	logger := newLogger(opts.Debug || getBoolEnv(envSessionDebug, false))

	session := &Session{
		id:      uuid.New(),
		opts:    opts,
		log:     logger,
		metrics: newMetrics(uuid.New().String()),
		maps:    map[string]any{},
	}

	if err := session.dial(ctx); err != nil {
		return nil, err
	}

	return session, nil
}

func newLogger(debug bool) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		// fall back to a no-op logger rather than failing session creation
		return zap.NewNop().Sugar()
	}
	return logger.Sugar()
}

// WithAddress sets the server address, e.g. "acme.com:1408".
func WithAddress(address string) func(*SessionOptions) {
	return func(o *SessionOptions) { o.Address = address }
}

// WithRequestTimeout sets the per-call deadline applied when the caller's
// context carries no deadline of its own.
func WithRequestTimeout(d time.Duration) func(*SessionOptions) {
	return func(o *SessionOptions) { o.RequestTimeout = d }
}

// WithPlainText disables TLS for the session's connection.
func WithPlainText() func(*SessionOptions) {
	return func(o *SessionOptions) { o.PlainText = true }
}

// WithTLS enables TLS and sets the certificate paths used to establish it.
func WithTLS(caCertPath, clientCertPath, clientKeyPath string) func(*SessionOptions) {
	return func(o *SessionOptions) {
		o.TLSEnabled = true
		o.CACertPath = caCertPath
		o.ClientCertPath = clientCertPath
		o.ClientKeyPath = clientKeyPath
	}
}

// WithDebug turns on verbose session/event logging.
func WithDebug() func(*SessionOptions) {
	return func(o *SessionOptions) { o.Debug = true }
}

func (s *Session) dial(ctx context.Context) error {
	dialOpt, err := s.opts.dialCredentials()
	if err != nil {
		return fmt.Errorf("meridian: setting up channel credentials: %w", err)
	}

	conn, err := grpc.DialContext(ctx, s.opts.Address, dialOpt,
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(wire.ContentSubtype)))
	if err != nil {
		return wrapTransport(err)
	}

	s.conn = conn
	s.client = wire.NewGrpcClient(conn)
	s.firstConnectDone = true

	go s.watchConnectivity()

	return nil
}

func (s *Session) watchConnectivity() {
	ctx := context.Background()
	last := s.conn.GetState()
	connected := false
	everConnected := false

	for {
		if !s.conn.WaitForStateChange(ctx, last) {
			return
		}
		state := s.conn.GetState()
		s.log.Debugw("connectivity changed", "from", last, "to", state)

		switch state {
		case connectivity.Shutdown:
			s.mutex.Lock()
			s.closed = true
			s.mutex.Unlock()
			s.dispatch(Closed)
			return
		case connectivity.Ready:
			if !connected {
				connected = true
				if everConnected {
					s.dispatch(Reconnected)
				} else {
					everConnected = true
					s.dispatch(Connected)
				}
			}
		default:
			if connected {
				connected = false
				s.dispatch(Disconnected)
			}
		}
		last = s.conn.GetState()
	}
}

// nextRequestID returns a monotonically increasing correlation id, never
// reused while a request is outstanding (spec.md §3 "Correlation id").
func (s *Session) nextRequestID() int64 {
	return atomic.AddInt64(&s.requestID, 1)
}

// ensureContext applies the session's configured request timeout to ctx if
// ctx carries no deadline of its own.
func (s *Session) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, nil
	}
	return context.WithTimeout(ctx, s.opts.RequestTimeout)
}

// ID returns this session's unique identifier.
func (s *Session) ID() string {
	return s.id.String()
}

// IsClosed reports whether Close has been called on this session.
func (s *Session) IsClosed() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.closed
}

// Metrics returns the Prometheus metrics registered for this session.
func (s *Session) Metrics() *Metrics {
	return s.metrics
}

// Close closes the session's connection. Every NamedMap/NamedCache
// obtained from this session becomes unusable; operations on them after
// Close return ErrPrecondition.
func (s *Session) Close() {
	s.mutex.Lock()
	s.closed = true
	s.mutex.Unlock()

	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.log.Warnw("error closing session connection", "error", err)
		}
	}
}

func (s *Session) String() string {
	return fmt.Sprintf("Session{id=%s, closed=%v, options=%v}", s.id, s.IsClosed(), s.opts)
}

// AddSessionLifecycleListener registers a listener for Connected/
// Disconnected/Reconnected/Closed session events.
func (s *Session) AddSessionLifecycleListener(listener SessionLifecycleListener) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, l := range s.lifecycleListeners {
		if *l == listener {
			return
		}
	}
	s.lifecycleListeners = append(s.lifecycleListeners, &listener)
}

// RemoveSessionLifecycleListener removes a previously registered listener.
func (s *Session) RemoveSessionLifecycleListener(listener SessionLifecycleListener) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for i, l := range s.lifecycleListeners {
		if *l == listener {
			s.lifecycleListeners = append(s.lifecycleListeners[:i], s.lifecycleListeners[i+1:]...)
			return
		}
	}
}

func (s *Session) dispatch(eventType SessionLifecycleEventType) {
	s.mutex.RLock()
	listeners := append([]*SessionLifecycleListener(nil), s.lifecycleListeners...)
	s.mutex.RUnlock()

	if len(listeners) == 0 {
		return
	}
	event := newSessionLifecycleEvent(s, eventType)
	for _, l := range listeners {
		(*l).getEmitter().emit(eventType, event)
	}
}

func (o *SessionOptions) dialCredentials() (grpc.DialOption, error) {
	if o.PlainText || !o.TLSEnabled {
		return grpc.WithTransportCredentials(insecure.NewCredentials()), nil
	}

	ignoreInvalidCerts := getStringEnv(envIgnoreInvalidCerts, "false") == "true"

	var (
		pool         *x509.CertPool
		certificates []tls.Certificate
	)

	caCertPath := firstNonEmpty(o.CACertPath, getStringEnv(envTLSCACert, ""))
	clientCertPath := firstNonEmpty(o.ClientCertPath, getStringEnv(envTLSClientCert, ""))
	clientKeyPath := firstNonEmpty(o.ClientKeyPath, getStringEnv(envTLSClientKey, ""))

	if caCertPath == "" {
		return nil, wrapPrecondition("TLS requested but no CA certificate path configured")
	}
	if err := validateFilePath(caCertPath); err != nil {
		return nil, err
	}
	caData, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, err
	}
	pool = x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caData) {
		return nil, errors.New("meridian: failed to append CA certificate")
	}

	if clientCertPath != "" && clientKeyPath != "" {
		if err := validateFilePath(clientCertPath); err != nil {
			return nil, err
		}
		if err := validateFilePath(clientKeyPath); err != nil {
			return nil, err
		}
		cert, err := tls.LoadX509KeyPair(clientCertPath, clientKeyPath)
		if err != nil {
			return nil, err
		}
		certificates = []tls.Certificate{cert}
	}

	cfg := &tls.Config{
		InsecureSkipVerify: ignoreInvalidCerts, //nolint:gosec
		RootCAs:            pool,
		Certificates:       certificates,
	}

	return grpc.WithTransportCredentials(credentials.NewTLS(cfg)), nil
}

func validateFilePath(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%s is not a valid file", path)
	}
	return nil
}

func (o *SessionOptions) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("SessionOptions{address=%v, tlsEnabled=%v, format=%v", o.Address, o.TLSEnabled, o.Format))
	if o.TLSEnabled {
		sb.WriteString(fmt.Sprintf(", caCertPath=%v, clientCertPath=%v", o.CACertPath, o.ClientCertPath))
	}
	sb.WriteString("}")
	return sb.String()
}

func getStringEnv(name, def string) string {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v
	}
	return def
}

func getBoolEnv(name string, def bool) bool {
	v, ok := os.LookupEnv(name)
	if !ok {
		return def
	}
	return v == "true" || v == "1"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
