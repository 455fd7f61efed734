package engine

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	utls "github.com/refraction-networking/utls"
	"github.com/use-agent/signalscrape/models"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// Default client identity. Many storefronts and social sites serve degraded
// or blocked pages to non-browser user agents.
const (
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultAccept         = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
	DefaultAcceptLanguage = "en-US,en;q=0.5"
	DefaultMaxBodyBytes   = 10 << 20
	DefaultMaxRedirects   = 10
)

// Options configures an HTTPEngine. It is passed at construction so tests
// can swap the transport.
type Options struct {
	UserAgent      string
	Accept         string
	AcceptLanguage string

	// MaxBodyBytes caps how much of a response body is read.
	MaxBodyBytes int64

	// MaxRedirects caps redirect hops.
	MaxRedirects int

	// Proxy is an optional http(s) proxy URL.
	Proxy string

	// TLSProfile selects the TLS client: "" uses crypto/tls, "chrome" dials
	// with a Chrome ClientHello. The chrome dialer only applies to direct
	// connections: https requests through Proxy tunnel with crypto/tls and
	// present Go's own ClientHello.
	TLSProfile string

	// Transport overrides the round tripper entirely (Proxy and TLSProfile
	// are then ignored).
	Transport http.RoundTripper

	// Limiter, if set, paces requests per host.
	Limiter *HostLimiter

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// DefaultOptions returns the browser-like identity with no proxy or limiter.
func DefaultOptions() Options {
	return Options{
		UserAgent:      DefaultUserAgent,
		Accept:         DefaultAccept,
		AcceptLanguage: DefaultAcceptLanguage,
		MaxBodyBytes:   DefaultMaxBodyBytes,
		MaxRedirects:   DefaultMaxRedirects,
	}
}

// HTTPEngine fetches pages with a single plain GET. It never retries.
type HTTPEngine struct {
	client  *http.Client
	opts    Options
	limiter *HostLimiter
}

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to http/1.1
// only. Computed once at init time and reused for every connection.
var chromeH1Spec utls.ClientHelloSpec

func init() {
	spec, err := utls.UTLSIdToSpec(utls.HelloChrome_Auto)
	if err != nil {
		return
	}
	// Go's http.Transport cannot speak h2 over a utls connection.
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*utls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

// NewHTTPEngine creates an HTTPEngine. Zero-valued options fall back to
// DefaultOptions.
func NewHTTPEngine(opts Options) *HTTPEngine {
	def := DefaultOptions()
	if opts.UserAgent == "" {
		opts.UserAgent = def.UserAgent
	}
	if opts.Accept == "" {
		opts.Accept = def.Accept
	}
	if opts.AcceptLanguage == "" {
		opts.AcceptLanguage = def.AcceptLanguage
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = def.MaxBodyBytes
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = def.MaxRedirects
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	transport := opts.Transport
	if transport == nil {
		transport = newTransport(opts)
	}

	maxRedirects := opts.MaxRedirects
	return &HTTPEngine{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		opts:    opts,
		limiter: opts.Limiter,
	}
}

func newTransport(opts Options) *http.Transport {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	if opts.Proxy != "" {
		if proxyURL, err := url.Parse(opts.Proxy); err == nil && (proxyURL.Scheme == "http" || proxyURL.Scheme == "https") {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}
	if opts.TLSProfile == "chrome" {
		transport.DialTLSContext = dialChrome
		transport.ForceAttemptHTTP2 = false
		if opts.Proxy != "" {
			opts.Logger.Warn("chrome TLS profile is not applied to proxied requests",
				"component", "http_engine",
				"proxy", redactProxy(opts.Proxy),
			)
		}
	}
	return transport
}

// redactProxy drops userinfo from a proxy URL for logging.
func redactProxy(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "invalid"
	}
	return u.Redacted()
}

// errTLSHandshake marks handshake failures from dialChrome.
var errTLSHandshake = errors.New("tls handshake failed")

// dialChrome opens a TLS connection presenting a Chrome ClientHello.
func dialChrome(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	host, _, _ := net.SplitHostPort(addr)
	tlsConn := utls.UClient(conn, &utls.Config{ServerName: host}, utls.HelloCustom)
	if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
		conn.Close()
		return nil, fmt.Errorf("http_engine: apply tls spec: %w", err)
	}
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: chrome: %w", errTLSHandshake, err)
	}
	return tlsConn, nil
}

func (e *HTTPEngine) Name() string { return "http" }

func (e *HTTPEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	target, err := validateURL(req.URL)
	if err != nil {
		return nil, models.NewFetchError(models.ReasonInvalidURL, req.URL, err)
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx, target.Hostname()); err != nil {
			return nil, models.NewFetchError(models.ReasonTimeout, req.URL, err)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, models.NewFetchError(models.ReasonInvalidURL, req.URL,
			fmt.Errorf("http_engine: build request: %w", err))
	}
	httpReq.Header.Set("User-Agent", e.opts.UserAgent)
	httpReq.Header.Set("Accept", e.opts.Accept)
	httpReq.Header.Set("Accept-Language", e.opts.AcceptLanguage)
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, classify(ctx, req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		fe := models.NewFetchError(models.ReasonStatus, req.URL, nil)
		fe.StatusCode = resp.StatusCode
		return nil, fe
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.opts.MaxBodyBytes))
	if err != nil {
		if fe := classify(ctx, req.URL, err); fe.Reason == models.ReasonTimeout {
			return nil, fe
		}
		return nil, models.NewFetchError(models.ReasonBody, req.URL,
			fmt.Errorf("http_engine: read body: %w", err))
	}

	bodyStr := decodeBody(body, resp.Header.Get("Content-Type"))

	return &FetchResult{
		HTML:       bodyStr,
		Title:      extractTitle(bodyStr),
		StatusCode: resp.StatusCode,
		FinalURL:   resp.Request.URL.String(),
		EngineName: e.Name(),
	}, nil
}

// validateURL accepts only absolute http(s) URLs with a host.
func validateURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("missing host")
	}
	return u, nil
}

// classify maps a transport error onto a fetch failure reason.
func classify(ctx context.Context, rawURL string, err error) *models.FetchError {
	var (
		netErr      net.Error
		dnsErr      *net.DNSError
		certErr     *tls.CertificateVerificationError
		recordErr   tls.RecordHeaderError
		unknownAuth x509.UnknownAuthorityError
		hostErr     x509.HostnameError
		invalidCert x509.CertificateInvalidError
	)

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return models.NewFetchError(models.ReasonTimeout, rawURL, err)
	case errors.As(err, &dnsErr):
		return models.NewFetchError(models.ReasonNetwork, rawURL, err)
	case errors.As(err, &certErr), errors.As(err, &recordErr), errors.As(err, &unknownAuth),
		errors.As(err, &hostErr), errors.As(err, &invalidCert),
		errors.Is(err, errTLSHandshake), tlsAlert(err):
		return models.NewFetchError(models.ReasonTLS, rawURL, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return models.NewFetchError(models.ReasonTimeout, rawURL, err)
	default:
		return models.NewFetchError(models.ReasonNetwork, rawURL, err)
	}
}

// tlsAlert reports whether the innermost cause of err is a crypto/tls
// error ("tls: handshake failure", "tls: protocol version not supported").
// Only the root is checked: outer layers such as *url.Error carry the
// request URL in their message.
func tlsAlert(err error) bool {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return strings.HasPrefix(err.Error(), "tls:")
		}
		err = next
	}
}

// decodeBody converts body to UTF-8 using the Content-Type charset or a
// <meta charset> sniff.
func decodeBody(body []byte, contentType string) string {
	if utf8.Valid(body) && !strings.Contains(strings.ToLower(contentType), "charset=") {
		return string(body)
	}
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return string(body)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}

// extractTitle uses the Go HTML tokenizer to find the first <title> element.
func extractTitle(htmlStr string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(htmlStr))
	inTitle := false
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "title" {
				inTitle = true
			}
		case html.TextToken:
			if inTitle {
				return strings.TrimSpace(string(tokenizer.Text()))
			}
		case html.EndTagToken:
			if inTitle {
				return ""
			}
		}
	}
}
