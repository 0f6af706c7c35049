package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nao1215/localservices/pkg/event"
	"github.com/nao1215/localservices/pkg/gate"
	"github.com/nao1215/localservices/pkg/session"
)

// DefaultTimeout はリクエスト1回あたりの既定のタイムアウト。
const DefaultTimeout = 30 * time.Second

// HeaderRequestID はリクエストを追跡するためのヘッダーキー。
const HeaderRequestID = "X-Request-ID"

// Navigator は画面遷移を行う。401応答を受けたときにログイン画面へ遷移するために使用する。
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc は関数をNavigatorとして扱うためのアダプタ。
type NavigatorFunc func(path string)

// Navigate はf(path)を呼び出す。
func (f NavigatorFunc) Navigate(path string) {
	f(path)
}

// Client はマーケットプレイスAPIへの唯一の通信経路。
type Client struct {
	// httpClient は内部で使用するHTTPクライアント。
	httpClient *http.Client
	// baseURL はAPIのベースURL（例: "http://localhost:8080/api"）。
	baseURL string
	// store はトークンの取得元であり、401応答時に破棄する対象。
	store *session.Store
	// navigator は401応答時の遷移先を処理する。
	navigator Navigator
	// bus は変更通知の発行先。
	bus *event.Bus
	// logger はリクエストログの出力先。
	logger *zap.Logger
	// limiter は送信レートの制限。nilの場合は制限しない。
	limiter *rate.Limiter
	// metrics はPrometheusメトリクス。nilの場合は記録しない。
	metrics *metrics
	// validate はリクエストボディのバリデータ。
	validate *validator.Validate
	// tracing はOpenTelemetryのトランスポートで包むかを表す。
	tracing bool
}

// Option はClientの生成オプション。
type Option func(*Client)

// WithHTTPClient は内部で使用するHTTPクライアントを差し替える。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout はリクエスト1回あたりのタイムアウトを設定する。
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithNavigator は401応答時の遷移処理を設定する。
func WithNavigator(n Navigator) Option {
	return func(c *Client) {
		c.navigator = n
	}
}

// WithBus は変更通知の発行先を設定する。
func WithBus(bus *event.Bus) Option {
	return func(c *Client) {
		c.bus = bus
	}
}

// WithLogger はロガーを設定する。
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRateLimit は1秒あたりのリクエスト数とバースト数で送信レートを制限する。
// rpsが0以下の場合は制限しない。
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMetrics はPrometheusメトリクスをregに登録して記録する。
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Client) {
		if reg != nil {
			c.metrics = newMetrics(reg)
		}
	}
}

// WithTracing はOpenTelemetryのHTTPトランスポートでリクエストを計装する。
func WithTracing() Option {
	return func(c *Client) {
		c.tracing = true
	}
}

// New は新しいAPIクライアントを生成する。
// baseURLにはAPIのベースURL（例: "http://localhost:8080/api"）を指定する。
func New(baseURL string, store *session.Store, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		baseURL:   strings.TrimRight(baseURL, "/"),
		store:     store,
		navigator: NavigatorFunc(func(string) {}),
		logger:    zap.NewNop(),
		validate:  newValidator(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tracing {
		traced := *c.httpClient
		traced.Transport = otelhttp.NewTransport(transportOf(c.httpClient))
		c.httpClient = &traced
	}
	return c
}

// transportOf はHTTPクライアントのトランスポートを返す。未設定の場合は既定のもの。
func transportOf(hc *http.Client) http.RoundTripper {
	if hc.Transport != nil {
		return hc.Transport
	}
	return http.DefaultTransport
}

// Session は通信に使用しているセッションストアを返す。
func (c *Client) Session() *session.Store {
	return c.store
}

// do はJSON形式のHTTPリクエストを実行する共通処理。
// 送信前にBearerトークンを付与し、401応答ではセッション破棄と遷移を行ってからエラーを返す。
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, result any) error {
	if err := c.validateBody(method, path, body); err != nil {
		return err
	}

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return &APIError{Kind: KindValidation, Method: method, Path: path, Message: "リクエストボディのシリアライズに失敗しました", Err: err}
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &APIError{Kind: KindTransport, Method: method, Path: path, Err: err}
		}
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return &APIError{Kind: KindTransport, Method: method, Path: path, Err: fmt.Errorf("HTTPリクエストの作成に失敗: %w", err)}
	}
	requestID := uuid.New().String()
	c.intercept(req, requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.observe(path, method, 0, time.Since(start))
		c.logger.Warn("APIリクエストの送信に失敗",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return &APIError{Kind: KindTransport, Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	c.metrics.observe(path, method, resp.StatusCode, time.Since(start))
	if err != nil {
		return &APIError{Kind: KindTransport, StatusCode: resp.StatusCode, Method: method, Path: path, Err: fmt.Errorf("レスポンスの読み取りに失敗: %w", err)}
	}

	c.logger.Debug("APIリクエスト",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", requestID),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := newStatusError(method, path, resp.StatusCode, respBody)
		if apiErr.Kind == KindUnauthorized {
			c.forceLogout(method, path)
		}
		return apiErr
	}

	if result != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return &APIError{Kind: KindDecode, StatusCode: resp.StatusCode, Method: method, Path: path, Message: "レスポンスを解釈できませんでした", Err: err}
		}
	}
	return nil
}

// intercept は送信直前のリクエストに共通ヘッダーを設定する。
// Content-Typeはボディの有無によらず常に付与する。
// トークンは送信時点のセッションから読み取り、保持していない場合はAuthorizationを付与しない。
func (c *Client) intercept(req *http.Request, requestID string) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderRequestID, requestID)

	if c.store == nil {
		return
	}
	if token := c.store.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// forceLogout は401応答を受けたときにセッションを破棄し、ログイン画面へ遷移させる。
// 呼び出し元へのエラー返却はこの後に必ず行われる。
func (c *Client) forceLogout(method, path string) {
	c.logger.Info("認可に失敗したためセッションを破棄します",
		zap.String("method", method),
		zap.String("path", path),
	)
	if c.store != nil {
		c.store.ClearAuth()
	}
	c.metrics.logout()
	if c.navigator != nil {
		c.navigator.Navigate(gate.LoginPath)
	}
}

// publish は変更通知を発行する。
func (c *Client) publish(family event.Family, op event.Operation, resourceID int64) {
	c.bus.Publish(event.New(family, op, resourceID))
}

// get はGETリクエストを送信してresultに結果を格納する。
func (c *Client) get(ctx context.Context, path string, result any) error {
	return c.do(ctx, http.MethodGet, path, nil, nil, result)
}

// idPath はパス接頭辞とIDを連結する。
func idPath(prefix string, id int64, suffix ...string) string {
	p := fmt.Sprintf("%s/%d", prefix, id)
	for _, s := range suffix {
		p += s
	}
	return p
}
