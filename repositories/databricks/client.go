package databricks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/cockroachdb/errors"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/healthfin/healthcare-api/utils"
)

const statementsPath = "/api/2.0/sql/statements/"

type Config struct {
	Host         string
	Token        string
	ClientId     string
	ClientSecret string
	WarehouseId  string

	// StatementTimeout bounds the polling of a running statement.
	StatementTimeout time.Duration
	PollInterval     time.Duration
	RetryAttempts    uint
	RetryBaseDelay   time.Duration
	HTTPTimeout      time.Duration
}

func (cfg Config) withDefaults() Config {
	if cfg.StatementTimeout == 0 {
		cfg.StatementTimeout = 300 * time.Second
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryBaseDelay == 0 {
		cfg.RetryBaseDelay = 2 * time.Second
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 180 * time.Second
	}
	cfg.Host = strings.TrimRight(cfg.Host, "/")
	return cfg
}

func (cfg Config) Validate() error {
	if cfg.Host == "" {
		return errors.New("DATABRICKS_HOST is required")
	}
	if cfg.WarehouseId == "" {
		return errors.New("SQL_WAREHOUSE_ID is required")
	}
	if cfg.Token == "" && (cfg.ClientId == "" || cfg.ClientSecret == "") {
		return errors.New("DATABRICKS_TOKEN or DATABRICKS_CLIENT_ID and DATABRICKS_CLIENT_SECRET are required")
	}
	return nil
}

// Parameter is a named statement parameter, referenced as :name in the SQL text.
// A nil Value binds NULL.
type Parameter struct {
	Name  string  `json:"name"`
	Value *string `json:"value,omitempty"`
	Type  string  `json:"type,omitempty"`
}

func StringParam(name, value string) Parameter {
	return Parameter{Name: name, Value: &value, Type: "STRING"}
}

func NullableStringParam(name string, value *string) Parameter {
	return Parameter{Name: name, Value: value, Type: "STRING"}
}

func IntParam(name string, value int) Parameter {
	v := fmt.Sprintf("%d", value)
	return Parameter{Name: name, Value: &v, Type: "INT"}
}

func TimestampParam(name string, value time.Time) Parameter {
	v := value.UTC().Format(time.RFC3339Nano)
	return Parameter{Name: name, Value: &v, Type: "TIMESTAMP"}
}

// Row maps column names to their values, as returned in the JSON_ARRAY format.
type Row map[string]gjson.Result

// StatementError is returned when the warehouse rejects or fails a statement.
// These are not retried.
type StatementError struct {
	State   string
	Message string
}

func (e *StatementError) Error() string {
	if e.State == "" {
		return fmt.Sprintf("SQL API error: %s", e.Message)
	}
	return fmt.Sprintf("SQL execution %s: %s", strings.ToLower(e.State), e.Message)
}

// Client runs statements on a SQL warehouse through the Statement Execution API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var httpClient *http.Client
	if cfg.ClientId != "" && cfg.ClientSecret != "" {
		oauthConfig := clientcredentials.Config{
			ClientID:     cfg.ClientId,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.Host + "/oidc/v1/token",
			Scopes:       []string{"all-apis"},
		}
		httpClient = oauthConfig.Client(ctx)
	} else {
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cfg.Token,
			TokenType:   "Bearer",
		}))
	}
	httpClient.Transport = otelhttp.NewTransport(httpClient.Transport)
	httpClient.Timeout = cfg.HTTPTimeout

	return &Client{cfg: cfg, httpClient: httpClient}, nil
}

// Execute runs a statement and returns its rows. Transport failures are retried
// with an exponential backoff, pending statements are polled until they finish.
func (c *Client) Execute(ctx context.Context, statement string, params ...Parameter) ([]Row, error) {
	logger := utils.LoggerFromContext(ctx)

	var rows []Row
	err := retry.Do(
		func() error {
			var err error
			rows, err = c.execute(ctx, statement, params)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(c.cfg.RetryAttempts),
		retry.Delay(c.cfg.RetryBaseDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var statementErr *StatementError
			return !errors.As(err, &statementErr) && !errors.Is(err, context.Canceled)
		}),
		retry.OnRetry(func(n uint, err error) {
			logger.WarnContext(ctx, fmt.Sprintf("databricks statement attempt %d failed, retrying: %v", n+1, err))
		}),
	)
	return rows, err
}

func (c *Client) execute(ctx context.Context, statement string, params []Parameter) ([]Row, error) {
	payload := map[string]any{
		"warehouse_id": c.cfg.WarehouseId,
		"statement":    statement,
		"disposition":  "INLINE",
		"format":       "JSON_ARRAY",
		"wait_timeout": "10s",
	}
	if len(params) > 0 {
		payload["parameters"] = params
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "could not encode statement payload")
	}

	result, err := c.do(ctx, http.MethodPost, c.cfg.Host+statementsPath, body)
	if err != nil {
		return nil, err
	}

	state := result.Get("status.state").String()
	statementId := result.Get("statement_id").String()
	maxPolls := int(c.cfg.StatementTimeout / c.cfg.PollInterval)

	for polls := 0; (state == "PENDING" || state == "RUNNING") && polls < maxPolls; polls++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.cfg.PollInterval):
		}

		result, err = c.do(ctx, http.MethodGet, c.cfg.Host+statementsPath+statementId, nil)
		if err != nil {
			return nil, err
		}
		state = result.Get("status.state").String()
	}

	switch state {
	case "SUCCEEDED":
		return parseRows(result), nil
	case "FAILED", "CANCELED", "CLOSED":
		return nil, &StatementError{State: state, Message: result.Get("status.error.message").String()}
	default:
		return nil, &StatementError{Message: fmt.Sprintf("Unexpected SQL state: %s", state)}
	}
}

func (c *Client) do(ctx context.Context, method, url string, body []byte) (gjson.Result, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return gjson.Result{}, errors.Wrap(err, "could not build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return gjson.Result{}, errors.Wrapf(err, "%s %s", method, url)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, errors.Wrap(err, "could not read statement response")
	}
	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return gjson.Result{}, errors.Newf("SQL API unavailable, status %d: %s", resp.StatusCode, string(raw))
	}
	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, &StatementError{Message: fmt.Sprintf("status %d: %s", resp.StatusCode, string(raw))}
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, &StatementError{Message: "invalid JSON response"}
	}
	return gjson.ParseBytes(raw), nil
}

func parseRows(result gjson.Result) []Row {
	var columns []string
	for _, col := range result.Get("manifest.schema.columns.#.name").Array() {
		columns = append(columns, col.String())
	}

	data := result.Get("result.data_array").Array()
	rows := make([]Row, 0, len(data))
	for _, values := range data {
		row := make(Row, len(columns))
		for i, value := range values.Array() {
			if i < len(columns) {
				row[columns[i]] = value
			}
		}
		rows = append(rows, row)
	}
	return rows
}
