package store

import (
	"context"
	"errors"
	"net/http"
	"time"

	"patient-management/config"
	"patient-management/internal/domain/entity"
	"patient-management/pkg/metrics"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const patientsPath = "/patients"

// Retry budgets per operation. Mutations are never repeated.
const (
	listRetries     = 2
	getRetries      = 1
	mutationRetries = 0
)

const defaultRetryWait = 200 * time.Millisecond

// Authorizer supplies the bearer token of outgoing calls and is told when the store
// rejects it.
type Authorizer interface {
	BearerToken(ctx context.Context) string
	Unauthorized(ctx context.Context)
}

// PatientClient reads and writes patient records on the REST backing store. Each retry
// budget gets its own resty client; resty repeats network failures and 5xx responses.
type PatientClient struct {
	clients   map[int]*resty.Client
	auth      Authorizer
	log       *logrus.Logger
	metrics   *metrics.Metrics
	retryWait time.Duration
}

type ClientOption func(*PatientClient)

// WithRetryWait sets the base pause between retries.
func WithRetryWait(wait time.Duration) ClientOption {
	return func(c *PatientClient) {
		c.retryWait = wait
	}
}

// WithMetrics records call counts and latency.
func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(c *PatientClient) {
		c.metrics = m
	}
}

func NewPatientClient(cfg config.StoreConfig, auth Authorizer, log *logrus.Logger, opts ...ClientOption) *PatientClient {
	c := &PatientClient{
		auth:      auth,
		log:       log,
		retryWait: defaultRetryWait,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.clients = make(map[int]*resty.Client, 3)
	for _, retries := range []int{listRetries, getRetries, mutationRetries} {
		c.clients[retries] = c.newRestyClient(cfg, retries)
	}
	return c
}

func (c *PatientClient) newRestyClient(cfg config.StoreConfig, retries int) *resty.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(c.retryWait).
		SetRetryMaxWaitTime(maxRetryWait(c.retryWait)).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			callErr := responseError(resp, err)
			return callErr != nil && callErr.Retryable()
		}).
		AddRetryHook(func(resp *resty.Response, err error) {
			if resp == nil || resp.Request == nil {
				return
			}
			c.log.Warnf("Failed to %s %s on attempt %d/%d: status=%d err=%v",
				resp.Request.Method, resp.Request.URL, resp.Request.Attempt, retries+1, resp.StatusCode(), err)
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
}

func maxRetryWait(wait time.Duration) time.Duration {
	return 4 * wait
}

func (c *PatientClient) List(ctx context.Context) ([]entity.Patient, error) {
	var patients []entity.Patient
	err := c.do(ctx, "list", http.MethodGet, patientsPath, nil, &patients, listRetries)
	if err != nil {
		return nil, err
	}
	if patients == nil {
		patients = []entity.Patient{}
	}
	return patients, nil
}

func (c *PatientClient) Get(ctx context.Context, id entity.PatientID) (*entity.Patient, error) {
	var patient entity.Patient
	if err := c.do(ctx, "get", http.MethodGet, patientPath(id), nil, &patient, getRetries); err != nil {
		return nil, err
	}
	return &patient, nil
}

func (c *PatientClient) Create(ctx context.Context, patient *entity.Patient) (*entity.Patient, error) {
	var created entity.Patient
	if err := c.do(ctx, "create", http.MethodPost, patientsPath, patient, &created, mutationRetries); err != nil {
		return nil, err
	}
	return &created, nil
}

// Update replaces the whole record.
func (c *PatientClient) Update(ctx context.Context, id entity.PatientID, patient *entity.Patient) (*entity.Patient, error) {
	var updated entity.Patient
	if err := c.do(ctx, "update", http.MethodPut, patientPath(id), patient, &updated, mutationRetries); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *PatientClient) Delete(ctx context.Context, id entity.PatientID) error {
	return c.do(ctx, "delete", http.MethodDelete, patientPath(id), nil, nil, mutationRetries)
}

func patientPath(id entity.PatientID) string {
	return patientsPath + "/" + id.String()
}

func (c *PatientClient) do(ctx context.Context, op, method, path string, body, result interface{}, retries int) error {
	start := time.Now()

	req := c.clients[retries].R().SetContext(ctx)
	if c.auth != nil {
		if token := c.auth.BearerToken(ctx); token != "" {
			req.SetAuthToken(token)
		}
	}
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result).ForceContentType("application/json")
	}

	resp, execErr := req.Execute(method, path)
	var err error
	if callErr := callError(method, path, resp, execErr); callErr != nil {
		err = callErr
	}

	if c.metrics != nil {
		if req.Attempt > 1 {
			c.metrics.StoreRetries.WithLabelValues(op).Add(float64(req.Attempt - 1))
		}
		c.metrics.StoreRequests.WithLabelValues(op, outcome(err)).Inc()
		c.metrics.StoreLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}

	if errors.Is(err, ErrUnauthorized) && c.auth != nil {
		c.auth.Unauthorized(ctx)
	}
	return err
}

// callError classifies the outcome of a call, or returns nil on success.
func callError(method, path string, resp *resty.Response, err error) *Error {
	if err != nil {
		return networkError(method, path, err)
	}
	if resp != nil && resp.IsError() {
		return statusError(method, path, resp.StatusCode())
	}
	return nil
}

// responseError is callError for the retry condition, which only sees the response.
func responseError(resp *resty.Response, err error) *Error {
	var method, path string
	if resp != nil && resp.Request != nil {
		method, path = resp.Request.Method, resp.Request.URL
	}
	return callError(method, path, resp, err)
}
