// Package client provides the API client for the control-plane HTTP API
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/dbpilot/dbpilot/internal/db/models"
	"github.com/dbpilot/dbpilot/internal/services"
)

// DefaultBaseURL is the default address of the API server
const DefaultBaseURL = "http://localhost:8080"

// DefaultTimeout is the default timeout for API requests
const DefaultTimeout = 30 * time.Second

// ClusterWithJob pairs a cluster with the job enqueued for it
type ClusterWithJob struct {
	Cluster models.Cluster `json:"cluster"`
	Job     models.Job     `json:"job"`
}

// BackupWithJob pairs a backup record with the job enqueued for it
type BackupWithJob struct {
	Backup models.Backup `json:"backup"`
	Job    models.Job    `json:"job"`
}

// Client is the interface for the API client
type Client interface {
	// Health Check
	HealthCheck(ctx context.Context) (map[string]string, error)

	// Cluster Endpoints
	CreateCluster(ctx context.Context, req services.CreateClusterRequest) (ClusterWithJob, error)
	GetCluster(ctx context.Context, id uint) (models.Cluster, error)
	ListClusters(ctx context.Context, projectID uint, opts *models.ListOptions) ([]models.Cluster, error)
	DeleteCluster(ctx context.Context, id uint) (models.Job, error)
	ResizeCluster(ctx context.Context, id uint, plan models.PlanTier) (models.Job, error)
	PauseCluster(ctx context.Context, id uint, reason string) (models.Job, error)
	ResumeCluster(ctx context.Context, id uint, reason string) (models.Job, error)
	BackupCluster(ctx context.Context, id uint) (BackupWithJob, error)
	ListBackups(ctx context.Context, clusterID uint, opts *models.ListOptions) ([]models.Backup, error)
	RestoreBackup(ctx context.Context, backupID uint) (models.Job, error)
	ClusterEvents(ctx context.Context, clusterID uint, opts *models.ListOptions) ([]models.Event, error)

	// Job Endpoints
	ListJobs(ctx context.Context, status models.JobStatus, opts *models.ListOptions) ([]models.Job, error)
	GetJob(ctx context.Context, id uint) (models.Job, error)
	JobStats(ctx context.Context) (map[models.JobStatus]int64, error)
	CancelJob(ctx context.Context, id uint) (models.Job, error)
	RetryJob(ctx context.Context, id uint) (models.Job, error)
}

var _ Client = &APIClient{}

// Options contains configuration options for the API client
type Options struct {
	// BaseURL is the base URL of the API
	BaseURL string

	// Timeout is the request timeout
	Timeout time.Duration
}

// DefaultOptions returns the default client options
func DefaultOptions() *Options {
	return &Options{
		BaseURL: DefaultBaseURL,
		Timeout: DefaultTimeout,
	}
}

// APIClient implements the Client interface
type APIClient struct {
	baseURL string
	timeout time.Duration
}

// NewClient creates a new API client with the given options
func NewClient(opts *Options) (Client, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	return &APIClient{
		baseURL: opts.BaseURL,
		timeout: opts.Timeout,
	}, nil
}

// createAgent creates a new Fiber Agent for the given method and endpoint
func (c *APIClient) createAgent(ctx context.Context, method, endpoint string, body interface{}) (*fiber.Agent, error) {
	fullURL := c.baseURL + endpoint

	var agent *fiber.Agent
	switch method {
	case http.MethodGet:
		agent = fiber.Get(fullURL)
	case http.MethodPost:
		agent = fiber.Post(fullURL)
	case http.MethodDelete:
		agent = fiber.Delete(fullURL)
	default:
		return nil, fmt.Errorf("unsupported HTTP method: %s", method)
	}

	// Set timeout from context or client default
	if deadline, ok := ctx.Deadline(); ok {
		agent.Timeout(time.Until(deadline))
	} else {
		agent.Timeout(c.timeout)
	}

	agent.Set("Content-Type", "application/json")
	agent.Set("Accept", "application/json")

	if body != nil {
		agent.JSON(body)
	}

	return agent, nil
}

// envelope mirrors the server response wrapper with the data left raw
type envelope struct {
	Slug  string          `json:"slug"`
	Error string          `json:"error,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// executeRequest sends the request and unmarshals the envelope data into v
func (c *APIClient) executeRequest(ctx context.Context, method, endpoint string, body, v interface{}) error {
	agent, err := c.createAgent(ctx, method, endpoint, body)
	if err != nil {
		return err
	}

	statusCode, respBody, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("error sending request: %w", errs[0])
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		if statusCode < 200 || statusCode >= 300 {
			return &fiber.Error{Code: statusCode, Message: string(respBody)}
		}
		return fmt.Errorf("error decoding response: %w", err)
	}

	if statusCode < 200 || statusCode >= 300 {
		msg := env.Error
		if msg == "" {
			msg = string(respBody)
		}
		return &fiber.Error{Code: statusCode, Message: msg}
	}

	if v != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, v); err != nil {
			return fmt.Errorf("error decoding response data: %w", err)
		}
	}
	return nil
}

// listQuery builds the pagination query string from ListOptions
func listQuery(opts *models.ListOptions) url.Values {
	q := url.Values{}
	if opts == nil {
		return q
	}
	if opts.Limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", fmt.Sprintf("%d", opts.Offset))
	}
	return q
}

func withQuery(endpoint string, q url.Values) string {
	if len(q) == 0 {
		return endpoint
	}
	return endpoint + "?" + q.Encode()
}

// HealthCheck checks the health of the API
func (c *APIClient) HealthCheck(ctx context.Context) (map[string]string, error) {
	agent, err := c.createAgent(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}
	statusCode, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("error sending request: %w", errs[0])
	}
	if statusCode < 200 || statusCode >= 300 {
		return nil, &fiber.Error{Code: statusCode, Message: string(body)}
	}
	var response map[string]string
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("error decoding response: %w", err)
	}
	return response, nil
}

// CreateCluster requests a new cluster to be provisioned
func (c *APIClient) CreateCluster(ctx context.Context, req services.CreateClusterRequest) (ClusterWithJob, error) {
	var response ClusterWithJob
	if err := c.executeRequest(ctx, http.MethodPost, "/api/v1/clusters", req, &response); err != nil {
		return ClusterWithJob{}, err
	}
	return response, nil
}

// GetCluster retrieves a cluster by ID
func (c *APIClient) GetCluster(ctx context.Context, id uint) (models.Cluster, error) {
	var response models.Cluster
	endpoint := fmt.Sprintf("/api/v1/clusters/%d", id)
	if err := c.executeRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return models.Cluster{}, err
	}
	return response, nil
}

// ListClusters lists clusters with optional project filtering
func (c *APIClient) ListClusters(ctx context.Context, projectID uint, opts *models.ListOptions) ([]models.Cluster, error) {
	q := listQuery(opts)
	if projectID != 0 {
		q.Set("project_id", fmt.Sprintf("%d", projectID))
	}
	var response []models.Cluster
	if err := c.executeRequest(ctx, http.MethodGet, withQuery("/api/v1/clusters", q), nil, &response); err != nil {
		return nil, err
	}
	return response, nil
}

// DeleteCluster requests a cluster teardown
func (c *APIClient) DeleteCluster(ctx context.Context, id uint) (models.Job, error) {
	var response models.Job
	endpoint := fmt.Sprintf("/api/v1/clusters/%d", id)
	if err := c.executeRequest(ctx, http.MethodDelete, endpoint, nil, &response); err != nil {
		return models.Job{}, err
	}
	return response, nil
}

// ResizeCluster requests a move to another tier
func (c *APIClient) ResizeCluster(ctx context.Context, id uint, plan models.PlanTier) (models.Job, error) {
	var response models.Job
	endpoint := fmt.Sprintf("/api/v1/clusters/%d/resize", id)
	body := map[string]string{"plan": string(plan)}
	if err := c.executeRequest(ctx, http.MethodPost, endpoint, body, &response); err != nil {
		return models.Job{}, err
	}
	return response, nil
}

// PauseCluster requests a scale-down to zero
func (c *APIClient) PauseCluster(ctx context.Context, id uint, reason string) (models.Job, error) {
	var response models.Job
	endpoint := fmt.Sprintf("/api/v1/clusters/%d/pause", id)
	body := map[string]string{"reason": reason}
	if err := c.executeRequest(ctx, http.MethodPost, endpoint, body, &response); err != nil {
		return models.Job{}, err
	}
	return response, nil
}

// ResumeCluster requests a scale back up
func (c *APIClient) ResumeCluster(ctx context.Context, id uint, reason string) (models.Job, error) {
	var response models.Job
	endpoint := fmt.Sprintf("/api/v1/clusters/%d/resume", id)
	body := map[string]string{"reason": reason}
	if err := c.executeRequest(ctx, http.MethodPost, endpoint, body, &response); err != nil {
		return models.Job{}, err
	}
	return response, nil
}

// BackupCluster requests a backup of a cluster
func (c *APIClient) BackupCluster(ctx context.Context, id uint) (BackupWithJob, error) {
	var response BackupWithJob
	endpoint := fmt.Sprintf("/api/v1/clusters/%d/backup", id)
	if err := c.executeRequest(ctx, http.MethodPost, endpoint, nil, &response); err != nil {
		return BackupWithJob{}, err
	}
	return response, nil
}

// ListBackups lists the backups of a cluster
func (c *APIClient) ListBackups(ctx context.Context, clusterID uint, opts *models.ListOptions) ([]models.Backup, error) {
	var response []models.Backup
	endpoint := fmt.Sprintf("/api/v1/clusters/%d/backups", clusterID)
	if err := c.executeRequest(ctx, http.MethodGet, withQuery(endpoint, listQuery(opts)), nil, &response); err != nil {
		return nil, err
	}
	return response, nil
}

// RestoreBackup requests a restore of a backup into its cluster
func (c *APIClient) RestoreBackup(ctx context.Context, backupID uint) (models.Job, error) {
	var response models.Job
	endpoint := fmt.Sprintf("/api/v1/backups/%d/restore", backupID)
	if err := c.executeRequest(ctx, http.MethodPost, endpoint, nil, &response); err != nil {
		return models.Job{}, err
	}
	return response, nil
}

// ClusterEvents retrieves the timeline of a cluster
func (c *APIClient) ClusterEvents(ctx context.Context, clusterID uint, opts *models.ListOptions) ([]models.Event, error) {
	var response []models.Event
	endpoint := fmt.Sprintf("/api/v1/clusters/%d/events", clusterID)
	if err := c.executeRequest(ctx, http.MethodGet, withQuery(endpoint, listQuery(opts)), nil, &response); err != nil {
		return nil, err
	}
	return response, nil
}

// ListJobs lists jobs with optional status filtering
func (c *APIClient) ListJobs(ctx context.Context, status models.JobStatus, opts *models.ListOptions) ([]models.Job, error) {
	q := listQuery(opts)
	if status != "" {
		q.Set("status", string(status))
	}
	var response []models.Job
	if err := c.executeRequest(ctx, http.MethodGet, withQuery("/api/v1/jobs", q), nil, &response); err != nil {
		return nil, err
	}
	return response, nil
}

// GetJob retrieves a job by ID
func (c *APIClient) GetJob(ctx context.Context, id uint) (models.Job, error) {
	var response models.Job
	endpoint := fmt.Sprintf("/api/v1/jobs/%d", id)
	if err := c.executeRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return models.Job{}, err
	}
	return response, nil
}

// JobStats retrieves the per-status job counts
func (c *APIClient) JobStats(ctx context.Context) (map[models.JobStatus]int64, error) {
	var response map[models.JobStatus]int64
	if err := c.executeRequest(ctx, http.MethodGet, "/api/v1/jobs/stats", nil, &response); err != nil {
		return nil, err
	}
	return response, nil
}

// CancelJob aborts a non-terminal job
func (c *APIClient) CancelJob(ctx context.Context, id uint) (models.Job, error) {
	var response models.Job
	endpoint := fmt.Sprintf("/api/v1/jobs/%d/cancel", id)
	if err := c.executeRequest(ctx, http.MethodPost, endpoint, nil, &response); err != nil {
		return models.Job{}, err
	}
	return response, nil
}

// RetryJob resets a failed or canceled job to pending
func (c *APIClient) RetryJob(ctx context.Context, id uint) (models.Job, error) {
	var response models.Job
	endpoint := fmt.Sprintf("/api/v1/jobs/%d/retry", id)
	if err := c.executeRequest(ctx, http.MethodPost, endpoint, nil, &response); err != nil {
		return models.Job{}, err
	}
	return response, nil
}
