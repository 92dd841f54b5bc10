package catalyst

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/uc-package/swimctl/internal/logger"
	"github.com/uc-package/swimctl/internal/models"
	"go.uber.org/zap"
)

const (
	authTokenPath    = "/dna/system/api/v1/auth/token"
	importationPath  = "/dna/intent/api/v1/image/importation"
	legacyImagePath  = "/dna/intent/api/v1/image"
	taskPath         = "/dna/intent/api/v1/task"
	authTokenHeader  = "X-Auth-Token"
	maxErrorBodySize = 4096
)

// HTTPClient Catalyst Center REST API 客户端
type HTTPClient struct {
	baseURL      string
	username     string
	password     string
	legacyDelete bool
	httpClient   *http.Client
	log          *zap.Logger

	mu    sync.Mutex
	token string
}

// NewHTTPClient 创建 Catalyst Center 客户端
func NewHTTPClient(config *models.CatalystConfig) (*HTTPClient, error) {
	if config == nil || config.BaseURL == "" {
		return nil, fmt.Errorf("catalyst center base URL is required")
	}
	if config.Token == "" && (config.Username == "" || config.Password == "") {
		return nil, ErrMissingCredentials
	}

	baseURL := strings.TrimSuffix(config.BaseURL, "/")

	// 确保 URL 包含协议
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: config.Insecure,
		},
	}

	return &HTTPClient{
		baseURL:      baseURL,
		username:     config.Username,
		password:     config.Password,
		legacyDelete: config.LegacyDelete,
		token:        config.Token,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(timeout) * time.Second,
		},
		log: logger.Named("catalyst"),
	}, nil
}

// tokenResponse 认证接口响应，不同版本字段大小写不同
type tokenResponse struct {
	Token      string `json:"Token"`
	TokenLower string `json:"token"`
}

// Login 使用用户名密码获取 X-Auth-Token
func (c *HTTPClient) Login(ctx context.Context) error {
	if c.username == "" || c.password == "" {
		return ErrMissingCredentials
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+authTokenPath, nil)
	if err != nil {
		return fmt.Errorf("create request failed: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		apiErr := &APIError{Op: "auth", StatusCode: resp.StatusCode, Body: truncate(body)}
		return fmt.Errorf("%w: %v", ErrUnauthorized, apiErr)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return fmt.Errorf("decode auth response failed: %w", err)
	}
	token := tr.Token
	if token == "" {
		token = tr.TokenLower
	}
	if token == "" {
		return fmt.Errorf("%w: auth succeeded but no token in response", ErrUnauthorized)
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()

	c.log.Debug("Obtained auth token", zap.String("baseURL", c.baseURL))
	return nil
}

func (c *HTTPClient) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// do 发送请求并读取响应体。令牌缺失时先登录；配置了用户名密码时，401 会重新登录并重试一次。
func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values) (int, []byte, error) {
	if c.currentToken() == "" {
		if err := c.Login(ctx); err != nil {
			return 0, nil, err
		}
	}

	status, body, err := c.send(ctx, method, path, query)
	if err != nil {
		return 0, nil, err
	}

	if status == http.StatusUnauthorized && c.username != "" && c.password != "" {
		c.log.Info("Auth token rejected, logging in again", zap.String("path", path))
		if err := c.Login(ctx); err != nil {
			return 0, nil, err
		}
		return c.send(ctx, method, path, query)
	}

	return status, body, nil
}

func (c *HTTPClient) send(ctx context.Context, method, path string, query url.Values) (int, []byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set(authTokenHeader, c.currentToken())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s request failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response failed: %w", err)
	}

	c.log.Debug("Catalyst Center request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode))

	return resp.StatusCode, body, nil
}

// envelope Catalyst Center 通用响应包装 {"response": ..., "version": ...}
type envelope struct {
	Response json.RawMessage `json:"response"`
}

// unwrap 返回 response 字段；没有包装时返回整个响应体
func unwrap(body []byte) json.RawMessage {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && len(env.Response) > 0 && string(env.Response) != "null" {
		return env.Response
	}
	return body
}

// ListImages 获取镜像仓库中的全部镜像
// GET /dna/intent/api/v1/image/importation
func (c *HTTPClient) ListImages(ctx context.Context) ([]models.ImageRecord, error) {
	status, body, err := c.do(ctx, http.MethodGet, importationPath, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &APIError{Op: "list images", StatusCode: status, Body: truncate(body)}
	}

	var raws []map[string]any
	dec := json.NewDecoder(bytes.NewReader(unwrap(body)))
	dec.UseNumber()
	if err := dec.Decode(&raws); err != nil {
		return nil, fmt.Errorf("decode image list failed: %w", err)
	}

	images := make([]models.ImageRecord, 0, len(raws))
	for _, raw := range raws {
		images = append(images, normalizeRecord(raw))
	}

	c.log.Info("Fetched image inventory", zap.Int("count", len(images)))
	return images, nil
}

// taskIDResponse 异步操作返回的任务信息
type taskIDResponse struct {
	TaskID string `json:"taskId"`
	URL    string `json:"url"`
}

func parseTaskID(body []byte) string {
	var tr taskIDResponse
	if err := json.Unmarshal(unwrap(body), &tr); err != nil {
		return ""
	}
	return tr.TaskID
}

// DeleteImage 删除镜像。主路径不存在（404/405）且启用了旧版路径时，回退到 /image/{id}。
func (c *HTTPClient) DeleteImage(ctx context.Context, imageID string) (string, error) {
	paths := []string{importationPath + "/" + url.PathEscape(imageID)}
	if c.legacyDelete {
		paths = append(paths, legacyImagePath+"/"+url.PathEscape(imageID))
	}

	var lastErr error
	for _, path := range paths {
		status, body, err := c.do(ctx, http.MethodDelete, path, nil)
		if err != nil {
			return "", err
		}

		switch status {
		case http.StatusOK, http.StatusAccepted:
			return parseTaskID(body), nil
		case http.StatusNoContent:
			return "", nil
		}

		lastErr = &APIError{Op: "delete image", StatusCode: status, Body: truncate(body)}
		if status != http.StatusNotFound && status != http.StatusMethodNotAllowed {
			break
		}
		c.log.Debug("Delete path unavailable, trying next",
			zap.String("path", path),
			zap.Int("status", status))
	}

	return "", lastErr
}

// RemoveGoldenTag 移除 golden 标记
// DELETE /dna/intent/api/v1/image/importation/golden/site/{siteId}/family/{familyId}/role/{role}/image/{imageId}
func (c *HTTPClient) RemoveGoldenTag(ctx context.Context, scope models.UnlockScope, imageID string) (string, error) {
	path := fmt.Sprintf("%s/golden/site/%s/family/%s/role/%s/image/%s",
		importationPath,
		url.PathEscape(scope.SiteID),
		url.PathEscape(scope.DeviceFamilyIdentifier),
		url.PathEscape(scope.DeviceRole),
		url.PathEscape(imageID))

	status, body, err := c.do(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return "", err
	}

	switch status {
	case http.StatusOK, http.StatusAccepted:
		return parseTaskID(body), nil
	case http.StatusNoContent:
		return "", nil
	}
	return "", &APIError{Op: "remove golden tag", StatusCode: status, Body: truncate(body)}
}

// taskResponse GET /task/{taskId} 响应
type taskResponse struct {
	Progress      string          `json:"progress"`
	IsError       json.RawMessage `json:"isError"`
	FailureReason string          `json:"failureReason"`
	EndTime       json.RawMessage `json:"endTime"`
}

// GetTaskStatus 查询任务状态
// GET /dna/intent/api/v1/task/{taskId}
func (c *HTTPClient) GetTaskStatus(ctx context.Context, taskID string) (TaskStatus, error) {
	status, body, err := c.do(ctx, http.MethodGet, taskPath+"/"+url.PathEscape(taskID), nil)
	if err != nil {
		return TaskStatus{}, err
	}
	if status == http.StatusUnauthorized {
		return TaskStatus{}, &APIError{Op: "get task", StatusCode: status, Body: truncate(body)}
	}
	if status != http.StatusOK {
		apiErr := &APIError{Op: "get task", StatusCode: status, Body: truncate(body)}
		return TaskStatus{}, fmt.Errorf("%w: %v", ErrMalformedResponse, apiErr)
	}

	return parseTaskStatus(body)
}

// parseTaskStatus 解析任务状态：isError / failureReason 表示失败，
// progress 含完成关键字或存在 endTime 表示成功，其余视为运行中
func parseTaskStatus(body []byte) (TaskStatus, error) {
	raw := unwrap(body)
	if len(raw) == 0 || raw[0] != '{' {
		return TaskStatus{}, fmt.Errorf("%w: task response is not an object", ErrMalformedResponse)
	}

	var tr taskResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return TaskStatus{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if truthy(tr.IsError) || tr.FailureReason != "" {
		reason := tr.FailureReason
		if reason == "" {
			reason = tr.Progress
		}
		if reason == "" {
			reason = "task reported error"
		}
		return TaskStatus{State: TaskFailed, Reason: reason}, nil
	}

	progress := strings.ToLower(tr.Progress)
	for _, k := range []string{"completed", "success", "done"} {
		if strings.Contains(progress, k) {
			return TaskStatus{State: TaskSucceeded}, nil
		}
	}
	if present(tr.EndTime) {
		return TaskStatus{State: TaskSucceeded}, nil
	}

	return TaskStatus{State: TaskRunning}, nil
}

func truthy(raw json.RawMessage) bool {
	s := strings.Trim(strings.ToLower(string(raw)), `" `)
	return s == "true"
}

func present(raw json.RawMessage) bool {
	s := strings.Trim(string(raw), `" `)
	return s != "" && s != "null" && s != "0"
}

func truncate(body []byte) string {
	if len(body) > maxErrorBodySize {
		return string(body[:maxErrorBodySize]) + "..."
	}
	return string(body)
}
