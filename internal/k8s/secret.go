package k8s

import (
	"context"
	"fmt"

	"github.com/uc-package/swimctl/internal/models"
	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	// Secret 中的凭据字段
	SecretKeyUsername = "username"
	SecretKeyPassword = "password"
	SecretKeyToken    = "token"
	SecretKeyBaseURL  = "baseURL"
)

// LoadCatalystCredentials 从 Secret 读取 Catalyst Center 凭据并覆盖到配置中，
// Secret 中不存在的字段保持原值
func (c *Client) LoadCatalystCredentials(ctx context.Context, ref models.SecretRef, config *models.CatalystConfig) error {
	if ref.Name == "" {
		return fmt.Errorf("credentials secret name is required")
	}
	namespace := ref.Namespace
	if namespace == "" {
		namespace = "default"
	}

	secret, err := c.clientset.CoreV1().Secrets(namespace).Get(ctx, ref.Name, metav1.GetOptions{})
	if err != nil {
		if errors.IsNotFound(err) {
			return fmt.Errorf("credentials secret %s/%s not found", namespace, ref.Name)
		}
		return fmt.Errorf("failed to get secret %s/%s: %w", namespace, ref.Name, err)
	}

	read := func(key string) string {
		if v, ok := secret.Data[key]; ok && len(v) > 0 {
			return string(v)
		}
		return secret.StringData[key]
	}

	if v := read(SecretKeyBaseURL); v != "" {
		config.BaseURL = v
	}
	if v := read(SecretKeyUsername); v != "" {
		config.Username = v
	}
	if v := read(SecretKeyPassword); v != "" {
		config.Password = v
	}
	if v := read(SecretKeyToken); v != "" {
		config.Token = v
	}

	c.log.Info("Loaded Catalyst Center credentials from secret",
		zap.String("namespace", namespace),
		zap.String("name", ref.Name))
	return nil
}
