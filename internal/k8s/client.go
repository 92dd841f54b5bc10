package k8s

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/uc-package/swimctl/internal/logger"
	"github.com/uc-package/swimctl/internal/models"
	"go.uber.org/zap"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// Client K8s 客户端
type Client struct {
	clientset kubernetes.Interface
	log       *zap.Logger
}

// NewClient 创建新的 K8s 客户端
func NewClient(config *models.KubernetesConfig) (*Client, error) {
	log := logger.Named("k8s")
	var restConfig *rest.Config
	var err error
	var configSource string

	// 优先使用 KUBECONFIG 环境变量
	kubeconfig := os.Getenv("KUBECONFIG")
	if kubeconfig == "" {
		home, _ := os.UserHomeDir()
		kubeconfig = filepath.Join(home, ".kube", "config")
	}

	if _, statErr := os.Stat(kubeconfig); statErr == nil {
		log.Info("Using kubeconfig file", zap.String("path", kubeconfig))
		restConfig, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
		if err != nil {
			log.Error("Failed to build config from kubeconfig", zap.Error(err))
			return nil, err
		}
		configSource = "kubeconfig"
	} else {
		// 使用 InCluster 配置（CronJob 在 Pod 内运行时）
		log.Info("Using in-cluster config")
		restConfig, err = rest.InClusterConfig()
		if err != nil {
			log.Error("Failed to get in-cluster config", zap.Error(err))
			return nil, err
		}
		configSource = "in-cluster"
	}

	if config.DisableProxy {
		log.Debug("Disabling HTTP proxy for K8s client")
		restConfig.Proxy = func(req *http.Request) (*url.URL, error) {
			return nil, nil
		}
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 // 默认 30 秒
	}
	restConfig.Timeout = time.Duration(timeout) * time.Second

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		log.Error("Failed to create K8s clientset", zap.Error(err))
		return nil, err
	}

	// 测试连接（快速失败），只需要 discovery 权限
	if _, err := clientset.Discovery().ServerVersion(); err != nil {
		log.Error("K8s connection test failed", zap.Error(err))
		return nil, fmt.Errorf("kubernetes connection test failed: %w", err)
	}

	log.Info("K8s client initialized successfully",
		zap.String("configSource", configSource),
		zap.Int("timeout", timeout))

	return &Client{
		clientset: clientset,
		log:       log,
	}, nil
}

// NewClientWithClientset 使用已有 clientset 创建客户端（测试中传入 fake clientset）
func NewClientWithClientset(clientset kubernetes.Interface) *Client {
	return &Client{
		clientset: clientset,
		log:       logger.Named("k8s"),
	}
}
