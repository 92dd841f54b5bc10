package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/uc-package/swimctl/internal/models"
)

// ConfigResponse 对外展示的配置，不包含任何凭据
type ConfigResponse struct {
	BaseURL        string               `json:"baseURL"`
	Insecure       bool                 `json:"insecure"`
	HasCredentials bool                 `json:"hasCredentials"`
	LegacyDelete   bool                 `json:"legacyDelete"`
	Filter         models.FilterConfig  `json:"filter"`
	Unlock         models.UnlockConfig  `json:"unlock"`
	Polling        models.PollingConfig `json:"polling"`
	Run            models.RunConfig     `json:"run"`
	AuthEnabled    bool                 `json:"authEnabled"`
}

// ConfigHandler 配置处理器
type ConfigHandler struct {
	config *models.Config
}

// NewConfigHandler 创建配置处理器
func NewConfigHandler(config *models.Config) *ConfigHandler {
	return &ConfigHandler{
		config: config,
	}
}

// GetConfig 获取当前生效的配置（已脱敏）
func (h *ConfigHandler) GetConfig(c *gin.Context) {
	cc := h.config.Catalyst
	response := ConfigResponse{
		BaseURL:        cc.BaseURL,
		Insecure:       cc.Insecure,
		HasCredentials: cc.Token != "" || (cc.Username != "" && cc.Password != ""),
		LegacyDelete:   cc.LegacyDelete,
		Filter:         h.config.Filter,
		Unlock:         h.config.Unlock,
		Polling:        h.config.Polling,
		Run:            h.config.Run,
		AuthEnabled:    h.config.Server.JWTSecret != "" || len(h.config.Server.APIKeys) > 0,
	}

	c.JSON(http.StatusOK, response)
}
