package common

import (
	"github.com/qualichat/qc-backend/internal/config"
	"github.com/qualichat/qc-backend/pkg/httpclient"
	"go.uber.org/zap"
)

func NewBaseConnector(cfg config.HTTPClientConfig, logger *zap.Logger) *httpclient.Connector {
	return httpclient.NewConnector(
		cfg.Url,
		logger,
		httpclient.WithRequestTimeout(cfg.RequestTimeout),
		httpclient.WithConnTimeout(cfg.ConnTimeout),
		httpclient.WithKeepAlive(cfg.KeepAlive),
		httpclient.WithIdleConnTimeout(cfg.IdleConnTimeout),
		httpclient.WithResponseHeaderTimeout(cfg.ResponseHeaderTimeout),
		httpclient.WithRequestLogging(),
		httpclient.WithAuthToken(cfg.Token),
	)
}
