package finitemutsel

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

//NewLogger will build a production logger at the given level, or a development one when dev is set
func NewLogger(level string, dev bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, configErr("logger", err)
	}
	cfg := zap.NewProductionConfig()
	if dev {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
