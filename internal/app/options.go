package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mealpoint/loyalty/internal/config"
	"github.com/mealpoint/loyalty/internal/logger"

	"go.uber.org/zap"
)

// Mode 运行模式
type Mode string

const (
	ModeAll    Mode = "all"
	ModeAPI    Mode = "api"
	ModeWorker Mode = "worker"
)

func (m Mode) servesAPI() bool  { return m == ModeAll || m == ModeAPI }
func (m Mode) runsWorker() bool { return m == ModeAll || m == ModeWorker }

// Options 应用启动选项
type Options struct {
	Config          *config.Config
	Logger          *zap.SugaredLogger
	Signals         []os.Signal
	ShutdownTimeout time.Duration
	Mode            Mode
}

// ParseMode 校验运行模式，空值视为 all
func ParseMode(raw string) (Mode, error) {
	switch mode := Mode(strings.ToLower(strings.TrimSpace(raw))); mode {
	case "":
		return ModeAll, nil
	case ModeAll, ModeAPI, ModeWorker:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want all, api or worker)", raw)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.Logger == nil {
		opts.Logger = logger.S()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultStopTimeout
	}
	if opts.Mode == "" {
		opts.Mode = ModeAll
	}
	return opts
}
