package utils

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig tunes InitLogger: level, encoding, and an optional destination
// beyond stderr.
type LogConfig struct {
	Level       string // debug, info, warn, error, fatal (default info)
	Format      string // "json" or "text" (default json)
	Output      string // file path; empty means stderr only
	Development bool   // enables zap's development defaults (caller, stacktrace on warn)
}

// Logger wraps *zap.Logger with the domain-specific field constructors
// below, plus a cached SugaredLogger for printf-style call sites.
type Logger struct {
	*zap.Logger
	sugar *zap.SugaredLogger
}

// InitLogger builds a Logger from cfg. An invalid or unwritable Output
// falls back to stderr rather than failing construction — a logging
// misconfiguration should never be the reason the scan loop can't start.
func InitLogger(cfg LogConfig) *Logger {
	format := cfg.Format
	if format == "" {
		format = "json"
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.MessageKey = "message"

	var encoder zapcore.Encoder
	if format == "text" {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	writer := zapcore.AddSync(os.Stderr)
	if cfg.Output != "" {
		f, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err == nil {
			writer = zapcore.AddSync(f)
		}
	}

	core := zapcore.NewCore(encoder, writer, parseLevel(cfg.Level))

	var opts []zap.Option
	if cfg.Development {
		opts = append(opts, zap.Development(), zap.AddCaller(), zap.AddStacktrace(zapcore.WarnLevel))
	}

	z := zap.New(core, opts...)
	return &Logger{Logger: z, sugar: z.Sugar()}
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug", "DEBUG":
		return zapcore.DebugLevel
	case "info", "INFO", "":
		return zapcore.InfoLevel
	case "warn", "WARN", "warning", "WARNING":
		return zapcore.WarnLevel
	case "error", "ERROR":
		return zapcore.ErrorLevel
	case "fatal", "FATAL":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// With returns a child Logger carrying the given fields on every subsequent
// call, leaving the receiver untouched.
func (l *Logger) With(fields ...zap.Field) *Logger {
	child := l.Logger.With(fields...)
	return &Logger{Logger: child, sugar: child.Sugar()}
}

// WithComponent scopes subsequent log lines to a named subsystem
// ("matcher", "finder", "runner", ...).
func (l *Logger) WithComponent(component string) *Logger {
	return l.With(Component(component))
}

// WithExchange scopes subsequent log lines to one venue. Named WithExchange
// for call-site continuity with the rest of the logging vocabulary below;
// "exchange" here means one of the two trading venues, not a crypto
// exchange.
func (l *Logger) WithExchange(platform string) *Logger {
	return l.With(Exchange(platform))
}

// WithSymbol scopes subsequent log lines to one crypto asset ticker.
func (l *Logger) WithSymbol(asset string) *Logger {
	return l.With(Symbol(asset))
}

// WithPairID scopes subsequent log lines to one matched pair.
func (l *Logger) WithPairID(pairID int) *Logger {
	return l.With(PairID(pairID))
}

// Sugar returns the cached SugaredLogger for printf-style call sites.
func (l *Logger) Sugar() *zap.SugaredLogger {
	return l.sugar
}

// Field constructors. Kept as thin, named wrappers over zap.Field so call
// sites read as domain vocabulary (Exchange("venue_a")) instead of
// zap.String("exchange", "venue_a") repeated everywhere.
func Exchange(platform string) zap.Field   { return zap.String("exchange", platform) }
func Symbol(asset string) zap.Field        { return zap.String("symbol", asset) }
func PairID(pairID int) zap.Field          { return zap.Int("pair_id", pairID) }
func OrderID(orderID string) zap.Field     { return zap.String("order_id", orderID) }
func Price(price float64) zap.Field        { return zap.Float64("price", price) }
func Volume(volume float64) zap.Field      { return zap.Float64("volume", volume) }
func Spread(spread float64) zap.Field      { return zap.Float64("spread", spread) }
func PNL(pnl float64) zap.Field            { return zap.Float64("pnl", pnl) }
func Side(side string) zap.Field           { return zap.String("side", side) }
func State(state string) zap.Field         { return zap.String("state", state) }
func Latency(ms float64) zap.Field         { return zap.Float64("latency_ms", ms) }
func RequestID(requestID string) zap.Field { return zap.String("request_id", requestID) }
func UserID(userID int) zap.Field          { return zap.Int("user_id", userID) }
func Component(component string) zap.Field { return zap.String("component", component) }

// Re-exported field constructors so call sites that only need the stdlib
// field types don't need a separate zap import alongside this package.
func String(key, value string) zap.Field         { return zap.String(key, value) }
func Int(key string, value int) zap.Field        { return zap.Int(key, value) }
func Int64(key string, value int64) zap.Field    { return zap.Int64(key, value) }
func Float64(key string, value float64) zap.Field { return zap.Float64(key, value) }
func Bool(key string, value bool) zap.Field      { return zap.Bool(key, value) }
func Err(err error) zap.Field                    { return zap.Error(err) }
func Any(key string, value interface{}) zap.Field { return zap.Any(key, value) }

func fieldsToInterface(fields []zap.Field) []interface{} {
	out := make([]interface{}, 0, len(fields)*2)
	for _, f := range fields {
		enc := zapcore.NewMapObjectEncoder()
		f.AddTo(enc)
		out = append(out, f.Key, enc.Fields[f.Key])
	}
	return out
}

var (
	globalMu     sync.Mutex
	globalLogger *Logger
)

// GetGlobalLogger returns the process-wide Logger, lazily initializing it
// with default settings on first use.
func GetGlobalLogger() *Logger {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = InitLogger(LogConfig{})
	}
	return globalLogger
}

// InitGlobalLogger builds a Logger from cfg and installs it as the
// process-wide logger, returning it.
func InitGlobalLogger(cfg LogConfig) *Logger {
	logger := InitLogger(cfg)
	SetGlobalLogger(logger)
	return logger
}

// SetGlobalLogger installs logger as the process-wide logger, for tests
// that need to capture output through a scripted core.
func SetGlobalLogger(logger *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = logger
}

// L returns the process-wide Logger. Shorthand for GetGlobalLogger.
func L() *Logger { return GetGlobalLogger() }

func Debug(msg string, fields ...zap.Field) { GetGlobalLogger().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { GetGlobalLogger().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { GetGlobalLogger().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { GetGlobalLogger().Error(msg, fields...) }

func Debugf(template string, args ...interface{}) {
	GetGlobalLogger().sugar.Debugf(template, args...)
}
func Infof(template string, args ...interface{}) {
	GetGlobalLogger().sugar.Infof(template, args...)
}
func Warnf(template string, args ...interface{}) {
	GetGlobalLogger().sugar.Warnf(template, args...)
}
func Errorf(template string, args ...interface{}) {
	GetGlobalLogger().sugar.Errorf(template, args...)
}
