// Package logger builds log/slog loggers with functional options and a
// handler decorator that adds request-scoped attributes from context.
//
//	log := logger.New(
//		logger.WithEnvironment(cfg.AppEnv, "portal"),
//		logger.WithLevelName(cfg.LogLevel),
//		logger.WithContextExtractors(tenant.LoggerExtractor()),
//	)
//
// Records logged inside an active tenant scope then carry the tenant id and
// routing key. Attribute helpers such as Error, TenantID and Step keep key
// names consistent across packages.
package logger
