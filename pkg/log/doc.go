/*
Package log provides structured logging for the render farm built on zerolog.

Call Init once at startup, then use the package helpers or derive child
loggers with WithComponent, WithJobID, WithNodeID or WithClientID:

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})
	logger := log.WithComponent("scheduler")
	logger.Info().Str("job_id", job.ID).Msg("job assigned")
*/
package log
