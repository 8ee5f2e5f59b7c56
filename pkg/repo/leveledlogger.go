package repo

import "github.com/rs/zerolog"

// zerologAdapter satisfies retryablehttp.LeveledLogger over a zerolog
// logger, so retry attempts land in moss's structured log stream instead
// of retryablehttp's default stdlib logger.
type zerologAdapter struct {
	logger zerolog.Logger
}

func (a zerologAdapter) fields(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields[key] = keysAndValues[i+1]
	}
	return fields
}

func (a zerologAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error().Fields(a.fields(keysAndValues)).Msg(msg)
}

func (a zerologAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info().Fields(a.fields(keysAndValues)).Msg(msg)
}

func (a zerologAdapter) Debug(msg string, keysAndValues ...interface{}) {
	a.logger.Debug().Fields(a.fields(keysAndValues)).Msg(msg)
}

func (a zerologAdapter) Warn(msg string, keysAndValues ...interface{}) {
	a.logger.Warn().Fields(a.fields(keysAndValues)).Msg(msg)
}
