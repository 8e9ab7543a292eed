package logutil

// Ensure the concrete loggers satisfy LoggerInterface.
var (
	_ LoggerInterface = (*SlogLogger)(nil)
	_ LoggerInterface = (*Logger)(nil)
	_ LoggerInterface = (*SanitizingLogger)(nil)
	_ LoggerInterface = (*SecretDetectingLogger)(nil)
)
