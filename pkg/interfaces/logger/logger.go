package logger

type Logger interface {
	Error(err error, text, serviceName, sessionID string)
	Info(text, serviceName, sessionID string)
	Debug(text, serviceName, sessionID string)
}
