package service

// Logger is the structured logger services depend on. utils.KVLogger adapts zap to it.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}
