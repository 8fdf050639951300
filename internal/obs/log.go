package obs

import (
	"encoding/json"
	"log"
	"os"
	"sync"
)

var (
	loggerOnce sync.Once
	logger     *log.Logger
)

// Logger returns the shared line-oriented logger. Everything structured
// (request logs, audit events) serializes to JSON and goes through it,
// so tests can redirect one sink.
func Logger() *log.Logger {
	loggerOnce.Do(func() {
		logger = log.New(os.Stdout, "", 0)
	})
	return logger
}

// LogRequest emits one JSON line for a completed HTTP request. A
// marshal failure must never take a request down with it, so it
// degrades to a plain error line.
func LogRequest(entry map[string]any) {
	data, err := json.Marshal(entry)
	if err != nil {
		Logger().Printf(`{"level":"error","msg":"request log marshal failed","error":%q}`, err.Error())
		return
	}
	Logger().Println(string(data))
}
