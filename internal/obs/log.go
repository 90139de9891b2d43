package obs

import (
	"encoding/json"
	"log"
	"os"
	"sync"
)

var (
	logInit sync.Once
	jsonLog *log.Logger
)

// Logger returns the process-wide logger. All service output is JSON lines
// on stdout; callers hand it pre-structured entries.
func Logger() *log.Logger {
	logInit.Do(func() {
		jsonLog = log.New(os.Stdout, "", 0)
	})
	return jsonLog
}

// LogRequest writes entry as a single JSON line. An entry that cannot be
// marshalled is reported with a fixed fallback line rather than dropped.
func LogRequest(entry map[string]any) {
	line, err := json.Marshal(entry)
	if err != nil {
		Logger().Println(`{"level":"error","msg":"unloggable entry"}`)
		return
	}
	Logger().Println(string(line))
}
