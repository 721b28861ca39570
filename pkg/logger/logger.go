package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

var (
	mu          sync.Mutex
	verboseMode bool
	infoLogger  *log.Logger
	debugLogger *log.Logger
	warnLogger  *log.Logger
	errorLogger *log.Logger
	trace       io.WriteCloser
)

func init() {
	Reset(os.Stdout, os.Stderr)
}

// Reset points informational output at out and warnings/errors at errOut.
// Language server mode passes os.Stderr for both so stdout stays free for
// protocol traffic.
func Reset(out, errOut io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	infoLogger = log.New(out, "", 0)             // No prefix or flags for standard info
	debugLogger = log.New(out, "", 0)            // Debug will get timestamp prefix
	warnLogger = log.New(errOut, "WARNING: ", 0) // Warning prefix
	errorLogger = log.New(errOut, "ERROR: ", 0)  // Error prefix
	trace = nil
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(verbose bool) {
	mu.Lock()
	defer mu.Unlock()
	verboseMode = verbose
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.Lock()
	defer mu.Unlock()
	return verboseMode
}

// OpenTrace truncates the file at path and mirrors every debug, warning and
// error line into it for later tracing. The returned closer detaches the file.
func OpenTrace(path string) (io.Closer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace log %s: %w", path, err)
	}
	mu.Lock()
	trace = f
	mu.Unlock()
	return closerFunc(func() error {
		mu.Lock()
		if trace == f {
			trace = nil
		}
		mu.Unlock()
		return f.Close()
	}), nil
}

type closerFunc func() error

func (c closerFunc) Close() error { return c() }

func getTimestamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

func writeTrace(level, msg string) {
	if trace != nil {
		fmt.Fprintf(trace, "[%s] %s: %s\n", getTimestamp(), level, msg)
	}
}

// Debugf logs a formatted debug message if verbose mode is enabled.
// Includes a timestamp.
func Debugf(format string, v ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	msg := fmt.Sprintf(format, v...)
	writeTrace("DEBUG", msg)
	if verboseMode {
		debugLogger.Printf("[%s] DEBUG: %s", getTimestamp(), msg)
	}
}

// Infof logs a formatted informational message.
func Infof(format string, v ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	infoLogger.Printf(format, v...)
}

// Warnf logs a formatted warning.
func Warnf(format string, v ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	msg := fmt.Sprintf(format, v...)
	writeTrace("WARNING", msg)
	warnLogger.Print(msg)
}

// Errorf logs a formatted error message.
func Errorf(format string, v ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	msg := fmt.Sprintf(format, v...)
	writeTrace("ERROR", msg)
	errorLogger.Print(msg)
}
