package middleware

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	appLogger *log.Logger
)

// InitLogger initializes the file-based logging system
// Logs are saved in the logs folder as a single app.log file
func InitLogger(logDir string) error {
	absLogDir, err := filepath.Abs(logDir)
	if err != nil {
		absLogDir = logDir
	}

	if err := os.MkdirAll(absLogDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory %s: %w", absLogDir, err)
	}

	currentDate := time.Now().Format("2006-01-02")

	appLogFile := &lumberjack.Logger{
		Filename:   filepath.Join(absLogDir, fmt.Sprintf("app-%s.log", currentDate)),
		MaxSize:    10, // 10 MB
		MaxBackups: 30, // Keep 30 old files
		MaxAge:     30, // 30 days
		Compress:   true,
		LocalTime:  true,
	}

	appLogger = log.New(io.MultiWriter(os.Stdout, appLogFile), "", log.LstdFlags)

	log.SetOutput(io.MultiWriter(os.Stdout, appLogFile))
	log.SetFlags(log.LstdFlags)

	appLogger.Printf("[INFO] Logger initialized, log directory: %s", absLogDir)
	appLogger.Printf("[INFO] Log file: app-%s.log", currentDate)

	return nil
}

// LogInfo logs info level messages
func LogInfo(format string, v ...interface{}) {
	if appLogger != nil {
		appLogger.Printf("[INFO] "+format, v...)
	} else {
		log.Printf("[INFO] "+format, v...)
	}
}

// LogError logs error level messages
func LogError(format string, v ...interface{}) {
	if appLogger != nil {
		appLogger.Printf("[ERROR] "+format, v...)
	} else {
		log.Printf("[ERROR] "+format, v...)
	}
}

// LogDebug logs debug level messages
func LogDebug(format string, v ...interface{}) {
	if appLogger != nil {
		appLogger.Printf("[DEBUG] "+format, v...)
	} else {
		log.Printf("[DEBUG] "+format, v...)
	}
}

// RequestLoggerMiddleware logs all incoming requests
// For GET requests: logs only the full URL with query parameters
// For other requests: logs basic info (full logging handled by GateLoggerMiddleware)
func RequestLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		fullURL := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			fullURL = fullURL + "?" + c.Request.URL.RawQuery
		}

		c.Next()

		latency := time.Since(startTime)
		statusCode := c.Writer.Status()

		// Log format: METHOD URL | status | latency
		if statusCode >= 400 {
			LogError("%s %s | status=%d | latency=%v",
				c.Request.Method, fullURL, statusCode, latency)
		} else {
			LogInfo("%s %s | status=%d | latency=%v",
				c.Request.Method, fullURL, statusCode, latency)
		}
	}
}

// GateLoggerMiddleware logs complete request details for state-changing
// gate operations: position open/close, ops toggles, secret updates.
// Records the full URL with query, relevant headers, and body.
func GateLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		var bodyBytes []byte
		if c.Request.Body != nil {
			bodyBytes, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		}

		fullURL := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			fullURL = fullURL + "?" + c.Request.URL.RawQuery
		}

		relevantHeaders := []string{
			"Idempotency-Key",
			"Authorization",
			"Content-Type",
		}

		var headerParts []string
		for _, h := range relevantHeaders {
			if val := c.GetHeader(h); val != "" {
				// Mask credentials (show first 12 chars only)
				if h == "Authorization" && len(val) > 16 {
					val = val[:12] + "***"
				}
				headerParts = append(headerParts, fmt.Sprintf("%s: %s", h, val))
			}
		}
		headersStr := "{}"
		if len(headerParts) > 0 {
			headersStr = fmt.Sprintf("{%s}", strings.Join(headerParts, ", "))
		}

		bodyStr := string(bodyBytes)
		if bodyStr == "" {
			bodyStr = "(empty)"
		} else if len(bodyStr) > 1000 {
			bodyStr = bodyStr[:1000] + "..."
		}

		LogInfo("====== GATE REQUEST ======")
		LogInfo("TIME: %s", startTime.Format("2006-01-02 15:04:05.000"))
		LogInfo("URL: %s %s", c.Request.Method, fullURL)
		LogInfo("HEADERS: %s", headersStr)
		LogInfo("BODY: %s", bodyStr)

		c.Next()

		latency := time.Since(startTime)
		statusCode := c.Writer.Status()
		LogInfo("RESPONSE: status=%d | latency=%v", statusCode, latency)
		LogInfo("==========================")
	}
}
