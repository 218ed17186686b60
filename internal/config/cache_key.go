package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// StudentTokenKey holds the JTI of the only token a student may use.
func (r *CacheKeyStruct) StudentTokenKey(studentID string) string {
	return fmt.Sprintf("login:%s", studentID)
}

// ExamMonitorChannel returns the Redis PubSub channel name for an exam monitor
func (r *CacheKeyStruct) ExamMonitorChannel(examID string) string {
	return fmt.Sprintf("exam:%s:monitor", examID)
}

// MonitorPattern matches the monitor channels of every exam.
func (r *CacheKeyStruct) MonitorPattern() string {
	return "exam:*:monitor"
}

// ReportAttemptsKey counts failed integrity report builds for a session.
func (r *CacheKeyStruct) ReportAttemptsKey(sessionID string) string {
	return fmt.Sprintf("session:%s:report_attempts", sessionID)
}

// RateLimitKey counts requests from one IP in one window of a limiter scope.
func (r *CacheKeyStruct) RateLimitKey(scope, ip, window string) string {
	return fmt.Sprintf("ratelimit:%s:%s:%s", scope, ip, window)
}

var CacheKey = NewCacheKeyStruct()
