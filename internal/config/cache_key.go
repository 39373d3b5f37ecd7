package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionStartKey returns the cache key for a submission's start time
func (r *CacheKeyStruct) SessionStartKey(examID, studentID string) string {
	return fmt.Sprintf("student:%s:exam:%s:session_start", studentID, examID)
}

// ExamPayloadKey returns the cache key for an exam's cached payload
func (r *CacheKeyStruct) ExamPayloadKey(examID string) string {
	return fmt.Sprintf("exam:%s:payload", examID)
}

// ProctoringChannel returns the Redis PubSub channel for a session's live
// integrity event stream
func (r *CacheKeyStruct) ProctoringChannel(examID, studentID string) string {
	return fmt.Sprintf("proctoring:%s:%s:events", examID, studentID)
}

var CacheKey = NewCacheKeyStruct()
