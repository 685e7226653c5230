package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// PassagePayloadKey returns the cache key for a passage with its questions
func (r *CacheKeyStruct) PassagePayloadKey(passageID int64) string {
	return fmt.Sprintf("passage:%d:payload", passageID)
}

// KeyMonitorChannel returns the Redis PubSub channel carrying enrolment key lifecycle events
func (r *CacheKeyStruct) KeyMonitorChannel() string {
	return "enrolment_keys:monitor"
}

var CacheKey = NewCacheKeyStruct()
