package middleware

import "github.com/gin-gonic/gin"

// NoStore stops browsers and proxies from caching responses. Applied to the
// enrolment key routes, whose payloads are per-student.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Header("Pragma", "no-cache")
		c.Next()
	}
}
