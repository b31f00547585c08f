// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package wolftrace

import (
	"fmt"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// =============================================================================
// Context Keys
// =============================================================================

// requestIDKey is the gin context key holding the request ID.
const requestIDKey = "wolftrace_request_id"

// requestIDHeader is echoed on every response.
const requestIDHeader = "X-Request-ID"

func init() {
	// Report validation failures with JSON or query names rather than Go
	// field names.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(wireFieldName)
	}
}

// RequestID assigns every request an ID, honouring a client-supplied
// X-Request-ID header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(requestIDKey, requestIDFromHeader(c))
		c.Next()
	}
}

func requestIDFromHeader(c *gin.Context) string {
	id := strings.TrimSpace(c.GetHeader(requestIDHeader))
	if id == "" || len(id) > 128 {
		id = uuid.NewString()
	}
	c.Header(requestIDHeader, id)
	return id
}

// RateLimit rejects requests once the handler's limiter is exhausted.
// Without a limiter it is a no-op.
func (h *Handlers) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.limiter == nil {
			c.Next()
			return
		}
		r := h.limiter.Reserve()
		if !r.OK() {
			h.rejectRateLimited(c, 1)
			return
		}
		if delay := r.Delay(); delay > 0 {
			r.Cancel()
			h.rejectRateLimited(c, int(math.Ceil(delay.Seconds())))
			return
		}
		c.Next()
	}
}

func (h *Handlers) rejectRateLimited(c *gin.Context, retryAfter int) {
	if retryAfter < 1 {
		retryAfter = 1
	}
	rateLimited.Inc()
	h.requestLogger(c, "RateLimit").Warn("Rate limit exceeded",
		"path", c.FullPath(), "retry_after", retryAfter)
	c.Header("Retry-After", strconv.Itoa(retryAfter))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
		Error: "Rate limit exceeded",
		Code:  "RATE_LIMITED",
	})
}

// wireFieldName returns the json or form tag name of a struct field.
func wireFieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// fieldPath drops the top-level struct name from a validator namespace,
// giving "updates[0].node_id" rather than "BulkUpdateRequest.updates[0].node_id".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		if unit := lengthUnit(fe.Kind()); unit != "" {
			return fmt.Sprintf("must have at least %s %s", fe.Param(), unit)
		}
		return "must be at least " + fe.Param()
	case "max", "lte":
		if unit := lengthUnit(fe.Kind()); unit != "" {
			return fmt.Sprintf("must have at most %s %s", fe.Param(), unit)
		}
		return "must be at most " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

func lengthUnit(k reflect.Kind) string {
	switch k {
	case reflect.String:
		return "characters"
	case reflect.Slice, reflect.Map:
		return "items"
	}
	return ""
}
