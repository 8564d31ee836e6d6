package tracing

import (
	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
)

// TracingIngress opens a server span per request, named by the matched route
// pattern, and hangs it on the request context so gorm, OSS and elasticsearch
// child spans attach to it.
func TracingIngress() gin.HandlerFunc {
	return func(c *gin.Context) {
		tracer := opentracing.GlobalTracer()
		upstreamCtx, _ := tracer.Extract(opentracing.HTTPHeaders, opentracing.HTTPHeadersCarrier(c.Request.Header))

		name := c.FullPath()
		if name == "" {
			name = c.Request.URL.Path
		}
		serverSpan := tracer.StartSpan(c.Request.Method+" "+name, ext.RPCServerOption(upstreamCtx))
		defer serverSpan.Finish()

		ext.HTTPMethod.Set(serverSpan, c.Request.Method)
		ext.HTTPUrl.Set(serverSpan, c.Request.URL.Path)

		c.Request = c.Request.WithContext(opentracing.ContextWithSpan(c.Request.Context(), serverSpan))
		c.Next()

		ext.HTTPStatusCode.Set(serverSpan, uint16(c.Writer.Status()))
		if c.Writer.Status() >= 500 {
			ext.Error.Set(serverSpan, true)
		}
	}
}
