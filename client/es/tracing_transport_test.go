package es_test

import (
	"errors"
	"io/ioutil"
	"net/http"
	"strings"
	"testing"

	"hirehall/client/es"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/opentracing/opentracing-go/mocktracer"
	. "github.com/onsi/gomega"
)

type stubTransport struct {
	res *http.Response
	err error
}

func (t stubTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return t.res, t.err
}

func buildTracedRequest(tracer opentracing.Tracer) *http.Request {
	span := tracer.StartSpan("search clients")
	req, _ := http.NewRequest(http.MethodGet, "http://es.local:9200/clients/_search", nil)
	return req.WithContext(opentracing.ContextWithSpan(req.Context(), span))
}

func TestTracingTransport(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should return the transport error instead of touching a nil response", func(t *testing.T) {
		tracer := mocktracer.New()
		connErr := errors.New("dial tcp: connection refused")
		transport := &es.TracingTransport{Transport: stubTransport{err: connErr}}

		res, err := transport.RoundTrip(buildTracedRequest(tracer))
		Expect(res).To(BeNil())
		Expect(err).To(Equal(connErr))

		spans := tracer.FinishedSpans()
		Expect(len(spans)).To(Equal(1))
		Expect(spans[0].Tag(string(ext.Error))).To(Equal(true))
	})

	t.Run("should tag the child span with the response status", func(t *testing.T) {
		tracer := mocktracer.New()
		transport := &es.TracingTransport{Transport: stubTransport{res: &http.Response{
			StatusCode: http.StatusOK, Body: ioutil.NopCloser(strings.NewReader("{}"))}}}

		res, err := transport.RoundTrip(buildTracedRequest(tracer))
		Expect(err).To(BeNil())
		Expect(res.StatusCode).To(Equal(http.StatusOK))

		spans := tracer.FinishedSpans()
		Expect(len(spans)).To(Equal(1))
		Expect(spans[0].OperationName).To(Equal("GET /clients/_search"))
		Expect(spans[0].Tag(string(ext.HTTPStatusCode))).To(Equal(uint16(http.StatusOK)))
		Expect(spans[0].Tag(string(ext.Error))).To(Equal(false))
	})

	t.Run("should pass through untraced requests", func(t *testing.T) {
		transport := &es.TracingTransport{Transport: stubTransport{res: &http.Response{
			StatusCode: http.StatusOK, Body: ioutil.NopCloser(strings.NewReader("{}"))}}}

		req, _ := http.NewRequest(http.MethodGet, "http://es.local:9200/clients/_search", nil)
		res, err := transport.RoundTrip(req)
		Expect(err).To(BeNil())
		Expect(res.StatusCode).To(Equal(http.StatusOK))
	})
}
