package codec_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/wisbric/watchdog/internal/codec"
	"github.com/wisbric/watchdog/internal/watchmodel"
)

func TestHealthCheckRoundTrip(t *testing.T) {
	mediaType := "application/json"
	cases := []watchmodel.HealthCheck{
		{},
		{
			Name:               "hc1",
			ServiceName:        "fabric:/App/Service",
			Partition:          uuid.New(),
			Endpoint:           "listener1",
			SuffixPath:         "api/values",
			Method:             "POST",
			Content:            []byte(`{"ping":true}`),
			MediaType:          &mediaType,
			Frequency:          45 * time.Second,
			Headers:            map[string]string{"X-Foo": "bar", "X-Baz": "qux"},
			WarningStatusCodes: map[int]struct{}{400: {}, 401: {}},
			ErrorStatusCodes:   map[int]struct{}{500: {}},
			LastAttempt:        watchmodel.Now(),
			FailureCount:       3,
			ResultCode:         200,
			Duration:           123,
		},
		{
			Name:        "no-partition",
			ServiceName: "fabric:/App/Other",
			SuffixPath:  "health",
			Frequency:   time.Minute,
		},
	}

	for i, want := range cases {
		encoded := codec.EncodeHealthCheck(want)
		got, err := codec.DecodeHealthCheck(encoded)
		if err != nil {
			t.Fatalf("case %d: decode error: %v", i, err)
		}
		if got.Name != want.Name ||
			got.ServiceName != want.ServiceName ||
			got.Partition != want.Partition ||
			got.Endpoint != want.Endpoint ||
			got.SuffixPath != want.SuffixPath ||
			!reflect.DeepEqual(got.Content, want.Content) ||
			!reflect.DeepEqual(got.MediaType, want.MediaType) ||
			!reflect.DeepEqual(got.Headers, want.Headers) ||
			!reflect.DeepEqual(got.WarningStatusCodes, want.WarningStatusCodes) ||
			!reflect.DeepEqual(got.ErrorStatusCodes, want.ErrorStatusCodes) ||
			got.FailureCount != want.FailureCount ||
			got.ResultCode != want.ResultCode ||
			got.Duration != want.Duration {
			t.Errorf("case %d: round trip mismatch: want %+v, got %+v", i, want, got)
		}
	}
}

func TestScheduledItemRoundTrip(t *testing.T) {
	want := watchmodel.ScheduledItem{ExecutionTicks: watchmodel.Now(), Key: "/App/Service/"}
	encoded := codec.EncodeScheduledItem(want)
	got, err := codec.DecodeScheduledItem(encoded)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if got != want {
		t.Errorf("round trip mismatch: want %+v, got %+v", want, got)
	}
}

func TestMetricCheckRoundTrip(t *testing.T) {
	cases := []watchmodel.MetricCheck{
		{Application: "App"},
		{Application: "App", Service: "Svc"},
		{Application: "App", Service: "Svc", Partition: "p1", MetricNames: []string{"cpu", "mem"}},
	}
	for i, want := range cases {
		encoded := codec.EncodeMetricCheck(want)
		got, err := codec.DecodeMetricCheck(encoded)
		if err != nil {
			t.Fatalf("case %d: decode error: %v", i, err)
		}
		if got.Application != want.Application ||
			got.Service != want.Service ||
			got.Partition != want.Partition ||
			!reflect.DeepEqual(got.MetricNames, want.MetricNames) {
			t.Errorf("case %d: round trip mismatch: want %+v, got %+v", i, want, got)
		}
	}
}

func TestDecodeIgnoresUnknownTags(t *testing.T) {
	base := codec.EncodeHealthCheck(watchmodel.HealthCheck{Name: "hc", ServiceName: "fabric:/A/B", SuffixPath: "x", Frequency: time.Minute})
	// Append a bogus future-schema field; decoding must still succeed.
	future := append(append([]byte{}, base...), 0xFF, 0xFE, 0, 0, 0, 2, 'h', 'i')
	got, err := codec.DecodeHealthCheck(future)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if got.Name != "hc" {
		t.Errorf("expected name to survive, got %q", got.Name)
	}
}
