package requestctx

import (
	"context"
	"testing"
)

func TestRequestContextValues(t *testing.T) {
	ctx := WithClientIP(WithRequestID(context.Background(), "req-1"), "10.0.0.7")
	if got := GetRequestID(ctx); got != "req-1" {
		t.Fatalf("expected req-1, got %q", got)
	}
	if got := GetClientIP(ctx); got != "10.0.0.7" {
		t.Fatalf("expected 10.0.0.7, got %q", got)
	}
	if GetRequestID(context.Background()) != "" || GetClientIP(context.Background()) != "" {
		t.Fatal("expected empty values on bare context")
	}
}
