// Command lambda serves the same routes as the HTTP server behind API Gateway
// (REST, payload v1). EventBridge scheduled events trigger one leaderboard
// reconciliation pass instead of the in-process scheduler.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"mock-assessment-service/app"
	"mock-assessment-service/config"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	fiberadapter "github.com/awslabs/aws-lambda-go-api-proxy/fiber"
)

type handler struct {
	app     *app.App
	adapter *fiberadapter.FiberLambda
}

func (h *handler) Invoke(ctx context.Context, raw json.RawMessage) (any, error) {
	var probe struct {
		Source string `json:"source"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if probe.Source == "aws.events" {
		h.app.Sync.RunOnce(ctx)
		return nil, nil
	}

	var req events.APIGatewayProxyRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("decode API Gateway request: %w", err)
	}
	return h.adapter.ProxyWithContext(ctx, req)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ invalid configuration: %v", err)
	}
	a, err := app.Build(context.Background(), cfg)
	if err != nil {
		log.Fatalf("❌ failed to start: %v", err)
	}
	h := &handler{app: a, adapter: fiberadapter.New(a.Fiber)}
	lambda.Start(h.Invoke)
}
