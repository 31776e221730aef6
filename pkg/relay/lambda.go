package relay

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
)

// HandleEvent adapts Handle to API Gateway proxy events for lambda.Start.
// The returned error is always nil; failures are carried in the response.
func (h *Handler) HandleEvent(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	resp := h.Handle(ctx, Request{
		Method:          event.HTTPMethod,
		Body:            event.Body,
		IsBase64Encoded: event.IsBase64Encoded,
	})

	return events.APIGatewayProxyResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       resp.Body,
	}, nil
}
