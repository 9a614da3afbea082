// Package wasvc implements the guardian notification channels.
package wasvc

import (
	"context"
	"net/http"
	"net/url"

	"github.com/sendgrid/rest"

	"github.com/trezcool/siabdul/core/dispatch"
)

type gatewayClient struct {
	client *rest.Client
}

var _ dispatch.Gateway = (*gatewayClient)(nil)

func NewGatewayClient(httpClient *http.Client) dispatch.Gateway {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &gatewayClient{client: &rest.Client{HTTPClient: httpClient}}
}

// Send posts one form-encoded message. Any non-2xx response is a transport error.
func (gw *gatewayClient) Send(ctx context.Context, endpoint, credential, target, message string) error {
	form := url.Values{}
	form.Set("target", target)
	form.Set("message", message)
	headers := map[string]string{"Content-Type": "application/x-www-form-urlencoded"}
	if credential != "" {
		form.Set("Authorization", credential)
		headers["Authorization"] = credential
	}

	res, err := gw.client.SendWithContext(ctx, rest.Request{
		Method:  rest.Post,
		BaseURL: endpoint,
		Headers: headers,
		Body:    []byte(form.Encode()),
	})
	if err != nil {
		return &dispatch.GatewayTransportError{Err: err}
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return &dispatch.GatewayTransportError{StatusCode: res.StatusCode}
	}
	return nil
}
