package neural

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/require"
)

func TestProcessHTTPSuccess(t *testing.T) {
	client := &Client{apiURL: "http://bridge.local", timeout: defaultTimeout, httpClient: &http.Client{}}
	httpmock.ActivateNonDefault(client.httpClient)
	defer httpmock.DeactivateAndReset()

	req := Request{Action: "render", RequestID: "req-1", Model: "acestep-v1", InputPath: "in.wav", OutputPath: "out.wav"}

	httpmock.RegisterResponder(http.MethodPost, "http://bridge.local/process",
		func(r *http.Request) (*http.Response, error) {
			var got Request
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			require.Equal(t, req.RequestID, got.RequestID)
			return httpmock.NewJsonResponse(http.StatusOK, Response{
				Success:   true,
				RequestID: req.RequestID,
				ToolUsed:  "acestep-v1",
				NeuralChanges: &NeuralChanges{
					OutputPath:           "out.wav",
					ProcessingTimeMS:     120,
					IntentionalArtifacts: []string{"tape_hiss"},
				},
			})
		})

	resp, err := client.processHTTP(context.Background(), req)
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.Equal(t, "acestep-v1", resp.ToolUsed)
	require.Contains(t, resp.NeuralChanges.IntentionalArtifacts, "tape_hiss")
}

func TestProcessHTTPServerError(t *testing.T) {
	client := &Client{apiURL: "http://bridge.local", timeout: defaultTimeout, httpClient: &http.Client{}}
	httpmock.ActivateNonDefault(client.httpClient)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, "http://bridge.local/process",
		httpmock.NewStringResponder(http.StatusServiceUnavailable, "model warming up"))

	_, err := client.processHTTP(context.Background(), Request{RequestID: "req-2"})
	require.Error(t, err)
}
