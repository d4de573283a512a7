package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

func HTTPGetWithAuth(ctx context.Context, url, authName, authPswd, authToken string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPGet: %w", err)
	}
	resp, err := doWithAuth(req, authName, authPswd, authToken)
	if err != nil {
		return nil, fmt.Errorf("HTTPGet: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("HTTPGet: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, ErrHTTPStatus{Code: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func doWithAuth(req *http.Request, authName, authPswd, authToken string) (*http.Response, error) {
	if authName != "" {
		req.SetBasicAuth(authName, authPswd)
	}
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	client := http.Client{}
	return client.Do(req)
}
