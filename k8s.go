package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
)

const saTokenPath = "/var/run/secrets/kubernetes.io/serviceaccount/token"

// K8sClient is a minimal in-cluster Kubernetes API client, just enough to
// locate the Minecraft server pod and stream its logs.
type K8sClient struct {
	namespace string
	client    *http.Client
}

func NewK8sClient(namespace string) *K8sClient {
	return &K8sClient{
		namespace: namespace,
		client: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
	}
}

// FindPod returns the name of the first pod matching the label selector.
func (k *K8sClient) FindPod(ctx context.Context, labelSelector string) (string, error) {
	url := fmt.Sprintf("%s/api/v1/namespaces/%s/pods?labelSelector=%s&limit=1",
		k.apiBase(), k.namespace, labelSelector)

	resp, err := k.do(ctx, url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result struct {
		Items []struct {
			Metadata struct {
				Name string `json:"name"`
			} `json:"metadata"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode pod list: %w", err)
	}
	if len(result.Items) == 0 {
		return "", fmt.Errorf("no pods found with label %s", labelSelector)
	}
	return result.Items[0].Metadata.Name, nil
}

// StreamLogs opens a follow-mode log stream for the named pod. The caller
// owns the returned body.
func (k *K8sClient) StreamLogs(ctx context.Context, podName string) (io.ReadCloser, error) {
	url := fmt.Sprintf("%s/api/v1/namespaces/%s/pods/%s/log?follow=true&sinceSeconds=10",
		k.apiBase(), k.namespace, podName)

	resp, err := k.do(ctx, url)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (k *K8sClient) do(ctx context.Context, url string) (*http.Response, error) {
	token, err := os.ReadFile(saTokenPath)
	if err != nil {
		return nil, fmt.Errorf("read sa token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+string(token))

	resp, err := k.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("kubernetes api: %s %s", resp.Status, string(body))
	}
	return resp, nil
}

func (k *K8sClient) apiBase() string {
	host := os.Getenv("KUBERNETES_SERVICE_HOST")
	port := os.Getenv("KUBERNETES_SERVICE_PORT")
	if host == "" || port == "" {
		return "https://kubernetes.default.svc"
	}
	return fmt.Sprintf("https://%s:%s", host, port)
}
