package client

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
)

// CSSClient talks to the managed search cluster service
type CSSClient struct {
	service *serviceClient
}

// Certificate is the HTTPS certificate shared by the clusters of a project
type Certificate struct {
	CertBase64 string `json:"cert_base64,omitempty"`
}

// Decode returns the raw certificate bytes
func (c *Certificate) Decode() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(c.CertBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode certificate: %w", err)
	}
	return data, nil
}

// GetCertificate downloads the HTTPS certificate of the service
func (c *CSSClient) GetCertificate(ctx context.Context) (*Certificate, error) {
	var resp struct {
		CertBase64 string `json:"certBase64"`
	}
	_, err := c.service.do(ctx, request{
		operation: "get certificate",
		method:    http.MethodGet,
		path:      "cer/download",
		ok:        []int{http.StatusOK},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &Certificate{CertBase64: resp.CertBase64}, nil
}
