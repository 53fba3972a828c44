package util

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ProxyFunc picks the configured proxy by request scheme, falling back to
// the HTTP_PROXY/HTTPS_PROXY/NO_PROXY environment when none is configured
func ProxyFunc(httpProxy, httpsProxy string) (func(*http.Request) (*url.URL, error), error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment, nil
	}

	var httpURL, httpsURL *url.URL
	var err error
	if httpProxy != "" {
		if httpURL, err = url.Parse(httpProxy); err != nil {
			return nil, fmt.Errorf("parse http proxy: %w", err)
		}
	}
	if httpsProxy != "" {
		if httpsURL, err = url.Parse(httpsProxy); err != nil {
			return nil, fmt.Errorf("parse https proxy: %w", err)
		}
	}

	return func(req *http.Request) (*url.URL, error) {
		if req.URL.Scheme == "https" && httpsURL != nil {
			return httpsURL, nil
		}
		if httpURL != nil {
			return httpURL, nil
		}
		return http.ProxyFromEnvironment(req)
	}, nil
}

// NewHTTPClient builds a client with the given timeout and proxies
func NewHTTPClient(timeout time.Duration, httpProxy, httpsProxy string) (*http.Client, error) {
	proxy, err := ProxyFunc(httpProxy, httpsProxy)
	if err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = proxy

	return &http.Client{Timeout: timeout, Transport: transport}, nil
}
