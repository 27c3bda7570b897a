package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/carveframework/carve/pkg/config"
)

type httpProbe struct {
	spec config.CheckSpec
}

func (p *httpProbe) Execute(ctx context.Context, host string, deadline time.Time) (Result, error) {
	method := p.spec.Method
	if method == "" {
		method = http.MethodGet
	}

	url := fmt.Sprintf("http://%s%s", host, p.spec.URL)

	var body io.Reader
	contentType := "application/json"
	if p.spec.Body != "" {
		body = strings.NewReader(p.spec.Body)
		if method == http.MethodPost {
			contentType = "application/x-www-form-urlencoded"
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return Result{}, err
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}

	client := &http.Client{Timeout: time.Until(deadline)}
	resp, err := client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, err
	}

	wantCode := p.spec.ExpectedCode
	if wantCode == 0 {
		wantCode = p.spec.Code
	}
	codeOK := resp.StatusCode == wantCode

	regexOK := true
	if p.spec.Regex != "" {
		re, err := regexp.Compile(p.spec.Regex)
		if err != nil {
			return Result{}, err
		}
		regexOK = re.Match(respBody)
	}

	success := codeOK && regexOK
	message := fmt.Sprintf("HTTP %s %s -> %d (want %d), body match: %v", method, url, resp.StatusCode, wantCode, regexOK)
	return Result{Success: success, Message: message}, nil
}
