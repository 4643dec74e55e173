package bili

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/yumeka/bili2tg/internal/domain"
)

type qrIssueResponse struct {
	Code    *int64 `json:"code"`
	Message string `json:"message"`
	Data    struct {
		URL       string `json:"url"`
		QRCodeKey string `json:"qrcode_key"`
	} `json:"data"`
}

// IssueQRChallenge requests a one-time scannable login challenge.
func (c *Client) IssueQRChallenge(ctx context.Context) (domain.QRChallenge, error) {
	endpoint := c.api.PassportURL + "/x/passport-login/web/qrcode/generate"

	var payload qrIssueResponse
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return domain.QRChallenge{}, fmt.Errorf("issue qr challenge: %w", err)
	}
	if payload.Code == nil {
		return domain.QRChallenge{}, errors.New("issue qr challenge: response missing code")
	}
	if *payload.Code != 0 {
		return domain.QRChallenge{}, fmt.Errorf("issue qr challenge: platform code %d: %s", *payload.Code, payload.Message)
	}
	if payload.Data.URL == "" || payload.Data.QRCodeKey == "" {
		return domain.QRChallenge{}, errors.New("issue qr challenge: response missing url or qrcode_key")
	}

	return domain.QRChallenge{URL: payload.Data.URL, PollKey: payload.Data.QRCodeKey}, nil
}

type qrPollResponse struct {
	Data *struct {
		Code    *int64 `json:"code"`
		Message string `json:"message"`
	} `json:"data"`
}

// PollQRChallenge asks whether the challenge has been scanned and confirmed.
// On confirmation the session credential is carried in the response's
// Set-Cookie headers, not the JSON body.
func (c *Client) PollQRChallenge(ctx context.Context, pollKey string) (domain.QRPollResult, error) {
	endpoint := fmt.Sprintf("%s/x/passport-login/web/qrcode/poll?qrcode_key=%s",
		c.api.PassportURL, url.QueryEscape(pollKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.QRPollResult{}, fmt.Errorf("poll qr challenge: create request: %w", err)
	}

	resp, err := c.snapshot().httpc.Do(req)
	if err != nil {
		return domain.QRPollResult{}, fmt.Errorf("poll qr challenge: request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	credential := cookieFragment(resp.Header)

	var payload qrPollResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err != nil {
		return domain.QRPollResult{}, fmt.Errorf("poll qr challenge: decode response: %w", err)
	}
	if payload.Data == nil || payload.Data.Code == nil {
		return domain.QRPollResult{}, errors.New("poll qr challenge: response missing data.code")
	}

	result := domain.QRPollResult{Code: *payload.Data.Code, Message: payload.Data.Message}
	if result.Code == domain.QRPollConfirmed {
		if credential == "" {
			return domain.QRPollResult{}, errors.New("poll qr challenge: confirmed response carried no session cookie")
		}
		result.Credential = credential
	}

	return result, nil
}

// cookieFragment joins the name=value part of every Set-Cookie header into
// the form the platform expects back in a Cookie header.
func cookieFragment(header http.Header) string {
	var b strings.Builder
	for _, setCookie := range header.Values("Set-Cookie") {
		if i := strings.Index(setCookie, ";"); i >= 0 {
			setCookie = setCookie[:i]
		}
		setCookie = strings.TrimSpace(setCookie)
		if setCookie == "" {
			continue
		}
		b.WriteString(setCookie)
		b.WriteString("; ")
	}
	return b.String()
}

type navResponse struct {
	Code    *int64 `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Mid *int64 `json:"mid"`
	} `json:"data"`
}

// WhoAmI runs the liveness probe against the nav endpoint and returns the
// authenticated account id. A well-formed non-zero code means the credential
// is not (or no longer) valid; malformed responses are hard errors.
func (c *Client) WhoAmI(ctx context.Context) (int64, error) {
	var payload navResponse
	if err := c.getJSON(ctx, c.api.BaseURL+"/x/web-interface/nav", &payload); err != nil {
		return 0, fmt.Errorf("liveness probe: %w", err)
	}
	if payload.Code == nil {
		return 0, errors.New("liveness probe: response missing code")
	}
	if *payload.Code != 0 {
		return 0, fmt.Errorf("liveness probe: platform code %d (%s): %w",
			*payload.Code, payload.Message, domain.ErrNotAuthenticated)
	}
	if payload.Data.Mid == nil {
		return 0, errors.New("liveness probe: response missing data.mid")
	}

	return *payload.Data.Mid, nil
}
