package httputil

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/central-university-dev/go-nats-updater/internal/config"
)

// RestyDoer пропускает запросы *http.Request через resty, чтобы на них работали
// повторы и circuit breaker. Подходит как tgbotapi.HTTPClient.
type RestyDoer struct {
	restyClient *resty.Client
}

func NewRestyDoer(restyClient *resty.Client) *RestyDoer {
	return &RestyDoer{
		restyClient: restyClient,
	}
}

func NewTelegramHTTPClient(cfg *config.Config, logger *slog.Logger) *RestyDoer {
	return NewRestyDoer(CreateResilientHTTPClient(cfg, logger, "telegram"))
}

func (d *RestyDoer) Do(req *http.Request) (*http.Response, error) {
	restyReq := d.restyClient.R().SetContext(req.Context())

	for key, values := range req.Header {
		for _, value := range values {
			restyReq.SetHeader(key, value)
		}
	}

	// Тело читается целиком, иначе повторный запрос ушёл бы пустым.
	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		req.Body.Close()

		if err != nil {
			return nil, fmt.Errorf("ошибка чтения тела запроса: %w", err)
		}

		restyReq.SetBody(body)
	}

	resp, err := restyReq.Execute(req.Method, req.URL.String())
	if err != nil {
		return nil, err
	}

	httpResp := resp.RawResponse
	if httpResp != nil {
		httpResp.Body = io.NopCloser(bytes.NewReader(resp.Body()))
	}

	return httpResp, nil
}
