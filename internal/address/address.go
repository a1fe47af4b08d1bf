// Package address resolves Brazilian postal codes (CEP) to street addresses.
package address

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"

	"pizzaria/internal/model"

	"github.com/rs/zerolog"
)

// Resolver looks up a postal code.
type Resolver interface {
	Lookup(ctx context.Context, cep string) (*model.LookupResult, error)
}

// viaCEPResponse is the ViaCEP JSON payload. Erro is a bool in the current
// API and the string "true" in older deployments.
type viaCEPResponse struct {
	CEP        string          `json:"cep"`
	Logradouro string          `json:"logradouro"`
	Bairro     string          `json:"bairro"`
	Localidade string          `json:"localidade"`
	UF         string          `json:"uf"`
	Erro       json.RawMessage `json:"erro,omitempty"`
}

func (r viaCEPResponse) notFound() bool {
	switch strings.Trim(strings.TrimSpace(string(r.Erro)), `"`) {
	case "true":
		return true
	}
	return false
}

// viaCEPClient implements Resolver against the ViaCEP web service.
type viaCEPClient struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// NewViaCEPClient creates a resolver for the ViaCEP API rooted at baseURL.
func NewViaCEPClient(baseURL string, timeout time.Duration, logger zerolog.Logger) Resolver {
	return &viaCEPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "cep").Logger(),
	}
}

// Clean strips every non-digit from a postal code.
func Clean(cep string) string {
	var b strings.Builder
	for _, r := range cep {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Lookup resolves cep. Codes that are not 8 digits after cleaning, and codes
// the service does not know, fail with an invalid postal code error.
func (c *viaCEPClient) Lookup(ctx context.Context, cep string) (*model.LookupResult, error) {
	cleaned := Clean(cep)
	if len(cleaned) != 8 {
		return nil, model.InvalidPostalCodeError(cep)
	}

	url := fmt.Sprintf("%s/ws/%s/json/", c.baseURL, cleaned)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build CEP request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("cep", cleaned).Msg("CEP lookup failed")
		return nil, lookupFailed(err)
	}
	defer resp.Body.Close()

	// ViaCEP answers 400 for malformed codes.
	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound {
		return nil, model.InvalidPostalCodeError(cep)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Int("status", resp.StatusCode).Str("cep", cleaned).Msg("unexpected CEP service status")
		return nil, lookupFailed(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var body viaCEPResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, lookupFailed(fmt.Errorf("failed to decode CEP response: %w", err))
	}
	if body.notFound() {
		c.logger.Debug().Str("cep", cleaned).Msg("CEP not found")
		return nil, model.InvalidPostalCodeError(cep)
	}

	postalCode := body.CEP
	if postalCode == "" {
		postalCode = cleaned
	}

	return &model.LookupResult{
		PostalCode:   postalCode,
		Street:       body.Logradouro,
		Neighborhood: body.Bairro,
		City:         body.Localidade,
		State:        body.UF,
	}, nil
}

// lookupFailed classifies a transport failure as an invalid postal code so the
// customer can fall back to typing the address.
func lookupFailed(err error) error {
	return &model.DomainError{
		Code:    model.ErrCodeInvalidPostalCode,
		Message: "postal code lookup failed",
		Err:     err,
	}
}
