package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"watchclanbattles/internal/models"
)

const (
	clanBattlesPath      = "/wot/globalmap/clanbattles/"
	provincesPath        = "/wot/globalmap/provinces/"
	clanInfoPath         = "/wot/globalmap/claninfo/"
	plannedBattlesPath   = "/wot/stronghold/plannedbattles/"
	defaultWoTAPIBaseURL = "https://api.worldoftanks.com"
)

// HTTPEventSource reads the Wargaming public API. Requests are paced by a
// token bucket to stay below the application's request quota.
type HTTPEventSource struct {
	BaseURL       string
	ApplicationID string

	httpClient *http.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

type apiResponse struct {
	Status string `json:"status"`
	Meta   struct {
		Count int `json:"count"`
	} `json:"meta"`
	Error *apiError       `json:"error,omitempty"`
	Data  json.RawMessage `json:"data"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field"`
}

// NewHTTPEventSource creates an HTTPEventSource.
// If baseURL is empty, it defaults to the live NA API.
func NewHTTPEventSource(baseURL, applicationID string, requestsPerSecond float64, logger zerolog.Logger) *HTTPEventSource {
	if baseURL == "" {
		baseURL = defaultWoTAPIBaseURL
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &HTTPEventSource{
		BaseURL:       baseURL,
		ApplicationID: applicationID,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		limiter:       rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		logger:        logger,
	}
}

func (s *HTTPEventSource) ClanBattles(ctx context.Context, clanID int64) ([]models.Battle, error) {
	params := url.Values{"clan_id": {strconv.FormatInt(clanID, 10)}}
	resp, err := s.get(ctx, clanBattlesPath, params)
	if err != nil {
		return nil, err
	}
	if resp.Meta.Count == 0 || len(resp.Data) == 0 || string(resp.Data) == "null" {
		s.logger.Info().Msg("No cw battles to process")
		return nil, nil
	}

	var battles []models.Battle
	if err := json.Unmarshal(resp.Data, &battles); err != nil {
		return nil, fmt.Errorf("%w: failed to decode clan battles: %v", ErrHTTP, err)
	}
	for i := range battles {
		battles[i].ID = models.BattleID(battles[i].ProvinceID, battles[i].Time)
	}

	s.logger.Info().Int("count", len(battles)).Msg("Found cw battles to process")
	return battles, nil
}

func (s *HTTPEventSource) ProvinceInfo(ctx context.Context, frontID, provinceID string) (models.Province, error) {
	params := url.Values{"front_id": {frontID}, "province_id": {provinceID}}
	resp, err := s.get(ctx, provincesPath, params)
	if err != nil {
		return models.Province{}, err
	}

	var provinces []models.Province
	if err := json.Unmarshal(resp.Data, &provinces); err != nil {
		return models.Province{}, fmt.Errorf("%w: failed to decode provinces: %v", ErrHTTP, err)
	}
	for _, p := range provinces {
		if p.ID == provinceID {
			return p, nil
		}
	}
	return models.Province{}, fmt.Errorf("province %s not found on front %s", provinceID, frontID)
}

func (s *HTTPEventSource) ClanInfo(ctx context.Context, clanID int64) (models.Clan, error) {
	id := strconv.FormatInt(clanID, 10)
	resp, err := s.get(ctx, clanInfoPath, url.Values{"clan_id": {id}})
	if err != nil {
		return models.Clan{}, err
	}

	var clans map[string]*models.Clan
	if err := json.Unmarshal(resp.Data, &clans); err != nil {
		return models.Clan{}, fmt.Errorf("%w: failed to decode clan info: %v", ErrHTTP, err)
	}
	clan, ok := clans[id]
	if !ok || clan == nil {
		return models.Clan{}, fmt.Errorf("clan %d not found", clanID)
	}
	return *clan, nil
}

func (s *HTTPEventSource) PlannedStrongholdBattles(ctx context.Context, clanID int64) ([]models.StrongholdBattle, error) {
	id := strconv.FormatInt(clanID, 10)
	resp, err := s.get(ctx, plannedBattlesPath, url.Values{"clan_id": {id}})
	if err != nil {
		return nil, err
	}
	if resp.Meta.Count == 0 || len(resp.Data) == 0 || string(resp.Data) == "null" {
		s.logger.Info().Msg("No sh battles to process")
		return nil, nil
	}

	var byClan map[string][]models.StrongholdBattle
	if err := json.Unmarshal(resp.Data, &byClan); err != nil {
		return nil, fmt.Errorf("%w: failed to decode planned battles: %v", ErrHTTP, err)
	}
	return byClan[id], nil
}

// get performs a paced GET and unwraps the API envelope.
func (s *HTTPEventSource) get(ctx context.Context, path string, params url.Values) (*apiResponse, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params.Set("application_id", s.ApplicationID)
	u := s.BaseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	s.logger.Debug().Str("path", path).Msg("Requesting WoT API")
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrHTTP, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrHTTP, path, resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s response: %v", ErrHTTP, path, err)
	}

	if body.Status != "ok" {
		if body.Error != nil {
			return nil, fmt.Errorf("%w: %s: %s (%d, field %q)", ErrUpstreamStatus, path, body.Error.Message, body.Error.Code, body.Error.Field)
		}
		return nil, fmt.Errorf("%w: %s: status %q", ErrUpstreamStatus, path, body.Status)
	}

	return &body, nil
}
