package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"f1-pass-storefront/internal/models"
)

// TeamQuery filters team sections; zero values are omitted
type TeamQuery struct {
	OrganiserID int64
	Year        int
}

// TeamService reads the F1 team sections shown on the home page
type TeamService struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewTeamService creates a new team service
func NewTeamService(baseURL string, timeout time.Duration, logger *zap.Logger) *TeamService {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &TeamService{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// FetchTeamSections returns the sections matching query. Backend failures
// yield an empty list.
func (s *TeamService) FetchTeamSections(ctx context.Context, query TeamQuery) []models.F1TeamSection {
	endpoint := s.baseURL + "/f1-team-sections"
	params := url.Values{}
	if query.OrganiserID != 0 {
		params.Set("organiser_id", strconv.FormatInt(query.OrganiserID, 10))
	}
	if query.Year != 0 {
		params.Set("year", strconv.Itoa(query.Year))
	}
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return []models.F1TeamSection{}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("team sections request failed", zap.Error(err))
		return []models.F1TeamSection{}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return []models.F1TeamSection{}
	}

	var body struct {
		Data []models.F1TeamSection `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Data == nil {
		return []models.F1TeamSection{}
	}
	return body.Data
}
