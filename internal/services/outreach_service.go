package services

import (
	"coldcall-api/internal/logger"
	"coldcall-api/internal/metrics"
	"coldcall-api/internal/models"
	apperrors "coldcall-api/internal/pkg/errors"
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const maxServiceDescription = 2000

// OutreachService runs user actions end to end: gate, search, probe, record,
// script generation and export. It owns the per-session state.
type OutreachService struct {
	gate     UsageGate
	search   SearchService
	probe    WebsiteProbe
	scripts  ScriptGenerator
	sessions SessionStore
	metrics  *metrics.Metrics
	now      func() time.Time
}

// SessionStore is the subset of repository.SessionRepository the service
// needs.
type SessionStore interface {
	Get(identity string) models.Session
	Update(identity string, fn func(s *models.Session)) models.Session
	Delete(identity string)
}

func NewOutreachService(
	gate UsageGate,
	search SearchService,
	probe WebsiteProbe,
	scripts ScriptGenerator,
	sessions SessionStore,
	m *metrics.Metrics,
) *OutreachService {
	return &OutreachService{
		gate:     gate,
		search:   search,
		probe:    probe,
		scripts:  scripts,
		sessions: sessions,
		metrics:  m,
		now:      time.Now,
	}
}

// Search gates, searches, optionally probes websites and records the rows
// that are shown. Rows are reserved against today's allowance in one step
// and rows beyond the grant are dropped. A refused or failed search records
// nothing.
func (s *OutreachService) Search(ctx context.Context, identity string, params models.SearchParams) (*models.SearchResult, error) {
	params.Location = strings.TrimSpace(params.Location)
	params.Category = strings.TrimSpace(params.Category)
	if params.Location == "" {
		return nil, apperrors.InvalidInput("Location is required")
	}
	if params.Category == "" {
		return nil, apperrors.InvalidInput("Business category is required")
	}
	if params.Filters.MinRating < 0 || params.Filters.MinRating > 5 {
		return nil, apperrors.InvalidInput("Minimum rating must be between 0 and 5")
	}

	decision := s.gate.Check(identity)
	if !decision.Allowed() {
		logger.LogEvent(logrus.InfoLevel, "Search blocked by usage gate", logrus.Fields{
			"identity": identity,
			"outcome":  decision.Outcome,
			"count":    decision.Count,
		})
		return nil, apperrors.RateLimited(blockedMessage(decision))
	}

	businesses, err := s.search.Search(ctx, params)
	if err != nil {
		return nil, err
	}
	demo := s.search.Demo()

	rows := models.NewResultRows(businesses)
	if params.Filters.LiveWebsiteOnly {
		rows = FilterLive(s.probe.CheckAll(ctx, rows))
	}

	total := len(rows)
	truncated := false
	if !demo {
		var granted int
		granted, decision = s.gate.Reserve(identity, len(rows))
		if granted == 0 && total > 0 {
			return nil, apperrors.RateLimited(blockedMessage(decision))
		}
		if granted < len(rows) {
			rows = rows[:granted]
			truncated = true
		}
	}

	if params.VerifyWebsites && !params.Filters.LiveWebsiteOnly {
		rows = s.probe.CheckAll(ctx, rows)
	}

	entry := models.SearchHistoryEntry{
		ID:        uuid.New(),
		Timestamp: s.now(),
		Location:  params.Location,
		Category:  params.Category,
		RadiusKm:  params.ClampedRadiusKm(),
		Count:     len(rows),
	}
	s.sessions.Update(identity, func(sess *models.Session) {
		sess.Results = rows
		sess.LastCategory = params.Category
		sess.History = append([]models.SearchHistoryEntry{entry}, sess.History...)
		if len(sess.History) > models.MaxSearchHistory {
			sess.History = sess.History[:models.MaxSearchHistory]
		}
	})

	logger.LogEvent(logrus.InfoLevel, "Search completed", logrus.Fields{
		"identity":  identity,
		"location":  params.Location,
		"category":  params.Category,
		"radius_km": params.ClampedRadiusKm(),
		"total":     total,
		"shown":     len(rows),
		"truncated": truncated,
		"demo":      demo,
	})

	return &models.SearchResult{
		Rows:      rows,
		Total:     total,
		Shown:     len(rows),
		Truncated: truncated,
		Decision:  decision,
		Demo:      demo,
	}, nil
}

// GenerateScript writes a script for one business from the current results
// and stores it on that row. Generation is gated but not counted.
func (s *OutreachService) GenerateScript(ctx context.Context, identity, placeID string) (models.ResultRow, error) {
	decision := s.gate.Check(identity)
	if !decision.Allowed() {
		return models.ResultRow{}, apperrors.RateLimited(blockedMessage(decision))
	}

	sess := s.sessions.Get(identity)
	if strings.TrimSpace(sess.ServiceDescription) == "" {
		return models.ResultRow{}, apperrors.InvalidInput("Describe the service you offer before generating scripts")
	}

	idx := findRow(sess.Results, placeID)
	if idx < 0 {
		return models.ResultRow{}, apperrors.NotFound("That business is not in your current results")
	}
	row := sess.Results[idx]

	script, err := s.scripts.Generate(ctx, models.ScriptRequest{
		ServiceDescription: sess.ServiceDescription,
		SearchCategory:     sess.LastCategory,
		Business:           row.Business,
	})
	if err != nil {
		return models.ResultRow{}, err
	}

	row.Script = script
	s.sessions.Update(identity, func(sess *models.Session) {
		if i := findRow(sess.Results, placeID); i >= 0 {
			sess.Results[i].Script = script
		}
	})
	return row, nil
}

// SetServiceDescription stores what the user sells. It applies to every
// later script until changed.
func (s *OutreachService) SetServiceDescription(identity, description string) (models.Session, error) {
	description = strings.TrimSpace(description)
	if len(description) > maxServiceDescription {
		return models.Session{}, apperrors.InvalidInput("Service description is too long")
	}
	return s.sessions.Update(identity, func(sess *models.Session) {
		sess.ServiceDescription = description
	}), nil
}

func (s *OutreachService) Session(identity string) models.Session {
	return s.sessions.Get(identity)
}

// ClearResults forgets the current result rows. Usage already recorded is
// not refunded.
func (s *OutreachService) ClearResults(identity string) models.Session {
	return s.sessions.Update(identity, func(sess *models.Session) {
		sess.Results = nil
	})
}

// EndSession forgets everything stored for the identity. Today's usage
// count is kept.
func (s *OutreachService) EndSession(identity string) {
	s.sessions.Delete(identity)
	logger.LogEvent(logrus.InfoLevel, "Session ended", logrus.Fields{"identity": identity})
}

// Export renders the current results as CSV together with a download name.
func (s *OutreachService) Export(identity string) ([]byte, string, error) {
	sess := s.sessions.Get(identity)
	data, err := ExportRows(sess.Results)
	if err != nil {
		return nil, "", apperrors.Wrap(err, "Could not build the CSV export")
	}
	s.metrics.Export()
	return data, ExportFilename(s.now()), nil
}

func (s *OutreachService) Usage(identity string) models.Decision {
	return s.gate.Stats(identity)
}

func (s *OutreachService) DemoMode() (search, scripts bool) {
	return s.search.Demo(), s.scripts.Demo()
}

// blockedMessage leads with the gate reason so callers can match on it.
func blockedMessage(d models.Decision) string {
	if d.Outcome == models.Denied {
		return d.Reason + ": all " + strconv.Itoa(d.Limit) + " contacts for today are used. Please come back tomorrow."
	}
	return d.Reason + ": please slow down and try again in a few minutes."
}

func findRow(rows []models.ResultRow, placeID string) int {
	for i, r := range rows {
		if r.Business.PlaceID == placeID {
			return i
		}
	}
	return -1
}
