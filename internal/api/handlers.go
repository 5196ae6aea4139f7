package api

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"railwatch/internal/routes"
	"railwatch/internal/types"
)

// crowdWindow is how far back rider reports count toward the consensus.
const crowdWindow = 30 * time.Minute

var jst = time.FixedZone("JST", 9*60*60)

// predictRequest is the body of POST /v1/predictions.
type predictRequest struct {
	RouteID    string `json:"route_id" validate:"required"`
	TargetDate string `json:"target_date" validate:"required,datetime=2006-01-02"`
	TargetTime string `json:"target_time" validate:"omitempty,datetime=15:04"`
}

// reportRequest is the body of POST /v1/routes/{routeID}/reports.
type reportRequest struct {
	Report types.ConsensusState `json:"report" validate:"required,oneof=normal delayed crowded stopped"`
}

// routeInfo is one entry of GET /v1/routes.
type routeInfo struct {
	RouteID            string  `json:"route_id"`
	Name               string  `json:"name"`
	WindThreshold      float64 `json:"wind_threshold_ms"`
	SnowThreshold      float64 `json:"snow_threshold_cmh"`
	VulnerabilityScore float64 `json:"vulnerability_score"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	JSON(w, r, http.StatusOK, APIResponse{Data: map[string]any{
		"status":  "ok",
		"service": s.cfg.Service,
		"time":    time.Now().In(jst).Format(time.RFC3339),
	}})
}

// handlePredict runs one full evaluation: fetch the forecast, the operator
// announcement, and the rider consensus, score them, persist the outcome, and
// publish telemetry and alerts. Only the forecast is mandatory; the live
// sources degrade to absence.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	var req predictRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		Error(w, r, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField, "invalid prediction request: "+err.Error(), err))
		return
	}
	routeName, ok := routes.DisplayNames[req.RouteID]
	if !ok {
		Error(w, r, types.NewAppError(types.ErrCodeValidationInvalidRoute, "unknown route: "+req.RouteID, nil))
		return
	}

	now := time.Now()
	targetTime := req.TargetTime
	if targetTime == "" {
		targetTime = now.In(jst).Format("15:04")
	}

	weather, err := s.weather.FetchHourly(ctx, req.RouteID, req.TargetDate, targetTime)
	if err != nil {
		Error(w, r, err)
		return
	}

	input := &types.PredictionInput{
		RouteID:    req.RouteID,
		RouteName:  routeName,
		TargetDate: req.TargetDate,
		TargetTime: targetTime,
		Weather:    weather,
	}

	// Live sources only describe the present; they apply to today's target.
	if req.TargetDate == now.In(jst).Format("2006-01-02") {
		if s.operator != nil {
			official, err := s.operator.Fetch(ctx, req.RouteID, now)
			if err != nil {
				s.logger.WarnContext(ctx, "operator status unavailable", "route_id", req.RouteID, "error", err)
			} else {
				input.Official = official
			}
		}
		if s.crowd != nil {
			crowd, err := s.crowd.Aggregate(ctx, req.RouteID, crowdWindow, now)
			if err != nil {
				s.logger.WarnContext(ctx, "crowd aggregation unavailable", "route_id", req.RouteID, "error", err)
			} else {
				input.Crowd = crowd
			}
		}
	}

	result := s.engine.Evaluate(input, now)

	prevStatus := types.StateNormal
	if s.predictions != nil {
		if prev, err := s.predictions.Latest(ctx, req.RouteID, req.TargetDate); err == nil {
			prevStatus = prev.Status
		}
		if err := s.predictions.Insert(ctx, result); err != nil {
			s.logger.ErrorContext(ctx, "failed to persist prediction", "route_id", req.RouteID, "error", err)
		}
	}

	s.metrics.RecordPrediction(ctx, result)
	s.metrics.RecordLatency(ctx, req.RouteID, time.Since(start))

	if s.alerts != nil {
		if err := s.alerts.Dispatch(ctx, prevStatus, result); err != nil {
			s.logger.ErrorContext(ctx, "failed to dispatch suspension alert", "route_id", req.RouteID, "error", err)
		}
	}

	JSON(w, r, http.StatusOK, APIResponse{Data: result})
}

// handleWeekly returns one prediction per forecast day for a route.
func (s *Server) handleWeekly(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	routeID := chi.URLParam(r, "routeID")
	routeName, ok := routes.DisplayNames[routeID]
	if !ok {
		Error(w, r, types.NewAppError(types.ErrCodeValidationInvalidRoute, "unknown route: "+routeID, nil))
		return
	}

	daily, err := s.weather.FetchDaily(ctx, routeID)
	if err != nil {
		Error(w, r, err)
		return
	}

	now := time.Now()
	var official *types.OfficialStatus
	var crowd *types.CrowdsourcedStatus
	if s.operator != nil {
		if st, err := s.operator.Fetch(ctx, routeID, now); err == nil {
			official = st
		} else {
			s.logger.WarnContext(ctx, "operator status unavailable", "route_id", routeID, "error", err)
		}
	}
	if s.crowd != nil {
		if cs, err := s.crowd.Aggregate(ctx, routeID, crowdWindow, now); err == nil {
			crowd = cs
		} else {
			s.logger.WarnContext(ctx, "crowd aggregation unavailable", "route_id", routeID, "error", err)
		}
	}

	results := s.engine.EvaluateWeekly(routeID, routeName, daily, official, crowd, nil, now)
	JSON(w, r, http.StatusOK, APIResponse{Data: results})
}

// handleListRoutes returns the covered routes with their thresholds, sorted
// by route ID for a stable response.
func (s *Server) handleListRoutes(w http.ResponseWriter, r *http.Request) {
	out := make([]routeInfo, 0, len(routes.DisplayNames))
	for routeID, name := range routes.DisplayNames {
		vuln := routes.Lookup(routeID)
		out = append(out, routeInfo{
			RouteID:            routeID,
			Name:               name,
			WindThreshold:      vuln.WindThreshold,
			SnowThreshold:      vuln.SnowThreshold,
			VulnerabilityScore: vuln.VulnerabilityScore,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RouteID < out[j].RouteID })

	JSON(w, r, http.StatusOK, APIResponse{Data: out})
}

// handleHistory returns recent persisted predictions for a route.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	routeID := chi.URLParam(r, "routeID")
	if _, ok := routes.DisplayNames[routeID]; !ok {
		Error(w, r, types.NewAppError(types.ErrCodeValidationInvalidRoute, "unknown route: "+routeID, nil))
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 100 {
			Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField, "limit must be an integer between 1 and 100", err))
			return
		}
		limit = v
	}

	logs, err := s.predictions.ListRecent(r.Context(), routeID, limit)
	if err != nil {
		Error(w, r, err)
		return
	}

	JSON(w, r, http.StatusOK, APIResponse{Data: logs})
}

// handleReport records one rider report and returns the refreshed consensus.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	routeID := chi.URLParam(r, "routeID")
	if _, ok := routes.DisplayNames[routeID]; !ok {
		Error(w, r, types.NewAppError(types.ErrCodeValidationInvalidRoute, "unknown route: "+routeID, nil))
		return
	}

	var req reportRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		Error(w, r, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField, "invalid report: "+err.Error(), err))
		return
	}

	now := time.Now()
	if err := s.crowd.Insert(ctx, routeID, req.Report, now); err != nil {
		Error(w, r, err)
		return
	}

	status, err := s.crowd.Aggregate(ctx, routeID, crowdWindow, now)
	if err != nil {
		Error(w, r, err)
		return
	}

	JSON(w, r, http.StatusCreated, APIResponse{Data: status})
}
