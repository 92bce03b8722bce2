package server

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/coder/websocket"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"trailhunt/internal/db"
	"trailhunt/internal/discovery"
	"trailhunt/internal/feed"
	"trailhunt/internal/geo"
	"trailhunt/internal/gpx"
	"trailhunt/internal/metrics"
	"trailhunt/internal/scoring"
)

const maxTrackUpload = 16 << 20 // 16 MiB

type Server struct {
	DB        *db.DB
	Discovery *discovery.Service
	Scoring   *scoring.Service
	Feed      *feed.Hub
	UploadDir string
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[HTTP] Encode error: %v\n", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// --- users ---

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	id, err := s.DB.CreateUser(req.Name)
	if err != nil {
		log.Printf("[HTTP] CreateUser error: %v\n", err)
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id, "name": req.Name})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.DB.GetUser(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":     u.ID,
		"name":   u.Name,
		"points": u.Points,
	})
}

func (s *Server) handleUserDiscoveries(w http.ResponseWriter, r *http.Request) {
	events, err := s.Discovery.History(r.PathValue("id"))
	if err != nil {
		log.Printf("[HTTP] ListDiscoveries error: %v\n", err)
		writeError(w, http.StatusInternalServerError, "failed to list discoveries")
		return
	}

	out := make([]map[string]any, 0, len(events))
	for _, ev := range events {
		out = append(out, map[string]any{
			"target_id":      ev.TargetID,
			"target_kind":    ev.TargetKind,
			"points_awarded": ev.PointsAwarded,
			"occurred_at":    ev.OccurredAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"discoveries": out})
}

// --- trails ---

func (s *Server) handleGetTrail(w http.ResponseWriter, r *http.Request) {
	t, err := s.DB.GetTrail(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "trail not found")
		return
	}

	resp := map[string]any{
		"id":   t.ID,
		"name": t.Name,
	}
	if t.DistanceKm.Valid {
		resp["start_point"] = map[string]float64{"lat": t.StartLat.Float64, "lon": t.StartLon.Float64}
		resp["end_point"] = map[string]float64{"lat": t.EndLat.Float64, "lon": t.EndLon.Float64}
		resp["total_distance_km"] = t.DistanceKm.Float64
		resp["elevation_gain_m"] = t.ElevationGainM.Int64
		resp["point_count"] = t.PointCount.Int64
	}
	if t.GeoJSON.Valid {
		resp["geojson"] = json.RawMessage(t.GeoJSON.String)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUploadTrack(w http.ResponseWriter, r *http.Request) {
	trailID := r.PathValue("id")
	if _, err := s.DB.GetTrail(trailID); err != nil {
		writeError(w, http.StatusNotFound, "trail not found")
		return
	}

	if err := r.ParseMultipartForm(maxTrackUpload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, _, err := r.FormFile("track")
	if err != nil {
		writeError(w, http.StatusBadRequest, "track file is required")
		return
	}
	defer file.Close()

	if err := os.MkdirAll(s.UploadDir, 0o755); err != nil {
		log.Printf("[HTTP] MkdirAll error: %v\n", err)
		writeError(w, http.StatusInternalServerError, "failed to store track")
		return
	}
	storedPath := filepath.Join(s.UploadDir, uuid.New().String()+".gpx")
	dst, err := os.Create(storedPath)
	if err != nil {
		log.Printf("[HTTP] Create error: %v\n", err)
		writeError(w, http.StatusInternalServerError, "failed to store track")
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(storedPath)
		writeError(w, http.StatusInternalServerError, "failed to store track")
		return
	}
	dst.Close()

	start := time.Now()
	data, err := os.ReadFile(storedPath)
	if err != nil {
		os.Remove(storedPath)
		writeError(w, http.StatusInternalServerError, "failed to read stored track")
		return
	}

	track, err := gpx.Parse(data)
	if err != nil {
		// The ingestor never touches the filesystem; cleaning up the
		// orphaned upload is this handler's job.
		os.Remove(storedPath)
		switch {
		case errors.Is(err, gpx.ErrEmptyTrack):
			metrics.TrackIngestFailures.WithLabelValues("empty_track").Inc()
			writeError(w, http.StatusBadRequest, "track file contains no points")
		case errors.Is(err, gpx.ErrInvalidFormat):
			metrics.TrackIngestFailures.WithLabelValues("invalid_format").Inc()
			writeError(w, http.StatusBadRequest, "track file is not valid GPX")
		default:
			writeError(w, http.StatusBadRequest, "could not parse track file")
		}
		return
	}

	summary := track.Summary()
	geojson, err := track.LineStringJSON()
	if err != nil {
		os.Remove(storedPath)
		log.Printf("[HTTP] LineStringJSON error: %v\n", err)
		writeError(w, http.StatusInternalServerError, "failed to serialize geometry")
		return
	}

	stats := db.TrackStats{
		StartLat: summary.Start.Lat, StartLon: summary.Start.Lon,
		EndLat: summary.End.Lat, EndLon: summary.End.Lon,
		DistanceKm:     summary.TotalDistanceKm,
		ElevationGainM: summary.ElevationGainM,
		PointCount:     summary.PointCount,
	}
	if err := s.DB.UpdateTrailTrack(trailID, storedPath, stats, geojson); err != nil {
		os.Remove(storedPath)
		log.Printf("[HTTP] UpdateTrailTrack error: %v\n", err)
		writeError(w, http.StatusInternalServerError, "failed to save track summary")
		return
	}
	metrics.TrackIngestDuration.Observe(time.Since(start).Seconds())
	log.Printf("[HTTP] Trail %s track ingested: %.2fkm, %dm gain, %d points\n",
		trailID, summary.TotalDistanceKm, summary.ElevationGainM, summary.PointCount)

	waypoints := make([]map[string]any, 0, len(track.Points))
	for _, p := range track.Points {
		wp := map[string]any{"lat": p.Lat, "lon": p.Lon}
		if p.Elevation != nil {
			wp["ele"] = *p.Elevation
		}
		if p.Time != nil {
			wp["time"] = p.Time.Format(time.RFC3339)
		}
		if p.Name != "" {
			wp["name"] = p.Name
		}
		waypoints = append(waypoints, wp)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"start_point":       map[string]float64{"lat": summary.Start.Lat, "lon": summary.Start.Lon},
		"end_point":         map[string]float64{"lat": summary.End.Lat, "lon": summary.End.Lon},
		"waypoints":         waypoints,
		"total_distance_km": summary.TotalDistanceKm,
		"elevation_gain_m":  summary.ElevationGainM,
		"geojson":           json.RawMessage(geojson),
	})
}

// --- claims ---

type scanRequest struct {
	UserID  string `json:"user_id"`
	QRToken string `json:"qr_token"`
}

func claimResponse(res *discovery.ClaimResult) map[string]any {
	return map[string]any{
		"is_new_event":   res.IsNewEvent,
		"points_awarded": res.PointsAwarded,
		"target": map[string]any{
			"id":     res.Target.ID,
			"kind":   res.Target.Kind,
			"name":   res.Target.Name,
			"points": res.Target.Points,
		},
	}
}

func (s *Server) publishDiscovery(res *discovery.ClaimResult, userID string) {
	if !res.IsNewEvent {
		return
	}
	s.Feed.Broadcast(feed.Event{
		Type:       "discovery",
		UserID:     userID,
		TargetID:   res.Target.ID,
		TargetKind: res.Target.Kind,
		TargetName: res.Target.Name,
		Points:     res.PointsAwarded,
	})
}

func (s *Server) handleScanPOI(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || req.QRToken == "" {
		writeError(w, http.StatusBadRequest, "user_id and qr_token are required")
		return
	}

	res, err := s.Discovery.ClaimPOI(req.UserID, req.QRToken)
	if err != nil {
		s.writeClaimError(w, err)
		return
	}
	s.publishDiscovery(res, req.UserID)
	writeJSON(w, http.StatusOK, claimResponse(res))
}

func (s *Server) handleScanItem(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || req.QRToken == "" {
		writeError(w, http.StatusBadRequest, "user_id and qr_token are required")
		return
	}

	res, progress, err := s.Discovery.ClaimHuntItem(req.UserID, req.QRToken)
	if err != nil {
		s.writeClaimError(w, err)
		return
	}
	s.publishDiscovery(res, req.UserID)

	resp := claimResponse(res)
	resp["total_items_found"] = progress.Found
	resp["total_items_in_hunt"] = progress.Total
	resp["hunt_complete"] = progress.Complete
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTreasureFound(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string  `json:"user_id"`
		Lat    float64 `json:"lat"`
		Lon    float64 `json:"lon"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id, lat and lon are required")
		return
	}

	res, err := s.Discovery.ClaimTreasure(req.UserID, r.PathValue("id"), geo.Point{Lat: req.Lat, Lon: req.Lon})
	if errors.Is(err, discovery.ErrOutOfRange) {
		// A rejected claim is a normal outcome, not a server error.
		writeJSON(w, http.StatusOK, map[string]any{
			"in_range":       false,
			"is_new_event":   false,
			"points_awarded": 0,
		})
		return
	}
	if err != nil {
		s.writeClaimError(w, err)
		return
	}
	s.publishDiscovery(res, req.UserID)

	resp := claimResponse(res)
	resp["in_range"] = true
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeClaimError(w http.ResponseWriter, err error) {
	if errors.Is(err, discovery.ErrTargetNotFound) {
		writeError(w, http.StatusNotFound, "target not found")
		return
	}
	log.Printf("[HTTP] Claim error: %v\n", err)
	writeError(w, http.StatusInternalServerError, "claim failed")
}

func (s *Server) handleHuntProgress(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	progress, err := s.Discovery.HuntProgress(userID, r.PathValue("id"))
	if err != nil {
		log.Printf("[HTTP] HuntProgress error: %v\n", err)
		writeError(w, http.StatusInternalServerError, "failed to compute progress")
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

// --- quizzes ---

func (s *Server) handleQuizSubmit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID     string                    `json:"user_id"`
		Answers    []scoring.SubmittedAnswer `json:"answers"`
		TimeTakenS *int                      `json:"time_taken_s"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id and answers are required")
		return
	}

	res, err := s.Scoring.Submit(req.UserID, r.PathValue("id"), req.Answers, req.TimeTakenS)
	if err != nil {
		if errors.Is(err, scoring.ErrQuizNotFound) {
			writeError(w, http.StatusNotFound, "quiz not found")
			return
		}
		log.Printf("[HTTP] Quiz submit error: %v\n", err)
		writeError(w, http.StatusInternalServerError, "failed to grade quiz")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"score":                res.RawScore,
		"max_score":            res.MaxScore,
		"passed":               res.Passed,
		"points_awarded":       res.PointsAwarded,
		"per_question_results": res.Questions,
	})
}

// --- feed / health ---

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Printf("[Feed] Accept error: %v\n", err)
		return
	}

	client := &feed.Client{
		ID:   uuid.New().String(),
		Conn: conn,
		Send: make(chan []byte, 32),
	}
	s.Feed.Register(client)
	defer s.Feed.Unregister(client.ID)

	// Spectator-only socket: discard reads, push discoveries until the
	// client goes away.
	ctx := conn.CloseRead(r.Context())
	client.WritePump(ctx)
	conn.Close(websocket.StatusNormalClosure, "")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if err := s.DB.Ping(); err != nil {
		status = "db_error"
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, `{"status":"%s","error":"%s"}`, status, err.Error())
		return
	}
	fmt.Fprintf(w, `{"status":"%s"}`, status)
}
