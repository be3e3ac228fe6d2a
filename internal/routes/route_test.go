package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshua-takyi/whosin/internal/config"
	"github.com/joshua-takyi/whosin/internal/container"
	"github.com/joshua-takyi/whosin/internal/models"
	"github.com/joshua-takyi/whosin/internal/signature"
)

const testSecret = "route-test-secret"

type apiResponse struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	EventID string          `json:"eventId"`
	Data    json.RawMessage `json:"data"`
	Total   int             `json:"total"`
	Page    int             `json:"page"`
	Limit   int             `json:"limit"`
}

func newTestRouter(t *testing.T, mutate func(*config.Config)) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo, err := models.OpenSQLite(filepath.Join(t.TempDir(), "routes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	cfg := &config.Config{
		Environment:      "test",
		StoreDriver:      config.DriverSQLite,
		RSVPSecret:       testSecret,
		RSVPWindow:       time.Hour,
		SignatureMaxSkew: 5 * time.Minute,
		VoterTokenTTL:    time.Hour,
		RateLimit:        "1000-M",
		CORSOrigins:      []string{"http://localhost:3000"},
	}
	if mutate != nil {
		mutate(cfg)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r, err := SetupRoutes(container.NewContainer(logger, cfg, repo, repo, nil))
	require.NoError(t, err)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any, header http.Header) (int, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var res apiResponse
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res), w.Body.String())
	}
	return w.Code, res
}

func signedEvent(creator string, private bool) models.EventEnvelope {
	payload := models.EventPayload{
		Name:         "Friday raid",
		Date:         "2025-03-31",
		Time:         "20:00",
		Place:        "Discord",
		LocationType: models.LocationOnline,
		Emoji:        "⚔️",
		Private:      private,
	}
	ts := time.Now().UnixMilli()
	return models.EventEnvelope{
		EventData: payload,
		Signature: signature.Sign(payload, ts, creator, []byte(testSecret)),
		Timestamp: ts,
		UserID:    creator,
	}
}

func signedVote(eventID, voter, name string, status models.RSVPStatus) models.VoteEnvelope {
	payload := models.VotePayload{EventID: eventID, DisplayName: name, Status: status}
	ts := time.Now().UnixMilli()
	return models.VoteEnvelope{
		EventData: payload,
		Signature: signature.Sign(payload, ts, voter, []byte(testSecret)),
		Timestamp: ts,
		UserID:    voter,
	}
}

func createEvent(t *testing.T, r http.Handler, creator string, private bool) string {
	t.Helper()
	code, res := doJSON(t, r, http.MethodPost, "/api/v1/events", signedEvent(creator, private), nil)
	require.Equal(t, http.StatusCreated, code, res.Error)
	require.True(t, res.Success)
	require.NotEmpty(t, res.EventID)
	return res.EventID
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateAndFetchEvent(t *testing.T) {
	r := newTestRouter(t, nil)
	id := createEvent(t, r, "creator-1", false)

	code, res := doJSON(t, r, http.MethodGet, "/api/v1/events/"+id, nil, nil)
	require.Equal(t, http.StatusOK, code)
	var view models.EventView
	require.NoError(t, json.Unmarshal(res.Data, &view))
	assert.Equal(t, id, view.Event.ID)
	assert.Equal(t, "creator-1", view.Event.CreatorID)
	assert.False(t, view.Expired)
	assert.InDelta(t, 3600, view.RemainingSeconds, 2)

	code, res = doJSON(t, r, http.MethodGet, "/api/v1/events/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, res.Success)
}

func TestCreateEventBadSignature(t *testing.T) {
	r := newTestRouter(t, nil)
	env := signedEvent("creator-1", false)
	env.EventData.Name = "Tampered"
	code, res := doJSON(t, r, http.MethodPost, "/api/v1/events", env, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, models.ErrInvalidSignature.Error(), res.Error)
}

func TestSubmitRSVPFlow(t *testing.T) {
	r := newTestRouter(t, nil)
	id := createEvent(t, r, "creator-1", false)

	code, res := doJSON(t, r, http.MethodPost, "/api/v1/rsvp", signedVote(id, "voter-alice", "Alice", models.StatusIn), nil)
	require.Equal(t, http.StatusOK, code, res.Error)

	code, _ = doJSON(t, r, http.MethodPost, "/api/v1/rsvp", signedVote(id, "voter-alice", "Alice", models.StatusMaybe), nil)
	require.Equal(t, http.StatusOK, code)

	code, res = doJSON(t, r, http.MethodGet, "/api/v1/events/"+id+"/attendees", nil, nil)
	require.Equal(t, http.StatusOK, code)
	var attendees []models.Attendee
	require.NoError(t, json.Unmarshal(res.Data, &attendees))
	assert.Equal(t, []models.Attendee{{UserID: "voter-alice", Name: "Alice", Status: models.StatusMaybe}}, attendees)
}

func TestSubmitRSVPErrors(t *testing.T) {
	r := newTestRouter(t, nil)
	id := createEvent(t, r, "creator-1", false)

	code, _ := doJSON(t, r, http.MethodPost, "/api/v1/rsvp", signedVote(id, "creator-1", "", models.StatusIn), nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = doJSON(t, r, http.MethodPost, "/api/v1/rsvp", signedVote("missing", "voter-a", "", models.StatusIn), nil)
	assert.Equal(t, http.StatusNotFound, code)

	forged := signedVote(id, "voter-a", "", models.StatusIn)
	forged.Signature = signature.Sign(forged.EventData, forged.Timestamp, forged.UserID, []byte("leaked?"))
	code, _ = doJSON(t, r, http.MethodPost, "/api/v1/rsvp", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = doJSON(t, r, http.MethodPost, "/api/v1/rsvp", signedVote(id, "voter-a", "", "sure"), nil)
	assert.Equal(t, http.StatusBadRequest, code)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rsvp", bytes.NewBufferString("{not json"))
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitRSVPExpired(t *testing.T) {
	r := newTestRouter(t, func(c *config.Config) { c.RSVPWindow = time.Second })
	id := createEvent(t, r, "creator-1", false)

	time.Sleep(1100 * time.Millisecond)
	code, res := doJSON(t, r, http.MethodPost, "/api/v1/rsvp", signedVote(id, "voter-a", "", models.StatusIn), nil)
	assert.Equal(t, http.StatusGone, code)
	assert.Equal(t, models.ErrLinkExpired.Error(), res.Error)
}

func TestVoterTokenRequired(t *testing.T) {
	r := newTestRouter(t, func(c *config.Config) {
		c.RequireVoterToken = true
		c.VoterTokenSecret = "jwt-secret"
	})
	id := createEvent(t, r, "creator-1", false)

	code, res := doJSON(t, r, http.MethodPost, "/api/v1/voters", gin.H{"voterId": "voter-alice"}, nil)
	require.Equal(t, http.StatusCreated, code, res.Error)
	var reg models.VoterRegistration
	require.NoError(t, json.Unmarshal(res.Data, &reg))
	require.NotEmpty(t, reg.Token)

	vote := signedVote(id, "voter-alice", "Alice", models.StatusIn)
	code, _ = doJSON(t, r, http.MethodPost, "/api/v1/rsvp", vote, nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = doJSON(t, r, http.MethodPost, "/api/v1/rsvp", vote, http.Header{"Authorization": {"Bearer " + reg.Token}})
	assert.Equal(t, http.StatusOK, code)
}

func TestRegisterVoterValidation(t *testing.T) {
	r := newTestRouter(t, nil)
	code, _ := doJSON(t, r, http.MethodPost, "/api/v1/voters", gin.H{"voterId": "x"}, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestListPublicEvents(t *testing.T) {
	r := newTestRouter(t, nil)
	createEvent(t, r, "creator-1", false)
	createEvent(t, r, "creator-1", true)
	createEvent(t, r, "creator-2", false)

	code, res := doJSON(t, r, http.MethodGet, "/api/v1/events?page=1", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 6, res.Limit)
	var events []models.Event
	require.NoError(t, json.Unmarshal(res.Data, &events))
	assert.Len(t, events, 2)
	for _, e := range events {
		assert.False(t, e.Private)
	}

	code, _ = doJSON(t, r, http.MethodGet, "/api/v1/events?page=0", nil, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCORSConfig(t *testing.T) {
	assert.True(t, corsConfig(nil).AllowAllOrigins)
	assert.True(t, corsConfig([]string{"*"}).AllowAllOrigins)
	cfg := corsConfig([]string{"https://whosin.example"})
	assert.False(t, cfg.AllowAllOrigins)
	assert.Equal(t, []string{"https://whosin.example"}, cfg.AllowOrigins)
}
