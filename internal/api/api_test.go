package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuslf/lostfound/internal/auth"
	"github.com/campuslf/lostfound/internal/catalog"
	"github.com/campuslf/lostfound/internal/claims"
	"github.com/campuslf/lostfound/internal/db"
	"github.com/campuslf/lostfound/internal/dispute"
	"github.com/campuslf/lostfound/internal/karma"
	"github.com/campuslf/lostfound/internal/model"
	"github.com/campuslf/lostfound/internal/notify"
	"github.com/campuslf/lostfound/internal/verify"
)

const testJWTSecret = "test-secret"

type testServer struct {
	*httptest.Server
	auth *auth.Service
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	database := db.NewTestDB(t)
	ledger := karma.NewLedger(database, karma.Options{})
	authn := auth.NewService(database, testJWTSecret)

	router := NewRouter(Services{
		DB:       database,
		Auth:     authn,
		Catalog:  catalog.NewService(database),
		Claims:   claims.NewWorkflow(database, nil, claims.Options{}),
		Notify:   notify.NewService(database, nil),
		Verify:   verify.NewService(database, ledger, nil),
		Karma:    ledger,
		Disputes: dispute.NewService(database),
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &testServer{Server: server, auth: authn}
}

// call sends a JSON request and decodes the JSON response into out, if given.
func (s *testServer) call(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// signup registers a user and returns its ID and a session token.
func (s *testServer) signup(t *testing.T, username string) (int64, string) {
	t.Helper()
	var user model.User
	status := s.call(t, "POST", "/api/auth/register", "", auth.RegisterInput{
		Username:  username,
		Email:     username + "@campus.test",
		FirstName: strings.ToUpper(username[:1]) + username[1:],
		LastName:  "Student",
		Password:  "password123",
	}, &user)
	require.Equal(t, http.StatusCreated, status)

	var login loginResponse
	status = s.call(t, "POST", "/api/auth/login", "", map[string]string{
		"username": username,
		"password": "password123",
	}, &login)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, login.Token)
	return user.ID, login.Token
}

func (s *testServer) reportItem(t *testing.T, token, title string) int64 {
	t.Helper()
	var item model.Item
	status := s.call(t, "POST", "/api/items", token, catalog.ItemInput{
		Title:    title,
		Category: "electronics",
		Location: "Lecture hall A",
		ItemType: model.ItemTypeFound,
	}, &item)
	require.Equal(t, http.StatusCreated, status)
	return item.ID
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func TestLoginEndpoint(t *testing.T) {
	s := setupTestServer(t)
	s.signup(t, "ana")

	var body map[string]string
	status := s.call(t, "POST", "/api/auth/login", "", map[string]string{"username": "ana", "password": "wrong"}, &body)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid credentials", body["error"])

	status = s.call(t, "POST", "/api/auth/login", "", map[string]string{"username": "ana"}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestUnauthenticatedAccess(t *testing.T) {
	s := setupTestServer(t)

	for _, path := range []string{"/api/items", "/api/notifications", "/api/karma/me", "/api/claims/mine"} {
		status := s.call(t, "GET", path, "", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, status, path)
	}

	status := s.call(t, "GET", "/api/items", "not-a-token", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	// The leaderboard is public.
	status = s.call(t, "GET", "/api/karma/leaderboard", "", nil, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestLogoutRevokesToken(t *testing.T) {
	s := setupTestServer(t)
	_, token := s.signup(t, "ana")

	assert.Equal(t, http.StatusOK, s.call(t, "GET", "/api/items", token, nil, nil))
	assert.Equal(t, http.StatusOK, s.call(t, "POST", "/api/auth/logout", token, nil, nil))
	assert.Equal(t, http.StatusUnauthorized, s.call(t, "GET", "/api/items", token, nil, nil))
}

func TestClaimLifecycleFlow(t *testing.T) {
	s := setupTestServer(t)
	_, ownerToken := s.signup(t, "owner")
	claimerID, claimerToken := s.signup(t, "claimer")
	_, strangerToken := s.signup(t, "stranger")

	itemID := s.reportItem(t, ownerToken, "Black laptop")
	itemPath := fmt.Sprintf("/api/items/%d", itemID)

	// Claim.
	var receipt claims.ClaimReceipt
	status := s.call(t, "POST", itemPath+"/claims", claimerToken, map[string]string{"message": "It has my sticker"}, &receipt)
	require.Equal(t, http.StatusCreated, status)
	require.NotZero(t, receipt.ClaimID)
	claimPath := fmt.Sprintf("/api/claims/%d", receipt.ClaimID)

	var errResp errorBody
	status = s.call(t, "POST", itemPath+"/claims", strangerToken, nil, &errResp)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "already_claimed", errResp.Kind)

	status = s.call(t, "POST", itemPath+"/claims", ownerToken, nil, &errResp)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "self_claim", errResp.Kind)

	// The owner was notified and can see who claimed.
	var inbox struct {
		Notifications []model.Notification `json:"notifications"`
		Unread        int                  `json:"unread"`
	}
	require.Equal(t, http.StatusOK, s.call(t, "GET", "/api/notifications", ownerToken, nil, &inbox))
	require.Len(t, inbox.Notifications, 1)
	assert.Equal(t, 1, inbox.Unread)
	notifPath := fmt.Sprintf("/api/notifications/%d", inbox.Notifications[0].ID)

	var contact model.Contact
	require.Equal(t, http.StatusOK, s.call(t, "POST", notifPath+"/reveal", ownerToken, nil, &contact))
	assert.Equal(t, "claimer@campus.test", contact.Email)

	status = s.call(t, "POST", notifPath+"/reveal", strangerToken, nil, &errResp)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "unauthorized", errResp.Kind)

	require.Equal(t, http.StatusOK, s.call(t, "POST", notifPath+"/read", ownerToken, nil, nil))

	// The owner's contact stays hidden until the claim is accepted.
	status = s.call(t, "GET", claimPath+"/owner-contact", claimerToken, nil, &errResp)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "invalid_transition", errResp.Kind)

	// Only the owner decides.
	status = s.call(t, "POST", claimPath+"/accept", claimerToken, nil, &errResp)
	assert.Equal(t, http.StatusForbidden, status)

	var claim model.Claim
	require.Equal(t, http.StatusOK, s.call(t, "POST", claimPath+"/accept", ownerToken, nil, &claim))
	assert.Equal(t, model.ClaimAccepted, claim.Status)

	var ownerContact model.Contact
	require.Equal(t, http.StatusOK, s.call(t, "GET", claimPath+"/owner-contact", claimerToken, nil, &ownerContact))
	assert.Equal(t, "owner", ownerContact.Username)

	status = s.call(t, "POST", claimPath+"/reject", ownerToken, nil, &errResp)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "already_processed", errResp.Kind)

	// Handoff.
	var qr model.QRCode
	require.Equal(t, http.StatusCreated, s.call(t, "POST", claimPath+"/qr", ownerToken, nil, &qr))
	assert.NotEmpty(t, qr.Code)
	assert.True(t, strings.HasPrefix(qr.ImageURL, "data:image/png;base64,"), qr.ImageURL)

	status = s.call(t, "POST", "/api/qr/verify", claimerToken, map[string]string{"code": "bogus"}, &errResp)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "invalid_code", errResp.Kind)

	var result verify.Result
	require.Equal(t, http.StatusOK, s.call(t, "POST", "/api/qr/verify", claimerToken, map[string]string{"code": qr.Code}, &result))
	assert.Equal(t, itemID, result.ItemID)
	assert.Equal(t, claimerID, result.ClaimerID)
	assert.Equal(t, karma.DefaultPoints, result.KarmaAwarded)

	status = s.call(t, "POST", "/api/qr/verify", claimerToken, map[string]string{"code": qr.Code}, &errResp)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "already_scanned", errResp.Kind)

	// Results.
	var item model.Item
	require.Equal(t, http.StatusOK, s.call(t, "GET", itemPath, strangerToken, nil, &item))
	assert.Equal(t, model.ItemReturned, item.Status)

	var timeline []model.TimelineEntry
	require.Equal(t, http.StatusOK, s.call(t, "GET", itemPath+"/timeline", strangerToken, nil, &timeline))
	var statuses []model.ItemStatus
	for _, e := range timeline {
		statuses = append(statuses, e.Status)
	}
	assert.Equal(t, []model.ItemStatus{model.ItemReported, model.ItemClaimed, model.ItemReturned}, statuses)

	var board struct {
		Leaders []model.KarmaProfile `json:"leaders"`
		Stats   model.KarmaStats     `json:"stats"`
	}
	require.Equal(t, http.StatusOK, s.call(t, "GET", "/api/karma/leaderboard", "", nil, &board))
	require.NotEmpty(t, board.Leaders)
	assert.Equal(t, claimerID, board.Leaders[0].UserID)
	assert.Equal(t, karma.DefaultPoints, board.Leaders[0].KarmaPoints)
	assert.Equal(t, 1, board.Stats.TotalItemsReturned)

	var me struct {
		Profile model.KarmaProfile `json:"profile"`
		Rank    int                `json:"rank"`
	}
	require.Equal(t, http.StatusOK, s.call(t, "GET", "/api/karma/me", claimerToken, nil, &me))
	assert.Equal(t, 1, me.Rank)

	var mine []model.Claim
	require.Equal(t, http.StatusOK, s.call(t, "GET", "/api/claims/mine", claimerToken, nil, &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, model.ClaimCompleted, mine[0].Status)
}

func TestDisputeRequiresStaff(t *testing.T) {
	s := setupTestServer(t)
	_, ownerToken := s.signup(t, "owner")
	_, claimerToken := s.signup(t, "claimer")
	staffID, staffToken := s.signup(t, "helpdesk")

	password, created, err := s.auth.ProvisionAdmin(context.Background(), "root")
	require.NoError(t, err)
	require.True(t, created)
	var login loginResponse
	require.Equal(t, http.StatusOK, s.call(t, "POST", "/api/auth/login", "", map[string]string{"username": "root", "password": password}, &login))
	adminToken := login.Token

	itemID := s.reportItem(t, ownerToken, "Keys")
	var receipt claims.ClaimReceipt
	require.Equal(t, http.StatusCreated, s.call(t, "POST", fmt.Sprintf("/api/items/%d/claims", itemID), claimerToken, nil, &receipt))

	var d model.Dispute
	status := s.call(t, "POST", fmt.Sprintf("/api/claims/%d/disputes", receipt.ClaimID), claimerToken, map[string]string{"reason": "no answer"}, &d)
	require.Equal(t, http.StatusCreated, status)

	var errResp errorBody
	status = s.call(t, "POST", fmt.Sprintf("/api/claims/%d/disputes", receipt.ClaimID), ownerToken, map[string]string{"reason": "me too"}, &errResp)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "dispute_exists", errResp.Kind)

	assert.Equal(t, http.StatusForbidden, s.call(t, "GET", "/api/disputes", staffToken, nil, nil))
	assert.Equal(t, http.StatusForbidden, s.call(t, "PUT", fmt.Sprintf("/api/users/%d/role", staffID), staffToken, map[string]string{"role": "staff"}, nil))

	var promoted model.User
	require.Equal(t, http.StatusOK, s.call(t, "PUT", fmt.Sprintf("/api/users/%d/role", staffID), adminToken, map[string]string{"role": model.RoleStaff}, &promoted))
	assert.Equal(t, model.RoleStaff, promoted.Role)

	// The existing token picks up the new role.
	var open []model.Dispute
	require.Equal(t, http.StatusOK, s.call(t, "GET", "/api/disputes?status=open", staffToken, nil, &open))
	require.Len(t, open, 1)

	status = s.call(t, "POST", fmt.Sprintf("/api/disputes/%d/resolve", d.ID), staffToken, map[string]string{"resolution": "maybe"}, &errResp)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation", errResp.Kind)

	var resolved model.Dispute
	require.Equal(t, http.StatusOK, s.call(t, "POST", fmt.Sprintf("/api/disputes/%d/resolve", d.ID), staffToken,
		map[string]string{"resolution": model.ResolutionFavorClaimer, "notes": "receipt shown"}, &resolved))
	assert.Equal(t, model.DisputeResolved, resolved.Status)

	var claim model.Claim
	require.Equal(t, http.StatusOK, s.call(t, "GET", fmt.Sprintf("/api/claims/%d", receipt.ClaimID), claimerToken, nil, &claim))
	assert.Equal(t, model.ClaimAccepted, claim.Status)
}

func TestFlagFlow(t *testing.T) {
	s := setupTestServer(t)
	_, ownerToken := s.signup(t, "owner")
	_, reporterToken := s.signup(t, "reporter")
	itemID := s.reportItem(t, ownerToken, "Suspicious listing")

	var flag model.Flag
	status := s.call(t, "POST", "/api/flags", reporterToken, map[string]any{
		"item_id":     itemID,
		"reason":      "spam",
		"description": "advertising",
	}, &flag)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, model.FlagPending, flag.Status)

	var errResp errorBody
	status = s.call(t, "POST", "/api/flags", reporterToken, map[string]any{
		"item_id":     itemID,
		"reason":      "spam",
		"description": "again",
	}, &errResp)
	assert.Equal(t, http.StatusConflict, status)

	assert.Equal(t, http.StatusForbidden, s.call(t, "GET", "/api/flags", reporterToken, nil, nil))
}

func TestRequestValidation(t *testing.T) {
	s := setupTestServer(t)
	_, token := s.signup(t, "ana")

	assert.Equal(t, http.StatusBadRequest, s.call(t, "GET", "/api/items/abc", token, nil, nil))
	assert.Equal(t, http.StatusNotFound, s.call(t, "GET", "/api/items/999", token, nil, nil))
	assert.Equal(t, http.StatusBadRequest, s.call(t, "GET", "/api/items/nearby?lat=x", token, nil, nil))
	assert.Equal(t, http.StatusBadRequest, s.call(t, "GET", "/api/karma/leaderboard?limit=ten", "", nil, nil))
	assert.Equal(t, http.StatusBadRequest, s.call(t, "POST", "/api/items", token, map[string]string{"unknown": "field"}, nil))

	var errResp errorBody
	status := s.call(t, "POST", "/api/items", token, catalog.ItemInput{Title: "x", Category: "nope", Location: "y", ItemType: "found"}, &errResp)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation", errResp.Kind)

	var nearby struct {
		Items    []catalog.NearbyItem `json:"items"`
		RadiusKm float64              `json:"radius_km"`
	}
	require.Equal(t, http.StatusOK, s.call(t, "GET", "/api/items/nearby?lat=46.05&lng=14.5&radius=100", token, nil, &nearby))
	assert.Equal(t, float64(catalog.DefaultRadiusKm), nearby.RadiusKm)
	assert.NotNil(t, nearby.Items)
}
