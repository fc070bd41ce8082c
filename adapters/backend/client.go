package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"tennisweb/internal/errors"
	"tennisweb/internal/metrics"
	"tennisweb/internal/session"
	"tennisweb/models"
)

// Gateway is a typed client over the remote REST backend. It enforces no
// business rules of its own: every call is forwarded through the session
// manager and the response body is mapped to a typed result or a typed
// failure. The backend owns candidate scoring, friend-graph rules, and all
// validation.
type Gateway struct {
	baseURL string
	session *session.Manager
	client  *http.Client
	log     zerolog.Logger
}

// Upload is an in-memory file attachment for multipart requests
type Upload struct {
	Filename string
	Content  []byte
}

func New(baseURL string, sess *session.Manager, client *http.Client, log zerolog.Logger) *Gateway {
	return &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		session: sess,
		client:  client,
		log:     log.With().Str("component", "backend").Logger(),
	}
}

// Session exposes the gateway's session manager (login stores tokens there)
func (g *Gateway) Session() *session.Manager {
	return g.session
}

// Login exchanges credentials for a token pair and stores it in the session.
// Issued directly, not through the authorized path: there is no token yet and
// a 401 here must never trigger a refresh.
func (g *Gateway) Login(ctx context.Context, username, password string) error {
	payload, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return errors.Wrap(err, "failed to marshal login request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/token/", bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "failed to build login request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		metrics.BackendRequests.WithLabelValues("login", metrics.OutcomeError).Inc()
		return errors.NetworkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.BackendRequests.WithLabelValues("login", metrics.OutcomeError).Inc()
		if resp.StatusCode == http.StatusUnauthorized {
			return errors.Unauthorized("invalid credentials")
		}
		return mapError("login", resp)
	}

	var out struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		metrics.BackendRequests.WithLabelValues("login", metrics.OutcomeError).Inc()
		return errors.Wrap(err, "failed to decode login response")
	}
	g.session.Set(out.Access, out.Refresh)
	metrics.BackendRequests.WithLabelValues("login", metrics.OutcomeOK).Inc()
	return nil
}

// Register creates a new account. Like Login it is issued directly: there is
// no token yet. The backend creates an empty profile alongside the user.
func (g *Gateway) Register(ctx context.Context, username, email, password string) (*models.UserWithProfile, error) {
	payload, err := json.Marshal(map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal registration request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/register/", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build registration request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		metrics.BackendRequests.WithLabelValues("register", metrics.OutcomeError).Inc()
		return nil, errors.NetworkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		metrics.BackendRequests.WithLabelValues("register", metrics.OutcomeError).Inc()
		return nil, mapError("register", resp)
	}

	var out models.UserWithProfile
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		metrics.BackendRequests.WithLabelValues("register", metrics.OutcomeError).Inc()
		return nil, errors.Wrap(err, "failed to decode registration response")
	}
	metrics.BackendRequests.WithLabelValues("register", metrics.OutcomeOK).Inc()
	return &out, nil
}

// FetchProfile returns the current user's full profile
func (g *Gateway) FetchProfile(ctx context.Context) (*models.UserWithProfile, error) {
	var out models.UserWithProfile
	if err := g.doJSON(ctx, "profile", http.MethodGet, "/profile/", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchUser returns another user's profile by id
func (g *Gateway) FetchUser(ctx context.Context, userID int64) (*models.UserWithProfile, error) {
	var out models.UserWithProfile
	path := fmt.Sprintf("/users/%d/", userID)
	if err := g.doJSON(ctx, "user", http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile sends a multipart partial update. Array-valued fields are
// JSON-encoded per the backend's contract; avatar may be nil.
func (g *Gateway) UpdateProfile(ctx context.Context, fields map[string]any, avatar *Upload) (*models.Profile, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for key, value := range fields {
		if value == nil {
			continue
		}
		switch v := value.(type) {
		case []string:
			encoded, err := json.Marshal(v)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to encode field %s", key)
			}
			if err := w.WriteField(key, string(encoded)); err != nil {
				return nil, errors.Wrap(err, "failed to write multipart field")
			}
		default:
			if err := w.WriteField(key, fmt.Sprint(v)); err != nil {
				return nil, errors.Wrap(err, "failed to write multipart field")
			}
		}
	}
	if avatar != nil {
		fw, err := w.CreateFormFile("avatar", avatar.Filename)
		if err != nil {
			return nil, errors.Wrap(err, "failed to attach avatar")
		}
		if _, err := fw.Write(avatar.Content); err != nil {
			return nil, errors.Wrap(err, "failed to write avatar")
		}
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to finalize multipart body")
	}

	body := buf.Bytes()
	build := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, g.baseURL+"/profile/update/", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", w.FormDataContentType())
		return req, nil
	}

	var out models.Profile
	if err := g.roundTrip(ctx, "profile_update", build, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Recommend returns the single top-scored candidate not in exclude. An empty
// pool is a distinct NO_CANDIDATES signal, never conflated with transport or
// auth failures.
func (g *Gateway) Recommend(ctx context.Context, exclude []int64) (*models.Recommendation, error) {
	query := url.Values{}
	if len(exclude) > 0 {
		query.Set("exclude", csv(exclude))
	}
	var out models.Recommendation
	err := g.doJSON(ctx, "recommend", http.MethodGet, "/match/recommend/", query, nil, &out)
	if errors.Is(err, errors.CodeNotFound) {
		return nil, errors.NoCandidates()
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Candidates returns up to limit scored candidates, excluding the given ids.
// The limit is forwarded untouched; the backend clamps it to its own bounds.
func (g *Gateway) Candidates(ctx context.Context, exclude []int64, limit int) ([]models.Recommendation, error) {
	query := url.Values{}
	if len(exclude) > 0 {
		query.Set("exclude", csv(exclude))
	}
	query.Set("limit", strconv.Itoa(limit))
	var out struct {
		Candidates []models.Recommendation `json:"candidates"`
	}
	if err := g.doJSON(ctx, "candidates", http.MethodGet, "/match/candidates/", query, nil, &out); err != nil {
		return nil, err
	}
	return out.Candidates, nil
}

// AddFriend saves a user to the friend list
func (g *Gateway) AddFriend(ctx context.Context, friendID int64) (*models.FriendItem, error) {
	var out models.FriendItem
	body := map[string]int64{"friend_id": friendID}
	if err := g.doJSON(ctx, "friend_add", http.MethodPost, "/friends/", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Friends lists saved friends
func (g *Gateway) Friends(ctx context.Context) ([]models.FriendItem, error) {
	var out []models.FriendItem
	if err := g.doJSON(ctx, "friends_list", http.MethodGet, "/friends/", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RemoveFriend deletes a friend relation by the friend's user id
func (g *Gateway) RemoveFriend(ctx context.Context, friendUserID int64) error {
	path := fmt.Sprintf("/friends/%d/", friendUserID)
	return g.doJSON(ctx, "friend_remove", http.MethodDelete, path, nil, nil, nil)
}

// Threads lists the current user's chat threads
func (g *Gateway) Threads(ctx context.Context) ([]models.ChatThread, error) {
	var out []models.ChatThread
	if err := g.doJSON(ctx, "threads", http.MethodGet, "/chat/threads/", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// OpenThread creates or returns the thread with another user
func (g *Gateway) OpenThread(ctx context.Context, otherUserID int64) (*models.ChatThread, error) {
	var out models.ChatThread
	body := map[string]int64{"other_user_id": otherUserID}
	if err := g.doJSON(ctx, "thread_open", http.MethodPost, "/chat/threads/", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Messages returns messages in a thread, optionally only those after since
// (RFC 3339 timestamp).
func (g *Gateway) Messages(ctx context.Context, threadID int64, since string) ([]models.ChatMessage, error) {
	query := url.Values{}
	if since != "" {
		query.Set("since", since)
	}
	var out []models.ChatMessage
	path := fmt.Sprintf("/chat/threads/%d/messages/", threadID)
	if err := g.doJSON(ctx, "messages", http.MethodGet, path, query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SendMessage posts a message to a thread
func (g *Gateway) SendMessage(ctx context.Context, threadID int64, content string) (*models.ChatMessage, error) {
	var out models.ChatMessage
	path := fmt.Sprintf("/chat/threads/%d/messages/", threadID)
	body := map[string]string{"content": content}
	if err := g.doJSON(ctx, "message_send", http.MethodPost, path, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Checkins returns the check-ins for a month ("YYYY-MM")
func (g *Gateway) Checkins(ctx context.Context, month string) (*models.CheckInMonth, error) {
	query := url.Values{}
	if month != "" {
		query.Set("month", month)
	}
	var out models.CheckInMonth
	if err := g.doJSON(ctx, "checkins", http.MethodGet, "/checkins/", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetCheckin creates, updates, or (value=false) deletes a day's check-in
func (g *Gateway) SetCheckin(ctx context.Context, update models.CheckInUpdate) (*models.CheckInResult, error) {
	var out models.CheckInResult
	if err := g.doJSON(ctx, "checkin_set", http.MethodPost, "/checkins/set/", nil, update, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// doJSON issues one authorized JSON round trip and decodes the response into
// out (which may be nil for empty responses).
func (g *Gateway) doJSON(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request body")
		}
	}
	build := func(ctx context.Context) (*http.Request, error) {
		target := g.baseURL + path
		if len(query) > 0 {
			target += "?" + query.Encode()
		}
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return nil, err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return req, nil
	}
	return g.roundTrip(ctx, op, build, out)
}

func (g *Gateway) roundTrip(ctx context.Context, op string, build session.BuildFunc, out any) error {
	resp, err := g.session.Do(ctx, build)
	if err != nil {
		metrics.BackendRequests.WithLabelValues(op, metrics.OutcomeError).Inc()
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.BackendRequests.WithLabelValues(op, metrics.OutcomeError).Inc()
		err := mapError(op, resp)
		g.log.Debug().Str("op", op).Int("status", resp.StatusCode).Str("code", errors.GetCode(err)).Msg("backend call failed")
		return err
	}

	metrics.BackendRequests.WithLabelValues(op, metrics.OutcomeOK).Inc()
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "failed to decode %s response", op)
	}
	return nil
}

// mapError converts a non-2xx backend response into a typed failure
func mapError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.Unauthorized(detailOf(raw, "unauthorized"))
	case http.StatusNotFound:
		return errors.NotFound(op)
	case http.StatusBadRequest:
		return badRequestError(raw)
	default:
		e := errors.New(errors.CodeInternalError, fmt.Sprintf("backend returned %d for %s", resp.StatusCode, op))
		e.Detail = string(raw)
		return e
	}
}

// badRequestError distinguishes a {"detail": "..."} message from a DRF-style
// field-error map.
func badRequestError(raw []byte) error {
	var generic map[string]json.RawMessage
	if err := json.Unmarshal(raw, &generic); err != nil {
		e := errors.New(errors.CodeInvalidInput, "backend rejected request")
		e.Detail = string(raw)
		return e
	}
	if detail, ok := generic["detail"]; ok {
		var msg string
		if json.Unmarshal(detail, &msg) == nil && msg != "" {
			return errors.New(errors.CodeInvalidInput, msg)
		}
	}
	fields := make(map[string][]string, len(generic))
	for field, messages := range generic {
		var msgs []string
		if json.Unmarshal(messages, &msgs) == nil {
			fields[field] = msgs
			continue
		}
		var single string
		if json.Unmarshal(messages, &single) == nil {
			fields[field] = []string{single}
		}
	}
	if len(fields) == 0 {
		e := errors.New(errors.CodeInvalidInput, "backend rejected request")
		e.Detail = string(raw)
		return e
	}
	return errors.ValidationFailed(fields)
}

func detailOf(raw []byte, fallback string) string {
	var body struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Detail != "" {
		return body.Detail
	}
	return fallback
}

func csv(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
