package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"meeting-platform/internal/calls"
	"meeting-platform/internal/config"
)

// StreamSource talks to a Stream-compatible video REST API.
//
// Wire conventions:
// - api_key travels as a query parameter, the signed server token as the
//   Authorization header with stream-auth-type: jwt.
// - calls are addressed as /video/call/{type}/{id}.
type StreamSource struct {
	apiKey  string
	baseURL string
	issuer  *TokenIssuer
	http    *http.Client
}

func NewStreamSource(cfg config.StreamConfig, issuer *TokenIssuer) (*StreamSource, error) {
	if cfg.APIKey == "" || cfg.BaseURL == "" {
		return nil, fmt.Errorf("provider: stream api key and base url are required")
	}
	if issuer == nil {
		return nil, fmt.Errorf("provider: token issuer is required")
	}
	return &StreamSource{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		issuer:  issuer,
		http:    &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (s *StreamSource) Name() string { return "stream" }

func (s *StreamSource) Close() error {
	s.http.CloseIdleConnections()
	return nil
}

func (s *StreamSource) HealthCheck(ctx context.Context) error {
	var out struct{}
	return s.do(ctx, http.MethodGet, "/video/edges", nil, &out)
}

/* ===================== wire shapes ===================== */

type wireCallState struct {
	ID        string       `json:"id"`
	Type      string       `json:"type"`
	CreatedBy struct {
		ID string `json:"id"`
	} `json:"created_by"`
	StartsAt *time.Time      `json:"starts_at,omitempty"`
	EndedAt  *time.Time      `json:"ended_at,omitempty"`
	Custom   json.RawMessage `json:"custom,omitempty"`
}

type wireMember struct {
	UserID string `json:"user_id"`
	Role   string `json:"role,omitempty"`
}

type wireCall struct {
	Call    wireCallState `json:"call"`
	Members []wireMember  `json:"members,omitempty"`
}

func (w wireCall) toDomain() calls.Call {
	out := calls.Call{
		ID:          w.Call.ID,
		Type:        w.Call.Type,
		CreatedByID: w.Call.CreatedBy.ID,
		StartsAt:    w.Call.StartsAt,
		EndedAt:     w.Call.EndedAt,
	}
	if len(w.Call.Custom) > 0 {
		// Unknown custom keys are dropped; only the convention keys matter.
		// A malformed bag degrades to zero values, never to a fault.
		_ = json.Unmarshal(w.Call.Custom, &out.Custom)
	}
	for _, m := range w.Members {
		out.Members = append(out.Members, calls.Member{UserID: m.UserID, Role: m.Role})
	}
	return out
}

/* ===================== operations ===================== */

func (s *StreamSource) QueryCalls(ctx context.Context, f CallFilter) ([]calls.Call, error) {
	conditions := map[string]any{}
	if f.ID != "" {
		conditions["id"] = f.ID
	}
	if f.ScheduledOnly {
		conditions["starts_at"] = map[string]any{"$exists": true}
	}
	if f.MemberOrCreatorID != "" {
		conditions["$or"] = []map[string]any{
			{"created_by_user_id": f.MemberOrCreatorID},
			{"members": map[string]any{"$in": []string{f.MemberOrCreatorID}}},
		}
	}

	body := map[string]any{
		"sort": []map[string]any{{"field": "starts_at", "direction": -1}},
	}
	if len(conditions) > 0 {
		body["filter_conditions"] = conditions
	}
	if f.Limit > 0 {
		body["limit"] = f.Limit
	}

	var out struct {
		Calls []wireCall `json:"calls"`
	}
	if err := s.do(ctx, http.MethodPost, "/video/calls", body, &out); err != nil {
		return nil, err
	}

	result := make([]calls.Call, 0, len(out.Calls))
	for _, w := range out.Calls {
		result = append(result, w.toDomain())
	}
	return result, nil
}

func (s *StreamSource) GetOrCreateCall(ctx context.Context, callType, id string, data CallData) (calls.Call, error) {
	custom := map[string]any{
		"description": data.Description,
	}
	if !data.EndsAt.IsZero() {
		// RFC3339Nano keeps sub-second horizons intact through the
		// string round-trip, like the original ISO timestamps.
		custom["ends_at"] = data.EndsAt.UTC().Format(time.RFC3339Nano)
	}
	if data.DurationMinutes > 0 {
		custom["duration"] = data.DurationMinutes
	}

	callData := map[string]any{
		"starts_at": data.StartsAt.UTC().Format(time.RFC3339Nano),
		"custom":    custom,
	}
	if len(data.Members) > 0 {
		members := make([]map[string]any, 0, len(data.Members))
		for _, m := range data.Members {
			members = append(members, map[string]any{"user_id": m.UserID, "role": m.Role})
		}
		callData["members"] = members
	}

	var out wireCall
	if err := s.do(ctx, http.MethodPost, callPath(callType, id, ""), map[string]any{"data": callData}, &out); err != nil {
		return calls.Call{}, err
	}
	return out.toDomain(), nil
}

// callPath addresses one call at the source. A blank type degrades to
// "default" rather than producing a malformed URL.
func callPath(callType, id, suffix string) string {
	if callType == "" {
		callType = calls.CallTypeDefault
	}
	return fmt.Sprintf("/video/call/%s/%s%s", url.PathEscape(callType), url.PathEscape(id), suffix)
}

func (s *StreamSource) JoinCall(ctx context.Context, callType, id, userID string) error {
	body := map[string]any{
		"update_members": []map[string]any{{"user_id": userID, "role": calls.MemberRoleCallMember}},
	}
	var out struct{}
	return s.do(ctx, http.MethodPost, callPath(callType, id, "/members"), body, &out)
}

func (s *StreamSource) LeaveCall(ctx context.Context, callType, id, userID string) error {
	body := map[string]any{
		"remove_members": []string{userID},
	}
	var out struct{}
	return s.do(ctx, http.MethodPost, callPath(callType, id, "/members"), body, &out)
}

func (s *StreamSource) EndCall(ctx context.Context, callType, id string) error {
	var out struct{}
	return s.do(ctx, http.MethodPost, callPath(callType, id, "/mark_ended"), map[string]any{}, &out)
}

func (s *StreamSource) QueryRecordings(ctx context.Context, callType, id string) ([]calls.Recording, error) {
	var out struct {
		Recordings []struct {
			Filename  string `json:"filename"`
			URL       string `json:"url"`
			StartTime string `json:"start_time"`
		} `json:"recordings"`
	}
	path := callPath(callType, id, "/recordings")
	if err := s.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}

	result := make([]calls.Recording, 0, len(out.Recordings))
	for _, r := range out.Recordings {
		result = append(result, calls.Recording{Filename: r.Filename, URL: r.URL, StartTime: r.StartTime})
	}
	return result, nil
}

/* ===================== transport ===================== */

func (s *StreamSource) do(ctx context.Context, method, path string, body any, out any) error {
	token, err := s.issuer.ServerToken()
	if err != nil {
		return fmt.Errorf("provider: server token: %w", err)
	}

	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("provider: encode request: %w", err)
		}
		rd = bytes.NewReader(raw)
	}

	u := fmt.Sprintf("%s%s?api_key=%s", s.baseURL, path, url.QueryEscape(s.apiKey))
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", token)
	req.Header.Set("stream-auth-type", "jwt")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: %s", ErrUnavailable, apiErrorMessage(resp.Body, resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("provider: decode response: %w", err)
	}
	return nil
}

// apiErrorMessage extracts the source's human-readable error when present,
// falling back to the status code.
func apiErrorMessage(r io.Reader, status int) string {
	var e struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 4096)).Decode(&e); err == nil && e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("status %d", status)
}
