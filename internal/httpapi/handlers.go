package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"meeting-platform/internal/audit"
	"meeting-platform/internal/auth"
	"meeting-platform/internal/calls"
	"meeting-platform/internal/meetings"
	"meeting-platform/internal/provider"
	"meeting-platform/internal/reporting"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth     *auth.Manager
	Tokens   *provider.TokenIssuer
	Meetings *meetings.Service
	Reports  *reporting.Service
	Events   *audit.Service
}

// respondError maps service errors onto the HTTP taxonomy. Validation
// messages pass through verbatim so the client can show them to the user.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, meetings.ErrValidation), errors.Is(err, reporting.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, meetings.ErrNotFound), errors.Is(err, provider.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "meeting not found"})
	case errors.Is(err, meetings.ErrNotAllowed):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "you are not allowed to join this meeting"})
	case errors.Is(err, provider.ErrUnavailable):
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "call service unavailable, please try again"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func identity(c *gin.Context) (string, bool) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil || uid == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return "", false
	}
	return uid, true
}

// RequireMeetingAccess gates per-meeting subresources behind the same
// invite check as joining, so the lifecycle notice socket never serves
// countdown state for an invite-only meeting to outsiders.
func (h Handlers) RequireMeetingAccess(c *gin.Context) {
	userID, ok := identity(c)
	if !ok {
		return
	}
	if err := h.Meetings.Authorize(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Next()
}

// --- Auth ---

type loginRequest struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.Name, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h Handlers) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "refresh_token required"})
		return
	}
	claims, err := h.Auth.Verify(req.RefreshToken, auth.TokenTypeRefresh, time.Now())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), claims.UserID, claims.Name, claims.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// VideoToken mints the short-lived call-service token the client SDK
// connects with. The server never proxies media.
func (h Handlers) VideoToken(c *gin.Context) {
	uid, ok := identity(c)
	if !ok {
		return
	}
	token, err := h.Tokens.UserToken(uid)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// --- Meetings ---

type createMeetingRequest struct {
	Description  string    `json:"description"`
	StartsAt     time.Time `json:"starts_at"`
	EndsAt       time.Time `json:"ends_at"`
	InviteEmails string    `json:"invite_emails"`
}

func (h Handlers) CreateMeeting(c *gin.Context) {
	uid, ok := identity(c)
	if !ok {
		return
	}
	var req createMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	res, err := h.Meetings.Create(c.Request.Context(), uid, meetings.CreateRequest{
		Description:  req.Description,
		StartsAt:     req.StartsAt,
		EndsAt:       req.EndsAt,
		InviteEmails: req.InviteEmails,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"call":         res.Call,
		"meeting_link": res.MeetingLink,
		"instant":      res.Instant,
		"invited":      res.Invited,
	})
}

// ListMeetings returns the caller's meetings as tagged list items,
// optionally narrowed with ?bucket=ended|upcoming.
func (h Handlers) ListMeetings(c *gin.Context) {
	uid, ok := identity(c)
	if !ok {
		return
	}
	buckets, err := h.Meetings.List(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}

	var selected []calls.Call
	switch c.Query("bucket") {
	case "":
		selected = append(append(selected, buckets.Upcoming...), buckets.Ended...)
	case "ended":
		selected = buckets.Ended
	case "upcoming":
		selected = buckets.Upcoming
	default:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "bucket must be ended or upcoming"})
		return
	}

	items := make([]calls.ListItem, 0, len(selected))
	for _, call := range selected {
		items = append(items, calls.CallItem(call))
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "ended": buckets.Ended, "upcoming": buckets.Upcoming})
}

func (h Handlers) GetMeeting(c *gin.Context) {
	if _, ok := identity(c); !ok {
		return
	}
	call, err := h.Meetings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, call)
}

func (h Handlers) JoinMeeting(c *gin.Context) {
	uid, ok := identity(c)
	if !ok {
		return
	}
	call, err := h.Meetings.Join(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, call)
}

func (h Handlers) LeaveMeeting(c *gin.Context) {
	uid, ok := identity(c)
	if !ok {
		return
	}
	h.Meetings.Leave(c.Request.Context(), uid, c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"status": "left"})
}

func (h Handlers) EndMeeting(c *gin.Context) {
	uid, ok := identity(c)
	if !ok {
		return
	}
	if err := h.Meetings.End(c.Request.Context(), uid, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ended"})
}

type resolveLinkRequest struct {
	Link string `json:"link"`
}

// ResolveLink normalizes pasted join input into a meeting route without
// touching the call itself.
func (h Handlers) ResolveLink(c *gin.Context) {
	if _, ok := identity(c); !ok {
		return
	}
	var req resolveLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	route, err := meetings.ResolveMeetingLink(req.Link)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"route": route, "meeting_id": meetings.MeetingIDFromRoute(route)})
}

func (h Handlers) ListRecordings(c *gin.Context) {
	uid, ok := identity(c)
	if !ok {
		return
	}
	recs, err := h.Meetings.Recordings(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	items := make([]calls.ListItem, 0, len(recs))
	for _, rec := range recs {
		items = append(items, calls.RecordingItem(rec))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// MeetingRecordings lists recordings for one meeting.
func (h Handlers) MeetingRecordings(c *gin.Context) {
	uid, ok := identity(c)
	if !ok {
		return
	}
	recs, err := h.Meetings.CallRecordings(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recordings": recs})
}

// --- Personal room ---

func (h Handlers) GetPersonalRoom(c *gin.Context) {
	uid, ok := identity(c)
	if !ok {
		return
	}
	room, err := h.Meetings.PersonalRoom(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"call": room.Call, "link": room.Link})
}

type saveRoomRequest struct {
	Description string    `json:"description"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
}

func (h Handlers) SavePersonalRoom(c *gin.Context) {
	uid, ok := identity(c)
	if !ok {
		return
	}
	var req saveRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	room, err := h.Meetings.SaveRoom(c.Request.Context(), uid, meetings.RoomRequest{
		Description: req.Description,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"call": room.Call, "link": room.Link})
}

func (h Handlers) DeletePersonalRoom(c *gin.Context) {
	uid, ok := identity(c)
	if !ok {
		return
	}
	if err := h.Meetings.DeleteRoom(c.Request.Context(), uid); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// --- Reporting ---

func (h Handlers) MeetingsSummary(c *gin.Context) {
	uid, ok := identity(c)
	if !ok {
		return
	}
	sum, err := h.Reports.MeetingsSummary(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// --- Admin ---

// MeetingEvents exposes the audit trail for one call. RBAC: admin only.
func (h Handlers) MeetingEvents(c *gin.Context) {
	if _, ok := identity(c); !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	events, err := h.Events.ListByCall(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		if errors.Is(err, audit.ErrInvalidEvent) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "meeting id required"})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
