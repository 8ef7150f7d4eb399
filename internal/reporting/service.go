package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"meeting-platform/internal/calls"
	"meeting-platform/internal/provider"
)

var ErrInvalidArgument = errors.New("reporting: invalid argument")

// Summary is the per-user dashboard aggregate.
type Summary struct {
	UserID string `json:"user_id"`

	TotalMeetings    int `json:"total_meetings"`
	EndedMeetings    int `json:"ended_meetings"`
	UpcomingMeetings int `json:"upcoming_meetings"`

	// ScheduledMinutes sums the planned duration of upcoming meetings.
	ScheduledMinutes int `json:"scheduled_minutes"`

	// NextMeetingAt is the earliest upcoming start, nil when nothing is
	// scheduled.
	NextMeetingAt *time.Time `json:"next_meeting_at,omitempty"`
}

type Service struct {
	source provider.CallSource
	clock  func() time.Time
}

func NewService(source provider.CallSource) *Service {
	return &Service{source: source, clock: time.Now}
}

// MeetingsSummary aggregates the user's meetings as of now.
func (s *Service) MeetingsSummary(ctx context.Context, userID string) (Summary, error) {
	if userID == "" {
		return Summary{}, fmt.Errorf("%w: user id required", ErrInvalidArgument)
	}

	found, err := s.source.QueryCalls(ctx, provider.CallFilter{
		MemberOrCreatorID: userID,
		ScheduledOnly:     true,
	})
	if err != nil {
		return Summary{}, fmt.Errorf("meetings summary: %w", err)
	}

	buckets := calls.Classify(found, s.clock())

	sum := Summary{
		UserID:           userID,
		TotalMeetings:    len(buckets.Ended) + len(buckets.Upcoming),
		EndedMeetings:    len(buckets.Ended),
		UpcomingMeetings: len(buckets.Upcoming),
	}
	for _, c := range buckets.Upcoming {
		sum.ScheduledMinutes += c.Custom.DurationMinutes
		if c.StartsAt == nil {
			continue
		}
		if sum.NextMeetingAt == nil || c.StartsAt.Before(*sum.NextMeetingAt) {
			next := *c.StartsAt
			sum.NextMeetingAt = &next
		}
	}
	return sum, nil
}
