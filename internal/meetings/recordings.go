package meetings

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"meeting-platform/internal/calls"
)

const recordingsCacheTTL = time.Minute

// Recordings fans out one recordings query per ended meeting and flattens
// the results. A call whose recordings fetch fails is skipped, never the
// whole listing; per-call results are cached briefly in redis since the
// source charges for every lookup.
func (s *Service) Recordings(ctx context.Context, userID string) ([]calls.Recording, error) {
	buckets, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	results := make([][]calls.Recording, len(buckets.Recordable))
	var wg sync.WaitGroup
	for i, call := range buckets.Recordable {
		wg.Add(1)
		go func(i int, call calls.Call) {
			defer wg.Done()
			recs, err := s.callRecordings(ctx, call)
			if err != nil {
				s.log.Warn("recordings fetch failed", "call_id", call.ID, "error", err)
				return
			}
			results[i] = recs
		}(i, call)
	}
	wg.Wait()

	flat := []calls.Recording{}
	for _, recs := range results {
		flat = append(flat, recs...)
	}
	return flat, nil
}

// CallRecordings lists the recordings of one meeting the user can see.
func (s *Service) CallRecordings(ctx context.Context, userID, callID string) ([]calls.Recording, error) {
	call, err := s.Get(ctx, callID)
	if err != nil {
		return nil, err
	}
	if call.Type == calls.CallTypeInvited && call.CreatedByID != userID && !call.HasMember(userID) {
		return nil, ErrNotAllowed
	}
	return s.callRecordings(ctx, call)
}

func (s *Service) callRecordings(ctx context.Context, call calls.Call) ([]calls.Recording, error) {
	callID := call.ID
	key := "meeting:recordings:" + callID

	if s.rdb != nil {
		if raw, err := s.rdb.Get(ctx, key).Bytes(); err == nil {
			var cached []calls.Recording
			if json.Unmarshal(raw, &cached) == nil {
				return cached, nil
			}
		}
	}

	recs, err := s.source.QueryRecordings(ctx, call.Type, callID)
	if err != nil {
		return nil, err
	}

	if s.rdb != nil {
		if raw, err := json.Marshal(recs); err == nil {
			if err := s.rdb.Set(ctx, key, raw, recordingsCacheTTL).Err(); err != nil {
				s.log.Warn("recordings cache write failed", "call_id", callID, "error", err)
			}
		}
	}
	return recs, nil
}
