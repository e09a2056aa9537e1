package service

import (
	"context"
	"sync"
	"time"

	"github.com/streamgate/access-server-go/internal/model"
)

// fakeCodeRepo is an in-memory store with the same conditional-update
// semantics as the Postgres repository.
type fakeCodeRepo struct {
	mu    sync.Mutex
	codes map[string]*model.AccessCode

	findCalls      int
	createCalls    int
	collideFirst   int
	consumeRejects bool

	failFind       error
	failCreate     error
	failConsume    error
	failMarkUsed   error
	failDeactivate error
	failExpire     error
}

func newFakeCodeRepo() *fakeCodeRepo {
	return &fakeCodeRepo{codes: map[string]*model.AccessCode{}}
}

func (f *fakeCodeRepo) put(ac model.AccessCode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := ac
	f.codes[ac.Code] = &copied
}

func (f *fakeCodeRepo) get(code string) *model.AccessCode {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok := f.codes[code]; ok {
		copied := *rec
		return &copied
	}
	return nil
}

func (f *fakeCodeRepo) Create(ctx context.Context, params model.CreateAccessCodeParams) (*model.AccessCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.failCreate != nil {
		return nil, f.failCreate
	}
	autoExpire := params.AutoExpireOnUse
	rec := &model.AccessCode{
		Code:            params.Code,
		CreatedAt:       time.Now(),
		ExpiresAt:       params.ExpiresAt,
		IsActive:        true,
		Prefix:          params.Prefix,
		AutoExpireOnUse: &autoExpire,
		MaxUses:         params.MaxUses,
	}
	f.codes[rec.Code] = rec
	copied := *rec
	return &copied, nil
}

func (f *fakeCodeRepo) FindByCode(ctx context.Context, code string) (*model.AccessCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	if f.failFind != nil {
		return nil, f.failFind
	}
	if f.collideFirst > 0 {
		f.collideFirst--
		return &model.AccessCode{Code: code}, nil
	}
	if rec, ok := f.codes[code]; ok {
		copied := *rec
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeCodeRepo) FindActive(ctx context.Context, limit int) ([]model.AccessCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	active := []model.AccessCode{}
	for _, rec := range f.codes {
		if rec.IsActive && len(active) < limit {
			active = append(active, *rec)
		}
	}
	return active, nil
}

func (f *fakeCodeRepo) ConsumeUse(ctx context.Context, code, usedBy string, now time.Time) (*model.AccessCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failConsume != nil {
		return nil, f.failConsume
	}
	if f.consumeRejects {
		return nil, nil
	}
	rec, ok := f.codes[code]
	if !ok || !rec.IsActive || !rec.ExpiresAt.After(now) {
		return nil, nil
	}
	if rec.MaxUses != nil && rec.CurrentUses >= *rec.MaxUses {
		return nil, nil
	}
	rec.CurrentUses++
	usedAt := now
	rec.UsedAt = &usedAt
	rec.UsedBy = &usedBy
	if rec.MaxUses != nil {
		rec.IsActive = rec.CurrentUses < *rec.MaxUses
	} else {
		rec.IsActive = rec.AutoExpireOnUse != nil && !*rec.AutoExpireOnUse
	}
	copied := *rec
	return &copied, nil
}

func (f *fakeCodeRepo) MarkUsed(ctx context.Context, code, usedBy string, deactivate bool, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failMarkUsed != nil {
		return f.failMarkUsed
	}
	if rec, ok := f.codes[code]; ok {
		usedAt := now
		rec.UsedAt = &usedAt
		rec.UsedBy = &usedBy
		rec.IsActive = !deactivate
	}
	return nil
}

func (f *fakeCodeRepo) Deactivate(ctx context.Context, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDeactivate != nil {
		return false, f.failDeactivate
	}
	rec, ok := f.codes[code]
	if !ok {
		return false, nil
	}
	rec.IsActive = false
	return true, nil
}

func (f *fakeCodeRepo) ExpireActive(ctx context.Context, now time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failExpire != nil {
		return nil, f.failExpire
	}
	expired := []string{}
	for code, rec := range f.codes {
		if rec.IsActive && rec.ExpiresAt.Before(now) {
			rec.IsActive = false
			expired = append(expired, code)
		}
	}
	return expired, nil
}

// fakeLogRepo collects appended audit rows.
type fakeLogRepo struct {
	mu      sync.Mutex
	entries []model.AppendUsageLogParams
}

func (f *fakeLogRepo) Append(ctx context.Context, params model.AppendUsageLogParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, params)
	return nil
}

func (f *fakeLogRepo) FindRecent(ctx context.Context, limit int) ([]model.UsageLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	logs := []model.UsageLog{}
	for i := len(f.entries) - 1; i >= 0 && len(logs) < limit; i-- {
		e := f.entries[i]
		logs = append(logs, model.UsageLog{
			Code: e.Code, Action: e.Action, Details: e.Details, IP: e.IP,
		})
	}
	return logs, nil
}

func (f *fakeLogRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

// spyRecorder captures audit.Recorder calls.
type recordedEntry struct {
	Action  model.UsageAction
	Code    string
	Details string
	IP      *string
}

type spyRecorder struct {
	mu      sync.Mutex
	entries []recordedEntry
}

func (s *spyRecorder) Record(ctx context.Context, action model.UsageAction, code, details string, ip *string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, recordedEntry{Action: action, Code: code, Details: details, IP: ip})
}

func (s *spyRecorder) byAction(action model.UsageAction) []recordedEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := []recordedEntry{}
	for _, e := range s.entries {
		if e.Action == action {
			matched = append(matched, e)
		}
	}
	return matched
}

func boolPtr(b bool) *bool { return &b }
func intPtr(n int) *int    { return &n }
