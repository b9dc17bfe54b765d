package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: time.Millisecond,
		MaxWait:     10 * time.Millisecond,
		Multiplier:  2,
	}
}

var (
	okResp   = MockResponse{Content: json.RawMessage(`{"ok":true}`)}
	downResp = MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}}
	badResp  = MockResponse{Err: &ErrInvalidResponse{Content: json.RawMessage(`bad`), Err: errors.New("bad")}}
)

func TestRetry(t *testing.T) {
	cases := []struct {
		name      string
		responses []MockResponse
		wantErr   bool
		wantCalls int
	}{
		{"first attempt", []MockResponse{okResp}, false, 1},
		{"transient then success", []MockResponse{downResp, okResp}, false, 2},
		{"all attempts fail", []MockResponse{downResp, downResp, downResp, okResp}, true, 3},
		{"max tokens is final", []MockResponse{{Err: &ErrMaxTokensExceeded{}}, okResp}, true, 1},
		{"invalid response retried once", []MockResponse{badResp, badResp, okResp}, true, 2},
		{"invalid then success", []MockResponse{badResp, okResp}, false, 2},
		{"rate limit honours retry-after", []MockResponse{{Err: &ErrRateLimit{RetryAfter: time.Millisecond}}, okResp}, false, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mock := NewMockProvider(tc.responses...)
			resp, err := WithRetry(mock, fastRetry(), nil).Generate(context.Background(), Request{})
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.JSONEq(t, `{"ok":true}`, string(resp.Content))
			}
			assert.Len(t, mock.Calls(), tc.wantCalls)
		})
	}
}

func TestRetryLogsAttempts(t *testing.T) {
	log, hook := test.NewNullLogger()
	mock := NewMockProvider(downResp, okResp)

	ctx := WithSubject(WithPurpose(context.Background(), PurposeAnswerAudit), Subject("php.yml", 2))
	_, err := WithRetry(mock, fastRetry(), log).Generate(ctx, Request{})
	require.NoError(t, err)

	require.Len(t, hook.AllEntries(), 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "retrying llm request", entry.Message)
	assert.Equal(t, "php.yml#2", entry.Data["subject"])
	assert.Equal(t, PurposeAnswerAudit, entry.Data["purpose"])
	assert.Equal(t, 1, entry.Data["attempt"])
}

func TestRetryStopsOnCancel(t *testing.T) {
	mock := NewMockProvider(downResp, downResp, okResp)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := WithRetry(mock, fastRetry(), nil).Generate(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, mock.Calls(), 1)
}

func TestRetryZeroAttemptsStillCalls(t *testing.T) {
	mock := NewMockProvider(okResp)
	_, err := WithRetry(mock, RetryConfig{}, nil).Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "mock", WithRetry(mock, RetryConfig{}, nil).ModelID())
}

func TestBackoffCapped(t *testing.T) {
	r := &RetryProvider{config: RetryConfig{InitialWait: time.Second, MaxWait: 2 * time.Second, Multiplier: 10}}
	for attempt := 0; attempt < 4; attempt++ {
		wait := r.backoff(attempt, errors.New("x"))
		assert.LessOrEqual(t, wait, 2400*time.Millisecond)
		assert.GreaterOrEqual(t, wait, 800*time.Millisecond)
	}
}
