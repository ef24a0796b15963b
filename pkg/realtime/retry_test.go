package realtime

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

type flakyConnector struct {
	errs  []error
	calls int
}

func (f *flakyConnector) Connect(ctx context.Context) error {
	f.calls++
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func TestConnectWithRetry(t *testing.T) {
	dialErr := &ConnError{Op: "dial", Err: errors.New("connection refused")}
	fast := RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

	tests := []struct {
		name      string
		policy    RetryPolicy
		errs      []error
		wantCalls int
		wantErr   bool
	}{
		{"zero policy succeeds", RetryPolicy{}, nil, 1, false},
		{"zero policy single attempt", RetryPolicy{}, []error{dialErr, dialErr}, 1, true},
		{"recovers", fast, []error{dialErr, dialErr}, 3, false},
		{"exhausted", fast, []error{dialErr, dialErr, dialErr, dialErr}, 3, true},
		{"unauthorized not retried", fast, []error{&ConnError{Op: "dial", HTTPStatus: http.StatusUnauthorized, Err: errors.New("bad handshake")}}, 1, true},
		{"already connected not retried", fast, []error{ErrAlreadyConnected}, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &flakyConnector{errs: tt.errs}
			err := ConnectWithRetry(context.Background(), c, tt.policy, quietLogger())
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if c.calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", c.calls, tt.wantCalls)
			}
		})
	}
}

func TestRetryPolicyMaxElapsed(t *testing.T) {
	tests := []struct {
		policy RetryPolicy
		want   time.Duration
	}{
		{RetryPolicy{MaxAttempts: 5}, 0},
		{RetryPolicy{MaxAttempts: 5, MaxElapsed: -time.Second}, 0},
		{RetryPolicy{MaxAttempts: 5, MaxElapsed: time.Minute}, time.Minute},
	}
	for _, tt := range tests {
		if got := tt.policy.maxElapsed(); got != tt.want {
			t.Errorf("%+v maxElapsed = %v, want %v", tt.policy, got, tt.want)
		}
	}
}

func TestConnectWithRetryMaxElapsed(t *testing.T) {
	down := errors.New("down")
	errs := make([]error, 100)
	for i := range errs {
		errs[i] = down
	}
	c := &flakyConnector{errs: errs}
	p := RetryPolicy{MaxAttempts: 100, InitialInterval: 5 * time.Millisecond, MaxInterval: 5 * time.Millisecond, MaxElapsed: 20 * time.Millisecond}
	if err := ConnectWithRetry(context.Background(), c, p, quietLogger()); err == nil {
		t.Fatal("ConnectWithRetry succeeded")
	}
	if c.calls >= 100 {
		t.Errorf("calls = %d, MaxElapsed did not stop the retries", c.calls)
	}
}

func TestConnectWithRetryCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := &flakyConnector{errs: []error{errors.New("down"), errors.New("down"), errors.New("down")}}
	p := RetryPolicy{MaxAttempts: 3, InitialInterval: time.Hour}
	if err := ConnectWithRetry(ctx, c, p, quietLogger()); err == nil {
		t.Fatal("ConnectWithRetry succeeded with canceled ctx")
	}
	if c.calls > 1 {
		t.Errorf("calls = %d, want at most 1", c.calls)
	}
}

func TestConnectWithRetryTransport(t *testing.T) {
	srv := newTestServer(t)
	tr := NewTransport(&TransportConfig{URL: srv.url(), Logger: quietLogger()})
	p := RetryPolicy{MaxAttempts: 2, InitialInterval: time.Millisecond}
	if err := ConnectWithRetry(context.Background(), tr, p, quietLogger()); err != nil {
		t.Fatalf("ConnectWithRetry: %v", err)
	}
	defer tr.Disconnect()
	if got := tr.Status().State; got != StateOpen {
		t.Errorf("state = %v, want open", got)
	}
}
