package mailer_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ricirt/venturematch/internal/domain"
	"github.com/ricirt/venturematch/internal/mailer"
)

func TestHTTPGateway_Send(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantErr       bool
		wantPermanent bool
	}{
		{"accepted", http.StatusAccepted, false, false},
		{"ok", http.StatusOK, false, false},
		{"rate limited is transient", http.StatusTooManyRequests, true, false},
		{"server error is transient", http.StatusBadGateway, true, false},
		{"bad address is permanent", http.StatusUnprocessableEntity, true, true},
		{"unauthorized is permanent", http.StatusUnauthorized, true, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got map[string]string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			gw := mailer.NewHTTPGateway(srv.URL, "secret", "noreply@example.com", time.Second)
			err := gw.Send(context.Background(), mailer.Message{
				To: "a@example.com", Subject: "s", Body: "b", Template: "project_updating",
			})

			if !tc.wantErr {
				require.NoError(t, err)
				assert.Equal(t, "noreply@example.com", got["from"])
				assert.Equal(t, "a@example.com", got["to"])
				assert.Equal(t, "project_updating", got["template"])
				return
			}
			require.Error(t, err)
			assert.Equal(t, tc.wantPermanent, errors.Is(err, domain.ErrPermanent))
		})
	}
}

func TestHTTPGateway_TimeoutIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	gw := mailer.NewHTTPGateway(srv.URL, "", "noreply@example.com", 20*time.Millisecond)
	err := gw.Send(context.Background(), mailer.Message{To: "a@example.com", Subject: "s", Body: "b"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrPermanent))
}

func TestHTTPGateway_EmptyRecipientIsPermanent(t *testing.T) {
	gw := mailer.NewHTTPGateway("http://127.0.0.1:0", "", "noreply@example.com", time.Second)
	err := gw.Send(context.Background(), mailer.Message{Subject: "s", Body: "b"})
	assert.ErrorIs(t, err, domain.ErrPermanent)
}

func TestCompose(t *testing.T) {
	msg, err := mailer.Compose(mailer.TemplateProjectUpdating, "ann@example.com", mailer.Data{
		FirstName:   "Ann",
		ProjectName: "Cure",
		ProjectURL:  "https://vm.example.com/api/projects/3",
	})
	require.NoError(t, err)
	assert.Equal(t, "Project Updated", msg.Subject)
	assert.Equal(t, "Hello Ann!\nThe project Cure has been updated.\nLink to the project: https://vm.example.com/api/projects/3", msg.Body)
	assert.Equal(t, "ann@example.com", msg.To)
	assert.Equal(t, mailer.TemplateProjectUpdating, msg.Template)

	msg, err = mailer.Compose(mailer.TemplateModerationRequest, "admin@example.com", mailer.Data{
		EntityTitle: "Startup",
		EntityID:    9,
		Snapshot:    `{"id":9}`,
		ApproveURL:  "https://x/moderation/approve/startup/9?ticket=t",
		DeclineURL:  "https://x/moderation/decline/startup/9?ticket=t",
	})
	require.NoError(t, err)
	assert.Equal(t, "Moderation request: Startup #9", msg.Subject)
	assert.Contains(t, msg.Body, "Approve: https://x/moderation/approve/startup/9?ticket=t")

	_, err = mailer.Compose("missing", "x@example.com", mailer.Data{})
	require.Error(t, err)
}

func TestRecorder_FailTimes(t *testing.T) {
	r := mailer.NewRecorder()
	r.Err = errors.New("unavailable")
	r.FailTimes = 1

	require.Error(t, r.Send(context.Background(), mailer.Message{To: "a"}))
	require.NoError(t, r.Send(context.Background(), mailer.Message{To: "a"}))
	assert.Len(t, r.Sent(), 1)
	assert.Equal(t, 2, r.Calls())
}
