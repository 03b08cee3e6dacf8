package authstate

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"finitefield.org/tutor-admin/internal/admin/identity"
	"finitefield.org/tutor-admin/internal/admin/login"
	"finitefield.org/tutor-admin/internal/admin/metrics"
)

// Not parallel: the collectors are process wide and the parallel tests of
// this package also submit.
func TestStoreRecordsSubmissionMetrics(t *testing.T) {
	password := login.ModePasswordSignIn.String()
	link := login.ModeSetNewPassword.String()

	submitted := testutil.ToFloat64(metrics.LoginSubmissionsTotal.WithLabelValues(password))
	linkSubmitted := testutil.ToFloat64(metrics.LoginSubmissionsTotal.WithLabelValues(link))
	failed := testutil.ToFloat64(metrics.LoginOutcomesTotal.WithLabelValues(password, string(identity.ReasonInvalidCredentials)))
	succeeded := testutil.ToFloat64(metrics.LoginOutcomesTotal.WithLabelValues(password, "success"))
	discarded := testutil.ToFloat64(metrics.LoginOutcomesTotal.WithLabelValues(link, "discarded"))

	provider := newGatedProvider()
	store := NewStore(provider, nil)

	store.SubmitCredentials(context.Background(), "a@b.com", "x")
	provider.results <- result{err: &identity.ProviderError{Reason: identity.ReasonInvalidCredentials}}
	store.Wait()

	store.SubmitPassword(context.Background(), "a@b.com", "longenoughpw", "https://x/?oobCode=c")
	store.Reset()
	provider.results <- result{sess: &identity.Session{UID: "late"}}
	store.Wait()

	store.SubmitCredentials(context.Background(), "a@b.com", "y")
	provider.results <- result{sess: &identity.Session{UID: "u1"}}
	store.Wait()

	// Ignored once authenticated: nothing is counted.
	store.SubmitCredentials(context.Background(), "a@b.com", "z")
	store.Wait()

	require.Equal(t, submitted+2, testutil.ToFloat64(metrics.LoginSubmissionsTotal.WithLabelValues(password)))
	require.Equal(t, linkSubmitted+1, testutil.ToFloat64(metrics.LoginSubmissionsTotal.WithLabelValues(link)))
	require.Equal(t, failed+1, testutil.ToFloat64(metrics.LoginOutcomesTotal.WithLabelValues(password, string(identity.ReasonInvalidCredentials))))
	require.Equal(t, succeeded+1, testutil.ToFloat64(metrics.LoginOutcomesTotal.WithLabelValues(password, "success")))
	require.Equal(t, discarded+1, testutil.ToFloat64(metrics.LoginOutcomesTotal.WithLabelValues(link, "discarded")))
}

func TestRegistryTracksActiveSessions(t *testing.T) {
	r := NewRegistry(identity.NewStaticProvider(nil), nil)
	before := testutil.ToFloat64(metrics.ActiveLoginSessions)

	_, err := r.Get("sid-a")
	require.NoError(t, err)
	_, err = r.Get("sid-b")
	require.NoError(t, err)
	require.Equal(t, before+2, testutil.ToFloat64(metrics.ActiveLoginSessions))

	r.Drop("sid-a")
	require.Equal(t, before+1, testutil.ToFloat64(metrics.ActiveLoginSessions))

	r.Close()
	require.Equal(t, before, testutil.ToFloat64(metrics.ActiveLoginSessions))
}
