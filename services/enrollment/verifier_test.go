package enrollmentService

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"coursehub/models"
	"coursehub/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalVerifierStatuses(t *testing.T) {
	for _, status := range []string{"paid", "SUCCESS", " succeeded ", "Completed"} {
		assert.NoError(t, LocalVerifier{}.Verify(context.Background(), models.PaymentProof{Method: "upi", Status: status}), status)
	}
	for _, status := range []string{"", "pending", "failed", "refunded"} {
		err := LocalVerifier{}.Verify(context.Background(), models.PaymentProof{Method: "upi", Status: status})
		assert.True(t, utils.IsKind(err, utils.KindValidation), status)
	}
}

func TestRemoteVerifier(t *testing.T) {
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Api-Key")
		var body remoteVerifyRequest
		_ = json.NewDecoder(r.Body).Decode(&body)

		w.Header().Set("Content-Type", "application/json")
		switch body.TransactionID {
		case "txn-ok":
			_ = json.NewEncoder(w).Encode(remoteVerifyResponse{Verified: true, Status: "captured"})
		case "txn-down":
			w.WriteHeader(http.StatusBadGateway)
		default:
			_ = json.NewEncoder(w).Encode(remoteVerifyResponse{Verified: false, Status: "declined"})
		}
	}))
	defer server.Close()

	verifier := NewVerifier(server.URL, "secret-key", time.Second)
	ctx := context.Background()
	proof := func(txn string) models.PaymentProof {
		return models.PaymentProof{Method: "card", Status: "paid", TransactionID: &txn}
	}

	require.NoError(t, verifier.Verify(ctx, proof("txn-ok")))
	assert.Equal(t, "secret-key", gotKey)

	assert.True(t, utils.IsKind(verifier.Verify(ctx, proof("txn-bad")), utils.KindValidation))
	assert.True(t, utils.IsKind(verifier.Verify(ctx, proof("txn-down")), utils.KindPersistence))

	err := verifier.Verify(ctx, models.PaymentProof{Method: "card", Status: "paid"})
	assert.True(t, utils.IsKind(err, utils.KindValidation), "transaction id is required remotely")
}

func TestNewVerifierDefaultsToLocal(t *testing.T) {
	assert.IsType(t, LocalVerifier{}, NewVerifier("  ", "", 0))
}
