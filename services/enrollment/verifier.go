package enrollmentService

import (
	"context"
	"strings"
	"time"

	"coursehub/models"
	"coursehub/utils"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// PaymentVerifier decides whether a payment proof is good enough to enroll.
type PaymentVerifier interface {
	Verify(ctx context.Context, proof models.PaymentProof) error
}

var paidStatuses = map[string]bool{
	"paid":      true,
	"success":   true,
	"succeeded": true,
	"completed": true,
}

// LocalVerifier trusts the status the client reports.
type LocalVerifier struct{}

func (LocalVerifier) Verify(_ context.Context, proof models.PaymentProof) error {
	if strings.TrimSpace(proof.Method) == "" {
		return utils.ValidationError("payment.method", "payment method is required")
	}
	status := strings.ToLower(strings.TrimSpace(proof.Status))
	if status == "" {
		return utils.ValidationError("payment.status", "payment status is required")
	}
	if !paidStatuses[status] {
		return utils.ValidationError("payment.status", "payment is not completed")
	}
	return nil
}

// RemoteVerifier confirms the transaction with the payment provider after the
// local checks pass.
type RemoteVerifier struct {
	client *resty.Client
	url    string
}

type remoteVerifyRequest struct {
	TransactionID string `json:"transactionId"`
	Method        string `json:"method"`
}

type remoteVerifyResponse struct {
	Verified bool   `json:"verified"`
	Status   string `json:"status"`
}

func NewRemoteVerifier(url, apiKey string, timeout time.Duration) *RemoteVerifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	if apiKey != "" {
		client.SetHeader("X-Api-Key", apiKey)
	}
	return &RemoteVerifier{client: client, url: url}
}

func (v *RemoteVerifier) Verify(ctx context.Context, proof models.PaymentProof) error {
	if err := (LocalVerifier{}).Verify(ctx, proof); err != nil {
		return err
	}
	if proof.TransactionID == nil || strings.TrimSpace(*proof.TransactionID) == "" {
		return utils.ValidationError("payment.transactionId", "transaction id is required")
	}

	var out remoteVerifyResponse
	resp, err := v.client.R().
		SetContext(ctx).
		SetBody(remoteVerifyRequest{TransactionID: *proof.TransactionID, Method: proof.Method}).
		SetResult(&out).
		Post(v.url)
	if err != nil {
		return utils.Persistence("verify payment", errors.Wrap(err, "payment provider request"))
	}
	if resp.StatusCode() >= 500 {
		return utils.Persistence("verify payment", errors.Errorf("payment provider returned %d", resp.StatusCode()))
	}
	if resp.IsError() || !out.Verified {
		utils.Log.Warn("payment rejected by provider", "transactionId", *proof.TransactionID, "status", resp.StatusCode(), "providerStatus", out.Status)
		return utils.ValidationError("payment", "payment could not be verified")
	}
	return nil
}

// NewVerifier picks the remote verifier when a provider URL is configured.
func NewVerifier(url, apiKey string, timeout time.Duration) PaymentVerifier {
	if strings.TrimSpace(url) == "" {
		return LocalVerifier{}
	}
	return NewRemoteVerifier(url, apiKey, timeout)
}
