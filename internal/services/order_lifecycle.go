package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"go.uber.org/zap"

	"f1-pass-storefront/internal/models"
)

// OrderLifecycle is the post-submission API of an order
type OrderLifecycle interface {
	FetchOrderByReference(ctx context.Context, reference string) (*models.OrderData, bool)
	UploadReceipt(ctx context.Context, reference, filename string, file io.Reader) models.MutationResult
	ConfirmReceipt(ctx context.Context, reference string) models.MutationResult
	RemoveReceipt(ctx context.Context, reference string) models.MutationResult
	SendPaymentInstructionsEmail(ctx context.Context, reference string, sendTo models.SendTo) models.MutationResult
}

type mutationMessages struct {
	success string
	failure string
}

var (
	uploadMessages  = mutationMessages{success: "Receipt uploaded.", failure: "Upload failed."}
	confirmMessages = mutationMessages{success: "Receipt confirmed.", failure: "Failed to confirm."}
	removeMessages  = mutationMessages{success: "Receipt removed.", failure: "Failed to remove."}
	emailMessages   = mutationMessages{success: "Email sent.", failure: "Failed to send."}
)

type mutationResponse struct {
	Status  string  `json:"status"`
	Message *string `json:"message"`
}

type orderEnvelope struct {
	Data json.RawMessage `json:"data"`
}

// FetchOrderByReference loads an order. Any failure reads as "not found".
// An order that decodes only partially is still returned.
func (c *OrderClient) FetchOrderByReference(ctx context.Context, reference string) (*models.OrderData, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.orderURL(reference), nil)
	if err != nil {
		return nil, false
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("order fetch failed", zap.String("reference", reference), zap.Error(err))
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, false
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false
	}

	var envelope orderEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, false
	}
	data := bytes.TrimSpace(envelope.Data)
	if len(data) == 0 || data[0] != '{' {
		return nil, false
	}

	order := &models.OrderData{}
	if err := json.Unmarshal(data, order); err != nil {
		c.logger.Debug("order payload decoded partially", zap.String("reference", reference), zap.Error(err))
		return order, true
	}
	if err := payloadValidator.Struct(order); err != nil {
		c.logger.Debug("order payload failed validation", zap.String("reference", reference), zap.Error(err))
	}
	return order, true
}

// UploadReceipt sends the file as the multipart field "receipt".
func (c *OrderClient) UploadReceipt(ctx context.Context, reference, filename string, file io.Reader) models.MutationResult {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("receipt", filename)
	if err != nil {
		return models.MutationFailure(uploadMessages.failure)
	}
	if _, err := io.Copy(part, file); err != nil {
		return models.MutationFailure(uploadMessages.failure)
	}
	if err := writer.Close(); err != nil {
		return models.MutationFailure(uploadMessages.failure)
	}

	return c.mutate(ctx, "upload receipt", http.MethodPost, c.orderURL(reference)+"/receipt",
		&buf, writer.FormDataContentType(), uploadMessages)
}

// ConfirmReceipt marks the uploaded receipt as final.
func (c *OrderClient) ConfirmReceipt(ctx context.Context, reference string) models.MutationResult {
	return c.mutate(ctx, "confirm receipt", http.MethodPost, c.orderURL(reference)+"/receipt/confirm",
		nil, "", confirmMessages)
}

// RemoveReceipt deletes the unconfirmed receipt.
func (c *OrderClient) RemoveReceipt(ctx context.Context, reference string) models.MutationResult {
	return c.mutate(ctx, "remove receipt", http.MethodDelete, c.orderURL(reference)+"/receipt",
		nil, "", removeMessages)
}

// SendPaymentInstructionsEmail asks the backend to email the payment instructions.
func (c *OrderClient) SendPaymentInstructionsEmail(ctx context.Context, reference string, sendTo models.SendTo) models.MutationResult {
	body, err := json.Marshal(map[string]string{"send_to": string(sendTo)})
	if err != nil {
		return models.MutationFailure(emailMessages.failure)
	}
	return c.mutate(ctx, "send payment instructions", http.MethodPost,
		c.orderURL(reference)+"/payment-instructions/email",
		bytes.NewReader(body), "application/json", emailMessages)
}

// mutate performs a lifecycle call. Success needs a 2xx response whose body
// reports status "success"; the body's message wins over the defaults.
func (c *OrderClient) mutate(ctx context.Context, operation, method, url string, body io.Reader, contentType string, messages mutationMessages) models.MutationResult {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return models.MutationFailure(messages.failure)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn(fmt.Sprintf("%s request failed", operation), zap.Error(err))
		return models.MutationFailure(messages.failure)
	}
	defer resp.Body.Close()

	var parsed mutationResponse
	if raw, err := io.ReadAll(resp.Body); err == nil {
		_ = json.Unmarshal(raw, &parsed)
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300 && parsed.Status == models.StatusSuccess
	if ok {
		if parsed.Message != nil {
			return models.MutationSuccess(*parsed.Message)
		}
		return models.MutationSuccess(messages.success)
	}

	c.logger.Info(fmt.Sprintf("%s rejected", operation), zap.Int("status", resp.StatusCode))
	if parsed.Message != nil {
		return models.MutationFailure(*parsed.Message)
	}
	return models.MutationFailure(messages.failure)
}
