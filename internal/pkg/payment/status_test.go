package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/melkbazar/MelkBazar/app/models"
)

func TestNextStatus(t *testing.T) {
	tests := []struct {
		name  string
		from  string
		event string
		want  string
	}{
		{"pending upload", models.PaymentStatusPending, EventUpload, models.PaymentStatusAwaitingApproval},
		{"pending cancel", models.PaymentStatusPending, EventCancel, models.PaymentStatusCancelled},
		{"pending expire", models.PaymentStatusPending, EventExpire, models.PaymentStatusExpired},
		{"pending approve refused", models.PaymentStatusPending, EventApprove, ""},
		{"pending reject refused", models.PaymentStatusPending, EventReject, ""},
		{"awaiting approve", models.PaymentStatusAwaitingApproval, EventApprove, models.PaymentStatusApproved},
		{"awaiting reject", models.PaymentStatusAwaitingApproval, EventReject, models.PaymentStatusRejected},
		{"awaiting cancel refused", models.PaymentStatusAwaitingApproval, EventCancel, ""},
		{"awaiting expire refused", models.PaymentStatusAwaitingApproval, EventExpire, ""},
		{"awaiting upload refused", models.PaymentStatusAwaitingApproval, EventUpload, ""},
		{"unknown status", "limbo", EventUpload, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nextStatus(tt.from, tt.event))
		})
	}
}

func TestTerminalStatusesHaveNoOutgoingEdges(t *testing.T) {
	terminals := []string{
		models.PaymentStatusApproved,
		models.PaymentStatusRejected,
		models.PaymentStatusExpired,
		models.PaymentStatusCancelled,
	}
	events := []string{EventUpload, EventCancel, EventExpire, EventApprove, EventReject}

	for _, status := range terminals {
		for _, event := range events {
			assert.Empty(t, nextStatus(status, event), "status %s must refuse %s", status, event)
		}
	}
}
