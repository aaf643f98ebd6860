package payment

import (
	"strconv"
	"time"

	"github.com/melkbazar/MelkBazar/internal/pkg/env"
)

// TransferInstructions are the static bank transfer details shown to a paying
// user. They come from configuration, never generated per transaction; the
// transfer key is how an admin matches an incoming transfer to an account.
type TransferInstructions struct {
	BankName      string `json:"bank_name"`
	IBAN          string `json:"iban"`
	AccountHolder string `json:"account_holder"`
	TransferKey   string `json:"transfer_key"`
	WindowHours   int    `json:"window_hours"`
}

// LoadInstructions reads the transfer details from the environment.
func LoadInstructions() TransferInstructions {
	return TransferInstructions{
		BankName:      env.GetEnv("BANK_NAME", ""),
		IBAN:          env.GetEnv("BANK_IBAN", ""),
		AccountHolder: env.GetEnv("BANK_ACCOUNT_HOLDER", ""),
		TransferKey:   env.GetEnv("BANK_TRANSFER_KEY", ""),
		WindowHours:   int(Window().Hours()),
	}
}

// Window returns the configured transfer window for new payments.
func Window() time.Duration {
	hours := 48
	if v, err := strconv.Atoi(env.GetEnv("PAYMENT_WINDOW_HOURS", "48")); err == nil && v > 0 {
		hours = v
	}
	return time.Duration(hours) * time.Hour
}
