package service

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/wild-pasta-booking/internal/utils"
)

const (
	PrefixReservation = "ORD"
	PrefixTakeout     = "TKO"

	// maxOrderNumberAttempts bounds regeneration after a unique-key collision.
	maxOrderNumberAttempts = 5

	cancelTokenBytes = 32
)

// newOrderNumber returns PREFIXyyyymmdd-XXXXX with the date taken in loc.
// Tests swap it to force collisions.
var newOrderNumber = func(prefix string, at time.Time, loc *time.Location) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:5])
	return prefix + at.In(loc).Format("20060102") + "-" + suffix
}

func newCancelToken() (string, error) { return utils.RandomHex(cancelTokenBytes) }

// GatewayTradeNo is the merchant trade number sent to the payment gateway,
// which only accepts letters and digits.
func GatewayTradeNo(ord string) string { return strings.ReplaceAll(ord, "-", "") }

// OrderNumberFromTradeNo reverses GatewayTradeNo.
func OrderNumberFromTradeNo(tradeNo string) string {
	const head = len(PrefixTakeout) + len("20060102")
	if strings.Contains(tradeNo, "-") || len(tradeNo) <= head {
		return tradeNo
	}
	return tradeNo[:head] + "-" + tradeNo[head:]
}
