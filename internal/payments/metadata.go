package payments

import (
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/kaokai/furniture-backend/pkg/db/models"
	"github.com/kaokai/furniture-backend/pkg/enums"
	pkgerrors "github.com/kaokai/furniture-backend/pkg/errors"
)

// Metadata keys written on checkout sessions and their payment intents.
const (
	MetaUserID          = "user_id"
	MetaDeliveryMethod  = "delivery_method"
	MetaDeliveryDetails = "delivery_details"
	MetaSessionID       = "session_id"
)

// MaxDeliveryDetailsLen is the gateway's cap on a single metadata value,
// counted in characters.
const MaxDeliveryDetailsLen = 500

// SessionMeta is what reconciliation needs to turn a paid session into an order.
type SessionMeta struct {
	UserID          int64
	DeliveryMethod  enums.DeliveryMethod
	DeliveryDetails *string
	AmountMinor     int64
	Currency        string
	PaymentIntentID *string
}

// ParseMetadata reads the user and delivery choice back from gateway metadata.
func ParseMetadata(md map[string]string) (SessionMeta, error) {
	userID, ok := metadataUserID(md)
	if !ok {
		return SessionMeta{}, pkgerrors.New(pkgerrors.CodeValidation, "session metadata has no valid user_id")
	}
	method, err := enums.ParseDeliveryMethod(strings.TrimSpace(md[MetaDeliveryMethod]))
	if err != nil {
		return SessionMeta{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "session metadata has an invalid delivery_method")
	}
	meta := SessionMeta{UserID: userID, DeliveryMethod: method}
	if details := strings.TrimSpace(md[MetaDeliveryDetails]); details != "" {
		meta.DeliveryDetails = &details
	}
	return meta, nil
}

func metadataUserID(md map[string]string) (int64, bool) {
	userID, err := strconv.ParseInt(strings.TrimSpace(md[MetaUserID]), 10, 64)
	if err != nil || userID <= 0 {
		return 0, false
	}
	return userID, true
}

// MetadataFromSession builds SessionMeta from a checkout session.
func MetadataFromSession(cs *stripe.CheckoutSession) (SessionMeta, error) {
	if cs == nil {
		return SessionMeta{}, pkgerrors.New(pkgerrors.CodeValidation, "checkout session required")
	}
	meta, err := ParseMetadata(cs.Metadata)
	if err != nil {
		return SessionMeta{}, err
	}
	meta.AmountMinor = cs.AmountTotal
	meta.Currency = string(cs.Currency)
	if cs.PaymentIntent != nil && cs.PaymentIntent.ID != "" {
		id := cs.PaymentIntent.ID
		meta.PaymentIntentID = &id
	}
	return meta, nil
}

// MetadataFromRow rebuilds SessionMeta from the stored session.
func MetadataFromRow(row *models.PaymentSession) SessionMeta {
	return SessionMeta{
		UserID:          row.UserID,
		DeliveryMethod:  row.DeliveryMethod,
		DeliveryDetails: row.DeliveryDetails,
		AmountMinor:     row.AmountMinor,
		Currency:        row.Currency,
		PaymentIntentID: row.PaymentIntentID,
	}
}

func encodeMetadata(userID int64, method enums.DeliveryMethod, details *string) map[string]string {
	md := map[string]string{
		MetaUserID:         strconv.FormatInt(userID, 10),
		MetaDeliveryMethod: method.String(),
	}
	if details != nil && strings.TrimSpace(*details) != "" {
		md[MetaDeliveryDetails] = *details
	}
	return md
}
