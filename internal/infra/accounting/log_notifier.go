package accounting

import (
	"context"

	"farmops/internal/usecase"

	"github.com/sirupsen/logrus"
)

// ブローカー未設定のときの通知先。ログに残すだけ
type LogNotifier struct {
	log logrus.FieldLogger
}

func NewLogNotifier(log logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) NotifySale(_ context.Context, s usecase.SaleNotification) error {
	n.log.WithFields(logrus.Fields{
		"module":         "accounting",
		"action":         s.Action,
		"sale_id":        s.SaleID,
		"order_id":       s.OrderID,
		"amount":         s.Amount.StringFixed(2),
		"payment_status": s.PaymentStatus,
	}).Info("sale notification")
	return nil
}
