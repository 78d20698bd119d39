package notification

import (
	"context"

	"backoffice/internal/domain"
	"backoffice/pkg/logger"
)

// OrderNotificationService уведомления покупателю и администратору
type OrderNotificationService interface {
	SendOrderConfirmation(ctx context.Context, o *domain.Order) error
	SendStatusUpdate(ctx context.Context, o *domain.Order, previous domain.OrderStatus) error
	SendShippingConfirmation(ctx context.Context, o *domain.Order) error
	NotifyAdminNewOrder(ctx context.Context, o *domain.Order) error
}

// LogNotifier пишет уведомления в лог вместо отправки писем
type LogNotifier struct {
	AdminEmail string
}

var _ OrderNotificationService = LogNotifier{}

func recipient(o *domain.Order) string {
	if info := o.ShippingInfo(); info != nil {
		return info.CustomerEmail
	}
	return ""
}

func (n LogNotifier) SendOrderConfirmation(_ context.Context, o *domain.Order) error {
	logger.Log.Info("notify: order confirmation",
		logger.String("to", recipient(o)),
		logger.Stringer("order_id", o.ID()),
		logger.Stringer("total", o.TotalAmount()),
	)
	return nil
}

func (n LogNotifier) SendStatusUpdate(_ context.Context, o *domain.Order, previous domain.OrderStatus) error {
	logger.Log.Info("notify: order status update",
		logger.String("to", recipient(o)),
		logger.Stringer("order_id", o.ID()),
		logger.String("from", string(previous)),
		logger.String("to_status", string(o.Status())),
	)
	return nil
}

func (n LogNotifier) SendShippingConfirmation(_ context.Context, o *domain.Order) error {
	logger.Log.Info("notify: order shipped",
		logger.String("to", recipient(o)),
		logger.Stringer("order_id", o.ID()),
	)
	return nil
}

func (n LogNotifier) NotifyAdminNewOrder(_ context.Context, o *domain.Order) error {
	logger.Log.Info("notify: new order for admin",
		logger.String("to", n.AdminEmail),
		logger.Stringer("order_id", o.ID()),
		logger.Int("lines", len(o.Lines())),
	)
	return nil
}

// Notify рассылает уведомления об изменении статуса; ошибки только логируются
func Notify(ctx context.Context, n OrderNotificationService, o *domain.Order, previous domain.OrderStatus) {
	if n == nil || previous == o.Status() {
		return
	}
	if err := n.SendStatusUpdate(ctx, o, previous); err != nil {
		logger.Log.Warn("status notification failed", logger.Stringer("order_id", o.ID()), logger.Error(err))
	}
	if o.Status() == domain.OrderStatusShipped {
		if err := n.SendShippingConfirmation(ctx, o); err != nil {
			logger.Log.Warn("shipping notification failed", logger.Stringer("order_id", o.ID()), logger.Error(err))
		}
	}
}

// NotifyCreated подтверждение покупателю и сообщение администратору
func NotifyCreated(ctx context.Context, n OrderNotificationService, o *domain.Order) {
	if n == nil {
		return
	}
	if err := n.SendOrderConfirmation(ctx, o); err != nil {
		logger.Log.Warn("order confirmation failed", logger.Stringer("order_id", o.ID()), logger.Error(err))
	}
	if err := n.NotifyAdminNewOrder(ctx, o); err != nil {
		logger.Log.Warn("admin notification failed", logger.Stringer("order_id", o.ID()), logger.Error(err))
	}
}
