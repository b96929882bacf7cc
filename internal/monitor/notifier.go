package monitor

import (
	"context"

	"kpi-monitor/internal/logging"
	"kpi-monitor/internal/models"
)

// notifier fans an alert out to every configured channel. A channel failure
// is logged and never blocks the other channels or the alert itself.
type notifier struct {
	channels []Channel
	logger   *logging.Logger
}

func (n *notifier) Notify(ctx context.Context, alert models.KPIAlert) {
	for _, ch := range n.channels {
		if err := ch.Send(ctx, alert); err != nil {
			n.logger.Errorf("%v", &models.NotificationError{Channel: ch.Name(), Err: err})
			continue
		}
		n.logger.Infof("Alert %s dispatched via %s", alert.ID, ch.Name())
	}
}
