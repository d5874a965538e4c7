package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"unistay/internal/services"
	"unistay/internal/utils"
)

const purgeTimeout = time.Minute

// newScheduler registers the maintenance jobs. The caller starts and stops it.
func newScheduler(schedule string, resets services.PasswordResetService) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(time.UTC))
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
		defer cancel()
		n, err := resets.PurgeExpired(ctx)
		if err != nil {
			utils.Logger.WithError(err).Error("[password-reset] purge failed")
			return
		}
		utils.Logger.Infof("[password-reset] purged %d tokens", n)
	})
	if err != nil {
		return nil, fmt.Errorf("schedule token purge %q: %w", schedule, err)
	}
	return c, nil
}
