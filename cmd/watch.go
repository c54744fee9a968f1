package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/YelzhanWeb/campuseats/internal/adapter/events"
	"github.com/YelzhanWeb/campuseats/internal/adapter/logger"
	"github.com/YelzhanWeb/campuseats/internal/app/feed"
	"github.com/YelzhanWeb/campuseats/internal/config"
	"github.com/YelzhanWeb/campuseats/internal/domain"
)

// runVendorWatch follows one restaurant's queue. New-order messages and status
// notifications only shorten the wait for the next poll.
func runVendorWatch(ctx context.Context, cfg *config.Config, lgr logger.Logger, restaurantID string, prefetch int) error {
	store, _, closeStore, err := openStore(ctx, cfg, lgr)
	if err != nil {
		return err
	}
	defer closeStore()

	_, consumer, closeEvents, err := openEvents(cfg, lgr, prefetch)
	if err != nil {
		return err
	}
	defer closeEvents()

	watcher := feed.NewWatcher(func(ctx context.Context) ([]*domain.Order, error) {
		return store.List(ctx, domain.OrderFilter{
			RestaurantID: restaurantID,
			Statuses:     domain.VendorActiveStatuses,
		})
	}, cfg.Sync.PollInterval, lgr)

	if consumer != nil {
		orders := events.NewOrderHandler(watcher, lgr)
		notifications := events.NewNotificationHandler(lgr, nil, watcher)
		go func() {
			if err := consumer.ConsumeOrders(ctx, restaurantID, orders.HandleOrder); err != nil && ctx.Err() == nil {
				lgr.Error("consumer_error", "Error consuming orders", "runtime", nil, err)
			}
		}()
		go func() {
			if err := consumer.ConsumeNotifications(ctx, notifications.HandleNotification); err != nil && ctx.Err() == nil {
				lgr.Error("consumer_error", "Error consuming notifications", "runtime", nil, err)
			}
		}()
	}

	lgr.Info("service_started", fmt.Sprintf("Watching orders for %s", restaurantID), "startup", map[string]interface{}{
		"poll_interval": cfg.Sync.PollInterval.String(),
	})
	return watcher.Watch(ctx, func(d feed.Diff) { printDiff(d, "") })
}

// runRiderWatch follows the pool of ready, unclaimed orders.
func runRiderWatch(ctx context.Context, cfg *config.Config, lgr logger.Logger, prefetch int) error {
	store, _, closeStore, err := openStore(ctx, cfg, lgr)
	if err != nil {
		return err
	}
	defer closeStore()

	_, consumer, closeEvents, err := openEvents(cfg, lgr, prefetch)
	if err != nil {
		return err
	}
	defer closeEvents()

	watcher := feed.NewWatcher(func(ctx context.Context) ([]*domain.Order, error) {
		return store.List(ctx, domain.OrderFilter{
			Statuses:  []domain.Status{domain.StatusReadyForPickup},
			Unclaimed: true,
		})
	}, cfg.Sync.PollInterval, lgr)

	if consumer != nil {
		notifications := events.NewNotificationHandler(lgr, nil, watcher)
		go func() {
			if err := consumer.ConsumeNotifications(ctx, notifications.HandleNotification); err != nil && ctx.Err() == nil {
				lgr.Error("consumer_error", "Error consuming notifications", "runtime", nil, err)
			}
		}()
	}

	directory := cfg.Directory()
	lgr.Info("service_started", "Watching available deliveries", "startup", map[string]interface{}{
		"poll_interval": cfg.Sync.PollInterval.String(),
	})
	return watcher.Watch(ctx, func(d feed.Diff) {
		for _, o := range d.Added {
			r, _ := directory.Lookup(o.RestaurantID)
			task := domain.NewDeliveryTask(o, r)
			fmt.Fprintf(os.Stdout, "AVAILABLE %s  %s -> %s  %s  earn %s\n",
				task.OrderID, task.Restaurant, task.CustomerLocation, task.Items, task.Earnings.StringFixed(2))
		}
		for _, id := range d.Removed {
			fmt.Fprintf(os.Stdout, "GONE      %s\n", id)
		}
	})
}

func printDiff(d feed.Diff, prefix string) {
	for _, o := range d.Added {
		fmt.Fprintf(os.Stdout, "%sNEW     %s  %-16s %s\n", prefix, o.ID, o.Status, summary(o))
	}
	for _, o := range d.Updated {
		fmt.Fprintf(os.Stdout, "%sCHANGED %s  %-16s %s\n", prefix, o.ID, o.Status, summary(o))
	}
	for _, id := range d.Removed {
		fmt.Fprintf(os.Stdout, "%sDONE    %s\n", prefix, id)
	}
}

func summary(o *domain.Order) string {
	parts := make([]string, len(o.Items))
	for i, item := range o.Items {
		parts[i] = fmt.Sprintf("%dx %s", item.Quantity, item.Name)
	}
	return strings.Join(parts, ", ") + "  total " + o.Total.StringFixed(2)
}
