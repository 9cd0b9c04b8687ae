package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cartNotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_notifications_total",
			Help: "Cart notifications emitted, by severity",
		},
		[]string{"severity"},
	)

	cartSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storefront_cart_sessions_active",
			Help: "Cart sessions currently held in memory",
		},
	)

	cartSessionsEvictedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_cart_sessions_evicted_total",
			Help: "Idle cart sessions evicted from memory",
		},
	)

	ordersPlacedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_orders_placed_total",
			Help: "Cash-on-delivery orders placed",
		},
	)
)
